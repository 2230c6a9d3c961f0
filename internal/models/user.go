package models

import "time"

// User represents a customer identity. Users are created on first submission
// (find-or-create by email) and never deleted.
type User struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"` // Primary key.

	Email string `gorm:"type:text;not null;uniqueIndex"` // Unique contact email.
	Name  string `gorm:"type:text"`                      // Display name.
	Phone string `gorm:"type:text"`                      // Contact phone number.

	CreatedAt time.Time `gorm:"not null;autoCreateTime"` // Creation timestamp.
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime"` // Last update timestamp.
}
