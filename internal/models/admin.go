package models

import "time"

// Admin represents an administrator account stored in the database.
type Admin struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"` // Primary key.

	Email    string `gorm:"type:text;not null;uniqueIndex"` // Unique login email.
	Password string `gorm:"type:text;not null"`             // Hashed password.
	Name     string `gorm:"type:text"`                      // Display name.

	Active bool `gorm:"not null;default:true"` // Whether the admin can sign in.

	TOTPSecret string `gorm:"type:text"` // TOTP secret for MFA, empty when disabled.

	CreatedAt time.Time `gorm:"not null;autoCreateTime"` // Creation timestamp.
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime"` // Last update timestamp.
}
