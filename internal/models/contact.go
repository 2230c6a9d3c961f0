package models

import "time"

// Contact statuses.
const (
	ContactStatusNew      = "new"
	ContactStatusAnswered = "answered"
)

// Contact is a customer inquiry submitted through the public site.
type Contact struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"` // Primary key.

	UserID *uint64 `gorm:"index"` // Related user, when known.

	Name    string `gorm:"type:text;not null"` // Sender name.
	Email   string `gorm:"type:text;not null"` // Sender email.
	Subject string `gorm:"type:text;not null"` // Inquiry subject.
	Body    string `gorm:"type:text;not null"` // Inquiry body.

	Status string `gorm:"type:text;not null;default:'new'"` // new or answered.

	CreatedAt time.Time `gorm:"not null;autoCreateTime"` // Creation timestamp.
}
