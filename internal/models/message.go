package models

import "time"

// Message is one entry of the admin/customer message thread. Messages are
// append-only; the read flag is the only mutable field.
type Message struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"` // Primary key.

	RequestID *uint64 `gorm:"index"` // Related request, nil for general messages.

	Sender    string `gorm:"type:text;not null"` // Sender identity, e.g. "admin" or a customer email.
	Recipient string `gorm:"type:text;not null"` // Recipient identity.
	Body      string `gorm:"type:text;not null"` // Message body.

	Read bool `gorm:"not null;default:false"` // Whether the recipient has read the message.

	CreatedAt time.Time `gorm:"not null;autoCreateTime"` // Creation timestamp.
}
