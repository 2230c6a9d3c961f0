package models

import "time"

// Notification delivery statuses.
const (
	NotificationStatusPending = "pending"
	NotificationStatusSent    = "sent"
	NotificationStatusFailed  = "failed"
)

// Notification is an outbox row for an outbound email. Core mutations enqueue
// rows after their transaction commits; the dispatcher delivers pending rows
// and records the outcome. Delivery failure never affects core data.
type Notification struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"` // Primary key.

	RequestID *uint64 `gorm:"index"` // Related request, when any.

	Recipient string `gorm:"type:text;not null"` // Destination email address.
	Subject   string `gorm:"type:text"`          // Mail subject.
	Body      string `gorm:"type:text;not null"` // Mail body.

	Status       string `gorm:"type:text;not null;default:'pending';index"` // pending, sent or failed.
	ErrorMessage string `gorm:"type:text"`                                  // Last delivery error, when failed.

	SentAt    *time.Time // Delivery time, when sent.
	CreatedAt time.Time  `gorm:"not null;autoCreateTime"` // Enqueue timestamp.
}
