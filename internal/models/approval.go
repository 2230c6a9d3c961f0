package models

import "time"

// Approval statuses. An approval becomes terminal once the customer submits
// a decision; no admin-side finalize transition is modeled.
const (
	ApprovalStatusPending   = "pending"
	ApprovalStatusSubmitted = "submitted"
)

// Approval card decision statuses.
const (
	ApprovalCardStatusPending = "pending"
)

// Approval is a buyback-price confirmation flow keyed by a shareable token.
// It is an independent root, deliberately not linked to Request.
type Approval struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"` // Primary key.

	ApprovalKey string `gorm:"type:text;not null;uniqueIndex"` // Customer-facing random token.

	CustomerName  string `gorm:"type:text;not null"` // Customer display name.
	CustomerEmail string `gorm:"type:text;not null"` // Customer contact email.

	TotalPrice float64 `gorm:"not null;default:0"` // Total offered buyback price.

	Status string `gorm:"type:text;not null;default:'pending'"` // pending or submitted.

	ValidUntil *time.Time // Response deadline, when set.

	Cards []ApprovalCard `gorm:"foreignKey:ApprovalID;constraint:OnDelete:CASCADE"` // Offered cards.

	CreatedAt time.Time `gorm:"not null;autoCreateTime"` // Creation timestamp.
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime"` // Last update timestamp.
}

// ApprovalCard is one card offered within an Approval along with the
// customer's recorded decision.
type ApprovalCard struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"` // Primary key.

	ApprovalID uint64 `gorm:"not null;index;constraint:OnDelete:CASCADE"` // Owning approval.

	CardName string  `gorm:"type:text;not null"` // Card display name, matched by response decisions.
	Price    float64 `gorm:"not null;default:0"` // Offered price for this card.

	Status           string `gorm:"type:text;not null;default:'pending'"` // Card-level status.
	CustomerDecision string `gorm:"type:text"`                            // Decision recorded by the customer.
	CustomerComment  string `gorm:"type:text"`                            // Optional customer comment.
}
