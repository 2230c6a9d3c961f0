package models

import "time"

// Request statuses.
const (
	RequestStatusPending    = "pending"
	RequestStatusInProgress = "in_progress"
	RequestStatusCompleted  = "completed"
	RequestStatusCancelled  = "cancelled"
	RequestStatusDeleted    = "deleted"
)

// Request is a customer's grading/agency submission, the root aggregate of
// the domain. It owns its Cards and exactly six ProgressSteps, which are
// created together and cascade-deleted with it.
type Request struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"` // Primary key.

	PublicID string `gorm:"type:text;not null;uniqueIndex"` // Customer-facing lookup token (UUID).

	UserID uint64 `gorm:"not null;index"`      // Owning user.
	User   *User  `gorm:"foreignKey:UserID"` // Owner record.

	Status      string     `gorm:"type:text;not null;default:'pending'"` // Aggregate request status.
	CurrentStep StepNumber `gorm:"not null;default:1"`                   // Admin-controlled current step pointer.

	Country     string `gorm:"type:text"` // Destination country for the grading agency.
	PlanType    string `gorm:"type:text"` // Service plan, e.g. economy or express.
	ServiceType string `gorm:"type:text"` // Service kind, e.g. psa-grading.

	TotalDeclaredValue       float64 `gorm:"not null;default:0"` // Sum of declared card values.
	TotalEstimatedGradingFee float64 `gorm:"not null;default:0"` // Sum of estimated grading fees.

	AdminNotes    string `gorm:"type:text"` // Internal admin notes, never exposed publicly.
	CustomerNotes string `gorm:"type:text"` // Notes supplied by the customer.

	Cards []Card         `gorm:"foreignKey:RequestID;constraint:OnDelete:CASCADE"` // Owned cards.
	Steps []ProgressStep `gorm:"foreignKey:RequestID;constraint:OnDelete:CASCADE"` // Owned fulfillment steps.

	CreatedAt time.Time `gorm:"not null;autoCreateTime"` // Creation timestamp.
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime"` // Last update timestamp.
}

// Card is one trading card included in a Request. Rows are created only at
// request creation time; grading fields are filled by later step transitions.
type Card struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"` // Primary key.

	RequestID uint64 `gorm:"not null;index;constraint:OnDelete:CASCADE"` // Owning request.

	CardName            string  `gorm:"type:text;not null"` // Card display name.
	DeclaredValue       float64 `gorm:"not null;default:0"` // Customer-declared value.
	EstimatedGradingFee float64 `gorm:"not null;default:0"` // Estimated grading fee.

	ActualGrade    *string  `gorm:"type:text"` // Grade assigned by the agency, when graded.
	GradingFee     *float64 // Final grading fee, when billed.
	ConditionNotes string   `gorm:"type:text"` // Inspection condition notes.

	CreatedAt time.Time `gorm:"not null;autoCreateTime"` // Creation timestamp.
}
