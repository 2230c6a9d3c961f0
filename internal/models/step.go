package models

import (
	"time"

	"gorm.io/datatypes"
)

// StepNumber identifies one of the six fixed fulfillment steps of a Request.
type StepNumber int

// The fixed fulfillment pipeline. Every Request owns exactly one step row per number.
const (
	StepSubmission StepNumber = 1 // Submission received.
	StepInspection StepNumber = 2 // Card intake and inspection.
	StepAgencyFee  StepNumber = 3 // Agency-fee payment.
	StepGrading    StepNumber = 4 // Grading in progress.
	StepGradingFee StepNumber = 5 // Grading-fee payment.
	StepReturn     StepNumber = 6 // Return shipment and completion.
)

// StepCount is the fixed number of steps per request.
const StepCount = 6

// stepNames maps each step number to its fixed display name.
var stepNames = map[StepNumber]string{
	StepSubmission: "submission received",
	StepInspection: "inspection/intake",
	StepAgencyFee:  "agency-fee payment",
	StepGrading:    "grading in progress",
	StepGradingFee: "grading-fee payment",
	StepReturn:     "return/complete",
}

// Valid reports whether n is within the fixed step range.
func (n StepNumber) Valid() bool {
	return n >= StepSubmission && n <= StepReturn
}

// Name returns the fixed display name for the step, or an empty string for
// out-of-range values.
func (n StepNumber) Name() string {
	return stepNames[n]
}

// Progress step statuses.
const (
	StepStatusPending   = "pending"
	StepStatusCurrent   = "current"
	StepStatusCompleted = "completed"
)

// ProgressStep is one fulfillment step attached to a Request. Exactly one row
// exists per (request_id, step_number).
type ProgressStep struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"` // Primary key.

	RequestID  uint64     `gorm:"not null;uniqueIndex:idx_progress_request_step;constraint:OnDelete:CASCADE"` // Owning request.
	StepNumber StepNumber `gorm:"not null;uniqueIndex:idx_progress_request_step"`                             // Step position in [1,6].

	StepName string `gorm:"type:text;not null"`                   // Fixed name for the step number.
	Status   string `gorm:"type:text;not null;default:'pending'"` // pending, current or completed.

	UpdatedBy string `gorm:"type:text"` // Actor of the last transition.
	Notes     string `gorm:"type:text"` // Free-form transition notes.

	CreatedAt time.Time `gorm:"not null;autoCreateTime"` // Creation timestamp.
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime"` // Last transition timestamp.
}

// StepDetail carries free-form structured data for one step of a Request,
// e.g. tracking numbers or fee breakdowns. At most one row exists per
// (request_id, step_number); transitions upsert it. The payload shape varies
// per step and is kept opaque behind a JSON column.
type StepDetail struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"` // Primary key.

	RequestID  uint64     `gorm:"not null;uniqueIndex:idx_step_detail_request_step;constraint:OnDelete:CASCADE"` // Owning request.
	StepNumber StepNumber `gorm:"not null;uniqueIndex:idx_step_detail_request_step"`                             // Step position in [1,6].

	Data datatypes.JSON `gorm:"not null"` // Opaque per-step payload.

	CreatedAt time.Time `gorm:"not null;autoCreateTime"` // Creation timestamp.
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime"` // Last upsert timestamp.
}

// ProgressHistory is an append-only record of step status changes.
type ProgressHistory struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"` // Primary key.

	RequestID  uint64     `gorm:"not null;index;constraint:OnDelete:CASCADE"` // Owning request.
	StepNumber StepNumber `gorm:"not null"`                                   // Step that changed.

	OldStatus string `gorm:"type:text"`          // Status before the change.
	NewStatus string `gorm:"type:text;not null"` // Status after the change.
	ChangedBy string `gorm:"type:text"`          // Actor of the change.
	Notes     string `gorm:"type:text"`          // Transition notes.

	CreatedAt time.Time `gorm:"not null;autoCreateTime"` // Change timestamp.
}
