package models

import (
	"time"

	"gorm.io/datatypes"
)

// AdminLog is an append-only audit record of admin actions. Rows are written
// fire-and-forget after successful mutations.
type AdminLog struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"` // Primary key.

	Actor  string `gorm:"type:text;not null;index"` // Acting admin identity.
	Action string `gorm:"type:text;not null"`       // Action name, e.g. "request.step.update".

	TargetID string `gorm:"type:text"` // Identifier of the mutated record, when any.

	Details datatypes.JSON // Structured action details.

	CreatedAt time.Time `gorm:"not null;autoCreateTime;index"` // Action timestamp.
}
