package models

import (
	"time"

	"gorm.io/datatypes"
)

// Setting is one DB-backed configuration value. Values are raw JSON so each
// key can carry its own shape.
type Setting struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"` // Primary key.

	Key   string         `gorm:"type:text;not null;uniqueIndex"` // Setting name.
	Value datatypes.JSON `gorm:"not null"`                       // Raw JSON value.

	UpdatedAt time.Time `gorm:"not null;autoUpdateTime"` // Last change timestamp.
}
