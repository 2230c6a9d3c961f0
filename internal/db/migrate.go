package db

import (
	"fmt"

	"gorm.io/gorm"

	"github.com/KentaroKojima0029/daiko.kanucard.support/internal/models"
)

// Migrate creates or updates the schema for all persisted models.
func Migrate(conn *gorm.DB) error {
	if conn == nil {
		return fmt.Errorf("db: nil connection")
	}
	return conn.AutoMigrate(
		&models.User{},
		&models.Request{},
		&models.Card{},
		&models.ProgressStep{},
		&models.StepDetail{},
		&models.ProgressHistory{},
		&models.Message{},
		&models.Approval{},
		&models.ApprovalCard{},
		&models.Admin{},
		&models.AdminLog{},
		&models.Notification{},
		&models.Contact{},
		&models.Setting{},
	)
}
