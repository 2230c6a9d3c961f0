package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/KentaroKojima0029/daiko.kanucard.support/internal/audit"
	"github.com/KentaroKojima0029/daiko.kanucard.support/internal/models"
	"github.com/KentaroKojima0029/daiko.kanucard.support/internal/settings"
)

// knownSettingKeys lists the keys the update endpoint accepts.
var knownSettingKeys = map[string]bool{
	settings.SiteNameKey:             true,
	settings.MaintenanceNoticeKey:    true,
	settings.ApprovalValidityDaysKey: true,
	settings.NotifyOnTransitionKey:   true,
}

// SettingsHandler manages DB-backed configuration.
type SettingsHandler struct {
	db      *gorm.DB
	auditor *audit.Recorder
}

// NewSettingsHandler constructs a SettingsHandler.
func NewSettingsHandler(db *gorm.DB, auditor *audit.Recorder) *SettingsHandler {
	return &SettingsHandler{db: db, auditor: auditor}
}

// Get returns the effective settings after defaults.
func (h *SettingsHandler) Get(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"siteName":             settings.SiteName(),
		"maintenanceNotice":    settings.MaintenanceNotice(),
		"approvalValidityDays": settings.ApprovalValidityDays(),
		"notifyOnTransition":   settings.NotifyOnTransition(),
		"updatedAt":            settings.DBConfigUpdatedAt(),
	})
}

// Update upserts the submitted keys and refreshes the in-memory snapshot.
func (h *SettingsHandler) Update(c *gin.Context) {
	var body map[string]json.RawMessage
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	if len(body) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "no settings provided"})
		return
	}

	changed := make([]string, 0, len(body))
	for key := range body {
		if !knownSettingKeys[strings.TrimSpace(key)] {
			c.JSON(http.StatusBadRequest, gin.H{"error": "unknown setting " + key})
			return
		}
		changed = append(changed, key)
	}

	errTx := h.db.WithContext(c.Request.Context()).Transaction(func(tx *gorm.DB) error {
		for key, value := range body {
			row := models.Setting{
				Key:   strings.TrimSpace(key),
				Value: datatypes.JSON(value),
			}
			if errUpsert := tx.Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "key"}},
				DoUpdates: clause.Assignments(map[string]any{"value": row.Value}),
			}).Create(&row).Error; errUpsert != nil {
				return errUpsert
			}
		}
		return nil
	})
	if errTx != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "update settings failed"})
		return
	}

	if errRefresh := settings.RefreshDBConfigSnapshot(c.Request.Context(), h.db); errRefresh != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "refresh settings failed"})
		return
	}

	h.auditor.Record(readAdminEmailFromContext(c), "settings.update", "", map[string]any{"keys": changed})
	h.Get(c)
}
