// Package audit records admin actions after successful mutations.
package audit

import (
	"context"
	"encoding/json"
	"time"

	log "github.com/sirupsen/logrus"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/KentaroKojima0029/daiko.kanucard.support/internal/models"
)

// Recorder writes audit rows fire-and-forget. A failed write is logged and
// never propagated to the operation that triggered it.
type Recorder struct {
	db *gorm.DB
}

// NewRecorder constructs a Recorder around an open store handle.
func NewRecorder(db *gorm.DB) *Recorder {
	return &Recorder{db: db}
}

// Record persists one audit entry in a background goroutine. Details may be
// any JSON-marshalable value and is dropped when it fails to marshal.
func (r *Recorder) Record(actor, action, targetID string, details any) {
	if r == nil || r.db == nil {
		return
	}

	var payload datatypes.JSON
	if details != nil {
		if data, errMarshal := json.Marshal(details); errMarshal == nil {
			payload = data
		} else {
			log.WithError(errMarshal).Warnf("audit: drop details for action %s", action)
		}
	}

	entry := models.AdminLog{
		Actor:    actor,
		Action:   action,
		TargetID: targetID,
		Details:  payload,
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if errCreate := r.db.WithContext(ctx).Create(&entry).Error; errCreate != nil {
			log.WithError(errCreate).Errorf("audit: record %s by %s failed", action, actor)
		}
	}()
}

// Recent returns the newest audit entries up to limit.
func (r *Recorder) Recent(ctx context.Context, limit int) ([]models.AdminLog, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	var rows []models.AdminLog
	if errFind := r.db.WithContext(ctx).
		Order("created_at DESC").
		Limit(limit).
		Find(&rows).Error; errFind != nil {
		return nil, errFind
	}
	return rows, nil
}

// Prune deletes audit entries older than the retention window.
func (r *Recorder) Prune(ctx context.Context, retention time.Duration) (int64, error) {
	cutoff := time.Now().UTC().Add(-retention)
	result := r.db.WithContext(ctx).Where("created_at < ?", cutoff).Delete(&models.AdminLog{})
	return result.RowsAffected, result.Error
}
