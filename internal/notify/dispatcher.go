package notify

import (
	"context"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/KentaroKojima0029/daiko.kanucard.support/internal/models"
)

// flushBatchSize bounds the number of pending rows drained per flush.
const flushBatchSize = 20

// Dispatcher owns the notification outbox.
type Dispatcher struct {
	db       *gorm.DB
	notifier Notifier
}

// NewDispatcher constructs a Dispatcher around a store handle and a backend.
func NewDispatcher(db *gorm.DB, notifier Notifier) *Dispatcher {
	return &Dispatcher{db: db, notifier: notifier}
}

// Enqueue records a pending notification. It is called after the core
// transaction that triggered the notification has committed.
func (d *Dispatcher) Enqueue(ctx context.Context, requestID *uint64, recipient, subject, body string) error {
	row := models.Notification{
		RequestID: requestID,
		Recipient: recipient,
		Subject:   subject,
		Body:      body,
		Status:    models.NotificationStatusPending,
	}
	if errCreate := d.db.WithContext(ctx).Create(&row).Error; errCreate != nil {
		return fmt.Errorf("notify: enqueue: %w", errCreate)
	}
	return nil
}

// Flush delivers pending notifications oldest-first and records each
// outcome. Send failures mark the row failed and move on; they never bubble
// past the dispatcher.
func (d *Dispatcher) Flush(ctx context.Context) (sent, failed int) {
	var pending []models.Notification
	if errFind := d.db.WithContext(ctx).
		Where("status = ?", models.NotificationStatusPending).
		Order("created_at ASC").
		Limit(flushBatchSize).
		Find(&pending).Error; errFind != nil {
		log.WithError(errFind).Error("notify: load pending notifications failed")
		return 0, 0
	}

	for _, row := range pending {
		now := time.Now().UTC()
		errSend := d.notifier.Send(row.Recipient, row.Subject, row.Body)
		updates := map[string]any{}
		if errSend != nil {
			updates["status"] = models.NotificationStatusFailed
			updates["error_message"] = errSend.Error()
			failed++
			log.WithError(errSend).Warnf("notify: delivery to %s failed", row.Recipient)
		} else {
			updates["status"] = models.NotificationStatusSent
			updates["sent_at"] = now
			sent++
		}
		if errUpdate := d.db.WithContext(ctx).Model(&models.Notification{}).
			Where("id = ?", row.ID).Updates(updates).Error; errUpdate != nil {
			log.WithError(errUpdate).Errorf("notify: record outcome for notification %d failed", row.ID)
		}
	}
	return sent, failed
}

// ForRequest returns the notification history of one request, newest first.
func (d *Dispatcher) ForRequest(ctx context.Context, requestID uint64) ([]models.Notification, error) {
	var rows []models.Notification
	if errFind := d.db.WithContext(ctx).
		Where("request_id = ?", requestID).
		Order("created_at DESC").
		Find(&rows).Error; errFind != nil {
		return nil, fmt.Errorf("notify: list for request: %w", errFind)
	}
	return rows, nil
}
