package notify

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"

	"github.com/KentaroKojima0029/daiko.kanucard.support/internal/models"
)

func setupNotifyTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:notify_%d?mode=memory&cache=shared", time.Now().UnixNano())
	conn, errOpen := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if errOpen != nil {
		t.Fatalf("open db: %v", errOpen)
	}
	if errMigrate := conn.AutoMigrate(&models.Notification{}); errMigrate != nil {
		t.Fatalf("migrate db: %v", errMigrate)
	}
	return conn
}

// recordingNotifier captures sends and fails on demand.
type recordingNotifier struct {
	sent    []string
	failFor map[string]bool
}

func (n *recordingNotifier) Send(recipient, subject, body string) error {
	if n.failFor[recipient] {
		return errors.New("relay unavailable")
	}
	n.sent = append(n.sent, recipient)
	return nil
}

func TestDispatcherFlush(t *testing.T) {
	t.Parallel()

	conn := setupNotifyTestDB(t)
	backend := &recordingNotifier{failFor: map[string]bool{"down@example.com": true}}
	dispatcher := NewDispatcher(conn, backend)
	ctx := context.Background()

	if errEnqueue := dispatcher.Enqueue(ctx, nil, "ok@example.com", "progress", "step updated"); errEnqueue != nil {
		t.Fatalf("enqueue: %v", errEnqueue)
	}
	if errEnqueue := dispatcher.Enqueue(ctx, nil, "down@example.com", "progress", "step updated"); errEnqueue != nil {
		t.Fatalf("enqueue: %v", errEnqueue)
	}

	sent, failed := dispatcher.Flush(ctx)
	if sent != 1 || failed != 1 {
		t.Fatalf("flush = %d sent / %d failed, want 1/1", sent, failed)
	}

	var rows []models.Notification
	if errFind := conn.Order("id ASC").Find(&rows).Error; errFind != nil {
		t.Fatalf("reload notifications: %v", errFind)
	}
	if rows[0].Status != models.NotificationStatusSent || rows[0].SentAt == nil {
		t.Fatalf("row 0 = %q sent_at=%v, want sent with timestamp", rows[0].Status, rows[0].SentAt)
	}
	if rows[1].Status != models.NotificationStatusFailed || rows[1].ErrorMessage == "" {
		t.Fatalf("row 1 = %q err=%q, want failed with message", rows[1].Status, rows[1].ErrorMessage)
	}

	// A second flush must not retry terminal rows.
	sent, failed = dispatcher.Flush(ctx)
	if sent != 0 || failed != 0 {
		t.Fatalf("second flush = %d/%d, want 0/0", sent, failed)
	}
}

func TestDispatcherForRequest(t *testing.T) {
	t.Parallel()

	conn := setupNotifyTestDB(t)
	dispatcher := NewDispatcher(conn, LogNotifier{})
	ctx := context.Background()

	requestID := uint64(42)
	if errEnqueue := dispatcher.Enqueue(ctx, &requestID, "a@example.com", "s", "b"); errEnqueue != nil {
		t.Fatalf("enqueue: %v", errEnqueue)
	}
	if errEnqueue := dispatcher.Enqueue(ctx, nil, "b@example.com", "s", "b"); errEnqueue != nil {
		t.Fatalf("enqueue: %v", errEnqueue)
	}

	rows, errList := dispatcher.ForRequest(ctx, requestID)
	if errList != nil {
		t.Fatalf("for request: %v", errList)
	}
	if len(rows) != 1 || rows[0].Recipient != "a@example.com" {
		t.Fatalf("rows = %+v, want single row for request 42", rows)
	}
}
