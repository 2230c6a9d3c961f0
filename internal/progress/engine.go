// Package progress owns the fixed six-step fulfillment lifecycle of a
// request: step initialization at creation time, step transitions, the
// request's current-step pointer and the per-step detail payloads.
package progress

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/KentaroKojima0029/daiko.kanucard.support/internal/models"
)

// Engine errors.
var (
	// ErrInvalidStep indicates a step number outside [1,6].
	ErrInvalidStep = errors.New("progress: step number out of range")
	// ErrInvalidStatus indicates an unknown step status value.
	ErrInvalidStatus = errors.New("progress: unknown step status")
	// ErrNotFound indicates the request or its step row does not exist.
	ErrNotFound = errors.New("progress: step not found")
)

// Update describes a step transition requested by an actor.
type Update struct {
	Status string         // Target status; defaults to "current" when empty.
	Notes  string         // Free-form transition notes.
	Detail datatypes.JSON // Optional structured payload upserted into the step detail row.
}

// Engine applies step transitions against the backing store.
type Engine struct {
	db *gorm.DB
}

// NewEngine constructs an Engine around an open store handle.
func NewEngine(db *gorm.DB) *Engine {
	return &Engine{db: db}
}

// InitSteps creates the six fixed step rows for a freshly created request.
// Step 1 is created already completed: the submission itself is the
// completion event. It must run inside the request-creation transaction so
// a request is never visible with a partial step set.
func InitSteps(tx *gorm.DB, requestID uint64, actor string) error {
	if tx == nil {
		return fmt.Errorf("progress: nil transaction")
	}
	steps := make([]models.ProgressStep, 0, models.StepCount)
	for n := models.StepSubmission; n <= models.StepReturn; n++ {
		step := models.ProgressStep{
			RequestID:  requestID,
			StepNumber: n,
			StepName:   n.Name(),
			Status:     models.StepStatusPending,
		}
		if n == models.StepSubmission {
			step.Status = models.StepStatusCompleted
			step.Notes = "submission received"
			step.UpdatedBy = actor
		}
		steps = append(steps, step)
	}
	if errCreate := tx.Create(&steps).Error; errCreate != nil {
		return fmt.Errorf("progress: init steps: %w", errCreate)
	}
	return nil
}

// ApplyTransition updates one step of a request and moves the request's
// current-step pointer to that step. The pointer follows the caller's target
// unconditionally: the admin decides which step is current, and the engine
// does not enforce completed-before-current ordering. Backward transitions
// are allowed. The step update, pointer move, history record and detail
// upsert commit in a single transaction.
func (e *Engine) ApplyTransition(ctx context.Context, requestID uint64, step models.StepNumber, update Update, actor string) (*models.ProgressStep, error) {
	if !step.Valid() {
		return nil, ErrInvalidStep
	}
	status := update.Status
	if status == "" {
		status = models.StepStatusCurrent
	}
	switch status {
	case models.StepStatusPending, models.StepStatusCurrent, models.StepStatusCompleted:
	default:
		return nil, ErrInvalidStatus
	}

	var row models.ProgressStep
	errTx := e.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if errFind := tx.Where("request_id = ? AND step_number = ?", requestID, step).
			First(&row).Error; errFind != nil {
			if errors.Is(errFind, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return fmt.Errorf("progress: load step: %w", errFind)
		}
		oldStatus := row.Status

		now := time.Now().UTC()
		row.Status = status
		row.Notes = update.Notes
		row.UpdatedBy = actor
		row.UpdatedAt = now
		if errSave := tx.Model(&models.ProgressStep{}).Where("id = ?", row.ID).Updates(map[string]any{
			"status":     row.Status,
			"notes":      row.Notes,
			"updated_by": row.UpdatedBy,
			"updated_at": row.UpdatedAt,
		}).Error; errSave != nil {
			return fmt.Errorf("progress: update step: %w", errSave)
		}

		if errPointer := tx.Model(&models.Request{}).Where("id = ?", requestID).
			Updates(map[string]any{"current_step": step, "updated_at": now}).Error; errPointer != nil {
			return fmt.Errorf("progress: update current step: %w", errPointer)
		}

		history := models.ProgressHistory{
			RequestID:  requestID,
			StepNumber: step,
			OldStatus:  oldStatus,
			NewStatus:  status,
			ChangedBy:  actor,
			Notes:      update.Notes,
		}
		if errHistory := tx.Create(&history).Error; errHistory != nil {
			return fmt.Errorf("progress: record history: %w", errHistory)
		}

		if len(update.Detail) > 0 {
			detail := models.StepDetail{
				RequestID:  requestID,
				StepNumber: step,
				Data:       update.Detail,
				UpdatedAt:  now,
			}
			if errUpsert := tx.Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "request_id"}, {Name: "step_number"}},
				DoUpdates: clause.Assignments(map[string]any{"data": update.Detail, "updated_at": now}),
			}).Create(&detail).Error; errUpsert != nil {
				return fmt.Errorf("progress: upsert step detail: %w", errUpsert)
			}
		}
		return nil
	})
	if errTx != nil {
		return nil, errTx
	}
	return &row, nil
}

// Steps returns the step rows of a request ordered by step number.
func (e *Engine) Steps(ctx context.Context, requestID uint64) ([]models.ProgressStep, error) {
	var steps []models.ProgressStep
	if errFind := e.db.WithContext(ctx).
		Where("request_id = ?", requestID).
		Order("step_number ASC").
		Find(&steps).Error; errFind != nil {
		return nil, fmt.Errorf("progress: list steps: %w", errFind)
	}
	return steps, nil
}

// Detail returns the detail payload row for one step of a request, or nil
// when no payload has been recorded.
func (e *Engine) Detail(ctx context.Context, requestID uint64, step models.StepNumber) (*models.StepDetail, error) {
	if !step.Valid() {
		return nil, ErrInvalidStep
	}
	var detail models.StepDetail
	errFind := e.db.WithContext(ctx).
		Where("request_id = ? AND step_number = ?", requestID, step).
		First(&detail).Error
	if errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("progress: load step detail: %w", errFind)
	}
	return &detail, nil
}

// History returns the append-only transition history of a request, newest
// first.
func (e *Engine) History(ctx context.Context, requestID uint64) ([]models.ProgressHistory, error) {
	var rows []models.ProgressHistory
	if errFind := e.db.WithContext(ctx).
		Where("request_id = ?", requestID).
		Order("created_at DESC").
		Find(&rows).Error; errFind != nil {
		return nil, fmt.Errorf("progress: list history: %w", errFind)
	}
	return rows, nil
}
