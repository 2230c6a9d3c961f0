package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/KentaroKojima0029/daiko.kanucard.support/internal/audit"
	"github.com/KentaroKojima0029/daiko.kanucard.support/internal/cache"
	dbutil "github.com/KentaroKojima0029/daiko.kanucard.support/internal/db"
	"github.com/KentaroKojima0029/daiko.kanucard.support/internal/models"
	"github.com/KentaroKojima0029/daiko.kanucard.support/internal/notify"
	"github.com/KentaroKojima0029/daiko.kanucard.support/internal/progress"
	"github.com/KentaroKojima0029/daiko.kanucard.support/internal/request"
	"github.com/KentaroKojima0029/daiko.kanucard.support/internal/settings"
)

// RequestHandler manages grading requests from the admin console.
type RequestHandler struct {
	db            *gorm.DB
	requests      *request.Service
	engine        *progress.Engine
	auditor       *audit.Recorder
	dispatcher    *notify.Dispatcher
	progressCache *cache.ProgressCache
}

// NewRequestHandler constructs a RequestHandler.
func NewRequestHandler(db *gorm.DB, requests *request.Service, engine *progress.Engine, auditor *audit.Recorder, dispatcher *notify.Dispatcher, progressCache *cache.ProgressCache) *RequestHandler {
	return &RequestHandler{
		db:            db,
		requests:      requests,
		engine:        engine,
		auditor:       auditor,
		dispatcher:    dispatcher,
		progressCache: progressCache,
	}
}

// List returns requests filtered by query parameters.
func (h *RequestHandler) List(c *gin.Context) {
	var (
		statusQ   = strings.TrimSpace(c.Query("status"))
		customerQ = strings.TrimSpace(c.Query("customer"))
		countryQ  = strings.TrimSpace(c.Query("country"))
		trackingQ = strings.TrimSpace(c.Query("tracking"))
	)

	q := h.db.WithContext(c.Request.Context()).
		Model(&models.Request{}).
		Preload("User")
	if statusQ != "" {
		q = q.Where("requests.status = ?", statusQ)
	}
	if countryQ != "" {
		q = q.Where("requests.country = ?", countryQ)
	}
	if customerQ != "" {
		pattern := dbutil.NormalizeLikePattern(h.db, "%"+customerQ+"%")
		q = q.Joins("LEFT JOIN users ON users.id = requests.user_id").
			Where(
				dbutil.CaseInsensitiveLikeExpr(h.db, "users.email")+" OR "+dbutil.CaseInsensitiveLikeExpr(h.db, "users.name"),
				pattern, pattern,
			)
	}
	if trackingQ != "" {
		q = q.Joins("JOIN step_details ON step_details.request_id = requests.id").
			Where(dbutil.JSONExtractTextExpr(h.db, "step_details.data", "trackingNumber")+" = ?", trackingQ).
			Distinct("requests.*")
	}

	var rows []models.Request
	if errFind := q.Order("requests.created_at DESC").Find(&rows).Error; errFind != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "list requests failed"})
		return
	}

	out := make([]gin.H, 0, len(rows))
	for _, row := range rows {
		out = append(out, formatRequestSummary(&row))
	}
	c.JSON(http.StatusOK, gin.H{"requests": out})
}

// Get returns one request aggregate with cards and steps.
func (h *RequestHandler) Get(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}

	aggregate, errLoad := h.requests.Aggregate(c.Request.Context(), id)
	if errLoad != nil {
		if errors.Is(errLoad, request.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "load request failed"})
		return
	}
	c.JSON(http.StatusOK, formatRequestDetail(aggregate))
}

// updateStatusRequest defines the request body for status updates.
type updateStatusRequest struct {
	Status     string  `json:"status"`
	AdminNotes *string `json:"adminNotes"`
}

// UpdateStatus changes the aggregate status of a request.
func (h *RequestHandler) UpdateStatus(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}

	var body updateStatusRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}

	updated, errUpdate := h.requests.UpdateStatus(c.Request.Context(), id, strings.TrimSpace(body.Status), body.AdminNotes)
	if errUpdate != nil {
		var vErr *request.ValidationError
		switch {
		case errors.As(errUpdate, &vErr):
			c.JSON(http.StatusBadRequest, gin.H{"error": vErr.Reason})
		case errors.Is(errUpdate, request.ErrNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "update status failed"})
		}
		return
	}

	h.progressCache.Invalidate(c.Request.Context(), updated.PublicID)
	h.auditor.Record(readAdminEmailFromContext(c), "request.status", fmt.Sprintf("%d", id),
		map[string]string{"status": updated.Status})
	c.JSON(http.StatusOK, formatRequestDetail(updated))
}

// transitionRequest defines the request body for a step transition. Notify
// falls back to the configured default when omitted.
type transitionRequest struct {
	Status string          `json:"status"`
	Notes  string          `json:"notes"`
	Detail json.RawMessage `json:"detail"`
	Notify *bool           `json:"notify"`
}

// Transition applies a step transition and moves the current-step pointer.
func (h *RequestHandler) Transition(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}
	stepNumber, errStep := strconv.Atoi(strings.TrimSpace(c.Param("stepNumber")))
	if errStep != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid step number"})
		return
	}

	var body transitionRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}

	actor := readAdminEmailFromContext(c)
	update := progress.Update{
		Status: strings.TrimSpace(body.Status),
		Notes:  body.Notes,
	}
	if len(body.Detail) > 0 {
		update.Detail = datatypes.JSON(body.Detail)
	}

	step, errApply := h.engine.ApplyTransition(c.Request.Context(), id, models.StepNumber(stepNumber), update, actor)
	if errApply != nil {
		switch {
		case errors.Is(errApply, progress.ErrInvalidStep), errors.Is(errApply, progress.ErrInvalidStatus):
			c.JSON(http.StatusBadRequest, gin.H{"error": errApply.Error()})
		case errors.Is(errApply, progress.ErrNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "apply transition failed"})
		}
		return
	}

	aggregate, errLoad := h.requests.Aggregate(c.Request.Context(), id)
	if errLoad != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "load request failed"})
		return
	}

	h.progressCache.Invalidate(c.Request.Context(), aggregate.PublicID)
	h.auditor.Record(actor, "request.step", fmt.Sprintf("%d", id), map[string]any{
		"stepNumber": stepNumber,
		"status":     step.Status,
	})

	shouldNotify := settings.NotifyOnTransition()
	if body.Notify != nil {
		shouldNotify = *body.Notify
	}
	if shouldNotify && aggregate.User != nil && aggregate.User.Email != "" {
		errEnqueue := h.dispatcher.Enqueue(c.Request.Context(), &aggregate.ID, aggregate.User.Email,
			"Your grading request progressed",
			fmt.Sprintf("Step %d (%s) is now %s.", stepNumber, step.StepName, step.Status))
		if errEnqueue != nil {
			log.WithError(errEnqueue).Warn("queue step notification failed")
		}
	}

	c.JSON(http.StatusOK, formatRequestDetail(aggregate))
}

// Detail returns the structured payload stored for one step.
func (h *RequestHandler) Detail(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}
	stepNumber, errStep := strconv.Atoi(strings.TrimSpace(c.Param("stepNumber")))
	if errStep != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid step number"})
		return
	}

	detail, errLoad := h.engine.Detail(c.Request.Context(), id, models.StepNumber(stepNumber))
	if errLoad != nil {
		if errors.Is(errLoad, progress.ErrInvalidStep) {
			c.JSON(http.StatusBadRequest, gin.H{"error": errLoad.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "load detail failed"})
		return
	}
	if detail == nil {
		c.JSON(http.StatusOK, gin.H{"stepNumber": stepNumber, "data": nil})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"stepNumber": int(detail.StepNumber),
		"data":       detail.Data,
		"updatedAt":  detail.UpdatedAt,
	})
}

// History returns the append-only transition log of a request.
func (h *RequestHandler) History(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}

	rows, errLoad := h.engine.History(c.Request.Context(), id)
	if errLoad != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "load history failed"})
		return
	}

	out := make([]gin.H, 0, len(rows))
	for _, row := range rows {
		out = append(out, gin.H{
			"stepNumber": int(row.StepNumber),
			"oldStatus":  row.OldStatus,
			"newStatus":  row.NewStatus,
			"changedBy":  row.ChangedBy,
			"notes":      row.Notes,
			"createdAt":  row.CreatedAt,
		})
	}
	c.JSON(http.StatusOK, gin.H{"history": out})
}

// Notifications returns the delivery log of a request.
func (h *RequestHandler) Notifications(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}

	rows, errLoad := h.dispatcher.ForRequest(c.Request.Context(), id)
	if errLoad != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "load notifications failed"})
		return
	}

	out := make([]gin.H, 0, len(rows))
	for _, row := range rows {
		out = append(out, gin.H{
			"id":        row.ID,
			"recipient": row.Recipient,
			"subject":   row.Subject,
			"status":    row.Status,
			"error":     row.ErrorMessage,
			"sentAt":    row.SentAt,
			"createdAt": row.CreatedAt,
		})
	}
	c.JSON(http.StatusOK, gin.H{"notifications": out})
}

// parseIDParam parses the :id path parameter.
func parseIDParam(c *gin.Context) (uint64, bool) {
	id, errParse := strconv.ParseUint(strings.TrimSpace(c.Param("id")), 10, 64)
	if errParse != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return 0, false
	}
	return id, true
}

func formatRequestSummary(row *models.Request) gin.H {
	out := gin.H{
		"id":          row.ID,
		"publicId":    row.PublicID,
		"status":      row.Status,
		"currentStep": int(row.CurrentStep),
		"country":     row.Country,
		"planType":    row.PlanType,
		"serviceType": row.ServiceType,
		"createdAt":   row.CreatedAt,
		"updatedAt":   row.UpdatedAt,
	}
	if row.User != nil {
		out["customer"] = gin.H{
			"id":    row.User.ID,
			"email": row.User.Email,
			"name":  row.User.Name,
		}
	}
	return out
}

func formatRequestDetail(row *models.Request) gin.H {
	out := formatRequestSummary(row)
	out["totalDeclaredValue"] = row.TotalDeclaredValue
	out["totalEstimatedGradingFee"] = row.TotalEstimatedGradingFee
	out["adminNotes"] = row.AdminNotes
	out["customerNotes"] = row.CustomerNotes

	cards := make([]gin.H, 0, len(row.Cards))
	for _, card := range row.Cards {
		cards = append(cards, gin.H{
			"id":                  card.ID,
			"cardName":            card.CardName,
			"declaredValue":       card.DeclaredValue,
			"estimatedGradingFee": card.EstimatedGradingFee,
			"actualGrade":         card.ActualGrade,
			"gradingFee":          card.GradingFee,
			"conditionNotes":      card.ConditionNotes,
		})
	}
	out["cards"] = cards

	steps := make([]gin.H, 0, len(row.Steps))
	for _, step := range row.Steps {
		steps = append(steps, gin.H{
			"stepNumber": int(step.StepNumber),
			"stepName":   step.StepName,
			"status":     step.Status,
			"notes":      step.Notes,
			"updatedBy":  step.UpdatedBy,
			"updatedAt":  step.UpdatedAt,
		})
	}
	out["steps"] = steps
	return out
}
