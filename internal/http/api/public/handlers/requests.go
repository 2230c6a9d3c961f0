package handlers

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/KentaroKojima0029/daiko.kanucard.support/internal/cache"
	"github.com/KentaroKojima0029/daiko.kanucard.support/internal/models"
	"github.com/KentaroKojima0029/daiko.kanucard.support/internal/notify"
	"github.com/KentaroKojima0029/daiko.kanucard.support/internal/request"
)

// RequestHandler handles public request submission and progress lookup.
type RequestHandler struct {
	db         *gorm.DB
	requests   *request.Service
	dispatcher *notify.Dispatcher
	progress   *cache.ProgressCache
}

// NewRequestHandler constructs a RequestHandler.
func NewRequestHandler(db *gorm.DB, requests *request.Service, dispatcher *notify.Dispatcher, progress *cache.ProgressCache) *RequestHandler {
	return &RequestHandler{db: db, requests: requests, dispatcher: dispatcher, progress: progress}
}

// Create accepts a new grading request from the public site.
func (h *RequestHandler) Create(c *gin.Context) {
	var body request.CreateInput
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}

	created, errCreate := h.requests.Create(c.Request.Context(), body)
	if errCreate != nil {
		var vErr *request.ValidationError
		if errors.As(errCreate, &vErr) {
			c.JSON(http.StatusBadRequest, gin.H{"error": vErr.Reason})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create request"})
		return
	}

	recipient := ""
	if created.User != nil {
		recipient = created.User.Email
	}
	if recipient != "" {
		errEnqueue := h.dispatcher.Enqueue(c.Request.Context(), &created.ID, recipient,
			"Your grading request has been received",
			"We received your submission. Track progress with ID "+created.PublicID+".")
		if errEnqueue != nil {
			log.WithError(errEnqueue).Warn("queue welcome notification failed")
		}
	}

	c.JSON(http.StatusCreated, gin.H{
		"id":       created.ID,
		"publicId": created.PublicID,
		"status":   created.Status,
	})
}

// progressStepView is the public projection of one fulfillment step.
type progressStepView struct {
	StepNumber int        `json:"stepNumber"`
	Name       string     `json:"name"`
	Status     string     `json:"status"`
	Notes      string     `json:"notes,omitempty"`
	UpdatedAt  *time.Time `json:"updatedAt,omitempty"`
}

// progressView is the public projection of a request. Internal fields such
// as admin notes and fee totals are never included.
type progressView struct {
	Status       string             `json:"status"`
	CurrentStep  int                `json:"currentStep"`
	CustomerName string             `json:"customerName"`
	CreatedAt    time.Time          `json:"createdAt"`
	Steps        []progressStepView `json:"steps"`
}

// Progress returns the customer-facing progress view for a public ID.
func (h *RequestHandler) Progress(c *gin.Context) {
	publicID := strings.TrimSpace(c.Param("publicId"))
	if publicID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing public id"})
		return
	}

	var view progressView
	if errCached := h.progress.Get(c.Request.Context(), publicID, &view); errCached == nil {
		c.JSON(http.StatusOK, view)
		return
	}

	aggregate, errLoad := h.requests.AggregateByPublicID(c.Request.Context(), publicID)
	if errLoad != nil {
		if errors.Is(errLoad, request.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "request not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load request"})
		return
	}

	view = renderProgressView(aggregate)
	h.progress.Set(c.Request.Context(), publicID, view)
	c.JSON(http.StatusOK, view)
}

func renderProgressView(aggregate *models.Request) progressView {
	view := progressView{
		Status:      aggregate.Status,
		CurrentStep: int(aggregate.CurrentStep),
		CreatedAt:   aggregate.CreatedAt,
		Steps:       make([]progressStepView, 0, len(aggregate.Steps)),
	}
	if aggregate.User != nil {
		view.CustomerName = aggregate.User.Name
	}
	for _, step := range aggregate.Steps {
		item := progressStepView{
			StepNumber: int(step.StepNumber),
			Name:       step.StepNumber.Name(),
			Status:     step.Status,
			Notes:      step.Notes,
		}
		if !step.UpdatedAt.IsZero() {
			updatedAt := step.UpdatedAt
			item.UpdatedAt = &updatedAt
		}
		view.Steps = append(view.Steps, item)
	}
	return view
}
