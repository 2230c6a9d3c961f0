package handlers

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"

	"github.com/KentaroKojima0029/daiko.kanucard.support/internal/approval"
	"github.com/KentaroKojima0029/daiko.kanucard.support/internal/audit"
	"github.com/KentaroKojima0029/daiko.kanucard.support/internal/models"
	"github.com/KentaroKojima0029/daiko.kanucard.support/internal/notify"
	"github.com/KentaroKojima0029/daiko.kanucard.support/internal/settings"
	"github.com/KentaroKojima0029/daiko.kanucard.support/internal/util"
)

// ApprovalHandler manages buyback approvals from the admin console.
type ApprovalHandler struct {
	approvals  *approval.Service
	auditor    *audit.Recorder
	dispatcher *notify.Dispatcher
}

// NewApprovalHandler constructs an ApprovalHandler.
func NewApprovalHandler(approvals *approval.Service, auditor *audit.Recorder, dispatcher *notify.Dispatcher) *ApprovalHandler {
	return &ApprovalHandler{approvals: approvals, auditor: auditor, dispatcher: dispatcher}
}

// Create issues a new approval and mails the shareable key to the customer.
func (h *ApprovalHandler) Create(c *gin.Context) {
	var body approval.CreateInput
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	if body.ValidUntil == nil {
		deadline := time.Now().UTC().AddDate(0, 0, settings.ApprovalValidityDays())
		body.ValidUntil = &deadline
	}

	created, errCreate := h.approvals.Create(c.Request.Context(), body)
	if errCreate != nil {
		var vErr *approval.ValidationError
		if errors.As(errCreate, &vErr) {
			c.JSON(http.StatusBadRequest, gin.H{"error": vErr.Reason})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "create approval failed"})
		return
	}

	h.auditor.Record(readAdminEmailFromContext(c), "approval.create", util.MaskToken(created.ApprovalKey),
		map[string]any{"customerEmail": util.MaskEmail(created.CustomerEmail), "totalPrice": created.TotalPrice})
	errEnqueue := h.dispatcher.Enqueue(c.Request.Context(), nil, created.CustomerEmail,
		"Buyback offer awaiting your confirmation",
		"Please review your buyback offer using key "+created.ApprovalKey+".")
	if errEnqueue != nil {
		log.WithError(errEnqueue).Warn("queue approval notification failed")
	}

	c.JSON(http.StatusCreated, formatApproval(created))
}

// List returns all approvals, newest first.
func (h *ApprovalHandler) List(c *gin.Context) {
	rows, errList := h.approvals.List(c.Request.Context())
	if errList != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "list approvals failed"})
		return
	}

	out := make([]gin.H, 0, len(rows))
	for i := range rows {
		out = append(out, formatApproval(&rows[i]))
	}
	c.JSON(http.StatusOK, gin.H{"approvals": out})
}

// Get returns one approval by its key, including recorded decisions.
func (h *ApprovalHandler) Get(c *gin.Context) {
	key := strings.TrimSpace(c.Param("key"))
	if key == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing approval key"})
		return
	}

	found, errLoad := h.approvals.ByKey(c.Request.Context(), key)
	if errLoad != nil {
		if errors.Is(errLoad, approval.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "load approval failed"})
		return
	}
	c.JSON(http.StatusOK, formatApproval(found))
}

func formatApproval(row *models.Approval) gin.H {
	cards := make([]gin.H, 0, len(row.Cards))
	for _, card := range row.Cards {
		cards = append(cards, gin.H{
			"id":               card.ID,
			"cardName":         card.CardName,
			"price":            card.Price,
			"status":           card.Status,
			"customerDecision": card.CustomerDecision,
			"customerComment":  card.CustomerComment,
		})
	}
	return gin.H{
		"id":            row.ID,
		"approvalKey":   row.ApprovalKey,
		"customerName":  row.CustomerName,
		"customerEmail": row.CustomerEmail,
		"totalPrice":    row.TotalPrice,
		"status":        row.Status,
		"validUntil":    row.ValidUntil,
		"cards":         cards,
		"createdAt":     row.CreatedAt,
		"updatedAt":     row.UpdatedAt,
	}
}
