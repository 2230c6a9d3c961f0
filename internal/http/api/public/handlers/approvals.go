package handlers

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/KentaroKojima0029/daiko.kanucard.support/internal/approval"
	"github.com/KentaroKojima0029/daiko.kanucard.support/internal/models"
)

// ApprovalHandler handles the customer side of the buyback approval flow.
type ApprovalHandler struct {
	approvals *approval.Service
}

// NewApprovalHandler constructs an ApprovalHandler.
func NewApprovalHandler(approvals *approval.Service) *ApprovalHandler {
	return &ApprovalHandler{approvals: approvals}
}

// approvalCardView is the customer projection of one offered card.
type approvalCardView struct {
	CardName         string  `json:"cardName"`
	Price            float64 `json:"price"`
	Status           string  `json:"status"`
	CustomerDecision string  `json:"customerDecision,omitempty"`
	CustomerComment  string  `json:"customerComment,omitempty"`
}

// approvalView is the customer projection of an approval.
type approvalView struct {
	CustomerName string             `json:"customerName"`
	TotalPrice   float64            `json:"totalPrice"`
	Status       string             `json:"status"`
	ValidUntil   *time.Time         `json:"validUntil,omitempty"`
	Cards        []approvalCardView `json:"cards"`
}

func renderApprovalView(a *models.Approval) approvalView {
	view := approvalView{
		CustomerName: a.CustomerName,
		TotalPrice:   a.TotalPrice,
		Status:       a.Status,
		ValidUntil:   a.ValidUntil,
		Cards:        make([]approvalCardView, 0, len(a.Cards)),
	}
	for _, card := range a.Cards {
		view.Cards = append(view.Cards, approvalCardView{
			CardName:         card.CardName,
			Price:            card.Price,
			Status:           card.Status,
			CustomerDecision: card.CustomerDecision,
			CustomerComment:  card.CustomerComment,
		})
	}
	return view
}

// Get returns the approval addressed by its shareable key.
func (h *ApprovalHandler) Get(c *gin.Context) {
	key := strings.TrimSpace(c.Param("key"))
	if key == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing approval key"})
		return
	}

	found, errLoad := h.approvals.ByKey(c.Request.Context(), key)
	if errLoad != nil {
		if errors.Is(errLoad, approval.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "approval not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load approval"})
		return
	}
	c.JSON(http.StatusOK, renderApprovalView(found))
}

// respondRequest defines the request body for submitting card decisions.
type respondRequest struct {
	Decisions []approval.CardDecision `json:"decisions"`
}

// Respond records the customer's per-card decisions.
func (h *ApprovalHandler) Respond(c *gin.Context) {
	key := strings.TrimSpace(c.Param("key"))
	if key == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing approval key"})
		return
	}

	var body respondRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}

	updated, errRecord := h.approvals.RecordResponse(c.Request.Context(), key, body.Decisions)
	if errRecord != nil {
		switch {
		case errors.Is(errRecord, approval.ErrNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "approval not found"})
		case errors.Is(errRecord, approval.ErrAlreadyResponded):
			c.JSON(http.StatusConflict, gin.H{"error": "approval already responded"})
		case errors.Is(errRecord, approval.ErrExpired):
			c.JSON(http.StatusGone, gin.H{"error": "approval deadline has passed"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to record response"})
		}
		return
	}
	c.JSON(http.StatusOK, renderApprovalView(updated))
}
