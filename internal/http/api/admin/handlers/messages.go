package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/KentaroKojima0029/daiko.kanucard.support/internal/models"
	"github.com/KentaroKojima0029/daiko.kanucard.support/internal/notify"
)

// MessageHandler manages the admin/customer message log.
type MessageHandler struct {
	db         *gorm.DB
	dispatcher *notify.Dispatcher
}

// NewMessageHandler constructs a MessageHandler.
func NewMessageHandler(db *gorm.DB, dispatcher *notify.Dispatcher) *MessageHandler {
	return &MessageHandler{db: db, dispatcher: dispatcher}
}

// List returns messages, optionally filtered by request or unread state.
func (h *MessageHandler) List(c *gin.Context) {
	q := h.db.WithContext(c.Request.Context()).Model(&models.Message{})

	if requestQ := strings.TrimSpace(c.Query("request_id")); requestQ != "" {
		requestID, errParse := strconv.ParseUint(requestQ, 10, 64)
		if errParse != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request_id"})
			return
		}
		q = q.Where("request_id = ?", requestID)
	}
	if unreadQ := strings.TrimSpace(c.Query("unread")); unreadQ == "true" || unreadQ == "1" {
		q = q.Where("read = ?", false)
	}

	var rows []models.Message
	if errFind := q.Order("created_at DESC").Find(&rows).Error; errFind != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "list messages failed"})
		return
	}

	out := make([]gin.H, 0, len(rows))
	for _, row := range rows {
		out = append(out, gin.H{
			"id":        row.ID,
			"requestId": row.RequestID,
			"sender":    row.Sender,
			"recipient": row.Recipient,
			"body":      row.Body,
			"read":      row.Read,
			"createdAt": row.CreatedAt,
		})
	}
	c.JSON(http.StatusOK, gin.H{"messages": out})
}

// createMessageRequest defines the request body for sending a message.
type createMessageRequest struct {
	RequestID *uint64 `json:"requestId"`
	Recipient string  `json:"recipient"`
	Body      string  `json:"body"`
	Email     bool    `json:"email"`
}

// Create records an admin message and optionally mails it to the customer.
func (h *MessageHandler) Create(c *gin.Context) {
	var body createMessageRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}

	recipient := strings.TrimSpace(body.Recipient)
	text := strings.TrimSpace(body.Body)
	if recipient == "" || text == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "recipient and body are required"})
		return
	}

	message := models.Message{
		RequestID: body.RequestID,
		Sender:    readAdminEmailFromContext(c),
		Recipient: recipient,
		Body:      text,
	}
	if errCreate := h.db.WithContext(c.Request.Context()).Create(&message).Error; errCreate != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "create message failed"})
		return
	}

	if body.Email {
		errEnqueue := h.dispatcher.Enqueue(c.Request.Context(), body.RequestID, recipient,
			"Message about your grading request", text)
		if errEnqueue != nil {
			log.WithError(errEnqueue).Warn("queue message notification failed")
		}
	}

	c.JSON(http.StatusCreated, gin.H{"id": message.ID})
}

// MarkRead flags one message as read.
func (h *MessageHandler) MarkRead(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}

	result := h.db.WithContext(c.Request.Context()).Model(&models.Message{}).
		Where("id = ?", id).
		Update("read", true)
	if result.Error != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "update failed"})
		return
	}
	if result.RowsAffected == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

// ContactHandler manages customer inquiries from the admin console.
type ContactHandler struct {
	db *gorm.DB
}

// NewContactHandler constructs a ContactHandler.
func NewContactHandler(db *gorm.DB) *ContactHandler {
	return &ContactHandler{db: db}
}

// List returns inquiries, optionally filtered by status.
func (h *ContactHandler) List(c *gin.Context) {
	q := h.db.WithContext(c.Request.Context()).Model(&models.Contact{})
	if statusQ := strings.TrimSpace(c.Query("status")); statusQ != "" {
		q = q.Where("status = ?", statusQ)
	}

	var rows []models.Contact
	if errFind := q.Order("created_at DESC").Find(&rows).Error; errFind != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "list contacts failed"})
		return
	}

	out := make([]gin.H, 0, len(rows))
	for _, row := range rows {
		out = append(out, gin.H{
			"id":        row.ID,
			"userId":    row.UserID,
			"name":      row.Name,
			"email":     row.Email,
			"subject":   row.Subject,
			"body":      row.Body,
			"status":    row.Status,
			"createdAt": row.CreatedAt,
		})
	}
	c.JSON(http.StatusOK, gin.H{"contacts": out})
}

// MarkAnswered flags one inquiry as answered.
func (h *ContactHandler) MarkAnswered(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}

	var contact models.Contact
	if errFind := h.db.WithContext(c.Request.Context()).First(&contact, id).Error; errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "query failed"})
		return
	}

	if errUpdate := h.db.WithContext(c.Request.Context()).Model(&contact).
		Update("status", models.ContactStatusAnswered).Error; errUpdate != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "update failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}
