package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/KentaroKojima0029/daiko.kanucard.support/internal/models"
)

// ContactHandler accepts customer inquiries from the public site.
type ContactHandler struct {
	db *gorm.DB
}

// NewContactHandler constructs a ContactHandler.
func NewContactHandler(db *gorm.DB) *ContactHandler {
	return &ContactHandler{db: db}
}

// contactRequest defines the request body for submitting an inquiry.
type contactRequest struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

// Create stores a new inquiry.
func (h *ContactHandler) Create(c *gin.Context) {
	var body contactRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}

	name := strings.TrimSpace(body.Name)
	email := strings.ToLower(strings.TrimSpace(body.Email))
	subject := strings.TrimSpace(body.Subject)
	text := strings.TrimSpace(body.Body)
	if name == "" || email == "" || text == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "name, email and body are required"})
		return
	}
	if subject == "" {
		subject = "(no subject)"
	}

	contact := models.Contact{
		Name:    name,
		Email:   email,
		Subject: subject,
		Body:    text,
		Status:  models.ContactStatusNew,
	}

	// Link the inquiry to a known customer when the email matches.
	var user models.User
	if errFind := h.db.WithContext(c.Request.Context()).
		Where("email = ?", email).First(&user).Error; errFind == nil {
		contact.UserID = &user.ID
	}

	if errCreate := h.db.WithContext(c.Request.Context()).Create(&contact).Error; errCreate != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to submit inquiry"})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"id": contact.ID})
}
