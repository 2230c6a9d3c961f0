package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/pquerna/otp/totp"
	"gorm.io/gorm"

	"github.com/KentaroKojima0029/daiko.kanucard.support/internal/config"
	"github.com/KentaroKojima0029/daiko.kanucard.support/internal/models"
	"github.com/KentaroKojima0029/daiko.kanucard.support/internal/security"
)

// AuthHandler handles admin authentication endpoints.
type AuthHandler struct {
	db     *gorm.DB
	jwtCfg config.JWTConfig
}

// NewAuthHandler constructs an AuthHandler.
func NewAuthHandler(db *gorm.DB, jwtCfg config.JWTConfig) *AuthHandler {
	return &AuthHandler{db: db, jwtCfg: jwtCfg}
}

// loginRequest defines the request body for admin login.
type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Login authenticates an admin and issues a JWT if TOTP is not enabled.
func (h *AuthHandler) Login(c *gin.Context) {
	var body loginRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}

	email := strings.ToLower(strings.TrimSpace(body.Email))
	password := strings.TrimSpace(body.Password)
	if email == "" || password == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "email and password are required"})
		return
	}

	var admin models.Admin
	if errFind := h.db.WithContext(c.Request.Context()).Where("email = ?", email).First(&admin).Error; errFind != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
		return
	}
	if !admin.Active {
		c.JSON(http.StatusForbidden, gin.H{"error": "admin account is disabled"})
		return
	}
	if !security.CheckPassword(admin.Password, password) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
		return
	}
	if strings.TrimSpace(admin.TOTPSecret) != "" {
		c.JSON(http.StatusForbidden, gin.H{"error": "totp required"})
		return
	}

	h.respondWithAdminToken(c, admin)
}

// loginTotpRequest defines the request body for TOTP login.
type loginTotpRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Code     string `json:"code"`
}

// LoginTOTP authenticates an admin with password plus TOTP code.
func (h *AuthHandler) LoginTOTP(c *gin.Context) {
	var body loginTotpRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}

	email := strings.ToLower(strings.TrimSpace(body.Email))
	password := strings.TrimSpace(body.Password)
	code := strings.TrimSpace(body.Code)
	if email == "" || password == "" || code == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "email, password and code are required"})
		return
	}

	var admin models.Admin
	if errFind := h.db.WithContext(c.Request.Context()).Where("email = ?", email).First(&admin).Error; errFind != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
		return
	}
	if !admin.Active {
		c.JSON(http.StatusForbidden, gin.H{"error": "admin account is disabled"})
		return
	}
	if !security.CheckPassword(admin.Password, password) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
		return
	}
	if strings.TrimSpace(admin.TOTPSecret) == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "totp not enabled"})
		return
	}
	if !totp.Validate(code, admin.TOTPSecret) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid code"})
		return
	}

	h.respondWithAdminToken(c, admin)
}

// respondWithAdminToken generates a JWT and responds with admin info.
func (h *AuthHandler) respondWithAdminToken(c *gin.Context, admin models.Admin) {
	token, errToken := security.GenerateAdminToken(h.jwtCfg.Secret, admin.ID, admin.Email, h.jwtCfg.Expiry.Std())
	if errToken != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to generate token"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"token": token,
		"admin": gin.H{
			"id":    admin.ID,
			"email": admin.Email,
			"name":  admin.Name,
		},
	})
}
