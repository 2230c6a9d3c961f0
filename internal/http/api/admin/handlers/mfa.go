package handlers

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image/png"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/pquerna/otp/totp"
	"gorm.io/gorm"

	"github.com/KentaroKojima0029/daiko.kanucard.support/internal/models"
)

const totpIssuer = "daiko.kanucard.support"

// MFAHandler handles TOTP enrollment for admins.
type MFAHandler struct {
	db *gorm.DB
}

// NewMFAHandler constructs an MFAHandler.
func NewMFAHandler(db *gorm.DB) *MFAHandler {
	return &MFAHandler{db: db}
}

// secretEntry stores a pending TOTP secret with expiry.
type secretEntry struct {
	secret  string
	expires time.Time
}

// secretStore keeps TOTP secrets in memory between prepare and confirm.
type secretStore struct {
	mu    sync.Mutex
	items map[string]secretEntry
}

func newSecretStore() *secretStore {
	return &secretStore{items: make(map[string]secretEntry)}
}

// Set stores a secret with a 10 minute expiry.
func (s *secretStore) Set(key, secret string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items[key] = secretEntry{secret: secret, expires: time.Now().Add(10 * time.Minute)}
}

// Get returns a secret if present and not expired.
func (s *secretStore) Get(key string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.items[key]
	if !ok {
		return "", false
	}
	if time.Now().After(entry.expires) {
		delete(s.items, key)
		return "", false
	}
	return entry.secret, true
}

// Delete removes a pending secret.
func (s *secretStore) Delete(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.items, key)
}

var totpPendingSecrets = newSecretStore()

// Status reports whether TOTP is enabled for the authenticated admin.
func (h *MFAHandler) Status(c *gin.Context) {
	adminID, ok := readAdminIDFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "admin not found"})
		return
	}

	var admin models.Admin
	if errFind := h.db.WithContext(c.Request.Context()).
		Select("id", "totp_secret").First(&admin, adminID).Error; errFind != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "query failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"totp_enabled": strings.TrimSpace(admin.TOTPSecret) != ""})
}

// PrepareTOTP generates a new secret and returns it with a QR image.
func (h *MFAHandler) PrepareTOTP(c *gin.Context) {
	adminID, ok := readAdminIDFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "admin not found"})
		return
	}

	var admin models.Admin
	if errFind := h.db.WithContext(c.Request.Context()).
		Select("id", "email").First(&admin, adminID).Error; errFind != nil {
		if errFind == gorm.ErrRecordNotFound {
			c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "query failed"})
		return
	}

	key, errGenerate := totp.Generate(totp.GenerateOpts{
		Issuer:      totpIssuer,
		AccountName: admin.Email,
	})
	if errGenerate != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "generate totp secret failed"})
		return
	}

	totpPendingSecrets.Set(fmt.Sprintf("%d", admin.ID), key.Secret())
	qrImage := ""
	if img, errImage := key.Image(220, 220); errImage == nil {
		var buf bytes.Buffer
		if errEncode := png.Encode(&buf, img); errEncode == nil {
			qrImage = "data:image/png;base64," + base64.StdEncoding.EncodeToString(buf.Bytes())
		}
	}
	c.JSON(http.StatusOK, gin.H{
		"secret":      key.Secret(),
		"otpauth_url": key.URL(),
		"qr_image":    qrImage,
	})
}

// totpConfirmRequest defines the request body for confirming TOTP.
type totpConfirmRequest struct {
	Code string `json:"code"`
}

// ConfirmTOTP validates the first code and enables TOTP for the admin.
func (h *MFAHandler) ConfirmTOTP(c *gin.Context) {
	adminID, ok := readAdminIDFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "admin not found"})
		return
	}
	var body totpConfirmRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	code := strings.TrimSpace(body.Code)
	if code == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing code"})
		return
	}

	secret, ok := totpPendingSecrets.Get(fmt.Sprintf("%d", adminID))
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "totp setup expired"})
		return
	}
	if !totp.Validate(code, secret) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid code"})
		return
	}

	if errUpdate := h.db.WithContext(c.Request.Context()).Model(&models.Admin{}).
		Where("id = ?", adminID).
		Updates(map[string]any{"totp_secret": secret, "updated_at": time.Now().UTC()}).Error; errUpdate != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "update failed"})
		return
	}

	totpPendingSecrets.Delete(fmt.Sprintf("%d", adminID))
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

// DisableTOTP removes the admin's TOTP secret.
func (h *MFAHandler) DisableTOTP(c *gin.Context) {
	adminID, ok := readAdminIDFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "admin not found"})
		return
	}

	if errUpdate := h.db.WithContext(c.Request.Context()).Model(&models.Admin{}).
		Where("id = ?", adminID).
		Updates(map[string]any{"totp_secret": "", "updated_at": time.Now().UTC()}).Error; errUpdate != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "update failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}
