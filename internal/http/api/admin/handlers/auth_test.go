package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/pquerna/otp/totp"

	"github.com/KentaroKojima0029/daiko.kanucard.support/internal/config"
	"github.com/KentaroKojima0029/daiko.kanucard.support/internal/models"
	"github.com/KentaroKojima0029/daiko.kanucard.support/internal/security"
)

var testJWTConfig = config.JWTConfig{
	Secret: "test-secret",
	Expiry: config.Duration(time.Hour),
}

func TestAdminLoginIssuesToken(t *testing.T) {
	gin.SetMode(gin.TestMode)
	conn := setupAdminTestDB(t)

	hash, errHash := security.HashPassword("open sesame")
	if errHash != nil {
		t.Fatalf("hash password: %v", errHash)
	}
	admin := models.Admin{Email: "admin@example.com", Password: hash, Active: true}
	if errCreate := conn.Create(&admin).Error; errCreate != nil {
		t.Fatalf("create admin: %v", errCreate)
	}

	h := NewAuthHandler(conn, testJWTConfig)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodPost, "/v0/admin/auth/login",
		strings.NewReader(`{"email":"ADMIN@example.com","password":"open sesame"}`))

	h.Login(c)

	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d body=%s", w.Code, w.Body.String())
	}
	var resp struct {
		Token string `json:"token"`
	}
	if errDecode := json.Unmarshal(w.Body.Bytes(), &resp); errDecode != nil {
		t.Fatalf("decode response: %v", errDecode)
	}
	claims, errParse := security.ParseAdminToken(testJWTConfig.Secret, resp.Token)
	if errParse != nil {
		t.Fatalf("parse issued token: %v", errParse)
	}
	if claims.AdminID != admin.ID || claims.Email != admin.Email {
		t.Fatalf("claims = %+v, want admin %d", claims, admin.ID)
	}
}

func TestAdminLoginWrongPassword(t *testing.T) {
	gin.SetMode(gin.TestMode)
	conn := setupAdminTestDB(t)

	hash, _ := security.HashPassword("correct")
	admin := models.Admin{Email: "admin@example.com", Password: hash, Active: true}
	if errCreate := conn.Create(&admin).Error; errCreate != nil {
		t.Fatalf("create admin: %v", errCreate)
	}

	h := NewAuthHandler(conn, testJWTConfig)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodPost, "/v0/admin/auth/login",
		strings.NewReader(`{"email":"admin@example.com","password":"wrong"}`))

	h.Login(c)

	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected status 401, got %d body=%s", w.Code, w.Body.String())
	}
}

func TestAdminLoginRequiresTOTPWhenEnrolled(t *testing.T) {
	gin.SetMode(gin.TestMode)
	conn := setupAdminTestDB(t)

	key, errGenerate := totp.Generate(totp.GenerateOpts{Issuer: "test", AccountName: "admin@example.com"})
	if errGenerate != nil {
		t.Fatalf("generate totp: %v", errGenerate)
	}
	hash, _ := security.HashPassword("open sesame")
	admin := models.Admin{
		Email:      "admin@example.com",
		Password:   hash,
		Active:     true,
		TOTPSecret: key.Secret(),
	}
	if errCreate := conn.Create(&admin).Error; errCreate != nil {
		t.Fatalf("create admin: %v", errCreate)
	}

	h := NewAuthHandler(conn, testJWTConfig)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodPost, "/v0/admin/auth/login",
		strings.NewReader(`{"email":"admin@example.com","password":"open sesame"}`))

	h.Login(c)

	if w.Code != http.StatusForbidden {
		t.Fatalf("expected status 403, got %d body=%s", w.Code, w.Body.String())
	}

	code, errCode := totp.GenerateCode(key.Secret(), time.Now())
	if errCode != nil {
		t.Fatalf("generate code: %v", errCode)
	}

	w = httptest.NewRecorder()
	c, _ = gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodPost, "/v0/admin/auth/login/totp",
		strings.NewReader(`{"email":"admin@example.com","password":"open sesame","code":"`+code+`"}`))

	h.LoginTOTP(c)

	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d body=%s", w.Code, w.Body.String())
	}
}
