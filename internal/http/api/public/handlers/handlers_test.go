package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"gorm.io/gorm"

	"github.com/KentaroKojima0029/daiko.kanucard.support/internal/approval"
	"github.com/KentaroKojima0029/daiko.kanucard.support/internal/cache"
	"github.com/KentaroKojima0029/daiko.kanucard.support/internal/db"
	"github.com/KentaroKojima0029/daiko.kanucard.support/internal/models"
	"github.com/KentaroKojima0029/daiko.kanucard.support/internal/notify"
	"github.com/KentaroKojima0029/daiko.kanucard.support/internal/request"
)

func setupPublicTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:public_%d?mode=memory&cache=shared", time.Now().UnixNano())
	conn, errOpen := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if errOpen != nil {
		t.Fatalf("open db: %v", errOpen)
	}
	if errMigrate := db.Migrate(conn); errMigrate != nil {
		t.Fatalf("migrate db: %v", errMigrate)
	}
	return conn
}

func newRequestHandlerForTest(conn *gorm.DB) *RequestHandler {
	requests := request.NewService(conn)
	dispatcher := notify.NewDispatcher(conn, notify.LogNotifier{})
	progressCache := cache.NewProgressCache("", "", 0, 0)
	return NewRequestHandler(conn, requests, dispatcher, progressCache)
}

func TestCreateRequestAndLookupProgress(t *testing.T) {
	gin.SetMode(gin.TestMode)
	conn := setupPublicTestDB(t)
	h := newRequestHandlerForTest(conn)

	body := `{
		"email": "taro@example.com",
		"name": "Taro",
		"country": "usa",
		"cards": [
			{"cardName": "Pikachu Illustrator", "declaredValue": 5000},
			{"cardName": "Charizard 1st Edition", "declaredValue": 3000}
		]
	}`
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodPost, "/v0/public/requests", strings.NewReader(body))

	h.Create(c)

	if w.Code != http.StatusCreated {
		t.Fatalf("expected status 201, got %d body=%s", w.Code, w.Body.String())
	}
	var created struct {
		ID       uint64 `json:"id"`
		PublicID string `json:"publicId"`
		Status   string `json:"status"`
	}
	if errDecode := json.Unmarshal(w.Body.Bytes(), &created); errDecode != nil {
		t.Fatalf("decode response: %v", errDecode)
	}
	if created.PublicID == "" || created.Status != models.RequestStatusPending {
		t.Fatalf("unexpected create response: %+v", created)
	}

	// A welcome notification must be queued for the customer.
	var queued int64
	if errCount := conn.Model(&models.Notification{}).
		Where("recipient = ?", "taro@example.com").Count(&queued).Error; errCount != nil {
		t.Fatalf("count notifications: %v", errCount)
	}
	if queued != 1 {
		t.Fatalf("queued notifications = %d, want 1", queued)
	}

	w = httptest.NewRecorder()
	c, _ = gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/v0/public/progress/"+created.PublicID, nil)
	c.Params = gin.Params{{Key: "publicId", Value: created.PublicID}}

	h.Progress(c)

	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d body=%s", w.Code, w.Body.String())
	}
	var view struct {
		Status       string `json:"status"`
		CurrentStep  int    `json:"currentStep"`
		CustomerName string `json:"customerName"`
		Steps        []struct {
			StepNumber int    `json:"stepNumber"`
			Status     string `json:"status"`
		} `json:"steps"`
	}
	if errDecode := json.Unmarshal(w.Body.Bytes(), &view); errDecode != nil {
		t.Fatalf("decode view: %v", errDecode)
	}
	if view.CurrentStep != 1 || view.CustomerName != "Taro" {
		t.Fatalf("unexpected view: %+v", view)
	}
	if len(view.Steps) != models.StepCount {
		t.Fatalf("steps = %d, want %d", len(view.Steps), models.StepCount)
	}
	if view.Steps[0].Status != models.StepStatusCompleted {
		t.Fatalf("step 1 status = %q, want completed", view.Steps[0].Status)
	}

	// Internal fields must never leak into the public projection.
	if strings.Contains(w.Body.String(), "adminNotes") || strings.Contains(w.Body.String(), "totalDeclaredValue") {
		t.Fatalf("public view leaks internal fields: %s", w.Body.String())
	}
}

func TestCreateRequestValidationFailure(t *testing.T) {
	gin.SetMode(gin.TestMode)
	conn := setupPublicTestDB(t)
	h := newRequestHandlerForTest(conn)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodPost, "/v0/public/requests",
		strings.NewReader(`{"email":"","country":"usa","cards":[]}`))

	h.Create(c)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d body=%s", w.Code, w.Body.String())
	}
}

func TestProgressUnknownPublicID(t *testing.T) {
	gin.SetMode(gin.TestMode)
	conn := setupPublicTestDB(t)
	h := newRequestHandlerForTest(conn)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/v0/public/progress/nope", nil)
	c.Params = gin.Params{{Key: "publicId", Value: "nope"}}

	h.Progress(c)

	if w.Code != http.StatusNotFound {
		t.Fatalf("expected status 404, got %d body=%s", w.Code, w.Body.String())
	}
}

func TestApprovalRespondConflictAndExpiry(t *testing.T) {
	gin.SetMode(gin.TestMode)
	conn := setupPublicTestDB(t)
	service := approval.NewService(conn)
	h := NewApprovalHandler(service)
	ctx := context.Background()

	created, errCreate := service.Create(ctx, approval.CreateInput{
		CustomerName:  "Hanako",
		CustomerEmail: "hanako@example.com",
		TotalPrice:    12000,
		Cards: []approval.CardInput{
			{CardName: "Umbreon VMAX", Price: 12000},
		},
	})
	if errCreate != nil {
		t.Fatalf("create approval: %v", errCreate)
	}

	respond := func(key string) *httptest.ResponseRecorder {
		w := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(w)
		c.Request = httptest.NewRequest(http.MethodPost, "/v0/public/approvals/"+key+"/response",
			strings.NewReader(`{"decisions":[{"cardName":"Umbreon VMAX","decision":"approved"}]}`))
		c.Params = gin.Params{{Key: "key", Value: key}}
		h.Respond(c)
		return w
	}

	if w := respond(created.ApprovalKey); w.Code != http.StatusOK {
		t.Fatalf("first response: expected 200, got %d body=%s", w.Code, w.Body.String())
	}
	if w := respond(created.ApprovalKey); w.Code != http.StatusConflict {
		t.Fatalf("second response: expected 409, got %d body=%s", w.Code, w.Body.String())
	}

	past := time.Now().UTC().Add(-time.Hour)
	expired, errCreate := service.Create(ctx, approval.CreateInput{
		CustomerName:  "Hanako",
		CustomerEmail: "hanako@example.com",
		TotalPrice:    500,
		ValidUntil:    &past,
		Cards:         []approval.CardInput{{CardName: "Eevee", Price: 500}},
	})
	if errCreate != nil {
		t.Fatalf("create expired approval: %v", errCreate)
	}
	if w := respond(expired.ApprovalKey); w.Code != http.StatusGone {
		t.Fatalf("expired response: expected 410, got %d body=%s", w.Code, w.Body.String())
	}
}

func TestContactCreateLinksKnownUser(t *testing.T) {
	gin.SetMode(gin.TestMode)
	conn := setupPublicTestDB(t)

	user := models.User{Email: "known@example.com", Name: "Known"}
	if errCreate := conn.Create(&user).Error; errCreate != nil {
		t.Fatalf("create user: %v", errCreate)
	}

	h := NewContactHandler(conn)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodPost, "/v0/public/contacts",
		strings.NewReader(`{"name":"Known","email":"KNOWN@example.com","subject":"shipping","body":"when?"}`))

	h.Create(c)

	if w.Code != http.StatusCreated {
		t.Fatalf("expected status 201, got %d body=%s", w.Code, w.Body.String())
	}

	var contact models.Contact
	if errFind := conn.First(&contact).Error; errFind != nil {
		t.Fatalf("load contact: %v", errFind)
	}
	if contact.UserID == nil || *contact.UserID != user.ID {
		t.Fatalf("contact.UserID = %v, want %d", contact.UserID, user.ID)
	}
	if contact.Status != models.ContactStatusNew {
		t.Fatalf("contact.Status = %q, want new", contact.Status)
	}
}

func TestCreateRequestAcceptedWhenOutboxUnavailable(t *testing.T) {
	gin.SetMode(gin.TestMode)
	conn := setupPublicTestDB(t)
	h := newRequestHandlerForTest(conn)

	if errDrop := conn.Exec("DROP TABLE notifications").Error; errDrop != nil {
		t.Fatalf("drop notifications: %v", errDrop)
	}

	body := `{
		"email": "taro@example.com",
		"name": "Taro",
		"country": "usa",
		"cards": [{"cardName": "Pikachu Illustrator", "declaredValue": 5000}]
	}`
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodPost, "/v0/public/requests", strings.NewReader(body))

	h.Create(c)

	if w.Code != http.StatusCreated {
		t.Fatalf("expected status 201, got %d body=%s", w.Code, w.Body.String())
	}

	var count int64
	if errCount := conn.Model(&models.Request{}).Count(&count).Error; errCount != nil {
		t.Fatalf("count requests: %v", errCount)
	}
	if count != 1 {
		t.Fatalf("requests = %d, want 1", count)
	}
}
