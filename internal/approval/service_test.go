package approval

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"

	"github.com/KentaroKojima0029/daiko.kanucard.support/internal/models"
)

func setupApprovalTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:approval_%d?mode=memory&cache=shared", time.Now().UnixNano())
	conn, errOpen := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if errOpen != nil {
		t.Fatalf("open db: %v", errOpen)
	}
	if errMigrate := conn.AutoMigrate(&models.Approval{}, &models.ApprovalCard{}); errMigrate != nil {
		t.Fatalf("migrate db: %v", errMigrate)
	}
	return conn
}

func TestCreateApprovalScenario(t *testing.T) {
	t.Parallel()

	conn := setupApprovalTestDB(t)
	svc := NewService(conn)

	created, errCreate := svc.Create(context.Background(), CreateInput{
		CustomerName:  "Hanako",
		CustomerEmail: "hanako@example.com",
		TotalPrice:    15000,
		Cards: []CardInput{
			{CardName: "Umbreon VMAX", Price: 7000},
			{CardName: "Rayquaza GX", Price: 5000},
			{CardName: "Mewtwo EX", Price: 3000},
		},
	})
	if errCreate != nil {
		t.Fatalf("create: %v", errCreate)
	}

	if len(created.ApprovalKey) != approvalKeyBytes*2 {
		t.Fatalf("len(ApprovalKey) = %d, want %d", len(created.ApprovalKey), approvalKeyBytes*2)
	}
	if created.Status != models.ApprovalStatusPending {
		t.Fatalf("Status = %q, want pending", created.Status)
	}
	if created.TotalPrice != 15000 {
		t.Fatalf("TotalPrice = %v, want 15000", created.TotalPrice)
	}
	if len(created.Cards) != 3 {
		t.Fatalf("len(Cards) = %d, want 3", len(created.Cards))
	}
	for _, card := range created.Cards {
		if card.Status != models.ApprovalCardStatusPending {
			t.Fatalf("card %q status = %q, want pending", card.CardName, card.Status)
		}
	}
}

func TestApprovalKeysAreUnique(t *testing.T) {
	t.Parallel()

	conn := setupApprovalTestDB(t)
	svc := NewService(conn)
	ctx := context.Background()

	seen := map[string]bool{}
	for i := 0; i < 20; i++ {
		created, errCreate := svc.Create(ctx, CreateInput{
			CustomerName:  "Repeat",
			CustomerEmail: "repeat@example.com",
		})
		if errCreate != nil {
			t.Fatalf("create %d: %v", i, errCreate)
		}
		if seen[created.ApprovalKey] {
			t.Fatalf("duplicate approval key %q", created.ApprovalKey)
		}
		seen[created.ApprovalKey] = true
	}
}

func TestRecordResponse(t *testing.T) {
	t.Parallel()

	conn := setupApprovalTestDB(t)
	svc := NewService(conn)
	ctx := context.Background()

	created, errCreate := svc.Create(ctx, CreateInput{
		CustomerName:  "Hanako",
		CustomerEmail: "hanako@example.com",
		Cards: []CardInput{
			{CardName: "Umbreon VMAX", Price: 7000},
			{CardName: "Rayquaza GX", Price: 5000},
		},
	})
	if errCreate != nil {
		t.Fatalf("create: %v", errCreate)
	}

	updated, errRespond := svc.RecordResponse(ctx, created.ApprovalKey, []CardDecision{
		{CardName: "Umbreon VMAX", Decision: "approved"},
		{CardName: "Rayquaza GX", Decision: "declined", Comment: "price too low"},
	})
	if errRespond != nil {
		t.Fatalf("record response: %v", errRespond)
	}
	if updated.Status != models.ApprovalStatusSubmitted {
		t.Fatalf("Status = %q, want submitted", updated.Status)
	}
	if updated.Cards[0].CustomerDecision != "approved" {
		t.Fatalf("card 0 decision = %q, want approved", updated.Cards[0].CustomerDecision)
	}
	if updated.Cards[1].CustomerDecision != "declined" || updated.Cards[1].CustomerComment != "price too low" {
		t.Fatalf("card 1 decision = %q/%q, want declined with comment", updated.Cards[1].CustomerDecision, updated.Cards[1].CustomerComment)
	}
}

func TestRecordResponseAlreadyResponded(t *testing.T) {
	t.Parallel()

	conn := setupApprovalTestDB(t)
	svc := NewService(conn)
	ctx := context.Background()

	created, errCreate := svc.Create(ctx, CreateInput{
		CustomerName:  "Hanako",
		CustomerEmail: "hanako@example.com",
		Cards:         []CardInput{{CardName: "Umbreon VMAX", Price: 7000}},
	})
	if errCreate != nil {
		t.Fatalf("create: %v", errCreate)
	}
	if _, errFirst := svc.RecordResponse(ctx, created.ApprovalKey, []CardDecision{
		{CardName: "Umbreon VMAX", Decision: "approved"},
	}); errFirst != nil {
		t.Fatalf("first response: %v", errFirst)
	}

	_, errSecond := svc.RecordResponse(ctx, created.ApprovalKey, []CardDecision{
		{CardName: "Umbreon VMAX", Decision: "declined"},
	})
	if !errors.Is(errSecond, ErrAlreadyResponded) {
		t.Fatalf("expected ErrAlreadyResponded, got %v", errSecond)
	}

	reloaded, errLoad := svc.ByKey(ctx, created.ApprovalKey)
	if errLoad != nil {
		t.Fatalf("reload: %v", errLoad)
	}
	if reloaded.Cards[0].CustomerDecision != "approved" {
		t.Fatalf("card decision = %q, want approved left unchanged", reloaded.Cards[0].CustomerDecision)
	}
}

func TestRecordResponseExpired(t *testing.T) {
	t.Parallel()

	conn := setupApprovalTestDB(t)
	svc := NewService(conn)
	ctx := context.Background()

	deadline := time.Now().UTC().Add(-time.Hour)
	created, errCreate := svc.Create(ctx, CreateInput{
		CustomerName:  "Hanako",
		CustomerEmail: "hanako@example.com",
		ValidUntil:    &deadline,
		Cards:         []CardInput{{CardName: "Umbreon VMAX", Price: 7000}},
	})
	if errCreate != nil {
		t.Fatalf("create: %v", errCreate)
	}

	_, errRespond := svc.RecordResponse(ctx, created.ApprovalKey, []CardDecision{
		{CardName: "Umbreon VMAX", Decision: "approved"},
	})
	if !errors.Is(errRespond, ErrExpired) {
		t.Fatalf("expected ErrExpired, got %v", errRespond)
	}

	reloaded, errLoad := svc.ByKey(ctx, created.ApprovalKey)
	if errLoad != nil {
		t.Fatalf("reload: %v", errLoad)
	}
	if reloaded.Status != models.ApprovalStatusPending {
		t.Fatalf("Status = %q, want pending after expired response", reloaded.Status)
	}
}

func TestRecordResponseSkipsUnknownCards(t *testing.T) {
	t.Parallel()

	conn := setupApprovalTestDB(t)
	svc := NewService(conn)
	ctx := context.Background()

	created, errCreate := svc.Create(ctx, CreateInput{
		CustomerName:  "Hanako",
		CustomerEmail: "hanako@example.com",
		Cards:         []CardInput{{CardName: "Umbreon VMAX", Price: 7000}},
	})
	if errCreate != nil {
		t.Fatalf("create: %v", errCreate)
	}

	updated, errRespond := svc.RecordResponse(ctx, created.ApprovalKey, []CardDecision{
		{CardName: "No Such Card", Decision: "approved"},
		{CardName: "Umbreon VMAX", Decision: "approved"},
	})
	if errRespond != nil {
		t.Fatalf("record response: %v", errRespond)
	}
	if len(updated.Cards) != 1 {
		t.Fatalf("len(Cards) = %d, want 1 (no row created for unknown name)", len(updated.Cards))
	}
	if updated.Cards[0].CustomerDecision != "approved" {
		t.Fatalf("card decision = %q, want approved", updated.Cards[0].CustomerDecision)
	}
}

func TestRecordResponseUnknownKey(t *testing.T) {
	t.Parallel()

	conn := setupApprovalTestDB(t)
	svc := NewService(conn)

	_, errRespond := svc.RecordResponse(context.Background(), "does-not-exist", nil)
	if !errors.Is(errRespond, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", errRespond)
	}
}
