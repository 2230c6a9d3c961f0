// Package approval implements the buyback-price confirmation flow: an admin
// offers prices for a set of cards, the customer accepts or declines each
// card through a shareable tokenized link.
package approval

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/KentaroKojima0029/daiko.kanucard.support/internal/models"
)

// Approval errors.
var (
	// ErrNotFound indicates no approval exists for the given key.
	ErrNotFound = errors.New("approval: not found")
	// ErrAlreadyResponded indicates the customer already submitted a decision.
	ErrAlreadyResponded = errors.New("approval: already responded")
	// ErrExpired indicates the response deadline has passed.
	ErrExpired = errors.New("approval: expired")
)

// ValidationError reports missing or malformed creation input.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return "approval: invalid input: " + e.Reason
}

// approvalKeyBytes sizes the random token; 16 bytes hex-encode to 32
// URL-safe characters.
const approvalKeyBytes = 16

// keyCollisionRetries bounds insert retries on the unique key constraint.
const keyCollisionRetries = 3

// CardInput describes one card offered for buyback.
type CardInput struct {
	CardName string  `json:"cardName"`
	Price    float64 `json:"price"`
}

// CreateInput carries everything needed to open an approval.
type CreateInput struct {
	CustomerName  string      `json:"customerName"`
	CustomerEmail string      `json:"customerEmail"`
	TotalPrice    float64     `json:"totalPrice"`
	ValidUntil    *time.Time  `json:"validUntil"`
	Cards         []CardInput `json:"cards"`
}

// CardDecision is one customer answer matched to an offered card by name.
type CardDecision struct {
	CardName string `json:"cardName"`
	Decision string `json:"decision"`
	Comment  string `json:"comment"`
}

// Service creates approvals and records customer responses.
type Service struct {
	db *gorm.DB
}

// NewService constructs a Service around an open store handle.
func NewService(db *gorm.DB) *Service {
	return &Service{db: db}
}

// Create generates a fresh approval key and writes the approval with its
// cards in one transaction. Key collisions against the unique constraint are
// retried with a new key.
func (s *Service) Create(ctx context.Context, input CreateInput) (*models.Approval, error) {
	name := strings.TrimSpace(input.CustomerName)
	email := strings.TrimSpace(input.CustomerEmail)
	if name == "" {
		return nil, &ValidationError{Reason: "customerName is required"}
	}
	if email == "" {
		return nil, &ValidationError{Reason: "customerEmail is required"}
	}
	for i, card := range input.Cards {
		if strings.TrimSpace(card.CardName) == "" {
			return nil, &ValidationError{Reason: fmt.Sprintf("cards[%d].cardName is required", i)}
		}
	}

	var lastErr error
	for attempt := 0; attempt < keyCollisionRetries; attempt++ {
		key, errKey := generateApprovalKey()
		if errKey != nil {
			return nil, errKey
		}

		approval := models.Approval{
			ApprovalKey:   key,
			CustomerName:  name,
			CustomerEmail: email,
			TotalPrice:    input.TotalPrice,
			Status:        models.ApprovalStatusPending,
			ValidUntil:    input.ValidUntil,
		}
		errTx := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			if errCreate := tx.Create(&approval).Error; errCreate != nil {
				return errCreate
			}
			for _, card := range input.Cards {
				row := models.ApprovalCard{
					ApprovalID: approval.ID,
					CardName:   strings.TrimSpace(card.CardName),
					Price:      card.Price,
					Status:     models.ApprovalCardStatusPending,
				}
				if errCard := tx.Create(&row).Error; errCard != nil {
					return errCard
				}
			}
			return nil
		})
		if errTx == nil {
			return s.ByKey(ctx, key)
		}
		if !isUniqueViolation(errTx) {
			return nil, fmt.Errorf("approval: create: %w", errTx)
		}
		lastErr = errTx
	}
	return nil, fmt.Errorf("approval: key collisions exhausted retries: %w", lastErr)
}

// ByKey returns an approval with its cards, resolved by the shareable key.
func (s *Service) ByKey(ctx context.Context, key string) (*models.Approval, error) {
	var approval models.Approval
	errFind := s.db.WithContext(ctx).
		Preload("Cards", func(tx *gorm.DB) *gorm.DB { return tx.Order("approval_cards.id ASC") }).
		Where("approval_key = ?", strings.TrimSpace(key)).
		First(&approval).Error
	if errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("approval: load: %w", errFind)
	}
	return &approval, nil
}

// List returns all approvals with their cards, newest first.
func (s *Service) List(ctx context.Context) ([]models.Approval, error) {
	var approvals []models.Approval
	errFind := s.db.WithContext(ctx).
		Preload("Cards", func(tx *gorm.DB) *gorm.DB { return tx.Order("approval_cards.id ASC") }).
		Order("created_at DESC").
		Find(&approvals).Error
	if errFind != nil {
		return nil, fmt.Errorf("approval: list: %w", errFind)
	}
	return approvals, nil
}

// RecordResponse stores the customer's per-card decisions and marks the
// approval submitted, all in one transaction. An approval that already left
// the pending state is terminal; a deadline in the past rejects the response
// and leaves the approval pending. Decisions naming unknown cards are
// skipped without error, matching the original service's behavior.
func (s *Service) RecordResponse(ctx context.Context, key string, decisions []CardDecision) (*models.Approval, error) {
	approval, errLoad := s.ByKey(ctx, key)
	if errLoad != nil {
		return nil, errLoad
	}
	if approval.Status != models.ApprovalStatusPending {
		return nil, ErrAlreadyResponded
	}
	if approval.ValidUntil != nil && time.Now().UTC().After(approval.ValidUntil.UTC()) {
		return nil, ErrExpired
	}

	byName := make(map[string]*models.ApprovalCard, len(approval.Cards))
	for i := range approval.Cards {
		byName[approval.Cards[i].CardName] = &approval.Cards[i]
	}

	now := time.Now().UTC()
	errTx := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if errStatus := tx.Model(&models.Approval{}).Where("id = ?", approval.ID).
			Updates(map[string]any{
				"status":     models.ApprovalStatusSubmitted,
				"updated_at": now,
			}).Error; errStatus != nil {
			return fmt.Errorf("approval: update status: %w", errStatus)
		}
		for _, decision := range decisions {
			card, ok := byName[strings.TrimSpace(decision.CardName)]
			if !ok {
				continue
			}
			if errCard := tx.Model(&models.ApprovalCard{}).Where("id = ?", card.ID).
				Updates(map[string]any{
					"customer_decision": decision.Decision,
					"customer_comment":  decision.Comment,
				}).Error; errCard != nil {
				return fmt.Errorf("approval: update card: %w", errCard)
			}
		}
		return nil
	})
	if errTx != nil {
		return nil, errTx
	}
	return s.ByKey(ctx, key)
}

// generateApprovalKey returns a URL-safe random token.
func generateApprovalKey() (string, error) {
	buf := make([]byte, approvalKeyBytes)
	if _, errRead := rand.Read(buf); errRead != nil {
		return "", fmt.Errorf("approval: generate key: %w", errRead)
	}
	return hex.EncodeToString(buf), nil
}

// isUniqueViolation reports whether an error looks like a unique constraint
// failure on either supported dialect.
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique constraint") || strings.Contains(msg, "duplicate key")
}
