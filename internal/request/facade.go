// Package request aggregates a grading request with its owned cards and
// steps, and orchestrates request creation across the store.
package request

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/KentaroKojima0029/daiko.kanucard.support/internal/models"
	"github.com/KentaroKojima0029/daiko.kanucard.support/internal/progress"
)

// ErrNotFound indicates the referenced request does not exist.
var ErrNotFound = errors.New("request: not found")

// ValidationError reports missing or malformed creation input. It is raised
// before anything reaches storage.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return "request: invalid input: " + e.Reason
}

// CardInput describes one card of a new submission.
type CardInput struct {
	CardName            string  `json:"cardName"`
	DeclaredValue       float64 `json:"declaredValue"`
	EstimatedGradingFee float64 `json:"estimatedGradingFee"`
}

// CreateInput carries everything needed to open a new grading request.
type CreateInput struct {
	Email string `json:"email"`
	Name  string `json:"name"`
	Phone string `json:"phone"`

	Country     string `json:"country"`
	PlanType    string `json:"planType"`
	ServiceType string `json:"serviceType"`

	TotalDeclaredValue       float64 `json:"totalDeclaredValue"`
	TotalEstimatedGradingFee float64 `json:"totalEstimatedGradingFee"`

	CustomerNotes string      `json:"customerNotes"`
	Cards         []CardInput `json:"cards"`
}

// Service creates and reads request aggregates.
type Service struct {
	db *gorm.DB
}

// NewService constructs a Service around an open store handle.
func NewService(db *gorm.DB) *Service {
	return &Service{db: db}
}

// Create validates the input, finds or creates the owning user by email and
// writes the request, its cards and its six initial steps in one
// transaction.
//
// The user lookup runs before that transaction and is not rolled back when
// request creation fails afterwards: a repeat customer must never be
// duplicated, and a user row surviving a failed submission is the accepted
// trade-off inherited from the original service.
func (s *Service) Create(ctx context.Context, input CreateInput) (*models.Request, error) {
	email := strings.TrimSpace(strings.ToLower(input.Email))
	if email == "" {
		return nil, &ValidationError{Reason: "email is required"}
	}
	if strings.TrimSpace(input.Country) == "" && strings.TrimSpace(input.PlanType) == "" {
		return nil, &ValidationError{Reason: "country or planType is required"}
	}
	for i, card := range input.Cards {
		if strings.TrimSpace(card.CardName) == "" {
			return nil, &ValidationError{Reason: fmt.Sprintf("cards[%d].cardName is required", i)}
		}
	}

	user, errUser := s.findOrCreateUser(ctx, email, input.Name, input.Phone)
	if errUser != nil {
		return nil, errUser
	}

	totalDeclared := input.TotalDeclaredValue
	totalFee := input.TotalEstimatedGradingFee
	if totalDeclared == 0 && totalFee == 0 {
		for _, card := range input.Cards {
			totalDeclared += card.DeclaredValue
			totalFee += card.EstimatedGradingFee
		}
	}

	serviceType := strings.TrimSpace(input.ServiceType)
	if serviceType == "" {
		serviceType = "psa-grading"
	}

	request := models.Request{
		PublicID:                 uuid.NewString(),
		UserID:                   user.ID,
		Status:                   models.RequestStatusPending,
		CurrentStep:              models.StepSubmission,
		Country:                  strings.TrimSpace(input.Country),
		PlanType:                 strings.TrimSpace(input.PlanType),
		ServiceType:              serviceType,
		TotalDeclaredValue:       totalDeclared,
		TotalEstimatedGradingFee: totalFee,
		CustomerNotes:            input.CustomerNotes,
	}

	errTx := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if errCreate := tx.Create(&request).Error; errCreate != nil {
			return fmt.Errorf("request: create: %w", errCreate)
		}
		for _, card := range input.Cards {
			row := models.Card{
				RequestID:           request.ID,
				CardName:            strings.TrimSpace(card.CardName),
				DeclaredValue:       card.DeclaredValue,
				EstimatedGradingFee: card.EstimatedGradingFee,
			}
			if errCard := tx.Create(&row).Error; errCard != nil {
				return fmt.Errorf("request: create card: %w", errCard)
			}
		}
		return progress.InitSteps(tx, request.ID, "system")
	})
	if errTx != nil {
		return nil, errTx
	}

	return s.Aggregate(ctx, request.ID)
}

// findOrCreateUser looks up a user by email and creates one when absent.
func (s *Service) findOrCreateUser(ctx context.Context, email, name, phone string) (*models.User, error) {
	var user models.User
	errFind := s.db.WithContext(ctx).Where("email = ?", email).First(&user).Error
	if errFind == nil {
		return &user, nil
	}
	if !errors.Is(errFind, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("request: find user: %w", errFind)
	}

	user = models.User{Email: email, Name: strings.TrimSpace(name), Phone: strings.TrimSpace(phone)}
	if errCreate := s.db.WithContext(ctx).Create(&user).Error; errCreate != nil {
		return nil, fmt.Errorf("request: create user: %w", errCreate)
	}
	return &user, nil
}

// Aggregate returns a request with its owner, cards in creation order and
// steps ordered by step number.
func (s *Service) Aggregate(ctx context.Context, id uint64) (*models.Request, error) {
	return s.loadAggregate(ctx, "id = ?", id)
}

// AggregateByPublicID resolves a request through its customer-facing token.
func (s *Service) AggregateByPublicID(ctx context.Context, publicID string) (*models.Request, error) {
	return s.loadAggregate(ctx, "public_id = ?", publicID)
}

func (s *Service) loadAggregate(ctx context.Context, query string, arg any) (*models.Request, error) {
	var request models.Request
	errFind := s.db.WithContext(ctx).
		Preload("User").
		Preload("Cards", func(tx *gorm.DB) *gorm.DB { return tx.Order("cards.id ASC") }).
		Preload("Steps", func(tx *gorm.DB) *gorm.DB { return tx.Order("progress_steps.step_number ASC") }).
		Where(query, arg).
		First(&request).Error
	if errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("request: load aggregate: %w", errFind)
	}
	return &request, nil
}

// List returns all requests as full aggregates, newest first.
func (s *Service) List(ctx context.Context) ([]models.Request, error) {
	var requests []models.Request
	errFind := s.db.WithContext(ctx).
		Preload("User").
		Preload("Cards", func(tx *gorm.DB) *gorm.DB { return tx.Order("cards.id ASC") }).
		Preload("Steps", func(tx *gorm.DB) *gorm.DB { return tx.Order("progress_steps.step_number ASC") }).
		Order("created_at DESC").
		Find(&requests).Error
	if errFind != nil {
		return nil, fmt.Errorf("request: list: %w", errFind)
	}
	return requests, nil
}

// UpdateStatus changes the aggregate status of a request and optionally its
// admin notes.
func (s *Service) UpdateStatus(ctx context.Context, id uint64, status string, adminNotes *string) (*models.Request, error) {
	switch status {
	case models.RequestStatusPending, models.RequestStatusInProgress, models.RequestStatusCompleted,
		models.RequestStatusCancelled, models.RequestStatusDeleted:
	default:
		return nil, &ValidationError{Reason: "unknown status " + status}
	}

	updates := map[string]any{"status": status}
	if adminNotes != nil {
		updates["admin_notes"] = *adminNotes
	}
	result := s.db.WithContext(ctx).Model(&models.Request{}).Where("id = ?", id).Updates(updates)
	if result.Error != nil {
		return nil, fmt.Errorf("request: update status: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return nil, ErrNotFound
	}
	return s.Aggregate(ctx, id)
}

// Stats summarizes requests for the admin dashboard.
type Stats struct {
	TotalUsers    int64            `json:"totalUsers"`
	TotalRequests int64            `json:"totalRequests"`
	ByStatus      map[string]int64 `json:"byStatus"`
	ByCountry     map[string]int64 `json:"byCountry"`
	ByPlan        map[string]int64 `json:"byPlan"`
}

// Statistics computes aggregate counts by status, country and plan.
func (s *Service) Statistics(ctx context.Context) (*Stats, error) {
	stats := &Stats{
		ByStatus:  map[string]int64{},
		ByCountry: map[string]int64{},
		ByPlan:    map[string]int64{},
	}

	if errCount := s.db.WithContext(ctx).Model(&models.User{}).Count(&stats.TotalUsers).Error; errCount != nil {
		return nil, fmt.Errorf("request: count users: %w", errCount)
	}
	if errCount := s.db.WithContext(ctx).Model(&models.Request{}).Count(&stats.TotalRequests).Error; errCount != nil {
		return nil, fmt.Errorf("request: count requests: %w", errCount)
	}

	type bucket struct {
		Key   string
		Count int64
	}
	groupings := []struct {
		column string
		target map[string]int64
	}{
		{"status", stats.ByStatus},
		{"country", stats.ByCountry},
		{"plan_type", stats.ByPlan},
	}
	for _, g := range groupings {
		var rows []bucket
		errGroup := s.db.WithContext(ctx).Model(&models.Request{}).
			Select(g.column+" AS key, COUNT(*) AS count").
			Where(g.column + " <> ''").
			Group(g.column).
			Scan(&rows).Error
		if errGroup != nil {
			return nil, fmt.Errorf("request: group by %s: %w", g.column, errGroup)
		}
		for _, row := range rows {
			g.target[row.Key] = row.Count
		}
	}
	return stats, nil
}
