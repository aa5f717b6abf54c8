package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dineflow/api/internal/database"
	"github.com/dineflow/api/internal/enum"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"
)

// Errors returned by the plan service.
var (
	ErrPlanNotFound       = errors.New("plan not found")
	ErrPlanAlreadyActive  = errors.New("plan is already active")
	ErrPlanNotPending     = errors.New("only a pending plan can be verified")
	ErrPlanNotCancellable = errors.New("only an active or expired plan can be cancelled")
	ErrPlanExpiryPassed   = errors.New("plan expiry has already passed")
	ErrMissingPlanName    = errors.New("plan name is required")
	ErrInvalidPlanPrice   = errors.New("invalid plan price")
)

// Plan durations by name.
const (
	TrialPlanDuration   = 7 * 24 * time.Hour
	MonthlyPlanDuration = 30 * 24 * time.Hour
	AnnualPlanDuration  = 365 * 24 * time.Hour
)

// TrialPlanName is provisioned for every newly registered business.
const TrialPlanName = "Free Trial"

// PlanStore defines the DB methods needed for plan bookkeeping.
// Satisfied by *database.Queries.
type PlanStore interface {
	GetPlanByBusiness(ctx context.Context, businessID int64) (database.Plan, error)
	UpsertPlan(ctx context.Context, arg database.UpsertPlanParams) (database.Plan, error)
	UpdatePlanStatus(ctx context.Context, arg database.UpdatePlanStatusParams) (database.Plan, error)
}

type PlanService struct {
	store PlanStore
	now   func() time.Time
}

func NewPlanService(store PlanStore) *PlanService {
	return &PlanService{store: store, now: time.Now}
}

// PlanDuration returns the validity window implied by a plan name.
func PlanDuration(name string) time.Duration {
	n := strings.ToLower(name)
	switch {
	case strings.Contains(n, "trial"):
		return TrialPlanDuration
	case strings.Contains(n, "monthly"):
		return MonthlyPlanDuration
	case strings.Contains(n, "annual"), strings.Contains(n, "yearly"):
		return AnnualPlanDuration
	default:
		return MonthlyPlanDuration
	}
}

// ComputeExpiry returns explicit when set, else from + PlanDuration(name).
func ComputeExpiry(name string, from time.Time, explicit *time.Time) time.Time {
	if explicit != nil {
		return explicit.UTC()
	}
	return from.Add(PlanDuration(name)).UTC()
}

func timestamptz(t time.Time) pgtype.Timestamptz {
	return pgtype.Timestamptz{Time: t, Valid: true}
}

// Get returns the business plan, persisting the expired status first when an
// active plan has run past its expiry.
func (s *PlanService) Get(ctx context.Context, businessID int64) (database.Plan, error) {
	plan, err := s.store.GetPlanByBusiness(ctx, businessID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return database.Plan{}, ErrPlanNotFound
		}
		return database.Plan{}, fmt.Errorf("get plan: %w", err)
	}
	return s.expireIfStale(ctx, plan)
}

func (s *PlanService) expireIfStale(ctx context.Context, plan database.Plan) (database.Plan, error) {
	if plan.Status != enum.PlanStatusActive || !plan.ExpiresAt.Valid {
		return plan, nil
	}
	if !s.now().After(plan.ExpiresAt.Time) {
		return plan, nil
	}
	expired, err := s.store.UpdatePlanStatus(ctx, database.UpdatePlanStatusParams{
		BusinessID: plan.BusinessID,
		Status:     enum.PlanStatusExpired,
	})
	if err != nil {
		return database.Plan{}, fmt.Errorf("expire plan: %w", err)
	}
	return expired, nil
}

// Subscribe replaces the business plan with a new pending plan awaiting
// verification.
func (s *PlanService) Subscribe(ctx context.Context, businessID int64, name, price string, expiresAt *time.Time) (database.Plan, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return database.Plan{}, ErrMissingPlanName
	}
	amount := decimal.Zero
	if strings.TrimSpace(price) != "" {
		var err error
		amount, err = decimal.NewFromString(strings.TrimSpace(price))
		if err != nil || amount.IsNegative() {
			return database.Plan{}, ErrInvalidPlanPrice
		}
	}
	now := s.now()
	expiry := ComputeExpiry(name, now, expiresAt)
	if !expiry.After(now) {
		return database.Plan{}, ErrPlanExpiryPassed
	}

	plan, err := s.store.UpsertPlan(ctx, database.UpsertPlanParams{
		BusinessID: businessID,
		Name:       name,
		Price:      decimalToNumeric(amount),
		Status:     enum.PlanStatusPending,
		ExpiresAt:  timestamptz(expiry),
	})
	if err != nil {
		return database.Plan{}, fmt.Errorf("upsert plan: %w", err)
	}
	return plan, nil
}

// Verify activates a pending plan.
func (s *PlanService) Verify(ctx context.Context, businessID int64) (database.Plan, error) {
	plan, err := s.Get(ctx, businessID)
	if err != nil {
		return database.Plan{}, err
	}
	switch plan.Status {
	case enum.PlanStatusActive:
		return database.Plan{}, ErrPlanAlreadyActive
	case enum.PlanStatusPending:
	default:
		return database.Plan{}, ErrPlanNotPending
	}

	now := s.now()
	if plan.ExpiresAt.Valid && !plan.ExpiresAt.Time.After(now) {
		return database.Plan{}, ErrPlanExpiryPassed
	}
	active, err := s.store.UpdatePlanStatus(ctx, database.UpdatePlanStatusParams{
		BusinessID: businessID,
		Status:     enum.PlanStatusActive,
		StartedAt:  timestamptz(now),
	})
	if err != nil {
		return database.Plan{}, fmt.Errorf("activate plan: %w", err)
	}
	return active, nil
}

// Cancel ends an active or expired plan.
func (s *PlanService) Cancel(ctx context.Context, businessID int64) (database.Plan, error) {
	plan, err := s.Get(ctx, businessID)
	if err != nil {
		return database.Plan{}, err
	}
	if plan.Status != enum.PlanStatusActive && plan.Status != enum.PlanStatusExpired {
		return database.Plan{}, ErrPlanNotCancellable
	}
	cancelled, err := s.store.UpdatePlanStatus(ctx, database.UpdatePlanStatusParams{
		BusinessID: businessID,
		Status:     enum.PlanStatusCancelled,
	})
	if err != nil {
		return database.Plan{}, fmt.Errorf("cancel plan: %w", err)
	}
	return cancelled, nil
}

// trialPlanParams describes the plan created with a new business.
func trialPlanParams(businessID int64, now time.Time) database.UpsertPlanParams {
	return database.UpsertPlanParams{
		BusinessID: businessID,
		Name:       TrialPlanName,
		Price:      decimalToNumeric(decimal.Zero),
		Status:     enum.PlanStatusActive,
		StartedAt:  timestamptz(now),
		ExpiresAt:  timestamptz(ComputeExpiry(TrialPlanName, now, nil)),
	}
}
