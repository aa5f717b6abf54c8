package service

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/dineflow/api/internal/database"
	"github.com/dineflow/api/internal/enum"
	"github.com/dineflow/api/internal/ratelimit"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

var (
	ErrTooManyResetRequests = errors.New("too many password reset requests, try again later")
	ErrInvalidResetToken    = errors.New("invalid or expired reset token")
	ErrInvalidPrincipal     = errors.New("invalid account type")
)

// ResetStore defines the DB methods used by password resets.
// Satisfied by *database.Queries (and its WithTx variant).
type ResetStore interface {
	GetOwnerByEmail(ctx context.Context, email string) (database.BusinessOwner, error)
	GetCustomerByEmail(ctx context.Context, arg database.GetCustomerByEmailParams) (database.Customer, error)
	CreatePasswordReset(ctx context.Context, arg database.CreatePasswordResetParams) (database.PasswordReset, error)
	ConsumePasswordReset(ctx context.Context, tokenHash string) (database.PasswordReset, error)
	UpdateOwnerPassword(ctx context.Context, arg database.UpdateOwnerPasswordParams) error
	UpdateCustomerPassword(ctx context.Context, arg database.UpdateCustomerPasswordParams) error
}

// NewResetStore creates a ResetStore from a DBTX (pool or tx).
type NewResetStore func(db database.DBTX) ResetStore

// ResetRequest identifies the account asking for a reset. BusinessID is only
// used for customers, whose emails are unique per business.
type ResetRequest struct {
	PrincipalType string
	BusinessID    int64
	Email         string
}

type PasswordResetService struct {
	pool     TxBeginner
	newStore NewResetStore
	store    ResetStore
	limiter  ratelimit.Limiter
	tokenTTL time.Duration
	now      func() time.Time
}

func NewPasswordResetService(pool TxBeginner, newStore NewResetStore, store ResetStore, limiter ratelimit.Limiter, tokenTTL time.Duration) *PasswordResetService {
	return &PasswordResetService{
		pool:     pool,
		newStore: newStore,
		store:    store,
		limiter:  limiter,
		tokenTTL: tokenTTL,
		now:      time.Now,
	}
}

// HashResetToken is the stored form of a reset token.
func HashResetToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

func newResetToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

func resetKey(req ResetRequest, email string) string {
	if req.PrincipalType == enum.PrincipalCustomer {
		return fmt.Sprintf("%s:%d:%s", req.PrincipalType, req.BusinessID, email)
	}
	return req.PrincipalType + ":" + email
}

// RequestReset issues a reset token for the account. Unknown accounts get an
// empty token and no error so callers cannot probe for registered emails.
// Every request counts against the per-account attempt window.
func (s *PasswordResetService) RequestReset(ctx context.Context, req ResetRequest) (string, error) {
	if req.PrincipalType != enum.PrincipalOwner && req.PrincipalType != enum.PrincipalCustomer {
		return "", ErrInvalidPrincipal
	}
	email, err := normalizeEmail(req.Email)
	if err != nil {
		return "", err
	}

	allowed, err := s.limiter.Allow(ctx, resetKey(req, email))
	if err != nil {
		return "", fmt.Errorf("check reset rate limit: %w", err)
	}
	if !allowed {
		return "", ErrTooManyResetRequests
	}

	principalID, err := s.lookupPrincipal(ctx, req.PrincipalType, req.BusinessID, email)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			log.Printf("WARN: password reset requested for unknown %s %q", req.PrincipalType, email)
			return "", nil
		}
		return "", err
	}

	token, err := newResetToken()
	if err != nil {
		return "", fmt.Errorf("generate reset token: %w", err)
	}
	if _, err := s.store.CreatePasswordReset(ctx, database.CreatePasswordResetParams{
		PrincipalType: req.PrincipalType,
		PrincipalID:   principalID,
		TokenHash:     HashResetToken(token),
		ExpiresAt:     pgtype.Timestamptz{Time: s.now().Add(s.tokenTTL), Valid: true},
	}); err != nil {
		return "", fmt.Errorf("create password reset: %w", err)
	}
	return token, nil
}

func (s *PasswordResetService) lookupPrincipal(ctx context.Context, principalType string, businessID int64, email string) (int64, error) {
	if principalType == enum.PrincipalOwner {
		owner, err := s.store.GetOwnerByEmail(ctx, email)
		if err != nil {
			return 0, err
		}
		return owner.ID, nil
	}
	customer, err := s.store.GetCustomerByEmail(ctx, database.GetCustomerByEmailParams{BusinessID: businessID, Email: email})
	if err != nil {
		return 0, err
	}
	if !customer.HashedPassword.Valid {
		// Walk-in customers have no login to reset.
		return 0, pgx.ErrNoRows
	}
	return customer.ID, nil
}

// ResetPassword consumes a token and sets the new password atomically.
func (s *PasswordResetService) ResetPassword(ctx context.Context, token, newPassword string) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return ErrInvalidResetToken
	}
	hashed, err := hashPassword(newPassword)
	if err != nil {
		return err
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := s.newStore(tx)

	reset, err := store.ConsumePasswordReset(ctx, HashResetToken(token))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrInvalidResetToken
		}
		return fmt.Errorf("consume reset token: %w", err)
	}

	switch reset.PrincipalType {
	case enum.PrincipalOwner:
		err = store.UpdateOwnerPassword(ctx, database.UpdateOwnerPasswordParams{ID: reset.PrincipalID, HashedPassword: hashed})
	case enum.PrincipalCustomer:
		err = store.UpdateCustomerPassword(ctx, database.UpdateCustomerPasswordParams{
			ID:             reset.PrincipalID,
			HashedPassword: pgtype.Text{String: hashed, Valid: true},
		})
	default:
		return ErrInvalidPrincipal
	}
	if err != nil {
		return fmt.Errorf("update password: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}
