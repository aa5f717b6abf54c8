package service

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/dineflow/api/internal/database"
	"github.com/dineflow/api/internal/enum"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"golang.org/x/crypto/bcrypt"
)

// Errors returned by account registration.
var (
	ErrMissingName  = errors.New("name is required")
	ErrInvalidEmail = errors.New("invalid email")
	ErrWeakPassword = errors.New("password must be at least 8 characters")
	ErrEmailTaken   = errors.New("email is already registered")
	ErrInvalidRole  = errors.New("role must be Owner or SuperAdmin")
)

const minPasswordLength = 8

// AccountStore defines the DB methods used to register businesses and
// customers. Satisfied by *database.Queries (and its WithTx variant).
type AccountStore interface {
	CreateBusiness(ctx context.Context, arg database.CreateBusinessParams) (database.Business, error)
	CreateBusinessOwner(ctx context.Context, arg database.CreateBusinessOwnerParams) (database.BusinessOwner, error)
	UpsertPlan(ctx context.Context, arg database.UpsertPlanParams) (database.Plan, error)
	NextBusinessSequence(ctx context.Context, arg database.NextBusinessSequenceParams) (int64, error)
	CreateCustomer(ctx context.Context, arg database.CreateCustomerParams) (database.Customer, error)
}

// NewAccountStore creates an AccountStore from a DBTX (pool or tx).
type NewAccountStore func(db database.DBTX) AccountStore

type RegisterBusinessRequest struct {
	BusinessName  string
	BusinessEmail string
	Phone         string
	Address       string
	OwnerName     string
	OwnerEmail    string
	Password      string
	Role          string // defaults to Owner
}

type RegisterCustomerRequest struct {
	BusinessID int64
	Name       string
	Email      string
	Phone      string
	Password   string // empty registers a walk-in customer without login
}

type AccountService struct {
	pool     TxBeginner
	newStore NewAccountStore
	now      func() time.Time
}

func NewAccountService(pool TxBeginner, newStore NewAccountStore) *AccountService {
	return &AccountService{pool: pool, newStore: newStore, now: time.Now}
}

func normalizeEmail(email string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if _, err := mail.ParseAddress(email); err != nil {
		return "", ErrInvalidEmail
	}
	return email, nil
}

func optionalText(s string) pgtype.Text {
	s = strings.TrimSpace(s)
	return pgtype.Text{String: s, Valid: s != ""}
}

func hashPassword(password string) (string, error) {
	if len(password) < minPasswordLength {
		return "", ErrWeakPassword
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hashed), nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

// RegisterBusiness creates a business, its owner and a trial plan in one
// transaction.
func (s *AccountService) RegisterBusiness(ctx context.Context, req RegisterBusinessRequest) (database.Business, database.BusinessOwner, error) {
	var none database.Business
	var noOwner database.BusinessOwner

	if strings.TrimSpace(req.BusinessName) == "" || strings.TrimSpace(req.OwnerName) == "" {
		return none, noOwner, ErrMissingName
	}
	businessEmail, err := normalizeEmail(req.BusinessEmail)
	if err != nil {
		return none, noOwner, err
	}
	ownerEmail, err := normalizeEmail(req.OwnerEmail)
	if err != nil {
		return none, noOwner, err
	}
	role := req.Role
	if role == "" {
		role = enum.OwnerRoleOwner
	}
	if role != enum.OwnerRoleOwner && role != enum.OwnerRoleSuperAdmin {
		return none, noOwner, ErrInvalidRole
	}
	hashed, err := hashPassword(req.Password)
	if err != nil {
		return none, noOwner, err
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return none, noOwner, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := s.newStore(tx)

	business, err := store.CreateBusiness(ctx, database.CreateBusinessParams{
		Name:    strings.TrimSpace(req.BusinessName),
		Email:   businessEmail,
		Phone:   optionalText(req.Phone),
		Address: optionalText(req.Address),
	})
	if err != nil {
		return none, noOwner, fmt.Errorf("create business: %w", err)
	}

	owner, err := store.CreateBusinessOwner(ctx, database.CreateBusinessOwnerParams{
		BusinessID:     business.ID,
		Name:           strings.TrimSpace(req.OwnerName),
		Email:          ownerEmail,
		HashedPassword: hashed,
		Role:           role,
	})
	if err != nil {
		if isUniqueViolation(err) {
			return none, noOwner, ErrEmailTaken
		}
		return none, noOwner, fmt.Errorf("create owner: %w", err)
	}

	if _, err := store.UpsertPlan(ctx, trialPlanParams(business.ID, s.now())); err != nil {
		return none, noOwner, fmt.Errorf("create trial plan: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return none, noOwner, fmt.Errorf("commit tx: %w", err)
	}
	return business, owner, nil
}

// RegisterCustomer creates a customer with the next per-business customer
// number.
func (s *AccountService) RegisterCustomer(ctx context.Context, req RegisterCustomerRequest) (database.Customer, error) {
	if strings.TrimSpace(req.Name) == "" {
		return database.Customer{}, ErrMissingName
	}
	email, err := normalizeEmail(req.Email)
	if err != nil {
		return database.Customer{}, err
	}
	hashed := pgtype.Text{}
	if req.Password != "" {
		h, err := hashPassword(req.Password)
		if err != nil {
			return database.Customer{}, err
		}
		hashed = pgtype.Text{String: h, Valid: true}
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return database.Customer{}, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := s.newStore(tx)

	seq, err := store.NextBusinessSequence(ctx, database.NextBusinessSequenceParams{
		BusinessID: req.BusinessID,
		Name:       enum.SequenceCustomer,
	})
	if err != nil {
		return database.Customer{}, fmt.Errorf("next customer number: %w", err)
	}

	customer, err := store.CreateCustomer(ctx, database.CreateCustomerParams{
		BusinessID:     req.BusinessID,
		CustomerSeq:    seq,
		Name:           strings.TrimSpace(req.Name),
		Email:          email,
		Phone:          optionalText(req.Phone),
		HashedPassword: hashed,
	})
	if err != nil {
		if isUniqueViolation(err) {
			return database.Customer{}, ErrEmailTaken
		}
		return database.Customer{}, fmt.Errorf("create customer: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return database.Customer{}, fmt.Errorf("commit tx: %w", err)
	}
	return customer, nil
}
