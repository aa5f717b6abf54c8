package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/dineflow/api/internal/auth"
	"github.com/dineflow/api/internal/database"
	"github.com/dineflow/api/internal/enum"
	"github.com/dineflow/api/internal/service"
	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5"
	"golang.org/x/crypto/bcrypt"
)

// AuthStore defines the database methods needed by auth handlers.
// Satisfied by *database.Queries; narrow interface for testability.
type AuthStore interface {
	GetOwnerByEmail(ctx context.Context, email string) (database.BusinessOwner, error)
	GetCustomerByEmail(ctx context.Context, arg database.GetCustomerByEmailParams) (database.Customer, error)
}

// AccountRegistrar creates businesses and customer accounts.
// Satisfied by *service.AccountService.
type AccountRegistrar interface {
	RegisterBusiness(ctx context.Context, req service.RegisterBusinessRequest) (database.Business, database.BusinessOwner, error)
	RegisterCustomer(ctx context.Context, req service.RegisterCustomerRequest) (database.Customer, error)
}

// TokenConfig carries the signing secret and token lifetimes.
type TokenConfig struct {
	Secret      string
	OwnerTTL    time.Duration
	CustomerTTL time.Duration
}

// AuthHandler handles registration and login for owners and customers.
type AuthHandler struct {
	store    AuthStore
	accounts AccountRegistrar
	tokens   TokenConfig
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(store AuthStore, accounts AccountRegistrar, tokens TokenConfig) *AuthHandler {
	if tokens.OwnerTTL <= 0 {
		tokens.OwnerTTL = 12 * time.Hour
	}
	if tokens.CustomerTTL <= 0 {
		tokens.CustomerTTL = 24 * time.Hour
	}
	return &AuthHandler{store: store, accounts: accounts, tokens: tokens}
}

// RegisterRoutes registers owner auth endpoints on the given Chi router.
func (h *AuthHandler) RegisterRoutes(r chi.Router) {
	r.Post("/auth/register", h.RegisterBusiness)
	r.Post("/auth/login", h.Login)
}

// RegisterPublicRoutes registers customer auth under /businesses/{bid}.
func (h *AuthHandler) RegisterPublicRoutes(r chi.Router) {
	r.Post("/auth/register", h.RegisterCustomer)
	r.Post("/auth/login", h.CustomerLogin)
}

// --- Request / Response types ---

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type registerBusinessRequest struct {
	BusinessName  string `json:"business_name"`
	BusinessEmail string `json:"business_email"`
	Phone         string `json:"phone"`
	Address       string `json:"address"`
	OwnerName     string `json:"owner_name"`
	OwnerEmail    string `json:"owner_email"`
	Password      string `json:"password"`
}

type registerCustomerRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Phone    string `json:"phone"`
	Password string `json:"password"`
}

type ownerResponse struct {
	ID         int64  `json:"id"`
	BusinessID int64  `json:"business_id"`
	Name       string `json:"name"`
	Email      string `json:"email"`
	Role       string `json:"role"`
}

type ownerTokenResponse struct {
	AccessToken string            `json:"access_token"`
	Owner       ownerResponse     `json:"owner"`
	Business    *businessResponse `json:"business,omitempty"`
}

type customerTokenResponse struct {
	AccessToken string           `json:"access_token"`
	Customer    customerResponse `json:"customer"`
}

func toOwnerResponse(o database.BusinessOwner) ownerResponse {
	return ownerResponse{
		ID:         o.ID,
		BusinessID: o.BusinessID,
		Name:       o.Name,
		Email:      o.Email,
		Role:       o.Role,
	}
}

// --- Handlers ---

// RegisterBusiness creates a business, its owner and a trial plan, and
// signs the owner in. Self-service sign-ups are always plain owners.
func (h *AuthHandler) RegisterBusiness(w http.ResponseWriter, r *http.Request) {
	var req registerBusinessRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	business, owner, err := h.accounts.RegisterBusiness(r.Context(), service.RegisterBusinessRequest{
		BusinessName:  req.BusinessName,
		BusinessEmail: req.BusinessEmail,
		Phone:         req.Phone,
		Address:       req.Address,
		OwnerName:     req.OwnerName,
		OwnerEmail:    req.OwnerEmail,
		Password:      req.Password,
		Role:          enum.OwnerRoleOwner,
	})
	if err != nil {
		writeServiceError(w, "register business", err)
		return
	}

	token, err := auth.GenerateOwnerToken(h.tokens.Secret, h.tokens.OwnerTTL, owner.ID, owner.BusinessID, owner.Email, owner.Role)
	if err != nil {
		writeInternal(w, "generate owner token", err)
		return
	}

	b := toBusinessResponse(business)
	writeJSON(w, http.StatusCreated, ownerTokenResponse{
		AccessToken: token,
		Owner:       toOwnerResponse(owner),
		Business:    &b,
	})
}

// Login handles owner email + password authentication.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if email == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "email and password are required")
		return
	}

	owner, err := h.store.GetOwnerByEmail(r.Context(), email)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeError(w, http.StatusUnauthorized, "invalid credentials")
			return
		}
		writeInternal(w, "get owner by email", err)
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(owner.HashedPassword), []byte(req.Password)); err != nil {
		writeError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}

	token, err := auth.GenerateOwnerToken(h.tokens.Secret, h.tokens.OwnerTTL, owner.ID, owner.BusinessID, owner.Email, owner.Role)
	if err != nil {
		writeInternal(w, "generate owner token", err)
		return
	}
	writeJSON(w, http.StatusOK, ownerTokenResponse{AccessToken: token, Owner: toOwnerResponse(owner)})
}

// RegisterCustomer signs a customer up with the business in the path.
func (h *AuthHandler) RegisterCustomer(w http.ResponseWriter, r *http.Request) {
	businessID, ok := parseIDParam(w, r, "bid", "business ID")
	if !ok {
		return
	}

	var req registerCustomerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Password == "" {
		writeError(w, http.StatusBadRequest, service.ErrWeakPassword.Error())
		return
	}

	customer, err := h.accounts.RegisterCustomer(r.Context(), service.RegisterCustomerRequest{
		BusinessID: businessID,
		Name:       req.Name,
		Email:      req.Email,
		Phone:      req.Phone,
		Password:   req.Password,
	})
	if err != nil {
		if isForeignKeyViolation(err) {
			writeError(w, http.StatusNotFound, "business not found")
			return
		}
		writeServiceError(w, "register customer", err)
		return
	}

	h.respondWithCustomerToken(w, http.StatusCreated, customer)
}

// CustomerLogin authenticates a customer of the business in the path.
// Walk-in customers have no password and cannot sign in.
func (h *AuthHandler) CustomerLogin(w http.ResponseWriter, r *http.Request) {
	businessID, ok := parseIDParam(w, r, "bid", "business ID")
	if !ok {
		return
	}

	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if email == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "email and password are required")
		return
	}

	customer, err := h.store.GetCustomerByEmail(r.Context(), database.GetCustomerByEmailParams{
		BusinessID: businessID,
		Email:      email,
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeError(w, http.StatusUnauthorized, "invalid credentials")
			return
		}
		writeInternal(w, "get customer by email", err)
		return
	}
	if !customer.HashedPassword.Valid {
		writeError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}
	if err := bcrypt.CompareHashAndPassword([]byte(customer.HashedPassword.String), []byte(req.Password)); err != nil {
		writeError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}

	h.respondWithCustomerToken(w, http.StatusOK, customer)
}

// --- Helpers ---

func (h *AuthHandler) respondWithCustomerToken(w http.ResponseWriter, status int, c database.Customer) {
	token, err := auth.GenerateCustomerToken(h.tokens.Secret, h.tokens.CustomerTTL, c.ID, c.CustomerSeq, c.BusinessID, c.Email)
	if err != nil {
		writeInternal(w, "generate customer token", err)
		return
	}
	writeJSON(w, status, customerTokenResponse{AccessToken: token, Customer: toCustomerResponse(c)})
}
