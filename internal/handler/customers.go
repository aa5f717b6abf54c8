package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/dineflow/api/internal/database"
	"github.com/dineflow/api/internal/middleware"
	"github.com/dineflow/api/internal/service"
	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

// CustomerStore defines the database methods needed by customer handlers.
// Satisfied by *database.Queries; narrow interface for testability.
type CustomerStore interface {
	ListCustomers(ctx context.Context, arg database.ListCustomersParams) ([]database.Customer, error)
	GetCustomer(ctx context.Context, arg database.GetCustomerParams) (database.Customer, error)
}

// CustomerRegistrar creates customer accounts.
// Satisfied by *service.AccountService.
type CustomerRegistrar interface {
	RegisterCustomer(ctx context.Context, req service.RegisterCustomerRequest) (database.Customer, error)
}

// CustomerHandler handles customer endpoints. Customers with a login create
// their own accounts through the auth endpoints; owners record walk-ins here.
type CustomerHandler struct {
	store    CustomerStore
	accounts CustomerRegistrar
}

// NewCustomerHandler creates a new CustomerHandler.
func NewCustomerHandler(store CustomerStore, accounts CustomerRegistrar) *CustomerHandler {
	return &CustomerHandler{store: store, accounts: accounts}
}

// RegisterRoutes registers owner customer endpoints, mounted at /customers.
func (h *CustomerHandler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.List)
	r.Post("/", h.CreateWalkIn)
	r.Get("/{id}", h.Get)
}

// RegisterSelfRoutes registers the signed-in customer's profile endpoint.
func (h *CustomerHandler) RegisterSelfRoutes(r chi.Router) {
	r.Get("/customer/me", h.Me)
}

// --- Response types ---

type customerResponse struct {
	ID            int64     `json:"id"`
	CustomerID    int64     `json:"customer_id"`
	BusinessID    int64     `json:"business_id"`
	Name          string    `json:"name"`
	Email         string    `json:"email"`
	Phone         *string   `json:"phone"`
	TotalOrders   int32     `json:"total_orders"`
	TotalSpent    string    `json:"total_spent"`
	LoyaltyPoints int32     `json:"loyalty_points"`
	Registered    bool      `json:"registered"`
	CreatedAt     time.Time `json:"created_at"`
}

func toCustomerResponse(c database.Customer) customerResponse {
	return customerResponse{
		ID:            c.ID,
		CustomerID:    c.CustomerSeq,
		BusinessID:    c.BusinessID,
		Name:          c.Name,
		Email:         c.Email,
		Phone:         textPtr(c.Phone),
		TotalOrders:   c.TotalOrders,
		TotalSpent:    numericToString(c.TotalSpent),
		LoyaltyPoints: c.LoyaltyPoints,
		Registered:    c.HashedPassword.Valid,
		CreatedAt:     c.CreatedAt.Time,
	}
}

// --- Handlers ---

// List returns the business's customers, optionally filtered by a
// name/email/phone search term.
func (h *CustomerHandler) List(w http.ResponseWriter, r *http.Request) {
	businessID, ok := ownerBusiness(w, r)
	if !ok {
		return
	}

	limit, offset := parsePagination(r)
	search := pgtype.Text{}
	if q := strings.TrimSpace(r.URL.Query().Get("search")); q != "" {
		search = pgtype.Text{String: q, Valid: true}
	}

	customers, err := h.store.ListCustomers(r.Context(), database.ListCustomersParams{
		BusinessID: businessID,
		Search:     search,
		Limit:      limit,
		Offset:     offset,
	})
	if err != nil {
		writeInternal(w, "list customers", err)
		return
	}

	resp := make([]customerResponse, len(customers))
	for i, c := range customers {
		resp[i] = toCustomerResponse(c)
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"customers": resp,
		"limit":     limit,
		"offset":    offset,
	})
}

// Get returns one customer of the business.
func (h *CustomerHandler) Get(w http.ResponseWriter, r *http.Request) {
	businessID, ok := ownerBusiness(w, r)
	if !ok {
		return
	}
	id, ok := parseIDParam(w, r, "id", "customer ID")
	if !ok {
		return
	}

	customer, err := h.store.GetCustomer(r.Context(), database.GetCustomerParams{ID: id, BusinessID: businessID})
	if err != nil {
		if isNotFound(err) {
			writeError(w, http.StatusNotFound, "customer not found")
			return
		}
		writeInternal(w, "get customer", err)
		return
	}

	writeJSON(w, http.StatusOK, toCustomerResponse(customer))
}

// Me returns the profile behind a customer token.
func (h *CustomerHandler) Me(w http.ResponseWriter, r *http.Request) {
	claims := middleware.CustomerClaimsFromContext(r.Context())
	if claims == nil {
		writeError(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	customer, err := h.store.GetCustomer(r.Context(), database.GetCustomerParams{
		ID:         claims.CustomerRef,
		BusinessID: claims.BusinessID,
	})
	if err != nil {
		if isNotFound(err) {
			writeError(w, http.StatusNotFound, "customer not found")
			return
		}
		writeInternal(w, "get current customer", err)
		return
	}

	writeJSON(w, http.StatusOK, toCustomerResponse(customer))
}

type walkInRequest struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone"`
}

// CreateWalkIn records a customer without a login. Walk-ins earn loyalty
// points on their orders but cannot sign in or reset a password.
func (h *CustomerHandler) CreateWalkIn(w http.ResponseWriter, r *http.Request) {
	businessID, ok := ownerBusiness(w, r)
	if !ok {
		return
	}

	var req walkInRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	customer, err := h.accounts.RegisterCustomer(r.Context(), service.RegisterCustomerRequest{
		BusinessID: businessID,
		Name:       req.Name,
		Email:      req.Email,
		Phone:      req.Phone,
	})
	if err != nil {
		writeServiceError(w, "create walk-in customer", err)
		return
	}
	writeJSON(w, http.StatusCreated, toCustomerResponse(customer))
}
