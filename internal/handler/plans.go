package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/dineflow/api/internal/database"
	"github.com/go-chi/chi/v5"
)

// PlanServicer defines the service methods needed by plan handlers.
// Satisfied by *service.PlanService.
type PlanServicer interface {
	Get(ctx context.Context, businessID int64) (database.Plan, error)
	Subscribe(ctx context.Context, businessID int64, name, price string, expiresAt *time.Time) (database.Plan, error)
	Verify(ctx context.Context, businessID int64) (database.Plan, error)
	Cancel(ctx context.Context, businessID int64) (database.Plan, error)
}

// PlanHandler handles the business subscription plan.
type PlanHandler struct {
	svc PlanServicer
}

func NewPlanHandler(svc PlanServicer) *PlanHandler {
	return &PlanHandler{svc: svc}
}

// RegisterRoutes registers owner plan endpoints, mounted at /plan.
func (h *PlanHandler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.Get)
	r.Post("/", h.Subscribe)
	r.Post("/cancel", h.Cancel)
}

// RegisterAdminRoutes registers plan verification, mounted at
// /admin/businesses/{bid}/plan behind the SuperAdmin role check.
func (h *PlanHandler) RegisterAdminRoutes(r chi.Router) {
	r.Get("/", h.AdminGet)
	r.Post("/verify", h.Verify)
}

type subscribePlanRequest struct {
	Name      string       `json:"name"`
	Price     decimalInput `json:"price"`
	ExpiresAt *time.Time   `json:"expires_at"`
}

type planResponse struct {
	BusinessID int64      `json:"business_id"`
	Name       string     `json:"name"`
	Price      string     `json:"price"`
	Status     string     `json:"status"`
	StartedAt  *time.Time `json:"started_at"`
	ExpiresAt  *time.Time `json:"expires_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

func toPlanResponse(p database.Plan) planResponse {
	return planResponse{
		BusinessID: p.BusinessID,
		Name:       p.Name,
		Price:      numericToString(p.Price),
		Status:     p.Status,
		StartedAt:  timePtr(p.StartedAt),
		ExpiresAt:  timePtr(p.ExpiresAt),
		UpdatedAt:  p.UpdatedAt.Time,
	}
}

// Get returns the current plan. An active plan past its expiry is reported
// (and stored) as expired.
func (h *PlanHandler) Get(w http.ResponseWriter, r *http.Request) {
	businessID, ok := ownerBusiness(w, r)
	if !ok {
		return
	}
	plan, err := h.svc.Get(r.Context(), businessID)
	if err != nil {
		writeServiceError(w, "get plan", err)
		return
	}
	writeJSON(w, http.StatusOK, toPlanResponse(plan))
}

// Subscribe requests a new plan; it stays pending until an admin verifies it.
func (h *PlanHandler) Subscribe(w http.ResponseWriter, r *http.Request) {
	businessID, ok := ownerBusiness(w, r)
	if !ok {
		return
	}

	var req subscribePlanRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	plan, err := h.svc.Subscribe(r.Context(), businessID, req.Name, string(req.Price), req.ExpiresAt)
	if err != nil {
		writeServiceError(w, "subscribe plan", err)
		return
	}
	writeJSON(w, http.StatusCreated, toPlanResponse(plan))
}

func (h *PlanHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	businessID, ok := ownerBusiness(w, r)
	if !ok {
		return
	}
	plan, err := h.svc.Cancel(r.Context(), businessID)
	if err != nil {
		writeServiceError(w, "cancel plan", err)
		return
	}
	writeJSON(w, http.StatusOK, toPlanResponse(plan))
}

func (h *PlanHandler) AdminGet(w http.ResponseWriter, r *http.Request) {
	businessID, ok := parseIDParam(w, r, "bid", "business ID")
	if !ok {
		return
	}
	plan, err := h.svc.Get(r.Context(), businessID)
	if err != nil {
		writeServiceError(w, "admin get plan", err)
		return
	}
	writeJSON(w, http.StatusOK, toPlanResponse(plan))
}

// Verify activates a business's pending plan.
func (h *PlanHandler) Verify(w http.ResponseWriter, r *http.Request) {
	businessID, ok := parseIDParam(w, r, "bid", "business ID")
	if !ok {
		return
	}
	plan, err := h.svc.Verify(r.Context(), businessID)
	if err != nil {
		writeServiceError(w, "verify plan", err)
		return
	}
	writeJSON(w, http.StatusOK, toPlanResponse(plan))
}
