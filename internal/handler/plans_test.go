package handler_test

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/dineflow/api/internal/auth"
	"github.com/dineflow/api/internal/database"
	"github.com/dineflow/api/internal/enum"
	"github.com/dineflow/api/internal/handler"
	"github.com/dineflow/api/internal/middleware"
	"github.com/dineflow/api/internal/service"
	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

// mockPlanStore backs a real service.PlanService.
type mockPlanStore struct {
	plans map[int64]database.Plan
}

func (m *mockPlanStore) GetPlanByBusiness(_ context.Context, businessID int64) (database.Plan, error) {
	p, ok := m.plans[businessID]
	if !ok {
		return database.Plan{}, pgx.ErrNoRows
	}
	return p, nil
}

func (m *mockPlanStore) UpsertPlan(_ context.Context, arg database.UpsertPlanParams) (database.Plan, error) {
	p := database.Plan{
		BusinessID: arg.BusinessID, Name: arg.Name, Price: arg.Price,
		Status: arg.Status, StartedAt: arg.StartedAt, ExpiresAt: arg.ExpiresAt,
	}
	m.plans[arg.BusinessID] = p
	return p, nil
}

func (m *mockPlanStore) UpdatePlanStatus(_ context.Context, arg database.UpdatePlanStatusParams) (database.Plan, error) {
	p, ok := m.plans[arg.BusinessID]
	if !ok {
		return database.Plan{}, pgx.ErrNoRows
	}
	p.Status = arg.Status
	if arg.StartedAt.Valid {
		p.StartedAt = arg.StartedAt
	}
	m.plans[arg.BusinessID] = p
	return p, nil
}

func setupPlanRouter(store *mockPlanStore) *chi.Mux {
	h := handler.NewPlanHandler(service.NewPlanService(store))
	r := chi.NewRouter()
	r.Group(func(r chi.Router) {
		r.Use(middleware.Authenticate(testJWTSecret))
		r.Route("/plan", h.RegisterRoutes)
		r.Route("/admin/businesses/{bid}/plan", func(r chi.Router) {
			r.Use(middleware.RequireRole(enum.OwnerRoleSuperAdmin))
			h.RegisterAdminRoutes(r)
		})
	})
	return r
}

func adminClaims() *auth.OwnerClaims {
	return &auth.OwnerClaims{UserID: 1, BusinessID: 1, Email: "admin@example.com", Role: enum.OwnerRoleSuperAdmin}
}

func future(d time.Duration) pgtype.Timestamptz {
	return pgtype.Timestamptz{Time: time.Now().Add(d), Valid: true}
}

func TestPlanGet_ExpiresStaleActivePlan(t *testing.T) {
	store := &mockPlanStore{plans: map[int64]database.Plan{
		3: {BusinessID: 3, Name: "Monthly", Status: enum.PlanStatusActive, ExpiresAt: future(-time.Hour)},
	}}
	router := setupPlanRouter(store)

	rr := doAuthRequest(t, router, "GET", "/plan", nil, ownerClaims(3))
	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want %d; body: %s", rr.Code, http.StatusOK, rr.Body.String())
	}
	if resp := decodeMap(t, rr); resp["status"] != "expired" {
		t.Errorf("status: got %v, want expired", resp["status"])
	}
	if store.plans[3].Status != enum.PlanStatusExpired {
		t.Errorf("stored status: got %q, want expired", store.plans[3].Status)
	}
}

func TestPlanGet_NoPlan(t *testing.T) {
	router := setupPlanRouter(&mockPlanStore{plans: map[int64]database.Plan{}})

	rr := doAuthRequest(t, router, "GET", "/plan", nil, ownerClaims(3))
	if rr.Code != http.StatusNotFound {
		t.Fatalf("status: got %d, want %d", rr.Code, http.StatusNotFound)
	}
}

func TestPlanSubscribeThenVerify(t *testing.T) {
	store := &mockPlanStore{plans: map[int64]database.Plan{}}
	router := setupPlanRouter(store)

	rr := doAuthRequest(t, router, "POST", "/plan", map[string]interface{}{"name": "Annual Pro", "price": 999}, ownerClaims(3))
	if rr.Code != http.StatusCreated {
		t.Fatalf("subscribe: got %d, want %d; body: %s", rr.Code, http.StatusCreated, rr.Body.String())
	}
	if resp := decodeMap(t, rr); resp["status"] != "pending" || resp["price"] != "999.00" {
		t.Errorf("subscribe response: got %v", resp)
	}

	rr = doAuthRequest(t, router, "POST", "/admin/businesses/3/plan/verify", nil, adminClaims())
	if rr.Code != http.StatusOK {
		t.Fatalf("verify: got %d, want %d; body: %s", rr.Code, http.StatusOK, rr.Body.String())
	}
	if resp := decodeMap(t, rr); resp["status"] != "active" {
		t.Errorf("verify status: got %v, want active", resp["status"])
	}

	rr = doAuthRequest(t, router, "POST", "/admin/businesses/3/plan/verify", nil, adminClaims())
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("re-verify: got %d, want %d", rr.Code, http.StatusBadRequest)
	}
	if resp := decodeMap(t, rr); resp["error"] != "plan is already active" {
		t.Errorf("re-verify error: got %v", resp["error"])
	}
}

func TestPlanVerify_RequiresSuperAdmin(t *testing.T) {
	store := &mockPlanStore{plans: map[int64]database.Plan{
		3: {BusinessID: 3, Name: "Monthly", Status: enum.PlanStatusPending, ExpiresAt: future(time.Hour)},
	}}
	router := setupPlanRouter(store)

	rr := doAuthRequest(t, router, "POST", "/admin/businesses/3/plan/verify", nil, ownerClaims(3))
	if rr.Code != http.StatusForbidden {
		t.Fatalf("status: got %d, want %d", rr.Code, http.StatusForbidden)
	}
	if store.plans[3].Status != enum.PlanStatusPending {
		t.Errorf("plan changed: %q", store.plans[3].Status)
	}
}

func TestPlanCancel_PendingRejected(t *testing.T) {
	store := &mockPlanStore{plans: map[int64]database.Plan{
		3: {BusinessID: 3, Name: "Monthly", Status: enum.PlanStatusPending, ExpiresAt: future(time.Hour)},
	}}
	router := setupPlanRouter(store)

	rr := doAuthRequest(t, router, "POST", "/plan/cancel", nil, ownerClaims(3))
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status: got %d, want %d", rr.Code, http.StatusBadRequest)
	}
}
