package middleware_test

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/dineflow/api/internal/auth"
	"github.com/dineflow/api/internal/middleware"
	"github.com/go-chi/chi/v5"
)

const testSecret = "test-secret"

func ownerToken(t *testing.T, businessID int64, role string) string {
	t.Helper()
	token, err := auth.GenerateOwnerToken(testSecret, time.Hour, 1, businessID, "owner@cafe.test", role)
	if err != nil {
		t.Fatalf("generate owner token: %v", err)
	}
	return token
}

func customerToken(t *testing.T, businessID int64) string {
	t.Helper()
	token, err := auth.GenerateCustomerToken(testSecret, time.Hour, 10, 2, businessID, "guest@mail.test")
	if err != nil {
		t.Fatalf("generate customer token: %v", err)
	}
	return token
}

func TestAuthMiddleware_ValidToken(t *testing.T) {
	token := ownerToken(t, 5, "Owner")

	handler := middleware.Authenticate(testSecret)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims := middleware.ClaimsFromContext(r.Context())
		if claims == nil {
			t.Fatal("expected claims in context")
		}
		if claims.BusinessID != 5 {
			t.Errorf("business ID: got %v, want %v", claims.BusinessID, 5)
		}
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest("GET", "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Errorf("status: got %d, want %d", rr.Code, http.StatusOK)
	}
}

func TestAuthMiddleware_MissingToken(t *testing.T) {
	handler := middleware.Authenticate(testSecret)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler should not be called")
	}))

	req := httptest.NewRequest("GET", "/", nil)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusUnauthorized {
		t.Errorf("status: got %d, want %d", rr.Code, http.StatusUnauthorized)
	}
}

func TestAuthMiddleware_InvalidToken(t *testing.T) {
	handler := middleware.Authenticate(testSecret)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler should not be called")
	}))

	req := httptest.NewRequest("GET", "/", nil)
	req.Header.Set("Authorization", "Bearer invalid-token")
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusUnauthorized {
		t.Errorf("status: got %d, want %d", rr.Code, http.StatusUnauthorized)
	}
}

func TestAuthMiddleware_RejectsCustomerToken(t *testing.T) {
	handler := middleware.Authenticate(testSecret)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler should not be called")
	}))

	req := httptest.NewRequest("GET", "/", nil)
	req.Header.Set("Authorization", "Bearer "+customerToken(t, 1))
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusUnauthorized {
		t.Errorf("status: got %d, want %d", rr.Code, http.StatusUnauthorized)
	}
}

func TestAuthenticateCustomer(t *testing.T) {
	handler := middleware.AuthenticateCustomer(testSecret)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims := middleware.CustomerClaimsFromContext(r.Context())
		if claims == nil || claims.CustomerRef != 10 {
			t.Fatalf("customer claims: got %+v", claims)
		}
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest("GET", "/", nil)
	req.Header.Set("Authorization", "Bearer "+customerToken(t, 1))
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Errorf("status: got %d, want %d", rr.Code, http.StatusOK)
	}
}

func TestOptionalCustomer(t *testing.T) {
	tests := []struct {
		name       string
		authHeader string
		bid        string
		wantClaims bool
	}{
		{"no header", "", "1", false},
		{"garbage token", "Bearer nope", "1", false},
		{"owner token", "Bearer " + ownerToken(t, 1, "Owner"), "1", false},
		{"same business", "Bearer " + customerToken(t, 1), "1", true},
		{"other business", "Bearer " + customerToken(t, 2), "1", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got bool
			router := chi.NewRouter()
			router.With(middleware.OptionalCustomer(testSecret)).Post("/businesses/{bid}/orders", func(w http.ResponseWriter, r *http.Request) {
				got = middleware.CustomerClaimsFromContext(r.Context()) != nil
				w.WriteHeader(http.StatusOK)
			})

			req := httptest.NewRequest("POST", "/businesses/"+tt.bid+"/orders", nil)
			if tt.authHeader != "" {
				req.Header.Set("Authorization", tt.authHeader)
			}
			rr := httptest.NewRecorder()
			router.ServeHTTP(rr, req)

			if rr.Code != http.StatusOK {
				t.Fatalf("status: got %d, want %d", rr.Code, http.StatusOK)
			}
			if got != tt.wantClaims {
				t.Errorf("claims attached: got %v, want %v", got, tt.wantClaims)
			}
		})
	}
}

func TestRequireRole(t *testing.T) {
	token := ownerToken(t, 1, "Owner")

	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	// Owner trying to access SuperAdmin-only endpoint
	handler := middleware.Authenticate(testSecret)(middleware.RequireRole("SuperAdmin")(inner))

	req := httptest.NewRequest("GET", "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusForbidden {
		t.Errorf("status: got %d, want %d", rr.Code, http.StatusForbidden)
	}
}

func TestCanAccessBusiness(t *testing.T) {
	owner := &auth.OwnerClaims{BusinessID: 1, Role: "Owner"}
	admin := &auth.OwnerClaims{BusinessID: 1, Role: "SuperAdmin"}

	if !middleware.CanAccessBusiness(owner, 1) {
		t.Error("owner should access own business")
	}
	if middleware.CanAccessBusiness(owner, 2) {
		t.Error("owner should not access another business")
	}
	if !middleware.CanAccessBusiness(admin, 2) {
		t.Error("super admin should access any business")
	}
	if middleware.CanAccessBusiness(nil, 1) {
		t.Error("nil claims should not access anything")
	}
}
