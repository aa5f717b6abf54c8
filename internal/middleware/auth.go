package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/dineflow/api/internal/auth"
	"github.com/dineflow/api/internal/enum"
	"github.com/go-chi/chi/v5"
)

type contextKey string

const (
	claimsKey         contextKey = "claims"
	customerClaimsKey contextKey = "customer_claims"
)

// Authenticate requires a valid owner token.
func Authenticate(jwtSecret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tokenStr, msg := bearerToken(r)
			if msg != "" {
				writeJSON(w, http.StatusUnauthorized, map[string]string{"error": msg})
				return
			}

			claims, err := auth.ValidateOwnerToken(jwtSecret, tokenStr)
			if err != nil {
				writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "invalid token"})
				return
			}

			ctx := context.WithValue(r.Context(), claimsKey, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// AuthenticateCustomer requires a valid customer token.
func AuthenticateCustomer(jwtSecret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tokenStr, msg := bearerToken(r)
			if msg != "" {
				writeJSON(w, http.StatusUnauthorized, map[string]string{"error": msg})
				return
			}

			claims, err := auth.ValidateCustomerToken(jwtSecret, tokenStr)
			if err != nil {
				writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "invalid token"})
				return
			}

			ctx := context.WithValue(r.Context(), customerClaimsKey, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// OptionalCustomer attaches customer claims when the request carries a valid
// customer token for the business in the {bid} path segment. Missing,
// invalid or foreign-business tokens leave the request anonymous.
func OptionalCustomer(jwtSecret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tokenStr, msg := bearerToken(r)
			if msg != "" {
				next.ServeHTTP(w, r)
				return
			}

			claims, err := auth.ValidateCustomerToken(jwtSecret, tokenStr)
			if err != nil {
				next.ServeHTTP(w, r)
				return
			}

			if bid := chi.URLParam(r, "bid"); bid != "" {
				if id, err := strconv.ParseInt(bid, 10, 64); err != nil || id != claims.BusinessID {
					next.ServeHTTP(w, r)
					return
				}
			}

			ctx := context.WithValue(r.Context(), customerClaimsKey, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func RequireRole(roles ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims := ClaimsFromContext(r.Context())
			if claims == nil {
				writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "not authenticated"})
				return
			}

			for _, role := range roles {
				if claims.Role == role {
					next.ServeHTTP(w, r)
					return
				}
			}

			writeJSON(w, http.StatusForbidden, map[string]string{"error": "insufficient permissions"})
		})
	}
}

// CanAccessBusiness reports whether the owner may act on businessID.
// SuperAdmin may act on any business.
func CanAccessBusiness(claims *auth.OwnerClaims, businessID int64) bool {
	if claims == nil {
		return false
	}
	return claims.Role == enum.OwnerRoleSuperAdmin || claims.BusinessID == businessID
}

func ClaimsFromContext(ctx context.Context) *auth.OwnerClaims {
	claims, _ := ctx.Value(claimsKey).(*auth.OwnerClaims)
	return claims
}

func CustomerClaimsFromContext(ctx context.Context) *auth.CustomerClaims {
	claims, _ := ctx.Value(customerClaimsKey).(*auth.CustomerClaims)
	return claims
}

func bearerToken(r *http.Request) (string, string) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return "", "missing authorization header"
	}

	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return "", "invalid authorization format"
	}
	return parts[1], ""
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
