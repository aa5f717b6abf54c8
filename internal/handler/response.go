package handler

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/dineflow/api/internal/middleware"
	"github.com/dineflow/api/internal/service"
	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"
)

const (
	defaultPageLimit = 20
	maxPageLimit     = 100
)

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("ERROR: failed to encode JSON response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func writeInternal(w http.ResponseWriter, op string, err error) {
	log.Printf("ERROR: %s: %v", op, err)
	writeError(w, http.StatusInternalServerError, "internal server error")
}

// isValidationError checks if the error is a known validation error
// from the service layer that should be reported as 400.
func isValidationError(err error) bool {
	return errors.Is(err, service.ErrEmptyItems) ||
		errors.Is(err, service.ErrInvalidQuantity) ||
		errors.Is(err, service.ErrInvalidProductID) ||
		errors.Is(err, service.ErrInvalidPrice) ||
		errors.Is(err, service.ErrMissingItemName) ||
		errors.Is(err, service.ErrInvalidTableNumber) ||
		errors.Is(err, service.ErrInvalidTotal) ||
		errors.Is(err, service.ErrMissingPaymentMethod) ||
		errors.Is(err, service.ErrMissingEstimatedTime) ||
		errors.Is(err, service.ErrInvalidRedeemPoints) ||
		errors.Is(err, service.ErrInvalidItemStatus) ||
		errors.Is(err, service.ErrInvalidCapacity) ||
		errors.Is(err, service.ErrPlanAlreadyActive) ||
		errors.Is(err, service.ErrPlanNotPending) ||
		errors.Is(err, service.ErrPlanNotCancellable) ||
		errors.Is(err, service.ErrPlanExpiryPassed) ||
		errors.Is(err, service.ErrMissingPlanName) ||
		errors.Is(err, service.ErrInvalidPlanPrice) ||
		errors.Is(err, service.ErrCouponInactive) ||
		errors.Is(err, service.ErrCouponNotStarted) ||
		errors.Is(err, service.ErrCouponExpired) ||
		errors.Is(err, service.ErrCouponMinOrder) ||
		errors.Is(err, service.ErrCouponExhausted) ||
		errors.Is(err, service.ErrInvalidOrderTotal) ||
		errors.Is(err, service.ErrInvalidTaxPercent) ||
		errors.Is(err, service.ErrMissingName) ||
		errors.Is(err, service.ErrInvalidEmail) ||
		errors.Is(err, service.ErrWeakPassword) ||
		errors.Is(err, service.ErrInvalidRole) ||
		errors.Is(err, service.ErrInvalidResetToken) ||
		errors.Is(err, service.ErrInvalidPrincipal) ||
		errors.Is(err, service.ErrEmptyMessage) ||
		errors.Is(err, service.ErrMessagingNotConfigured)
}

func isNotFound(err error) bool {
	return errors.Is(err, pgx.ErrNoRows) ||
		errors.Is(err, service.ErrOrderNotFound) ||
		errors.Is(err, service.ErrItemNotFound) ||
		errors.Is(err, service.ErrPlanNotFound) ||
		errors.Is(err, service.ErrCouponNotFound)
}

func isConflict(err error) bool {
	if errors.Is(err, service.ErrEmailTaken) || errors.Is(err, service.ErrBillExists) {
		return true
	}
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

// writeServiceError maps a service or store error onto the HTTP status the
// API documents. Unknown errors are logged under op and reported as 500.
func writeServiceError(w http.ResponseWriter, op string, err error) {
	switch {
	case isValidationError(err):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, service.ErrForbidden):
		writeError(w, http.StatusForbidden, "forbidden")
	case isNotFound(err):
		msg := "not found"
		if !errors.Is(err, pgx.ErrNoRows) {
			msg = err.Error()
		}
		writeError(w, http.StatusNotFound, msg)
	case isConflict(err):
		msg := "already exists"
		if errors.Is(err, service.ErrEmailTaken) || errors.Is(err, service.ErrBillExists) {
			msg = err.Error()
		}
		writeError(w, http.StatusConflict, msg)
	case errors.Is(err, service.ErrTooManyResetRequests):
		writeError(w, http.StatusTooManyRequests, err.Error())
	default:
		writeInternal(w, op, err)
	}
}

// ownerBusiness returns the business the authenticated owner acts on.
func ownerBusiness(w http.ResponseWriter, r *http.Request) (int64, bool) {
	claims := middleware.ClaimsFromContext(r.Context())
	if claims == nil {
		writeError(w, http.StatusUnauthorized, "not authenticated")
		return 0, false
	}
	return claims.BusinessID, true
}

func parseIDParam(w http.ResponseWriter, r *http.Request, name, label string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id <= 0 {
		writeError(w, http.StatusBadRequest, "invalid "+label)
		return 0, false
	}
	return id, true
}

func parsePagination(r *http.Request) (int32, int32) {
	limit := int32(defaultPageLimit)
	offset := int32(0)
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			if n > maxPageLimit {
				n = maxPageLimit
			}
			limit = int32(n)
		}
	}
	if v := r.URL.Query().Get("offset"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			offset = int32(n)
		}
	}
	return limit, offset
}

func numericToString(n pgtype.Numeric) string {
	if !n.Valid {
		return "0.00"
	}
	val, err := n.Value()
	if err != nil || val == nil {
		return "0.00"
	}
	d, err := decimal.NewFromString(val.(string))
	if err != nil {
		return "0.00"
	}
	return d.StringFixed(2)
}

func optionalNumericString(n pgtype.Numeric) *string {
	if !n.Valid {
		return nil
	}
	s := numericToString(n)
	return &s
}

// parseNumeric converts a decimal string from a request body. Empty input
// yields a NULL numeric.
func parseNumeric(s string) (pgtype.Numeric, error) {
	var n pgtype.Numeric
	if s == "" {
		return n, nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return n, err
	}
	if err := n.Scan(d.String()); err != nil {
		return n, err
	}
	return n, nil
}

func optionalText(s string) pgtype.Text {
	if s == "" {
		return pgtype.Text{}
	}
	return pgtype.Text{String: s, Valid: true}
}

func textPtr(t pgtype.Text) *string {
	if !t.Valid {
		return nil
	}
	return &t.String
}

func timePtr(t pgtype.Timestamptz) *time.Time {
	if !t.Valid {
		return nil
	}
	return &t.Time
}

// decimalInput accepts a money amount sent either as a JSON number or as a
// string and keeps its textual form.
type decimalInput string

func (d *decimalInput) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		*d = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*d = decimalInput(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*d = decimalInput(n.String())
	return nil
}
