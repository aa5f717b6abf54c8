package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/dineflow/api/internal/database"
	"github.com/dineflow/api/internal/enum"
	"github.com/dineflow/api/internal/service"
	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"
)

// CouponStore defines the database methods needed by coupon handlers.
// Satisfied by *database.Queries; narrow interface for testability.
type CouponStore interface {
	ListCoupons(ctx context.Context, businessID int64) ([]database.Coupon, error)
	GetCoupon(ctx context.Context, arg database.GetCouponParams) (database.Coupon, error)
	CreateCoupon(ctx context.Context, arg database.CreateCouponParams) (database.Coupon, error)
	UpdateCoupon(ctx context.Context, arg database.UpdateCouponParams) (database.Coupon, error)
	DeleteCoupon(ctx context.Context, arg database.DeleteCouponParams) (int64, error)
}

// CouponPreviewer evaluates a code against a total without redeeming it.
// Satisfied by *service.CouponService.
type CouponPreviewer interface {
	Preview(ctx context.Context, businessID int64, code, total string) (database.Coupon, decimal.Decimal, error)
}

// CouponHandler handles coupon CRUD and the public validation endpoint.
type CouponHandler struct {
	store   CouponStore
	preview CouponPreviewer
}

func NewCouponHandler(store CouponStore, preview CouponPreviewer) *CouponHandler {
	return &CouponHandler{store: store, preview: preview}
}

// RegisterRoutes registers owner coupon endpoints, mounted at /coupons.
func (h *CouponHandler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.List)
	r.Post("/", h.Create)
	r.Get("/{id}", h.Get)
	r.Put("/{id}", h.Update)
	r.Delete("/{id}", h.Delete)
}

// RegisterPublicRoutes registers coupon validation under /businesses/{bid}.
func (h *CouponHandler) RegisterPublicRoutes(r chi.Router) {
	r.Post("/coupons/validate", h.Validate)
}

// --- Request / Response types ---

type couponRequest struct {
	Code          string       `json:"code"`
	DiscountType  string       `json:"discount_type"`
	DiscountValue decimalInput `json:"discount_value"`
	MaxDiscount   decimalInput `json:"max_discount"`
	MinOrderValue decimalInput `json:"min_order_value"`
	ValidFrom     *time.Time   `json:"valid_from"`
	ValidTill     *time.Time   `json:"valid_till"`
	UsageLimit    *int32       `json:"usage_limit"`
	IsActive      *bool        `json:"is_active"`
}

type validateCouponRequest struct {
	Code  string       `json:"code"`
	Total decimalInput `json:"total"`
}

type couponResponse struct {
	ID            int64      `json:"id"`
	Code          string     `json:"code"`
	DiscountType  string     `json:"discount_type"`
	DiscountValue string     `json:"discount_value"`
	MaxDiscount   *string    `json:"max_discount"`
	MinOrderValue string     `json:"min_order_value"`
	ValidFrom     *time.Time `json:"valid_from"`
	ValidTill     *time.Time `json:"valid_till"`
	UsageLimit    *int32     `json:"usage_limit"`
	UsedCount     int32      `json:"used_count"`
	IsActive      bool       `json:"is_active"`
	CreatedAt     time.Time  `json:"created_at"`
}

func toCouponResponse(c database.Coupon) couponResponse {
	resp := couponResponse{
		ID:            c.ID,
		Code:          c.Code,
		DiscountType:  c.DiscountType,
		DiscountValue: numericToString(c.DiscountValue),
		MaxDiscount:   optionalNumericString(c.MaxDiscount),
		MinOrderValue: numericToString(c.MinOrderValue),
		ValidFrom:     timePtr(c.ValidFrom),
		ValidTill:     timePtr(c.ValidTill),
		UsedCount:     c.UsedCount,
		IsActive:      c.IsActive,
		CreatedAt:     c.CreatedAt.Time,
	}
	if c.UsageLimit.Valid {
		limit := c.UsageLimit.Int32
		resp.UsageLimit = &limit
	}
	return resp
}

// couponFields is a validated couponRequest in storage form.
type couponFields struct {
	code          string
	discountType  string
	discountValue pgtype.Numeric
	maxDiscount   pgtype.Numeric
	minOrderValue pgtype.Numeric
	validFrom     pgtype.Timestamptz
	validTill     pgtype.Timestamptz
	usageLimit    pgtype.Int4
	isActive      bool
}

// parseCouponRequest validates a create/update body. The returned string is
// the client-facing reason when validation fails.
func parseCouponRequest(req couponRequest) (couponFields, string) {
	var f couponFields

	f.code = service.NormalizeCouponCode(req.Code)
	if f.code == "" {
		return f, "code is required"
	}

	switch req.DiscountType {
	case enum.DiscountTypeFlat, enum.DiscountTypePercent:
		f.discountType = req.DiscountType
	default:
		return f, "discount_type must be flat or percent"
	}

	value, err := decimal.NewFromString(string(req.DiscountValue))
	if err != nil || !value.IsPositive() {
		return f, "discount_value must be > 0"
	}
	if f.discountType == enum.DiscountTypePercent && value.GreaterThan(decimal.NewFromInt(100)) {
		return f, "percent discount_value must be <= 100"
	}
	if f.discountValue, err = parseNumeric(value.String()); err != nil {
		return f, "invalid discount_value"
	}

	if req.MaxDiscount != "" {
		d, err := decimal.NewFromString(string(req.MaxDiscount))
		if err != nil || d.IsNegative() {
			return f, "invalid max_discount"
		}
		f.maxDiscount, _ = parseNumeric(d.String())
	}

	minOrder := decimal.Zero
	if req.MinOrderValue != "" {
		minOrder, err = decimal.NewFromString(string(req.MinOrderValue))
		if err != nil || minOrder.IsNegative() {
			return f, "invalid min_order_value"
		}
	}
	f.minOrderValue, _ = parseNumeric(minOrder.String())

	if req.ValidFrom != nil && req.ValidTill != nil && !req.ValidFrom.Before(*req.ValidTill) {
		return f, "valid_from must be before valid_till"
	}
	if req.ValidFrom != nil {
		f.validFrom = pgtype.Timestamptz{Time: *req.ValidFrom, Valid: true}
	}
	if req.ValidTill != nil {
		f.validTill = pgtype.Timestamptz{Time: *req.ValidTill, Valid: true}
	}

	if req.UsageLimit != nil {
		if *req.UsageLimit < 0 {
			return f, "usage_limit must be >= 0"
		}
		f.usageLimit = pgtype.Int4{Int32: *req.UsageLimit, Valid: true}
	}

	f.isActive = true
	if req.IsActive != nil {
		f.isActive = *req.IsActive
	}
	return f, ""
}

// --- Handlers ---

func (h *CouponHandler) List(w http.ResponseWriter, r *http.Request) {
	businessID, ok := ownerBusiness(w, r)
	if !ok {
		return
	}

	coupons, err := h.store.ListCoupons(r.Context(), businessID)
	if err != nil {
		writeInternal(w, "list coupons", err)
		return
	}

	resp := make([]couponResponse, len(coupons))
	for i, c := range coupons {
		resp[i] = toCouponResponse(c)
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *CouponHandler) Get(w http.ResponseWriter, r *http.Request) {
	businessID, ok := ownerBusiness(w, r)
	if !ok {
		return
	}
	id, ok := parseIDParam(w, r, "id", "coupon ID")
	if !ok {
		return
	}

	coupon, err := h.store.GetCoupon(r.Context(), database.GetCouponParams{ID: id, BusinessID: businessID})
	if err != nil {
		if isNotFound(err) {
			writeError(w, http.StatusNotFound, "coupon not found")
			return
		}
		writeInternal(w, "get coupon", err)
		return
	}
	writeJSON(w, http.StatusOK, toCouponResponse(coupon))
}

func (h *CouponHandler) Create(w http.ResponseWriter, r *http.Request) {
	businessID, ok := ownerBusiness(w, r)
	if !ok {
		return
	}

	var req couponRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	f, msg := parseCouponRequest(req)
	if msg != "" {
		writeError(w, http.StatusBadRequest, msg)
		return
	}

	coupon, err := h.store.CreateCoupon(r.Context(), database.CreateCouponParams{
		BusinessID:    businessID,
		Code:          f.code,
		DiscountType:  f.discountType,
		DiscountValue: f.discountValue,
		MaxDiscount:   f.maxDiscount,
		MinOrderValue: f.minOrderValue,
		ValidFrom:     f.validFrom,
		ValidTill:     f.validTill,
		UsageLimit:    f.usageLimit,
		IsActive:      f.isActive,
	})
	if err != nil {
		if isConflict(err) {
			writeError(w, http.StatusConflict, "coupon code already exists")
			return
		}
		writeInternal(w, "create coupon", err)
		return
	}
	writeJSON(w, http.StatusCreated, toCouponResponse(coupon))
}

func (h *CouponHandler) Update(w http.ResponseWriter, r *http.Request) {
	businessID, ok := ownerBusiness(w, r)
	if !ok {
		return
	}
	id, ok := parseIDParam(w, r, "id", "coupon ID")
	if !ok {
		return
	}

	var req couponRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	f, msg := parseCouponRequest(req)
	if msg != "" {
		writeError(w, http.StatusBadRequest, msg)
		return
	}

	coupon, err := h.store.UpdateCoupon(r.Context(), database.UpdateCouponParams{
		ID:            id,
		BusinessID:    businessID,
		Code:          f.code,
		DiscountType:  f.discountType,
		DiscountValue: f.discountValue,
		MaxDiscount:   f.maxDiscount,
		MinOrderValue: f.minOrderValue,
		ValidFrom:     f.validFrom,
		ValidTill:     f.validTill,
		UsageLimit:    f.usageLimit,
		IsActive:      f.isActive,
	})
	if err != nil {
		switch {
		case isNotFound(err):
			writeError(w, http.StatusNotFound, "coupon not found")
		case isConflict(err):
			writeError(w, http.StatusConflict, "coupon code already exists")
		default:
			writeInternal(w, "update coupon", err)
		}
		return
	}
	writeJSON(w, http.StatusOK, toCouponResponse(coupon))
}

func (h *CouponHandler) Delete(w http.ResponseWriter, r *http.Request) {
	businessID, ok := ownerBusiness(w, r)
	if !ok {
		return
	}
	id, ok := parseIDParam(w, r, "id", "coupon ID")
	if !ok {
		return
	}

	n, err := h.store.DeleteCoupon(r.Context(), database.DeleteCouponParams{ID: id, BusinessID: businessID})
	if err != nil {
		writeInternal(w, "delete coupon", err)
		return
	}
	if n == 0 {
		writeError(w, http.StatusNotFound, "coupon not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Validate previews a code for a guest's cart. Nothing is redeemed.
func (h *CouponHandler) Validate(w http.ResponseWriter, r *http.Request) {
	businessID, ok := parseIDParam(w, r, "bid", "business ID")
	if !ok {
		return
	}

	var req validateCouponRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	coupon, discount, err := h.preview.Preview(r.Context(), businessID, req.Code, string(req.Total))
	if err != nil {
		writeServiceError(w, "validate coupon", err)
		return
	}

	total, _ := decimal.NewFromString(string(req.Total))
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"code":          coupon.Code,
		"discount_type": coupon.DiscountType,
		"discount":      discount.StringFixed(2),
		"final_total":   total.Sub(discount).StringFixed(2),
	})
}
