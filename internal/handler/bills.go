package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/dineflow/api/internal/database"
	"github.com/dineflow/api/internal/service"
	"github.com/go-chi/chi/v5"
)

// BillServicer defines the service methods needed by bill handlers.
// Satisfied by *service.BillService.
type BillServicer interface {
	CreateBill(ctx context.Context, req service.CreateBillRequest) (database.Bill, error)
}

// BillStore defines the read-side database methods needed by bill handlers.
// Satisfied by *database.Queries; narrow interface for testability.
type BillStore interface {
	GetBill(ctx context.Context, arg database.GetBillParams) (database.Bill, error)
	ListBills(ctx context.Context, arg database.ListBillsParams) ([]database.Bill, error)
}

// BillHandler handles bill generation and lookup.
type BillHandler struct {
	svc   BillServicer
	store BillStore
	loc   *time.Location
}

func NewBillHandler(svc BillServicer, store BillStore, loc *time.Location) *BillHandler {
	if loc == nil {
		loc = time.UTC
	}
	return &BillHandler{svc: svc, store: store, loc: loc}
}

// RegisterRoutes registers bill endpoints, mounted at /bills.
func (h *BillHandler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.List)
	r.Post("/", h.Create)
	r.Get("/{id}", h.Get)
}

type createBillRequest struct {
	OrderID       int64        `json:"order_id"`
	CouponCode    string       `json:"coupon_code"`
	TaxPercent    decimalInput `json:"tax_percent"`
	PaymentMethod string       `json:"payment_method"`
}

type billResponse struct {
	ID            int64     `json:"id"`
	OrderID       int64     `json:"order_id"`
	OrderTag      string    `json:"order_tag"`
	Subtotal      string    `json:"subtotal"`
	CouponCode    *string   `json:"coupon_code"`
	Discount      string    `json:"discount"`
	TaxPercent    string    `json:"tax_percent"`
	TaxAmount     string    `json:"tax_amount"`
	Total         string    `json:"total"`
	PaymentMethod string    `json:"payment_method"`
	CreatedAt     time.Time `json:"created_at"`
}

func toBillResponse(b database.Bill) billResponse {
	return billResponse{
		ID:            b.ID,
		OrderID:       b.OrderID,
		OrderTag:      service.FormatOrderTag(b.OrderID),
		Subtotal:      numericToString(b.Subtotal),
		CouponCode:    textPtr(b.CouponCode),
		Discount:      numericToString(b.Discount),
		TaxPercent:    numericToString(b.TaxPercent),
		TaxAmount:     numericToString(b.TaxAmount),
		Total:         numericToString(b.Total),
		PaymentMethod: b.PaymentMethod,
		CreatedAt:     b.CreatedAt.Time,
	}
}

// Create bills an order, redeeming the coupon when one is given.
func (h *BillHandler) Create(w http.ResponseWriter, r *http.Request) {
	businessID, ok := ownerBusiness(w, r)
	if !ok {
		return
	}

	var req createBillRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.OrderID <= 0 {
		writeError(w, http.StatusBadRequest, "order_id is required")
		return
	}

	bill, err := h.svc.CreateBill(r.Context(), service.CreateBillRequest{
		BusinessID:    businessID,
		OrderID:       req.OrderID,
		CouponCode:    req.CouponCode,
		TaxPercent:    string(req.TaxPercent),
		PaymentMethod: req.PaymentMethod,
	})
	if err != nil {
		writeServiceError(w, "create bill", err)
		return
	}
	writeJSON(w, http.StatusCreated, toBillResponse(bill))
}

func (h *BillHandler) List(w http.ResponseWriter, r *http.Request) {
	businessID, ok := ownerBusiness(w, r)
	if !ok {
		return
	}
	dr, err := parseDayRange(r, h.loc)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	limit, offset := parsePagination(r)

	bills, err := h.store.ListBills(r.Context(), database.ListBillsParams{
		BusinessID: businessID,
		StartDate:  dr.startParam(),
		EndDate:    dr.endParam(),
		Limit:      limit,
		Offset:     offset,
	})
	if err != nil {
		writeInternal(w, "list bills", err)
		return
	}

	resp := make([]billResponse, len(bills))
	for i, b := range bills {
		resp[i] = toBillResponse(b)
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"bills":  resp,
		"limit":  limit,
		"offset": offset,
	})
}

func (h *BillHandler) Get(w http.ResponseWriter, r *http.Request) {
	businessID, ok := ownerBusiness(w, r)
	if !ok {
		return
	}
	id, ok := parseIDParam(w, r, "id", "bill ID")
	if !ok {
		return
	}

	bill, err := h.store.GetBill(r.Context(), database.GetBillParams{ID: id, BusinessID: businessID})
	if err != nil {
		if isNotFound(err) {
			writeError(w, http.StatusNotFound, "bill not found")
			return
		}
		writeInternal(w, "get bill", err)
		return
	}
	writeJSON(w, http.StatusOK, toBillResponse(bill))
}
