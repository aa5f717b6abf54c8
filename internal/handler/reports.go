package handler

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/dineflow/api/internal/database"
	"github.com/go-chi/chi/v5"
	"golang.org/x/sync/errgroup"
)

// ReportsStore defines the database methods needed by dashboard handlers.
// Satisfied by *database.Queries; narrow interface for testability.
type ReportsStore interface {
	GetOrderSummary(ctx context.Context, arg database.GetOrderSummaryParams) (database.GetOrderSummaryRow, error)
	GetBillSummary(ctx context.Context, arg database.GetBillSummaryParams) (database.GetBillSummaryRow, error)
	GetTopItems(ctx context.Context, arg database.GetTopItemsParams) ([]database.GetTopItemsRow, error)
	GetPaymentSummary(ctx context.Context, arg database.GetPaymentSummaryParams) ([]database.GetPaymentSummaryRow, error)
	CountCustomers(ctx context.Context, businessID int64) (int64, error)
	CountLowStockItems(ctx context.Context, businessID int64) (int64, error)
}

// ReportsHandler serves the owner dashboard.
type ReportsHandler struct {
	store ReportsStore
	loc   *time.Location
	now   func() time.Time
}

// NewReportsHandler creates a ReportsHandler reading day boundaries in loc.
func NewReportsHandler(store ReportsStore, loc *time.Location) *ReportsHandler {
	if loc == nil {
		loc = time.UTC
	}
	return &ReportsHandler{store: store, loc: loc, now: time.Now}
}

// WithClock replaces the clock used for default date ranges.
func (h *ReportsHandler) WithClock(now func() time.Time) *ReportsHandler {
	h.now = now
	return h
}

// RegisterRoutes registers dashboard endpoints, mounted at /dashboard.
func (h *ReportsHandler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.Summary)
	r.Get("/top-items", h.TopItems)
	r.Get("/payment-summary", h.PaymentSummary)
}

// --- Response types ---

type dashboardRange struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

type dashboardResponse struct {
	Range          dashboardRange           `json:"range"`
	OrderCount     int64                    `json:"order_count"`
	CompletedCount int64                    `json:"completed_count"`
	PendingCount   int64                    `json:"pending_count"`
	Revenue        string                   `json:"revenue"`
	BillCount      int64                    `json:"bill_count"`
	TotalBilled    string                   `json:"total_billed"`
	TotalDiscount  string                   `json:"total_discount"`
	TotalTax       string                   `json:"total_tax"`
	CustomerCount  int64                    `json:"customer_count"`
	LowStockCount  int64                    `json:"low_stock_count"`
	TopItems       []topItemResponse        `json:"top_items"`
	Payments       []paymentSummaryResponse `json:"payments"`
}

type topItemResponse struct {
	ProductID    int64  `json:"product_id"`
	ProductName  string `json:"product_name"`
	QuantitySold int64  `json:"quantity_sold"`
	TotalRevenue string `json:"total_revenue"`
}

type paymentSummaryResponse struct {
	PaymentMethod string `json:"payment_method"`
	OrderCount    int64  `json:"order_count"`
	TotalAmount   string `json:"total_amount"`
}

func toTopItems(rows []database.GetTopItemsRow) []topItemResponse {
	resp := make([]topItemResponse, len(rows))
	for i, row := range rows {
		resp[i] = topItemResponse{
			ProductID:    row.ProductID,
			ProductName:  row.ProductName,
			QuantitySold: row.QuantitySold,
			TotalRevenue: numericToString(row.TotalRevenue),
		}
	}
	return resp
}

func toPayments(rows []database.GetPaymentSummaryRow) []paymentSummaryResponse {
	resp := make([]paymentSummaryResponse, len(rows))
	for i, row := range rows {
		resp[i] = paymentSummaryResponse{
			PaymentMethod: row.PaymentMethod,
			OrderCount:    row.OrderCount,
			TotalAmount:   numericToString(row.TotalAmount),
		}
	}
	return resp
}

// --- Handlers ---

// Summary returns order, bill, customer and stock figures for the range.
// The independent queries run concurrently on the pool.
func (h *ReportsHandler) Summary(w http.ResponseWriter, r *http.Request) {
	businessID, ok := ownerBusiness(w, r)
	if !ok {
		return
	}
	dr, err := parseReportRange(r, h.loc, h.now())
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	start, end := dr.Start.UTC(), dr.End.UTC()

	var (
		orders    database.GetOrderSummaryRow
		bills     database.GetBillSummaryRow
		topItems  []database.GetTopItemsRow
		payments  []database.GetPaymentSummaryRow
		customers int64
		lowStock  int64
	)

	g, ctx := errgroup.WithContext(r.Context())
	g.Go(func() (err error) {
		orders, err = h.store.GetOrderSummary(ctx, database.GetOrderSummaryParams{BusinessID: businessID, CreatedAt: start, CreatedAt_2: end})
		return err
	})
	g.Go(func() (err error) {
		bills, err = h.store.GetBillSummary(ctx, database.GetBillSummaryParams{BusinessID: businessID, CreatedAt: start, CreatedAt_2: end})
		return err
	})
	g.Go(func() (err error) {
		topItems, err = h.store.GetTopItems(ctx, database.GetTopItemsParams{BusinessID: businessID, CreatedAt: start, CreatedAt_2: end, Limit: 5})
		return err
	})
	g.Go(func() (err error) {
		payments, err = h.store.GetPaymentSummary(ctx, database.GetPaymentSummaryParams{BusinessID: businessID, CreatedAt: start, CreatedAt_2: end})
		return err
	})
	g.Go(func() (err error) {
		customers, err = h.store.CountCustomers(ctx, businessID)
		return err
	})
	g.Go(func() (err error) {
		lowStock, err = h.store.CountLowStockItems(ctx, businessID)
		return err
	})
	if err := g.Wait(); err != nil {
		writeInternal(w, "dashboard summary", err)
		return
	}

	writeJSON(w, http.StatusOK, dashboardResponse{
		Range:          dashboardRange{Start: dr.Start, End: dr.End},
		OrderCount:     orders.OrderCount,
		CompletedCount: orders.CompletedCount,
		PendingCount:   orders.PendingCount,
		Revenue:        numericToString(orders.TotalRevenue),
		BillCount:      bills.BillCount,
		TotalBilled:    numericToString(bills.TotalBilled),
		TotalDiscount:  numericToString(bills.TotalDiscount),
		TotalTax:       numericToString(bills.TotalTax),
		CustomerCount:  customers,
		LowStockCount:  lowStock,
		TopItems:       toTopItems(topItems),
		Payments:       toPayments(payments),
	})
}

// TopItems returns the best selling products by quantity.
func (h *ReportsHandler) TopItems(w http.ResponseWriter, r *http.Request) {
	businessID, ok := ownerBusiness(w, r)
	if !ok {
		return
	}
	dr, err := parseReportRange(r, h.loc, h.now())
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	limit := 20
	if s := r.URL.Query().Get("limit"); s != "" {
		if v, err := strconv.Atoi(s); err == nil && v > 0 {
			limit = v
		}
	}
	if limit > 100 {
		limit = 100
	}

	rows, err := h.store.GetTopItems(r.Context(), database.GetTopItemsParams{
		BusinessID:  businessID,
		CreatedAt:   dr.Start.UTC(),
		CreatedAt_2: dr.End.UTC(),
		Limit:       int32(limit),
	})
	if err != nil {
		writeInternal(w, "get top items", err)
		return
	}
	writeJSON(w, http.StatusOK, toTopItems(rows))
}

// PaymentSummary returns order totals per payment method.
func (h *ReportsHandler) PaymentSummary(w http.ResponseWriter, r *http.Request) {
	businessID, ok := ownerBusiness(w, r)
	if !ok {
		return
	}
	dr, err := parseReportRange(r, h.loc, h.now())
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	rows, err := h.store.GetPaymentSummary(r.Context(), database.GetPaymentSummaryParams{
		BusinessID:  businessID,
		CreatedAt:   dr.Start.UTC(),
		CreatedAt_2: dr.End.UTC(),
	})
	if err != nil {
		writeInternal(w, "get payment summary", err)
		return
	}
	writeJSON(w, http.StatusOK, toPayments(rows))
}
