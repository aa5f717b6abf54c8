package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/dineflow/api/internal/database"
	"github.com/dineflow/api/internal/enum"
	"github.com/dineflow/api/internal/middleware"
	"github.com/dineflow/api/internal/service"
	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

// OrderServicer defines the service methods needed by order handlers.
// Satisfied by *service.OrderService.
type OrderServicer interface {
	CreateOrder(ctx context.Context, req service.CreateOrderRequest) (*service.OrderResult, error)
	UpdateItemStatus(ctx context.Context, businessID, orderID, productID int64, status string) (*service.OrderResult, error)
	CompleteAll(ctx context.Context, businessID, orderID int64) (*service.OrderResult, error)
	UpdateOrder(ctx context.Context, req service.UpdateOrderRequest) (*service.OrderResult, error)
}

// OrderStore defines the read-side database methods needed by order handlers.
// Satisfied by *database.Queries; narrow interface for testability.
type OrderStore interface {
	GetOrder(ctx context.Context, arg database.GetOrderParams) (database.Order, error)
	ListOrders(ctx context.Context, arg database.ListOrdersParams) ([]database.Order, error)
	ListCustomerOrders(ctx context.Context, arg database.ListCustomerOrdersParams) ([]database.Order, error)
	ListOrderItemsByOrder(ctx context.Context, orderID int64) ([]database.OrderItem, error)
	ListOrderItemsByOrderIDs(ctx context.Context, orderIds []int64) ([]database.OrderItem, error)
}

// OrderHandler handles order endpoints.
type OrderHandler struct {
	svc   OrderServicer
	store OrderStore
	loc   *time.Location
}

// NewOrderHandler creates a new OrderHandler. loc is the zone calendar-day
// filters are interpreted in.
func NewOrderHandler(svc OrderServicer, store OrderStore, loc *time.Location) *OrderHandler {
	if loc == nil {
		loc = time.UTC
	}
	return &OrderHandler{svc: svc, store: store, loc: loc}
}

// RegisterRoutes registers owner order endpoints. Expected to be mounted at
// /orders behind owner authentication.
func (h *OrderHandler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.List)
	r.Get("/{id}", h.Get)
	r.Put("/{id}", h.Update)
	r.Patch("/{id}/items/{productId}/status", h.UpdateItemStatus)
	r.Post("/{id}/complete", h.CompleteAll)
}

// RegisterPublicRoutes registers order placement. Expected to be mounted at
// /businesses/{bid} behind middleware.OptionalCustomer.
func (h *OrderHandler) RegisterPublicRoutes(r chi.Router) {
	r.Post("/orders", h.Create)
}

// RegisterCustomerRoutes registers the signed-in customer's order history.
func (h *OrderHandler) RegisterCustomerRoutes(r chi.Router) {
	r.Get("/customer/orders", h.ListMine)
}

// --- Request / Response types ---

type orderItemRequest struct {
	ProductID int64        `json:"product_id"`
	Quantity  int32        `json:"quantity"`
	Price     decimalInput `json:"price"`
	Name      string       `json:"name"`
	Status    string       `json:"status,omitempty"`
}

type createOrderRequest struct {
	TableNumber   int32              `json:"table_number"`
	Items         []orderItemRequest `json:"items"`
	TotalAmount   decimalInput       `json:"total_amount"`
	PaymentMethod string             `json:"payment_method"`
	EstimatedTime string             `json:"estimated_time"`
	RedeemPoints  int32              `json:"redeem_points"`
}

type updateOrderRequest struct {
	TableNumber   int32              `json:"table_number"`
	Items         []orderItemRequest `json:"items"`
	TotalAmount   decimalInput       `json:"total_amount"`
	PaymentMethod string             `json:"payment_method"`
	EstimatedTime string             `json:"estimated_time"`
}

type updateItemStatusRequest struct {
	Status string `json:"status"`
}

type orderItemResponse struct {
	ID        int64  `json:"id"`
	ProductID int64  `json:"product_id"`
	Name      string `json:"name"`
	Quantity  int32  `json:"quantity"`
	Price     string `json:"price"`
	Status    string `json:"status"`
}

type orderResponse struct {
	OrderID       string                     `json:"order_id"`
	ID            int64                      `json:"id"`
	TableNumber   int32                      `json:"table_number"`
	CustomerID    *int64                     `json:"customer_id"`
	TotalAmount   string                     `json:"total_amount"`
	PaymentMethod string                     `json:"payment_method"`
	EstimatedTime string                     `json:"estimated_time"`
	Status        string                     `json:"status"`
	CreatedAt     time.Time                  `json:"created_at"`
	UpdatedAt     time.Time                  `json:"updated_at"`
	Items         []orderItemResponse        `json:"items"`
	SideEffects   []service.SideEffectResult `json:"side_effects,omitempty"`
}

func toItemRequests(items []orderItemRequest) []service.OrderItemRequest {
	out := make([]service.OrderItemRequest, len(items))
	for i, it := range items {
		out[i] = service.OrderItemRequest{
			ProductID: it.ProductID,
			Quantity:  it.Quantity,
			Price:     string(it.Price),
			Name:      it.Name,
			Status:    it.Status,
		}
	}
	return out
}

func toOrderResponse(o database.Order, items []database.OrderItem) orderResponse {
	resp := orderResponse{
		OrderID:       service.FormatOrderTag(o.ID),
		ID:            o.ID,
		TableNumber:   o.TableNumber,
		TotalAmount:   numericToString(o.TotalAmount),
		PaymentMethod: o.PaymentMethod,
		EstimatedTime: o.EstimatedTime,
		Status:        o.Status,
		CreatedAt:     o.CreatedAt.Time,
		UpdatedAt:     o.UpdatedAt.Time,
		Items:         make([]orderItemResponse, len(items)),
	}
	if o.CustomerID.Valid {
		id := o.CustomerID.Int64
		resp.CustomerID = &id
	}
	for i, it := range items {
		resp.Items[i] = orderItemResponse{
			ID:        it.ID,
			ProductID: it.ProductID,
			Name:      it.Name,
			Quantity:  it.Quantity,
			Price:     numericToString(it.UnitPrice),
			Status:    it.Status,
		}
	}
	return resp
}

func resultResponse(result *service.OrderResult) orderResponse {
	resp := toOrderResponse(result.Order, result.Items)
	resp.SideEffects = result.SideEffects
	return resp
}

// --- Handlers ---

// Create places an order for the business in the path. A customer token for
// that business attributes the order to the customer; otherwise it is a
// guest order.
func (h *OrderHandler) Create(w http.ResponseWriter, r *http.Request) {
	businessID, ok := parseIDParam(w, r, "bid", "business ID")
	if !ok {
		return
	}

	var req createOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	svcReq := service.CreateOrderRequest{
		BusinessID:    businessID,
		TableNumber:   req.TableNumber,
		TotalAmount:   string(req.TotalAmount),
		PaymentMethod: req.PaymentMethod,
		EstimatedTime: req.EstimatedTime,
		RedeemPoints:  req.RedeemPoints,
		Items:         toItemRequests(req.Items),
	}
	if claims := middleware.CustomerClaimsFromContext(r.Context()); claims != nil {
		ref := claims.CustomerRef
		svcReq.CustomerRef = &ref
	}

	result, err := h.svc.CreateOrder(r.Context(), svcReq)
	if err != nil {
		writeServiceError(w, "create order", err)
		return
	}

	writeJSON(w, http.StatusCreated, resultResponse(result))
}

// List returns the business's orders, newest first, optionally filtered by
// status and by calendar days in the business offset.
func (h *OrderHandler) List(w http.ResponseWriter, r *http.Request) {
	businessID, ok := ownerBusiness(w, r)
	if !ok {
		return
	}

	dr, err := parseDayRange(r, h.loc)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	status := pgtype.Text{}
	if s := r.URL.Query().Get("status"); s != "" {
		if s != enum.OrderStatusPending && s != enum.OrderStatusCompleted {
			writeError(w, http.StatusBadRequest, "invalid status filter")
			return
		}
		status = pgtype.Text{String: s, Valid: true}
	}

	limit, offset := parsePagination(r)

	orders, err := h.store.ListOrders(r.Context(), database.ListOrdersParams{
		BusinessID: businessID,
		StartDate:  dr.startParam(),
		EndDate:    dr.endParam(),
		Status:     status,
		Limit:      limit,
		Offset:     offset,
	})
	if err != nil {
		writeInternal(w, "list orders", err)
		return
	}

	resp, err := h.withItems(r.Context(), orders)
	if err != nil {
		writeInternal(w, "list order items", err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"orders": resp,
		"limit":  limit,
		"offset": offset,
	})
}

// ListMine returns the signed-in customer's orders at their business.
func (h *OrderHandler) ListMine(w http.ResponseWriter, r *http.Request) {
	claims := middleware.CustomerClaimsFromContext(r.Context())
	if claims == nil {
		writeError(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	limit, offset := parsePagination(r)

	orders, err := h.store.ListCustomerOrders(r.Context(), database.ListCustomerOrdersParams{
		BusinessID: claims.BusinessID,
		CustomerID: pgtype.Int8{Int64: claims.CustomerRef, Valid: true},
		Limit:      limit,
		Offset:     offset,
	})
	if err != nil {
		writeInternal(w, "list customer orders", err)
		return
	}

	resp, err := h.withItems(r.Context(), orders)
	if err != nil {
		writeInternal(w, "list customer order items", err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"orders": resp,
		"limit":  limit,
		"offset": offset,
	})
}

// withItems loads the items of every order in one query and reports each
// order with the status its items imply.
func (h *OrderHandler) withItems(ctx context.Context, orders []database.Order) ([]orderResponse, error) {
	resp := make([]orderResponse, 0, len(orders))
	if len(orders) == 0 {
		return resp, nil
	}

	ids := make([]int64, len(orders))
	for i, o := range orders {
		ids[i] = o.ID
	}
	items, err := h.store.ListOrderItemsByOrderIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	byOrder := make(map[int64][]database.OrderItem, len(orders))
	for _, it := range items {
		byOrder[it.OrderID] = append(byOrder[it.OrderID], it)
	}

	for _, o := range orders {
		o.Status = service.ReconcileStatus(o, byOrder[o.ID])
		resp = append(resp, toOrderResponse(o, byOrder[o.ID]))
	}
	return resp, nil
}

// Get returns a single order with its items.
func (h *OrderHandler) Get(w http.ResponseWriter, r *http.Request) {
	businessID, ok := ownerBusiness(w, r)
	if !ok {
		return
	}
	orderID, ok := parseIDParam(w, r, "id", "order ID")
	if !ok {
		return
	}

	order, err := h.store.GetOrder(r.Context(), database.GetOrderParams{ID: orderID, BusinessID: businessID})
	if err != nil {
		if isNotFound(err) {
			writeError(w, http.StatusNotFound, "order not found")
			return
		}
		writeInternal(w, "get order", err)
		return
	}

	items, err := h.store.ListOrderItemsByOrder(r.Context(), order.ID)
	if err != nil {
		writeInternal(w, "list order items", err)
		return
	}
	order.Status = service.ReconcileStatus(order, items)

	writeJSON(w, http.StatusOK, toOrderResponse(order, items))
}

// Update replaces an order's header fields and items.
func (h *OrderHandler) Update(w http.ResponseWriter, r *http.Request) {
	businessID, ok := ownerBusiness(w, r)
	if !ok {
		return
	}
	orderID, ok := parseIDParam(w, r, "id", "order ID")
	if !ok {
		return
	}

	var req updateOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	result, err := h.svc.UpdateOrder(r.Context(), service.UpdateOrderRequest{
		BusinessID:    businessID,
		OrderID:       orderID,
		TableNumber:   req.TableNumber,
		TotalAmount:   string(req.TotalAmount),
		PaymentMethod: req.PaymentMethod,
		EstimatedTime: req.EstimatedTime,
		Items:         toItemRequests(req.Items),
	})
	if err != nil {
		writeServiceError(w, "update order", err)
		return
	}

	writeJSON(w, http.StatusOK, resultResponse(result))
}

// UpdateItemStatus sets the status of an order's lines for one product.
func (h *OrderHandler) UpdateItemStatus(w http.ResponseWriter, r *http.Request) {
	businessID, ok := ownerBusiness(w, r)
	if !ok {
		return
	}
	orderID, ok := parseIDParam(w, r, "id", "order ID")
	if !ok {
		return
	}
	productID, err := strconv.ParseInt(chi.URLParam(r, "productId"), 10, 64)
	if err != nil || productID <= 0 {
		writeError(w, http.StatusBadRequest, "invalid product ID")
		return
	}

	var req updateItemStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	result, err := h.svc.UpdateItemStatus(r.Context(), businessID, orderID, productID, req.Status)
	if err != nil {
		writeServiceError(w, "update item status", err)
		return
	}

	writeJSON(w, http.StatusOK, resultResponse(result))
}

// CompleteAll marks every line of an order Completed.
func (h *OrderHandler) CompleteAll(w http.ResponseWriter, r *http.Request) {
	businessID, ok := ownerBusiness(w, r)
	if !ok {
		return
	}
	orderID, ok := parseIDParam(w, r, "id", "order ID")
	if !ok {
		return
	}

	result, err := h.svc.CompleteAll(r.Context(), businessID, orderID)
	if err != nil {
		writeServiceError(w, "complete order", err)
		return
	}

	writeJSON(w, http.StatusOK, resultResponse(result))
}
