package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/dineflow/api/internal/database"
	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"
)

// InventoryStore defines the database methods needed by inventory handlers.
// Satisfied by *database.Queries; narrow interface for testability.
type InventoryStore interface {
	ListInventoryItems(ctx context.Context, businessID int64) ([]database.InventoryItem, error)
	ListLowStockItems(ctx context.Context, businessID int64) ([]database.InventoryItem, error)
	GetInventoryItem(ctx context.Context, arg database.GetInventoryItemParams) (database.InventoryItem, error)
	CreateInventoryItem(ctx context.Context, arg database.CreateInventoryItemParams) (database.InventoryItem, error)
	UpdateInventoryItem(ctx context.Context, arg database.UpdateInventoryItemParams) (database.InventoryItem, error)
	DeleteInventoryItem(ctx context.Context, arg database.DeleteInventoryItemParams) (int64, error)
}

// InventoryHandler handles stock items.
type InventoryHandler struct {
	store InventoryStore
}

func NewInventoryHandler(store InventoryStore) *InventoryHandler {
	return &InventoryHandler{store: store}
}

// RegisterRoutes registers inventory endpoints, mounted at /inventory.
func (h *InventoryHandler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.List)
	r.Post("/", h.Create)
	r.Get("/low-stock", h.LowStock)
	r.Get("/{id}", h.Get)
	r.Put("/{id}", h.Update)
	r.Delete("/{id}", h.Delete)
}

type inventoryRequest struct {
	Name              string       `json:"name"`
	Quantity          decimalInput `json:"quantity"`
	Unit              string       `json:"unit"`
	LowStockThreshold decimalInput `json:"low_stock_threshold"`
}

type inventoryResponse struct {
	ID                int64     `json:"id"`
	Name              string    `json:"name"`
	Quantity          string    `json:"quantity"`
	Unit              string    `json:"unit"`
	LowStockThreshold string    `json:"low_stock_threshold"`
	LowStock          bool      `json:"low_stock"`
	UpdatedAt         time.Time `json:"updated_at"`
}

func numericDecimal(n pgtype.Numeric) decimal.Decimal {
	if !n.Valid {
		return decimal.Zero
	}
	val, err := n.Value()
	if err != nil || val == nil {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(val.(string))
	if err != nil {
		return decimal.Zero
	}
	return d
}

func toInventoryResponse(it database.InventoryItem) inventoryResponse {
	qty := numericDecimal(it.Quantity)
	threshold := numericDecimal(it.LowStockThreshold)
	return inventoryResponse{
		ID:                it.ID,
		Name:              it.Name,
		Quantity:          qty.StringFixed(3),
		Unit:              it.Unit,
		LowStockThreshold: threshold.StringFixed(3),
		LowStock:          qty.LessThanOrEqual(threshold),
		UpdatedAt:         it.UpdatedAt.Time,
	}
}

func toInventoryResponses(items []database.InventoryItem) []inventoryResponse {
	resp := make([]inventoryResponse, len(items))
	for i, it := range items {
		resp[i] = toInventoryResponse(it)
	}
	return resp
}

type validatedInventory struct {
	name      string
	quantity  pgtype.Numeric
	unit      string
	threshold pgtype.Numeric
}

func parseInventoryRequest(req inventoryRequest) (validatedInventory, error) {
	var v validatedInventory
	v.name = strings.TrimSpace(req.Name)
	if v.name == "" {
		return v, errors.New("name is required")
	}
	v.unit = strings.TrimSpace(req.Unit)

	var err error
	if v.quantity, err = parseQuantityField(string(req.Quantity), "quantity"); err != nil {
		return v, err
	}
	if v.threshold, err = parseQuantityField(string(req.LowStockThreshold), "low_stock_threshold"); err != nil {
		return v, err
	}
	return v, nil
}

// parseQuantityField reads a non-negative amount; empty means zero.
func parseQuantityField(s, field string) (pgtype.Numeric, error) {
	if s == "" {
		s = "0"
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return pgtype.Numeric{}, errors.New(field + " must be a number")
	}
	if d.IsNegative() {
		return pgtype.Numeric{}, errors.New(field + " must not be negative")
	}
	return parseNumeric(d.StringFixed(3))
}

// --- Handlers ---

func (h *InventoryHandler) List(w http.ResponseWriter, r *http.Request) {
	businessID, ok := ownerBusiness(w, r)
	if !ok {
		return
	}
	items, err := h.store.ListInventoryItems(r.Context(), businessID)
	if err != nil {
		writeInternal(w, "list inventory", err)
		return
	}
	writeJSON(w, http.StatusOK, toInventoryResponses(items))
}

// LowStock returns items at or below their threshold.
func (h *InventoryHandler) LowStock(w http.ResponseWriter, r *http.Request) {
	businessID, ok := ownerBusiness(w, r)
	if !ok {
		return
	}
	items, err := h.store.ListLowStockItems(r.Context(), businessID)
	if err != nil {
		writeInternal(w, "list low stock", err)
		return
	}
	writeJSON(w, http.StatusOK, toInventoryResponses(items))
}

func (h *InventoryHandler) Get(w http.ResponseWriter, r *http.Request) {
	businessID, ok := ownerBusiness(w, r)
	if !ok {
		return
	}
	id, ok := parseIDParam(w, r, "id", "inventory item ID")
	if !ok {
		return
	}
	item, err := h.store.GetInventoryItem(r.Context(), database.GetInventoryItemParams{ID: id, BusinessID: businessID})
	if err != nil {
		if isNotFound(err) {
			writeError(w, http.StatusNotFound, "inventory item not found")
			return
		}
		writeInternal(w, "get inventory item", err)
		return
	}
	writeJSON(w, http.StatusOK, toInventoryResponse(item))
}

func (h *InventoryHandler) Create(w http.ResponseWriter, r *http.Request) {
	businessID, ok := ownerBusiness(w, r)
	if !ok {
		return
	}
	var req inventoryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	v, err := parseInventoryRequest(req)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	item, err := h.store.CreateInventoryItem(r.Context(), database.CreateInventoryItemParams{
		BusinessID:        businessID,
		Name:              v.name,
		Quantity:          v.quantity,
		Unit:              v.unit,
		LowStockThreshold: v.threshold,
	})
	if err != nil {
		writeInternal(w, "create inventory item", err)
		return
	}
	writeJSON(w, http.StatusCreated, toInventoryResponse(item))
}

// Update replaces an item's name, quantity, unit and threshold.
func (h *InventoryHandler) Update(w http.ResponseWriter, r *http.Request) {
	businessID, ok := ownerBusiness(w, r)
	if !ok {
		return
	}
	id, ok := parseIDParam(w, r, "id", "inventory item ID")
	if !ok {
		return
	}
	var req inventoryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	v, err := parseInventoryRequest(req)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	item, err := h.store.UpdateInventoryItem(r.Context(), database.UpdateInventoryItemParams{
		ID:                id,
		BusinessID:        businessID,
		Name:              v.name,
		Quantity:          v.quantity,
		Unit:              v.unit,
		LowStockThreshold: v.threshold,
	})
	if err != nil {
		if isNotFound(err) {
			writeError(w, http.StatusNotFound, "inventory item not found")
			return
		}
		writeInternal(w, "update inventory item", err)
		return
	}
	writeJSON(w, http.StatusOK, toInventoryResponse(item))
}

func (h *InventoryHandler) Delete(w http.ResponseWriter, r *http.Request) {
	businessID, ok := ownerBusiness(w, r)
	if !ok {
		return
	}
	id, ok := parseIDParam(w, r, "id", "inventory item ID")
	if !ok {
		return
	}
	n, err := h.store.DeleteInventoryItem(r.Context(), database.DeleteInventoryItemParams{ID: id, BusinessID: businessID})
	if err != nil {
		writeInternal(w, "delete inventory item", err)
		return
	}
	if n == 0 {
		writeError(w, http.StatusNotFound, "inventory item not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
