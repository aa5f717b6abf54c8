package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/dineflow/api/internal/database"
	"github.com/dineflow/api/internal/service"
	"github.com/go-chi/chi/v5"
)

// TableServicer defines the service methods needed by table handlers.
// Satisfied by *service.TableService.
type TableServicer interface {
	Availability(ctx context.Context, businessID int64) ([]service.TableView, error)
	Register(ctx context.Context, businessID int64, number, capacity int32) (database.Table, bool, error)
}

// TableStore is the direct database access used for deletion.
type TableStore interface {
	DeleteTable(ctx context.Context, arg database.DeleteTableParams) (int64, error)
}

// TableHandler handles table registration and availability.
type TableHandler struct {
	svc   TableServicer
	store TableStore
}

func NewTableHandler(svc TableServicer, store TableStore) *TableHandler {
	return &TableHandler{svc: svc, store: store}
}

// RegisterRoutes registers owner table endpoints, mounted at /tables.
func (h *TableHandler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.List)
	r.Post("/", h.Create)
	r.Delete("/{id}", h.Delete)
}

// RegisterPublicRoutes registers the guest-facing availability view under
// /businesses/{bid}.
func (h *TableHandler) RegisterPublicRoutes(r chi.Router) {
	r.Get("/tables", h.PublicList)
}

type createTableRequest struct {
	TableNumber int32 `json:"table_number"`
	Capacity    int32 `json:"capacity"`
}

type tableResponse struct {
	ID          int64 `json:"id"`
	TableNumber int32 `json:"table_number"`
	Capacity    int32 `json:"capacity"`
	Created     bool  `json:"created"`
}

func (h *TableHandler) List(w http.ResponseWriter, r *http.Request) {
	businessID, ok := ownerBusiness(w, r)
	if !ok {
		return
	}
	h.writeAvailability(w, r, businessID)
}

func (h *TableHandler) PublicList(w http.ResponseWriter, r *http.Request) {
	businessID, ok := parseIDParam(w, r, "bid", "business ID")
	if !ok {
		return
	}
	h.writeAvailability(w, r, businessID)
}

func (h *TableHandler) writeAvailability(w http.ResponseWriter, r *http.Request, businessID int64) {
	tables, err := h.svc.Availability(r.Context(), businessID)
	if err != nil {
		writeInternal(w, "table availability", err)
		return
	}
	writeJSON(w, http.StatusOK, tables)
}

// Create registers a table. Registering an existing number is not an error:
// the stored table comes back with 200 instead of 201.
func (h *TableHandler) Create(w http.ResponseWriter, r *http.Request) {
	businessID, ok := ownerBusiness(w, r)
	if !ok {
		return
	}

	var req createTableRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	table, created, err := h.svc.Register(r.Context(), businessID, req.TableNumber, req.Capacity)
	if err != nil {
		writeServiceError(w, "register table", err)
		return
	}

	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	writeJSON(w, status, tableResponse{
		ID:          table.ID,
		TableNumber: table.TableNumber,
		Capacity:    table.Capacity,
		Created:     created,
	})
}

func (h *TableHandler) Delete(w http.ResponseWriter, r *http.Request) {
	businessID, ok := ownerBusiness(w, r)
	if !ok {
		return
	}
	id, ok := parseIDParam(w, r, "id", "table ID")
	if !ok {
		return
	}

	n, err := h.store.DeleteTable(r.Context(), database.DeleteTableParams{ID: id, BusinessID: businessID})
	if err != nil {
		writeInternal(w, "delete table", err)
		return
	}
	if n == 0 {
		writeError(w, http.StatusNotFound, "table not found")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
