package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/dineflow/api/internal/database"
	"github.com/go-chi/chi/v5"
)

// CategoryStore defines the database methods needed by category handlers.
// Satisfied by *database.Queries; narrow interface for testability.
type CategoryStore interface {
	ListCategories(ctx context.Context, businessID int64) ([]database.Category, error)
	CreateCategory(ctx context.Context, arg database.CreateCategoryParams) (database.Category, error)
	UpdateCategory(ctx context.Context, arg database.UpdateCategoryParams) (database.Category, error)
	DeleteCategory(ctx context.Context, arg database.DeleteCategoryParams) (int64, error)
}

// CategoryHandler handles category CRUD endpoints.
type CategoryHandler struct {
	store CategoryStore
}

// NewCategoryHandler creates a new CategoryHandler.
func NewCategoryHandler(store CategoryStore) *CategoryHandler {
	return &CategoryHandler{store: store}
}

// RegisterRoutes registers category CRUD endpoints on the given Chi router.
// Expected to be mounted at /categories behind owner authentication.
func (h *CategoryHandler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.List)
	r.Post("/", h.Create)
	r.Put("/{id}", h.Update)
	r.Delete("/{id}", h.Delete)
}

// --- Request / Response types ---

type categoryRequest struct {
	Name string `json:"name"`
}

type categoryResponse struct {
	ID         int64     `json:"id"`
	BusinessID int64     `json:"business_id"`
	Name       string    `json:"name"`
	CreatedAt  time.Time `json:"created_at"`
}

func toCategoryResponse(c database.Category) categoryResponse {
	return categoryResponse{
		ID:         c.ID,
		BusinessID: c.BusinessID,
		Name:       c.Name,
		CreatedAt:  c.CreatedAt.Time,
	}
}

// --- Handlers ---

// List returns all categories of the owner's business.
func (h *CategoryHandler) List(w http.ResponseWriter, r *http.Request) {
	businessID, ok := ownerBusiness(w, r)
	if !ok {
		return
	}

	categories, err := h.store.ListCategories(r.Context(), businessID)
	if err != nil {
		writeInternal(w, "list categories", err)
		return
	}

	resp := make([]categoryResponse, len(categories))
	for i, c := range categories {
		resp[i] = toCategoryResponse(c)
	}

	writeJSON(w, http.StatusOK, resp)
}

// Create adds a new category.
func (h *CategoryHandler) Create(w http.ResponseWriter, r *http.Request) {
	businessID, ok := ownerBusiness(w, r)
	if !ok {
		return
	}

	var req categoryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		writeError(w, http.StatusBadRequest, "name is required")
		return
	}

	category, err := h.store.CreateCategory(r.Context(), database.CreateCategoryParams{
		BusinessID: businessID,
		Name:       name,
	})
	if err != nil {
		if isConflict(err) {
			writeError(w, http.StatusConflict, "category already exists")
			return
		}
		writeInternal(w, "create category", err)
		return
	}

	writeJSON(w, http.StatusCreated, toCategoryResponse(category))
}

// Update renames a category.
func (h *CategoryHandler) Update(w http.ResponseWriter, r *http.Request) {
	businessID, ok := ownerBusiness(w, r)
	if !ok {
		return
	}
	id, ok := parseIDParam(w, r, "id", "category ID")
	if !ok {
		return
	}

	var req categoryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		writeError(w, http.StatusBadRequest, "name is required")
		return
	}

	category, err := h.store.UpdateCategory(r.Context(), database.UpdateCategoryParams{
		ID:         id,
		BusinessID: businessID,
		Name:       name,
	})
	if err != nil {
		switch {
		case isNotFound(err):
			writeError(w, http.StatusNotFound, "category not found")
		case isConflict(err):
			writeError(w, http.StatusConflict, "category already exists")
		default:
			writeInternal(w, "update category", err)
		}
		return
	}

	writeJSON(w, http.StatusOK, toCategoryResponse(category))
}

// Delete removes a category. Its products stay, uncategorised.
func (h *CategoryHandler) Delete(w http.ResponseWriter, r *http.Request) {
	businessID, ok := ownerBusiness(w, r)
	if !ok {
		return
	}
	id, ok := parseIDParam(w, r, "id", "category ID")
	if !ok {
		return
	}

	n, err := h.store.DeleteCategory(r.Context(), database.DeleteCategoryParams{ID: id, BusinessID: businessID})
	if err != nil {
		writeInternal(w, "delete category", err)
		return
	}
	if n == 0 {
		writeError(w, http.StatusNotFound, "category not found")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
