package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/dineflow/api/internal/database"
	"github.com/dineflow/api/internal/service"
	"github.com/dineflow/api/internal/storage"
	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"
)

const maxImageSize = 10 << 20

// ProductStore defines the database methods needed by product handlers.
// Satisfied by *database.Queries; narrow interface for testability.
type ProductStore interface {
	ListProducts(ctx context.Context, arg database.ListProductsParams) ([]database.Product, error)
	ListActiveProducts(ctx context.Context, businessID int64) ([]database.Product, error)
	GetProduct(ctx context.Context, arg database.GetProductParams) (database.Product, error)
	CreateProduct(ctx context.Context, arg database.CreateProductParams) (database.Product, error)
	UpdateProduct(ctx context.Context, arg database.UpdateProductParams) (database.Product, error)
	UpdateProductImage(ctx context.Context, arg database.UpdateProductImageParams) (database.Product, error)
	DeleteProduct(ctx context.Context, arg database.DeleteProductParams) (int64, error)
}

// ImageUploader stores an image and returns its public URL.
// Satisfied by *storage.HTTPUploader.
type ImageUploader interface {
	Upload(ctx context.Context, folder, filename string, file io.Reader) (string, error)
}

// ProductHandler handles product CRUD, image upload and the public menu.
type ProductHandler struct {
	store    ProductStore
	uploader ImageUploader
}

// NewProductHandler creates a new ProductHandler.
func NewProductHandler(store ProductStore, uploader ImageUploader) *ProductHandler {
	return &ProductHandler{store: store, uploader: uploader}
}

// RegisterRoutes registers product endpoints, mounted at /products behind
// owner authentication.
func (h *ProductHandler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.List)
	r.Post("/", h.Create)
	r.Get("/{id}", h.Get)
	r.Put("/{id}", h.Update)
	r.Delete("/{id}", h.Delete)
	r.Post("/{id}/image", h.UploadImage)
}

// RegisterPublicRoutes registers the menu under /businesses/{bid}.
func (h *ProductHandler) RegisterPublicRoutes(r chi.Router) {
	r.Get("/menu", h.Menu)
}

// --- Request / Response types ---

type productRequest struct {
	CategoryID  *int64          `json:"category_id"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Price       decimalInput    `json:"price"`
	IsActive    *bool           `json:"is_active"`
	Metadata    json.RawMessage `json:"metadata"`
}

type productResponse struct {
	ID          int64           `json:"id"`
	BusinessID  int64           `json:"business_id"`
	CategoryID  *int64          `json:"category_id"`
	Name        string          `json:"name"`
	Description *string         `json:"description"`
	Price       string          `json:"price"`
	ImageURL    *string         `json:"image_url"`
	IsActive    bool            `json:"is_active"`
	Metadata    json.RawMessage `json:"metadata,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

func toProductResponse(p database.Product) productResponse {
	resp := productResponse{
		ID:          p.ID,
		BusinessID:  p.BusinessID,
		Name:        p.Name,
		Description: textPtr(p.Description),
		Price:       numericToString(p.Price),
		ImageURL:    textPtr(p.ImageUrl),
		IsActive:    p.IsActive,
		CreatedAt:   p.CreatedAt.Time,
		UpdatedAt:   p.UpdatedAt.Time,
	}
	if p.CategoryID.Valid {
		id := p.CategoryID.Int64
		resp.CategoryID = &id
	}
	if len(p.Metadata) > 0 {
		resp.Metadata = json.RawMessage(p.Metadata)
	}
	return resp
}

// validatedProduct is the parsed form of a productRequest.
type validatedProduct struct {
	categoryID  pgtype.Int8
	name        string
	description pgtype.Text
	price       pgtype.Numeric
	isActive    bool
	metadata    []byte
}

func parseProductRequest(req productRequest) (validatedProduct, error) {
	var v validatedProduct

	v.name = strings.TrimSpace(req.Name)
	if v.name == "" {
		return v, errors.New("name is required")
	}

	price, err := decimal.NewFromString(string(req.Price))
	if err != nil {
		return v, errors.New("price must be a number")
	}
	if price.IsNegative() {
		return v, errors.New("price must not be negative")
	}
	if v.price, err = parseNumeric(price.StringFixed(2)); err != nil {
		return v, errors.New("price must be a number")
	}

	if req.CategoryID != nil {
		v.categoryID = pgtype.Int8{Int64: *req.CategoryID, Valid: true}
	}
	v.description = optionalText(strings.TrimSpace(req.Description))

	v.isActive = true
	if req.IsActive != nil {
		v.isActive = *req.IsActive
	}

	if len(req.Metadata) > 0 && string(req.Metadata) != "null" {
		var obj map[string]json.RawMessage
		if err := json.Unmarshal(req.Metadata, &obj); err != nil {
			return v, errors.New("metadata must be a JSON object")
		}
		if _, _, err := service.ParseIngredients(req.Metadata); err != nil {
			return v, errors.New("metadata.ingredients is malformed")
		}
		v.metadata = req.Metadata
	}

	return v, nil
}

// isForeignKeyViolation reports an unknown category reference.
func isForeignKeyViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23503"
}

// --- Handlers ---

// List returns the owner's products, optionally filtered by ?category_id=.
func (h *ProductHandler) List(w http.ResponseWriter, r *http.Request) {
	businessID, ok := ownerBusiness(w, r)
	if !ok {
		return
	}

	params := database.ListProductsParams{BusinessID: businessID}
	if v := r.URL.Query().Get("category_id"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid category_id")
			return
		}
		params.CategoryID = pgtype.Int8{Int64: id, Valid: true}
	}

	products, err := h.store.ListProducts(r.Context(), params)
	if err != nil {
		writeInternal(w, "list products", err)
		return
	}
	writeJSON(w, http.StatusOK, toProductResponses(products))
}

// Menu returns the active products of a business. No authentication.
func (h *ProductHandler) Menu(w http.ResponseWriter, r *http.Request) {
	businessID, ok := parseIDParam(w, r, "bid", "business ID")
	if !ok {
		return
	}

	products, err := h.store.ListActiveProducts(r.Context(), businessID)
	if err != nil {
		writeInternal(w, "list menu", err)
		return
	}
	writeJSON(w, http.StatusOK, toProductResponses(products))
}

func toProductResponses(products []database.Product) []productResponse {
	resp := make([]productResponse, len(products))
	for i, p := range products {
		resp[i] = toProductResponse(p)
	}
	return resp
}

// Get returns a single product.
func (h *ProductHandler) Get(w http.ResponseWriter, r *http.Request) {
	businessID, ok := ownerBusiness(w, r)
	if !ok {
		return
	}
	id, ok := parseIDParam(w, r, "id", "product ID")
	if !ok {
		return
	}

	product, err := h.store.GetProduct(r.Context(), database.GetProductParams{ID: id, BusinessID: businessID})
	if err != nil {
		if isNotFound(err) {
			writeError(w, http.StatusNotFound, "product not found")
			return
		}
		writeInternal(w, "get product", err)
		return
	}
	writeJSON(w, http.StatusOK, toProductResponse(product))
}

// Create adds a product.
func (h *ProductHandler) Create(w http.ResponseWriter, r *http.Request) {
	businessID, ok := ownerBusiness(w, r)
	if !ok {
		return
	}

	var req productRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	v, err := parseProductRequest(req)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	product, err := h.store.CreateProduct(r.Context(), database.CreateProductParams{
		BusinessID:  businessID,
		CategoryID:  v.categoryID,
		Name:        v.name,
		Description: v.description,
		Price:       v.price,
		IsActive:    v.isActive,
		Metadata:    v.metadata,
	})
	if err != nil {
		if isForeignKeyViolation(err) {
			writeError(w, http.StatusBadRequest, "category not found")
			return
		}
		writeInternal(w, "create product", err)
		return
	}
	writeJSON(w, http.StatusCreated, toProductResponse(product))
}

// Update replaces a product's editable fields.
func (h *ProductHandler) Update(w http.ResponseWriter, r *http.Request) {
	businessID, ok := ownerBusiness(w, r)
	if !ok {
		return
	}
	id, ok := parseIDParam(w, r, "id", "product ID")
	if !ok {
		return
	}

	var req productRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	v, err := parseProductRequest(req)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	product, err := h.store.UpdateProduct(r.Context(), database.UpdateProductParams{
		ID:          id,
		BusinessID:  businessID,
		CategoryID:  v.categoryID,
		Name:        v.name,
		Description: v.description,
		Price:       v.price,
		IsActive:    v.isActive,
		Metadata:    v.metadata,
	})
	if err != nil {
		switch {
		case isNotFound(err):
			writeError(w, http.StatusNotFound, "product not found")
		case isForeignKeyViolation(err):
			writeError(w, http.StatusBadRequest, "category not found")
		default:
			writeInternal(w, "update product", err)
		}
		return
	}
	writeJSON(w, http.StatusOK, toProductResponse(product))
}

// Delete removes a product. Past order lines keep their snapshot.
func (h *ProductHandler) Delete(w http.ResponseWriter, r *http.Request) {
	businessID, ok := ownerBusiness(w, r)
	if !ok {
		return
	}
	id, ok := parseIDParam(w, r, "id", "product ID")
	if !ok {
		return
	}

	n, err := h.store.DeleteProduct(r.Context(), database.DeleteProductParams{ID: id, BusinessID: businessID})
	if err != nil {
		writeInternal(w, "delete product", err)
		return
	}
	if n == 0 {
		writeError(w, http.StatusNotFound, "product not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// UploadImage accepts a multipart "image" field, forwards it to the media
// host and stores the returned URL on the product.
func (h *ProductHandler) UploadImage(w http.ResponseWriter, r *http.Request) {
	businessID, ok := ownerBusiness(w, r)
	if !ok {
		return
	}
	id, ok := parseIDParam(w, r, "id", "product ID")
	if !ok {
		return
	}

	if _, err := h.store.GetProduct(r.Context(), database.GetProductParams{ID: id, BusinessID: businessID}); err != nil {
		if isNotFound(err) {
			writeError(w, http.StatusNotFound, "product not found")
			return
		}
		writeInternal(w, "get product", err)
		return
	}

	url, ok := receiveImage(w, r, h.uploader, fmt.Sprintf("businesses/%d/products", businessID))
	if !ok {
		return
	}

	product, err := h.store.UpdateProductImage(r.Context(), database.UpdateProductImageParams{
		ID:         id,
		BusinessID: businessID,
		ImageUrl:   pgtype.Text{String: url, Valid: true},
	})
	if err != nil {
		if isNotFound(err) {
			writeError(w, http.StatusNotFound, "product not found")
			return
		}
		writeInternal(w, "update product image", err)
		return
	}
	writeJSON(w, http.StatusOK, toProductResponse(product))
}

// receiveImage reads the multipart "image" field and uploads it into folder.
// It writes the error response itself and reports whether it succeeded.
func receiveImage(w http.ResponseWriter, r *http.Request, uploader ImageUploader, folder string) (string, bool) {
	r.Body = http.MaxBytesReader(w, r.Body, maxImageSize)
	file, header, err := r.FormFile("image")
	if err != nil {
		writeError(w, http.StatusBadRequest, "image file is required")
		return "", false
	}
	defer file.Close()

	if err := storage.ValidateImageName(header.Filename); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return "", false
	}
	if uploader == nil {
		writeError(w, http.StatusServiceUnavailable, storage.ErrNotConfigured.Error())
		return "", false
	}

	url, err := uploader.Upload(r.Context(), folder, header.Filename, file)
	if err != nil {
		switch {
		case errors.Is(err, storage.ErrUnsupportedFormat):
			writeError(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, storage.ErrNotConfigured):
			writeError(w, http.StatusServiceUnavailable, err.Error())
		default:
			log.Printf("ERROR: upload image: %v", err)
			writeError(w, http.StatusBadGateway, "image upload failed")
		}
		return "", false
	}
	return url, true
}
