package handler_test

import (
	"bytes"
	"context"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/dineflow/api/internal/database"
	"github.com/dineflow/api/internal/handler"
	"github.com/dineflow/api/internal/middleware"
	"github.com/dineflow/api/internal/storage"
	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// --- Mock store ---

type mockProductStore struct {
	products map[int64]database.Product
	nextID   int64
	fkError  bool // simulate an unknown category
	lastList database.ListProductsParams
}

func newMockProductStore() *mockProductStore {
	return &mockProductStore{products: make(map[int64]database.Product)}
}

func (m *mockProductStore) ListProducts(_ context.Context, arg database.ListProductsParams) ([]database.Product, error) {
	m.lastList = arg
	var result []database.Product
	for _, p := range m.products {
		if p.BusinessID != arg.BusinessID {
			continue
		}
		if arg.CategoryID.Valid && (!p.CategoryID.Valid || p.CategoryID.Int64 != arg.CategoryID.Int64) {
			continue
		}
		result = append(result, p)
	}
	return result, nil
}

func (m *mockProductStore) ListActiveProducts(_ context.Context, businessID int64) ([]database.Product, error) {
	var result []database.Product
	for _, p := range m.products {
		if p.BusinessID == businessID && p.IsActive {
			result = append(result, p)
		}
	}
	return result, nil
}

func (m *mockProductStore) GetProduct(_ context.Context, arg database.GetProductParams) (database.Product, error) {
	p, ok := m.products[arg.ID]
	if !ok || p.BusinessID != arg.BusinessID {
		return database.Product{}, pgx.ErrNoRows
	}
	return p, nil
}

func (m *mockProductStore) CreateProduct(_ context.Context, arg database.CreateProductParams) (database.Product, error) {
	if m.fkError {
		return database.Product{}, &pgconn.PgError{Code: "23503"}
	}
	m.nextID++
	p := database.Product{
		ID: m.nextID, BusinessID: arg.BusinessID, CategoryID: arg.CategoryID,
		Name: arg.Name, Description: arg.Description, Price: arg.Price,
		IsActive: arg.IsActive, Metadata: arg.Metadata,
		CreatedAt: testTime(), UpdatedAt: testTime(),
	}
	m.products[p.ID] = p
	return p, nil
}

func (m *mockProductStore) UpdateProduct(_ context.Context, arg database.UpdateProductParams) (database.Product, error) {
	p, ok := m.products[arg.ID]
	if !ok || p.BusinessID != arg.BusinessID {
		return database.Product{}, pgx.ErrNoRows
	}
	p.CategoryID = arg.CategoryID
	p.Name = arg.Name
	p.Description = arg.Description
	p.Price = arg.Price
	p.IsActive = arg.IsActive
	p.Metadata = arg.Metadata
	m.products[p.ID] = p
	return p, nil
}

func (m *mockProductStore) UpdateProductImage(_ context.Context, arg database.UpdateProductImageParams) (database.Product, error) {
	p, ok := m.products[arg.ID]
	if !ok || p.BusinessID != arg.BusinessID {
		return database.Product{}, pgx.ErrNoRows
	}
	p.ImageUrl = arg.ImageUrl
	m.products[p.ID] = p
	return p, nil
}

func (m *mockProductStore) DeleteProduct(_ context.Context, arg database.DeleteProductParams) (int64, error) {
	p, ok := m.products[arg.ID]
	if !ok || p.BusinessID != arg.BusinessID {
		return 0, nil
	}
	delete(m.products, arg.ID)
	return 1, nil
}

type mockUploader struct {
	folder   string
	filename string
	content  string
	err      error
}

func (m *mockUploader) Upload(_ context.Context, folder, filename string, file io.Reader) (string, error) {
	if m.err != nil {
		return "", m.err
	}
	b, _ := io.ReadAll(file)
	m.folder, m.filename, m.content = folder, filename, string(b)
	return "https://cdn.example.com/" + filename, nil
}

// --- Helpers ---

func setupProductRouter(store *mockProductStore, uploader handler.ImageUploader) *chi.Mux {
	h := handler.NewProductHandler(store, uploader)
	r := chi.NewRouter()
	r.Route("/businesses/{bid}", h.RegisterPublicRoutes)
	r.Group(func(r chi.Router) {
		r.Use(middleware.Authenticate(testJWTSecret))
		r.Route("/products", h.RegisterRoutes)
	})
	return r
}

func imageRequest(t *testing.T, path, filename, content string, businessID int64) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("image", filename)
	if err != nil {
		t.Fatalf("create form file: %v", err)
	}
	part.Write([]byte(content))
	mw.Close()

	req := httptest.NewRequest("POST", path, &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+ownerToken(t, ownerClaims(businessID)))
	return req
}

// --- Tests ---

func TestProductCreate(t *testing.T) {
	store := newMockProductStore()
	router := setupProductRouter(store, &mockUploader{})

	rr := doAuthRequest(t, router, "POST", "/products", map[string]interface{}{
		"name":        "Paneer Tikka",
		"price":       "249.5",
		"category_id": 2,
		"metadata":    map[string]interface{}{"ingredients": []map[string]interface{}{{"name": "Paneer", "quantity": 0.2}}},
	}, ownerClaims(3))
	if rr.Code != http.StatusCreated {
		t.Fatalf("status: got %d, want %d; body: %s", rr.Code, http.StatusCreated, rr.Body.String())
	}
	resp := decodeMap(t, rr)
	if resp["price"] != "249.50" {
		t.Errorf("price: got %v, want 249.50", resp["price"])
	}
	if resp["is_active"] != true {
		t.Errorf("is_active: got %v, want true", resp["is_active"])
	}
	if resp["category_id"] != float64(2) {
		t.Errorf("category_id: got %v, want 2", resp["category_id"])
	}
	if _, ok := resp["metadata"].(map[string]interface{}); !ok {
		t.Errorf("metadata: got %T, want object", resp["metadata"])
	}
}

func TestProductCreate_Validation(t *testing.T) {
	tests := []struct {
		name string
		body map[string]interface{}
	}{
		{"missing name", map[string]interface{}{"price": 10}},
		{"missing price", map[string]interface{}{"name": "Tea"}},
		{"negative price", map[string]interface{}{"name": "Tea", "price": -1}},
		{"metadata not object", map[string]interface{}{"name": "Tea", "price": 10, "metadata": []int{1}}},
		{"ingredients not array", map[string]interface{}{"name": "Tea", "price": 10, "metadata": map[string]interface{}{"ingredients": "milk"}}},
	}

	router := setupProductRouter(newMockProductStore(), &mockUploader{})
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := doAuthRequest(t, router, "POST", "/products", tt.body, ownerClaims(3))
			if rr.Code != http.StatusBadRequest {
				t.Fatalf("status: got %d, want %d; body: %s", rr.Code, http.StatusBadRequest, rr.Body.String())
			}
		})
	}
}

func TestProductCreate_UnknownCategory(t *testing.T) {
	store := newMockProductStore()
	store.fkError = true
	router := setupProductRouter(store, &mockUploader{})

	rr := doAuthRequest(t, router, "POST", "/products", map[string]interface{}{"name": "Tea", "price": 10, "category_id": 99}, ownerClaims(3))
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status: got %d, want %d", rr.Code, http.StatusBadRequest)
	}
}

func TestProductList_CategoryFilter(t *testing.T) {
	store := newMockProductStore()
	router := setupProductRouter(store, &mockUploader{})

	rr := doAuthRequest(t, router, "GET", "/products?category_id=7", nil, ownerClaims(3))
	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want %d", rr.Code, http.StatusOK)
	}
	if !store.lastList.CategoryID.Valid || store.lastList.CategoryID.Int64 != 7 {
		t.Errorf("category filter: got %+v", store.lastList.CategoryID)
	}

	rr = doAuthRequest(t, router, "GET", "/products?category_id=x", nil, ownerClaims(3))
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("invalid filter: got %d, want %d", rr.Code, http.StatusBadRequest)
	}
}

func TestProductMenu_OnlyActive(t *testing.T) {
	store := newMockProductStore()
	store.products[1] = database.Product{ID: 1, BusinessID: 3, Name: "Dosa", Price: testNumeric("80"), IsActive: true}
	store.products[2] = database.Product{ID: 2, BusinessID: 3, Name: "Idli", Price: testNumeric("50"), IsActive: false}
	store.products[3] = database.Product{ID: 3, BusinessID: 8, Name: "Vada", Price: testNumeric("40"), IsActive: true}
	router := setupProductRouter(store, &mockUploader{})

	rr := doRequest(t, router, "GET", "/businesses/3/menu", nil, "")
	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want %d", rr.Code, http.StatusOK)
	}
	var resp []map[string]interface{}
	decodeInto(t, rr, &resp)
	if len(resp) != 1 || resp[0]["name"] != "Dosa" {
		t.Fatalf("menu: got %v, want only Dosa", resp)
	}
}

func TestProductUpdate_OtherBusiness(t *testing.T) {
	store := newMockProductStore()
	store.products[1] = database.Product{ID: 1, BusinessID: 8, Name: "Dosa", Price: testNumeric("80")}
	router := setupProductRouter(store, &mockUploader{})

	rr := doAuthRequest(t, router, "PUT", "/products/1", map[string]interface{}{"name": "Masala Dosa", "price": 90}, ownerClaims(3))
	if rr.Code != http.StatusNotFound {
		t.Fatalf("status: got %d, want %d", rr.Code, http.StatusNotFound)
	}
}

func TestProductDelete(t *testing.T) {
	store := newMockProductStore()
	store.products[1] = database.Product{ID: 1, BusinessID: 3, Name: "Dosa"}
	router := setupProductRouter(store, &mockUploader{})

	if rr := doAuthRequest(t, router, "DELETE", "/products/1", nil, ownerClaims(3)); rr.Code != http.StatusNoContent {
		t.Fatalf("status: got %d, want %d", rr.Code, http.StatusNoContent)
	}
	if _, ok := store.products[1]; ok {
		t.Error("product still present")
	}
}

func TestProductUploadImage(t *testing.T) {
	store := newMockProductStore()
	store.products[1] = database.Product{ID: 1, BusinessID: 3, Name: "Dosa"}
	uploader := &mockUploader{}
	router := setupProductRouter(store, uploader)

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, imageRequest(t, "/products/1/image", "dosa.PNG", "pngbytes", 3))
	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want %d; body: %s", rr.Code, http.StatusOK, rr.Body.String())
	}
	if uploader.folder != "businesses/3/products" || uploader.content != "pngbytes" {
		t.Errorf("upload: folder %q content %q", uploader.folder, uploader.content)
	}
	if got := store.products[1].ImageUrl.String; got != "https://cdn.example.com/dosa.PNG" {
		t.Errorf("image_url: got %q", got)
	}
}

func TestProductUploadImage_RejectsExtension(t *testing.T) {
	store := newMockProductStore()
	store.products[1] = database.Product{ID: 1, BusinessID: 3, Name: "Dosa"}
	uploader := &mockUploader{}
	router := setupProductRouter(store, uploader)

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, imageRequest(t, "/products/1/image", "menu.gif", "gif", 3))
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status: got %d, want %d", rr.Code, http.StatusBadRequest)
	}
	if resp := decodeMap(t, rr); resp["error"] != storage.ErrUnsupportedFormat.Error() {
		t.Errorf("error: got %v", resp["error"])
	}
	if uploader.filename != "" {
		t.Error("uploader was called for a rejected file")
	}
}

func TestProductUploadImage_UploadFailures(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"not configured", storage.ErrNotConfigured, http.StatusServiceUnavailable},
		{"remote failure", errors.New("upload: status 500"), http.StatusBadGateway},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newMockProductStore()
			store.products[1] = database.Product{ID: 1, BusinessID: 3, Name: "Dosa"}
			router := setupProductRouter(store, &mockUploader{err: tt.err})

			rr := httptest.NewRecorder()
			router.ServeHTTP(rr, imageRequest(t, "/products/1/image", "dosa.jpg", "jpg", 3))
			if rr.Code != tt.want {
				t.Fatalf("status: got %d, want %d", rr.Code, tt.want)
			}
			if store.products[1].ImageUrl.Valid {
				t.Error("image_url set after failed upload")
			}
		})
	}
}

func TestProductUploadImage_MissingProduct(t *testing.T) {
	router := setupProductRouter(newMockProductStore(), &mockUploader{})

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, imageRequest(t, "/products/9/image", "dosa.jpg", "jpg", 3))
	if rr.Code != http.StatusNotFound {
		t.Fatalf("status: got %d, want %d", rr.Code, http.StatusNotFound)
	}
}
