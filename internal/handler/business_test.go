package handler_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/dineflow/api/internal/auth"
	"github.com/dineflow/api/internal/database"
	"github.com/dineflow/api/internal/enum"
	"github.com/dineflow/api/internal/handler"
	"github.com/dineflow/api/internal/middleware"
	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5"
)

type mockBusinessStore struct {
	businesses map[int64]database.Business
	creds      map[int64]database.WhatsappCredential
}

func newMockBusinessStore() *mockBusinessStore {
	return &mockBusinessStore{
		businesses: map[int64]database.Business{
			3: {ID: 3, Name: "Spice Route", Email: "hello@spiceroute.example"},
		},
		creds: make(map[int64]database.WhatsappCredential),
	}
}

func (m *mockBusinessStore) GetBusiness(_ context.Context, id int64) (database.Business, error) {
	b, ok := m.businesses[id]
	if !ok {
		return database.Business{}, pgx.ErrNoRows
	}
	return b, nil
}

func (m *mockBusinessStore) UpdateBusiness(_ context.Context, arg database.UpdateBusinessParams) (database.Business, error) {
	b, ok := m.businesses[arg.ID]
	if !ok {
		return database.Business{}, pgx.ErrNoRows
	}
	b.Name, b.Email, b.Phone, b.Address = arg.Name, arg.Email, arg.Phone, arg.Address
	b.ProfileEdits++
	m.businesses[b.ID] = b
	return b, nil
}

func (m *mockBusinessStore) UpdateBusinessLogo(_ context.Context, arg database.UpdateBusinessLogoParams) (database.Business, error) {
	b := m.businesses[arg.ID]
	b.LogoUrl = arg.LogoUrl
	m.businesses[b.ID] = b
	return b, nil
}

func (m *mockBusinessStore) GetWhatsappCredential(_ context.Context, businessID int64) (database.WhatsappCredential, error) {
	c, ok := m.creds[businessID]
	if !ok {
		return database.WhatsappCredential{}, pgx.ErrNoRows
	}
	return c, nil
}

func (m *mockBusinessStore) UpsertWhatsappCredential(_ context.Context, arg database.UpsertWhatsappCredentialParams) (database.WhatsappCredential, error) {
	c := database.WhatsappCredential{
		BusinessID: arg.BusinessID, EndpointID: arg.EndpointID,
		AccessToken: arg.AccessToken, SenderID: arg.SenderID, UpdatedAt: testTime(),
	}
	m.creds[arg.BusinessID] = c
	return c, nil
}

func setupBusinessRouter(store *mockBusinessStore, uploader handler.ImageUploader) *chi.Mux {
	h := handler.NewBusinessHandler(store, uploader)
	r := chi.NewRouter()
	r.Use(middleware.Authenticate(testJWTSecret))
	r.Group(h.RegisterRoutes)
	return r
}

func TestBusinessGet(t *testing.T) {
	router := setupBusinessRouter(newMockBusinessStore(), &mockUploader{})

	rr := doAuthRequest(t, router, "GET", "/business", nil, ownerClaims(3))
	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want %d", rr.Code, http.StatusOK)
	}
	if resp := decodeMap(t, rr); resp["name"] != "Spice Route" {
		t.Errorf("name: got %v", resp["name"])
	}
}

func TestBusinessUpdate_OwnerEditsOnce(t *testing.T) {
	store := newMockBusinessStore()
	router := setupBusinessRouter(store, &mockUploader{})
	body := map[string]string{"name": "Spice Route Cafe", "email": "Cafe@SpiceRoute.example", "phone": "+91 98765 43210"}

	rr := doAuthRequest(t, router, "PUT", "/business", body, ownerClaims(3))
	if rr.Code != http.StatusOK {
		t.Fatalf("first edit: got %d, want %d; body: %s", rr.Code, http.StatusOK, rr.Body.String())
	}
	if got := store.businesses[3].Email; got != "cafe@spiceroute.example" {
		t.Errorf("email: got %q, want lower-cased", got)
	}

	rr = doAuthRequest(t, router, "PUT", "/business", body, ownerClaims(3))
	if rr.Code != http.StatusForbidden {
		t.Fatalf("second edit: got %d, want %d", rr.Code, http.StatusForbidden)
	}
}

func TestBusinessUpdate_SuperAdminUnlimited(t *testing.T) {
	store := newMockBusinessStore()
	b := store.businesses[3]
	b.ProfileEdits = 4
	store.businesses[3] = b
	router := setupBusinessRouter(store, &mockUploader{})

	admin := &auth.OwnerClaims{UserID: 1, BusinessID: 3, Email: "root@example.com", Role: enum.OwnerRoleSuperAdmin}
	rr := doAuthRequest(t, router, "PUT", "/business", map[string]string{"name": "Renamed", "email": "a@b.example"}, admin)
	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want %d", rr.Code, http.StatusOK)
	}
}

func TestBusinessUpdate_InvalidEmail(t *testing.T) {
	router := setupBusinessRouter(newMockBusinessStore(), &mockUploader{})

	rr := doAuthRequest(t, router, "PUT", "/business", map[string]string{"name": "X", "email": "nope"}, ownerClaims(3))
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status: got %d, want %d", rr.Code, http.StatusBadRequest)
	}
}

func TestBusinessUploadLogo_DoesNotCountAsEdit(t *testing.T) {
	store := newMockBusinessStore()
	router := setupBusinessRouter(store, &mockUploader{})

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, imageRequest(t, "/business/logo", "logo.webp", "webp", 3))
	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want %d; body: %s", rr.Code, http.StatusOK, rr.Body.String())
	}
	b := store.businesses[3]
	if !b.LogoUrl.Valid || b.ProfileEdits != 0 {
		t.Errorf("logo %v edits %d", b.LogoUrl, b.ProfileEdits)
	}
}

func TestWhatsAppCredentials_Masked(t *testing.T) {
	store := newMockBusinessStore()
	router := setupBusinessRouter(store, &mockUploader{})

	if rr := doAuthRequest(t, router, "GET", "/whatsapp/credentials", nil, ownerClaims(3)); rr.Code != http.StatusNotFound {
		t.Fatalf("before save: got %d, want %d", rr.Code, http.StatusNotFound)
	}

	rr := doAuthRequest(t, router, "PUT", "/whatsapp/credentials", map[string]string{
		"endpoint_id": "1029", "access_token": "EAAGsecret9876", "sender_id": "919800000000",
	}, ownerClaims(3))
	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want %d", rr.Code, http.StatusOK)
	}
	resp := decodeMap(t, rr)
	token, _ := resp["access_token"].(string)
	if !strings.HasSuffix(token, "9876") || strings.Contains(token, "secret") {
		t.Errorf("access_token not masked: %q", token)
	}
	if store.creds[3].AccessToken != "EAAGsecret9876" {
		t.Errorf("stored token: got %q", store.creds[3].AccessToken)
	}
}

func TestWhatsAppCredentials_RequiresAllFields(t *testing.T) {
	router := setupBusinessRouter(newMockBusinessStore(), &mockUploader{})

	rr := doAuthRequest(t, router, "PUT", "/whatsapp/credentials", map[string]string{"endpoint_id": "1029"}, ownerClaims(3))
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status: got %d, want %d", rr.Code, http.StatusBadRequest)
	}
}
