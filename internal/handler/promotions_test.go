package handler_test

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"testing"

	"github.com/dineflow/api/internal/database"
	"github.com/dineflow/api/internal/handler"
	"github.com/dineflow/api/internal/middleware"
	"github.com/dineflow/api/internal/service"
	"github.com/dineflow/api/internal/whatsapp"
	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

type mockPromotionStore struct {
	hasCreds  bool
	customers []database.Customer
	byIDs     []int64
}

func (m *mockPromotionStore) GetBusiness(_ context.Context, id int64) (database.Business, error) {
	return database.Business{ID: id, Name: "Spice Route"}, nil
}

func (m *mockPromotionStore) GetWhatsappCredential(_ context.Context, businessID int64) (database.WhatsappCredential, error) {
	if !m.hasCreds {
		return database.WhatsappCredential{}, pgx.ErrNoRows
	}
	return database.WhatsappCredential{BusinessID: businessID, EndpointID: "1", AccessToken: "t", SenderID: "s"}, nil
}

func (m *mockPromotionStore) ListReachableCustomers(_ context.Context, _ int64) ([]database.Customer, error) {
	return m.customers, nil
}

func (m *mockPromotionStore) ListCustomersByIDs(_ context.Context, arg database.ListCustomersByIDsParams) ([]database.Customer, error) {
	m.byIDs = arg.Ids
	var out []database.Customer
	for _, c := range m.customers {
		for _, id := range arg.Ids {
			if c.ID == id {
				out = append(out, c)
			}
		}
	}
	return out, nil
}

type mockSender struct {
	mu     sync.Mutex
	bodies map[string]string
	failTo string
}

func (m *mockSender) SendText(_ context.Context, _ whatsapp.Credentials, to, body string) (*whatsapp.SendMessageResponse, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if to == m.failTo {
		return nil, errors.New("whatsapp: status 400")
	}
	if m.bodies == nil {
		m.bodies = make(map[string]string)
	}
	m.bodies[to] = body
	return &whatsapp.SendMessageResponse{}, nil
}

func phone(s string) pgtype.Text { return pgtype.Text{String: s, Valid: s != ""} }

func setupPromotionRouter(store *mockPromotionStore, sender *mockSender) *chi.Mux {
	svc := service.NewPromotionService(store, sender, nil, 4)
	h := handler.NewPromotionHandler(svc)
	r := chi.NewRouter()
	r.Use(middleware.Authenticate(testJWTSecret))
	r.Route("/promotions", h.RegisterRoutes)
	return r
}

func TestPromotionBroadcast_PerRecipientStatus(t *testing.T) {
	store := &mockPromotionStore{hasCreds: true, customers: []database.Customer{
		{ID: 1, Name: "Asha", Phone: phone("+91 90000 00001")},
		{ID: 2, Name: "Ravi", Phone: phone("+91 90000 00002")},
		{ID: 3, Name: "Meena", Phone: phone("")},
	}}
	sender := &mockSender{failTo: "+91 90000 00002"}
	router := setupPromotionRouter(store, sender)

	rr := doAuthRequest(t, router, "POST", "/promotions/broadcast", map[string]interface{}{
		"message": "Hi {{name}}, 10% off at {{business}} today!",
	}, ownerClaims(3))
	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want %d; body: %s", rr.Code, http.StatusOK, rr.Body.String())
	}

	var resp struct {
		Recipients int                `json:"recipients"`
		Sent       int                `json:"sent"`
		Deliveries []service.Delivery `json:"deliveries"`
	}
	decodeInto(t, rr, &resp)
	if resp.Recipients != 3 || resp.Sent != 1 {
		t.Fatalf("recipients %d sent %d, want 3 and 1", resp.Recipients, resp.Sent)
	}
	want := map[int64]string{1: service.DeliverySent, 2: service.DeliveryFailed, 3: service.DeliverySkipped}
	for _, d := range resp.Deliveries {
		if d.Status != want[d.CustomerID] {
			t.Errorf("customer %d: got %s, want %s", d.CustomerID, d.Status, want[d.CustomerID])
		}
	}
	if got := sender.bodies["+91 90000 00001"]; got != "Hi Asha, 10% off at Spice Route today!" {
		t.Errorf("rendered body: got %q", got)
	}
}

func TestPromotionBroadcast_SelectedCustomers(t *testing.T) {
	store := &mockPromotionStore{hasCreds: true, customers: []database.Customer{
		{ID: 1, Name: "Asha", Phone: phone("9000000001")},
		{ID: 2, Name: "Ravi", Phone: phone("9000000002")},
	}}
	router := setupPromotionRouter(store, &mockSender{})

	rr := doAuthRequest(t, router, "POST", "/promotions/broadcast", map[string]interface{}{
		"message": "hello", "customer_ids": []int64{2},
	}, ownerClaims(3))
	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want %d", rr.Code, http.StatusOK)
	}
	if len(store.byIDs) != 1 || store.byIDs[0] != 2 {
		t.Errorf("ids: got %v, want [2]", store.byIDs)
	}
	if resp := decodeMap(t, rr); resp["recipients"] != float64(1) {
		t.Errorf("recipients: got %v, want 1", resp["recipients"])
	}
}

func TestPromotionBroadcast_Rejections(t *testing.T) {
	tests := []struct {
		name     string
		hasCreds bool
		message  string
	}{
		{"empty message", true, "  "},
		{"no credentials", false, "hello"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := setupPromotionRouter(&mockPromotionStore{hasCreds: tt.hasCreds}, &mockSender{})
			rr := doAuthRequest(t, router, "POST", "/promotions/broadcast", map[string]interface{}{"message": tt.message}, ownerClaims(3))
			if rr.Code != http.StatusBadRequest {
				t.Fatalf("status: got %d, want %d", rr.Code, http.StatusBadRequest)
			}
		})
	}
}
