package service

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/dineflow/api/internal/database"
	"github.com/dineflow/api/internal/whatsapp"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

type mockPromotionStore struct {
	cred      *database.WhatsappCredential
	customers []database.Customer
	byIDsArg  *database.ListCustomersByIDsParams
}

func (m *mockPromotionStore) GetBusiness(ctx context.Context, id int64) (database.Business, error) {
	return database.Business{ID: id, Name: "Spice Route"}, nil
}

func (m *mockPromotionStore) GetWhatsappCredential(ctx context.Context, businessID int64) (database.WhatsappCredential, error) {
	if m.cred == nil {
		return database.WhatsappCredential{}, pgx.ErrNoRows
	}
	return *m.cred, nil
}

func (m *mockPromotionStore) ListReachableCustomers(ctx context.Context, businessID int64) ([]database.Customer, error) {
	return m.customers, nil
}

func (m *mockPromotionStore) ListCustomersByIDs(ctx context.Context, arg database.ListCustomersByIDsParams) ([]database.Customer, error) {
	m.byIDsArg = &arg
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
	fail   map[string]bool
}

func (m *mockSender) SendText(ctx context.Context, creds whatsapp.Credentials, to, body string) (*whatsapp.SendMessageResponse, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail[to] {
		return nil, errors.New("provider rejected recipient")
	}
	if m.bodies == nil {
		m.bodies = map[string]string{}
	}
	m.bodies[to] = body
	resp := &whatsapp.SendMessageResponse{}
	resp.Messages = append(resp.Messages, struct {
		ID string `json:"id"`
	}{ID: "wamid." + to})
	return resp, nil
}

func customerWithPhone(id int64, name, phone string) database.Customer {
	return database.Customer{ID: id, Name: name, Phone: pgtype.Text{String: phone, Valid: phone != ""}}
}

func promotionStore() *mockPromotionStore {
	return &mockPromotionStore{
		cred: &database.WhatsappCredential{BusinessID: 1, EndpointID: "123", AccessToken: "tok"},
		customers: []database.Customer{
			customerWithPhone(1, "Asha", "+91 98450 00001"),
			customerWithPhone(2, "Ravi", "9845000002"),
			customerWithPhone(3, "Meera", ""),
		},
	}
}

func TestRenderPromotion(t *testing.T) {
	got := RenderPromotion("Hi {{name}}, {{business}} has 20% off! {{name}}", "Asha", "Spice Route")
	want := "Hi Asha, Spice Route has 20% off! Asha"
	if got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestBroadcast_PerCustomerStatus(t *testing.T) {
	sender := &mockSender{fail: map[string]bool{"9845000002": true}}
	notifier := &recordingNotifier{}
	svc := NewPromotionService(promotionStore(), sender, notifier, 2)

	deliveries, err := svc.Broadcast(context.Background(), 1, "Hello {{name}} from {{business}}", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []string{DeliverySent, DeliveryFailed, DeliverySkipped}
	if len(deliveries) != len(want) {
		t.Fatalf("deliveries: got %d, want %d", len(deliveries), len(want))
	}
	for i, d := range deliveries {
		if d.Status != want[i] {
			t.Fatalf("delivery %d: got %q, want %q", d.CustomerID, d.Status, want[i])
		}
	}
	if deliveries[0].MessageID != "wamid.+91 98450 00001" {
		t.Fatalf("message id: got %q", deliveries[0].MessageID)
	}
	if got := sender.bodies["+91 98450 00001"]; got != "Hello Asha from Spice Route" {
		t.Fatalf("body: got %q", got)
	}
	if len(notifier.events) != 1 {
		t.Fatalf("events: got %d, want 1", len(notifier.events))
	}
}

func TestBroadcast_SelectedCustomers(t *testing.T) {
	store := promotionStore()
	svc := NewPromotionService(store, &mockSender{}, nil, 4)

	deliveries, err := svc.Broadcast(context.Background(), 1, "Hi", []int64{2})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if store.byIDsArg == nil || store.byIDsArg.BusinessID != 1 {
		t.Fatal("expected tenant-scoped id lookup")
	}
	if len(deliveries) != 1 || deliveries[0].CustomerID != 2 {
		t.Fatalf("deliveries: got %+v", deliveries)
	}
}

func TestBroadcast_Errors(t *testing.T) {
	svc := NewPromotionService(promotionStore(), &mockSender{}, nil, 1)
	if _, err := svc.Broadcast(context.Background(), 1, "  ", nil); !errors.Is(err, ErrEmptyMessage) {
		t.Fatalf("error: got %v, want %v", err, ErrEmptyMessage)
	}

	store := promotionStore()
	store.cred = nil
	svc = NewPromotionService(store, &mockSender{}, nil, 1)
	if _, err := svc.Broadcast(context.Background(), 1, "Hi", nil); !errors.Is(err, ErrMessagingNotConfigured) {
		t.Fatalf("error: got %v, want %v", err, ErrMessagingNotConfigured)
	}
}
