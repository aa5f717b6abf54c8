package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/dineflow/api/internal/database"
	"github.com/dineflow/api/internal/events"
	"github.com/dineflow/api/internal/whatsapp"
	"github.com/jackc/pgx/v5"
	"golang.org/x/sync/errgroup"
)

var (
	ErrEmptyMessage           = errors.New("message is required")
	ErrMessagingNotConfigured = errors.New("whatsapp credentials are not configured")
)

// Per-recipient delivery outcomes.
const (
	DeliverySent    = "sent"
	DeliveryFailed  = "failed"
	DeliverySkipped = "skipped"
)

// PromotionStore defines the DB methods needed for a broadcast.
// Satisfied by *database.Queries.
type PromotionStore interface {
	GetBusiness(ctx context.Context, id int64) (database.Business, error)
	GetWhatsappCredential(ctx context.Context, businessID int64) (database.WhatsappCredential, error)
	ListReachableCustomers(ctx context.Context, businessID int64) ([]database.Customer, error)
	ListCustomersByIDs(ctx context.Context, arg database.ListCustomersByIDsParams) ([]database.Customer, error)
}

// MessageSender sends one text message. Satisfied by *whatsapp.Client.
type MessageSender interface {
	SendText(ctx context.Context, creds whatsapp.Credentials, to, body string) (*whatsapp.SendMessageResponse, error)
}

// Delivery is the outcome of one broadcast message.
type Delivery struct {
	CustomerID int64  `json:"customer_id"`
	Name       string `json:"name"`
	Phone      string `json:"phone"`
	Status     string `json:"status"`
	MessageID  string `json:"message_id,omitempty"`
	Error      string `json:"error,omitempty"`
}

type PromotionService struct {
	store    PromotionStore
	sender   MessageSender
	notifier Notifier
	workers  int
}

// NewPromotionService creates a PromotionService sending at most workers
// messages concurrently. notifier may be nil.
func NewPromotionService(store PromotionStore, sender MessageSender, notifier Notifier, workers int) *PromotionService {
	if workers < 1 {
		workers = 1
	}
	if notifier == nil {
		notifier = nopNotifier{}
	}
	return &PromotionService{store: store, sender: sender, notifier: notifier, workers: workers}
}

// RenderPromotion fills the {{name}} and {{business}} placeholders.
func RenderPromotion(template, customerName, businessName string) string {
	return strings.NewReplacer("{{name}}", customerName, "{{business}}", businessName).Replace(template)
}

// Broadcast sends the message to the given customers, or to every customer
// with a phone number when customerIDs is empty. One failed recipient never
// stops the others, and nothing is retried.
func (s *PromotionService) Broadcast(ctx context.Context, businessID int64, message string, customerIDs []int64) ([]Delivery, error) {
	if strings.TrimSpace(message) == "" {
		return nil, ErrEmptyMessage
	}

	cred, err := s.store.GetWhatsappCredential(ctx, businessID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrMessagingNotConfigured
		}
		return nil, fmt.Errorf("get whatsapp credentials: %w", err)
	}
	business, err := s.store.GetBusiness(ctx, businessID)
	if err != nil {
		return nil, fmt.Errorf("get business: %w", err)
	}

	var customers []database.Customer
	if len(customerIDs) == 0 {
		customers, err = s.store.ListReachableCustomers(ctx, businessID)
	} else {
		customers, err = s.store.ListCustomersByIDs(ctx, database.ListCustomersByIDsParams{BusinessID: businessID, Ids: customerIDs})
	}
	if err != nil {
		return nil, fmt.Errorf("list customers: %w", err)
	}

	creds := whatsapp.Credentials{
		EndpointID:  cred.EndpointID,
		AccessToken: cred.AccessToken,
		SenderID:    cred.SenderID,
	}

	deliveries := make([]Delivery, len(customers))
	var g errgroup.Group
	g.SetLimit(s.workers)
	for i, c := range customers {
		deliveries[i] = Delivery{CustomerID: c.ID, Name: c.Name, Phone: c.Phone.String}
		if whatsapp.NormalizePhone(c.Phone.String) == "" {
			deliveries[i].Status = DeliverySkipped
			deliveries[i].Error = "no phone number"
			continue
		}
		g.Go(func() error {
			body := RenderPromotion(message, c.Name, business.Name)
			resp, err := s.sender.SendText(ctx, creds, c.Phone.String, body)
			if err != nil {
				log.Printf("WARN: promotion to customer %d: %v", c.ID, err)
				deliveries[i].Status = DeliveryFailed
				deliveries[i].Error = err.Error()
				return nil
			}
			deliveries[i].Status = DeliverySent
			deliveries[i].MessageID = resp.MessageID()
			return nil
		})
	}
	_ = g.Wait()

	sent := 0
	for _, d := range deliveries {
		if d.Status == DeliverySent {
			sent++
		}
	}
	s.notifier.Emit(ctx, businessID, events.PromotionBroadcastRun, map[string]int{
		"recipients": len(deliveries),
		"sent":       sent,
	})
	return deliveries, nil
}
