// Package events fans domain events out to connected dashboards and, when a
// broker is configured, to Kafka for downstream consumers such as the
// inventory reconciler.
package events

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/dineflow/api/internal/ws"
)

const (
	OrderCreated          = "order.created"
	OrderUpdated          = "order.updated"
	OrderStatusChanged    = "order.status_changed"
	SideEffectFailed      = "order.side_effect_failed"
	InventoryLowStock     = "inventory.low_stock"
	BillCreated           = "bill.created"
	PromotionBroadcastRun = "promotion.broadcast"
)

type Event struct {
	Type       string          `json:"type"`
	BusinessID int64           `json:"business_id"`
	OccurredAt time.Time       `json:"occurred_at"`
	Payload    json.RawMessage `json:"payload"`
}

// Publisher delivers events to an external broker.
type Publisher interface {
	Publish(ctx context.Context, event Event) error
}

// Broadcaster pushes events to live WebSocket clients.
// Satisfied by *ws.Hub.
type Broadcaster interface {
	BroadcastToBusiness(businessID int64, event ws.Event)
}

type Dispatcher struct {
	hub       Broadcaster
	publisher Publisher
}

// NewDispatcher creates a Dispatcher. Either argument may be nil.
func NewDispatcher(hub Broadcaster, publisher Publisher) *Dispatcher {
	return &Dispatcher{hub: hub, publisher: publisher}
}

// Emit delivers an event on a best-effort basis. Failures are logged and
// never returned to the caller.
func (d *Dispatcher) Emit(ctx context.Context, businessID int64, eventType string, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		log.Printf("ERROR: marshal %s event: %v", eventType, err)
		return
	}

	if d.hub != nil {
		d.hub.BroadcastToBusiness(businessID, ws.Event{Type: eventType, Payload: data})
	}

	if d.publisher != nil {
		event := Event{
			Type:       eventType,
			BusinessID: businessID,
			OccurredAt: time.Now().UTC(),
			Payload:    data,
		}
		// Detach from request cancellation; the response may already be written.
		if err := d.publisher.Publish(context.WithoutCancel(ctx), event); err != nil {
			log.Printf("ERROR: publish %s for business %d: %v", eventType, businessID, err)
		}
	}
}
