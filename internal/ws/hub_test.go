package ws

import (
	"context"
	"encoding/json"
	"testing"
	"time"
)

// mockClient creates a client for testing without a real WebSocket connection
func mockClient(hub *Hub, businessID int64) *Client {
	return &Client{
		hub:        hub,
		businessID: businessID,
		send:       make(chan []byte, 256),
	}
}

func startHub(t *testing.T) *Hub {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	hub := NewHub()
	go hub.Run(ctx)
	return hub
}

func TestHubRegistration(t *testing.T) {
	hub := startHub(t)
	client := mockClient(hub, 1)

	hub.register <- client
	time.Sleep(10 * time.Millisecond)

	if got := hub.ClientCount(1); got != 1 {
		t.Fatalf("client count: got %d, want 1", got)
	}
}

func TestHubUnregistration(t *testing.T) {
	hub := startHub(t)
	client := mockClient(hub, 1)

	hub.register <- client
	time.Sleep(10 * time.Millisecond)

	hub.unregister <- client
	time.Sleep(10 * time.Millisecond)

	hub.mu.RLock()
	defer hub.mu.RUnlock()

	if hub.rooms[1] != nil {
		t.Fatal("business room not cleaned up after last client unregistered")
	}
	if _, ok := <-client.send; ok {
		t.Fatal("send channel should be closed")
	}
}

func TestBroadcastToSingleBusiness(t *testing.T) {
	hub := startHub(t)

	client1 := mockClient(hub, 1)
	client2 := mockClient(hub, 2)

	hub.register <- client1
	hub.register <- client2
	time.Sleep(10 * time.Millisecond)

	testPayload := json.RawMessage(`{"order_id":"ORD00001"}`)
	hub.BroadcastToBusiness(1, Event{Type: "order.created", Payload: testPayload})

	select {
	case msg := <-client1.send:
		var received Event
		if err := json.Unmarshal(msg, &received); err != nil {
			t.Fatalf("failed to unmarshal message: %v", err)
		}
		if received.Type != "order.created" {
			t.Errorf("expected type 'order.created', got '%s'", received.Type)
		}
		if string(received.Payload) != string(testPayload) {
			t.Errorf("expected payload '%s', got '%s'", testPayload, received.Payload)
		}
	case <-time.After(100 * time.Millisecond):
		t.Fatal("client1 did not receive message")
	}

	select {
	case <-client2.send:
		t.Fatal("client2 should not have received message for different business")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestBroadcastToMultipleClientsInSameBusiness(t *testing.T) {
	hub := startHub(t)

	clients := []*Client{mockClient(hub, 7), mockClient(hub, 7), mockClient(hub, 7)}
	for _, c := range clients {
		hub.register <- c
	}
	time.Sleep(10 * time.Millisecond)

	hub.BroadcastToBusiness(7, Event{Type: "order.updated", Payload: json.RawMessage(`{}`)})

	for i, c := range clients {
		select {
		case <-c.send:
		case <-time.After(100 * time.Millisecond):
			t.Fatalf("client %d did not receive message", i)
		}
	}
}

func TestSlowClientIsDropped(t *testing.T) {
	hub := startHub(t)

	slow := &Client{hub: hub, businessID: 3, send: make(chan []byte)}
	hub.register <- slow
	time.Sleep(10 * time.Millisecond)

	hub.BroadcastToBusiness(3, Event{Type: "order.created", Payload: json.RawMessage(`{}`)})
	time.Sleep(20 * time.Millisecond)

	if got := hub.ClientCount(3); got != 0 {
		t.Fatalf("client count after slow consumer: got %d, want 0", got)
	}
}

func TestRunClosesClientsOnShutdown(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	hub := NewHub()
	done := make(chan struct{})
	go func() {
		hub.Run(ctx)
		close(done)
	}()

	client := mockClient(hub, 1)
	hub.register <- client
	time.Sleep(10 * time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("hub did not stop")
	}

	if _, ok := <-client.send; ok {
		t.Fatal("send channel should be closed on shutdown")
	}
}

func TestRegisterAfterShutdownDoesNotBlock(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	hub := NewHub()
	done := make(chan struct{})
	go func() {
		hub.Run(ctx)
		close(done)
	}()

	live := mockClient(hub, 1)
	if !hub.Register(live) {
		t.Fatal("register on a running hub should succeed")
	}
	cancel()
	<-done

	returned := make(chan bool, 1)
	go func() {
		hub.Unregister(live)
		returned <- hub.Register(mockClient(hub, 1))
	}()

	select {
	case ok := <-returned:
		if ok {
			t.Fatal("register after shutdown should be refused")
		}
	case <-time.After(time.Second):
		t.Fatal("register/unregister blocked after hub stopped")
	}
}
