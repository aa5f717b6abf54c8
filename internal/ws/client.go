package ws

import (
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/dineflow/api/internal/auth"
	"github.com/dineflow/api/internal/middleware"
	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10 // must be less than pongWait
	maxMessageSize = 512
	sendBuffer     = 256
)

// Client is one kitchen or dashboard connection subscribed to a business.
// A nil topics set receives every event.
type Client struct {
	hub        *Hub
	conn       *websocket.Conn
	businessID int64
	ownerID    int64
	topics     map[string]bool
	send       chan []byte
}

func (c *Client) wants(eventType string) bool {
	return c.topics == nil || c.topics[eventType]
}

// parseTopics reads a comma separated ?events= filter.
func parseTopics(raw string) map[string]bool {
	var topics map[string]bool
	for _, t := range strings.Split(raw, ",") {
		if t = strings.TrimSpace(t); t == "" {
			continue
		}
		if topics == nil {
			topics = make(map[string]bool)
		}
		topics[t] = true
	}
	return topics
}

// readPump only detects disconnects and keeps the read deadline fresh.
func (c *Client) readPump() {
	defer func() {
		c.hub.Unregister(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("WARN: ws business %d owner %d: %v", c.businessID, c.ownerID, err)
			}
			return
		}
	}
}

// writePump sends each queued event as its own text frame and pings idle
// connections.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// Handler upgrades GET /ws/businesses/{bid}/orders?token=JWT[&events=a,b].
// Browsers cannot set headers on a websocket handshake, so the owner token
// travels in the query string.
type Handler struct {
	hub      *Hub
	secret   string
	upgrader websocket.Upgrader
}

// NewHandler creates a Handler. allowedOrigins uses the CORS list; "*" or
// an empty list accepts any origin.
func NewHandler(hub *Hub, jwtSecret string, allowedOrigins []string) *Handler {
	origins := make(map[string]bool, len(allowedOrigins))
	for _, o := range allowedOrigins {
		origins[o] = true
	}
	return &Handler{
		hub:    hub,
		secret: jwtSecret,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				return origin == "" || len(origins) == 0 || origins["*"] || origins[origin]
			},
		},
	}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	tokenStr := r.URL.Query().Get("token")
	if tokenStr == "" {
		http.Error(w, "missing token", http.StatusUnauthorized)
		return
	}

	claims, err := auth.ValidateOwnerToken(h.secret, tokenStr)
	if err != nil {
		http.Error(w, "invalid token", http.StatusUnauthorized)
		return
	}

	businessID, err := strconv.ParseInt(chi.URLParam(r, "bid"), 10, 64)
	if err != nil {
		http.Error(w, "invalid business id", http.StatusBadRequest)
		return
	}

	if !middleware.CanAccessBusiness(claims, businessID) {
		http.Error(w, "business access denied", http.StatusForbidden)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("WARN: websocket upgrade: %v", err)
		return
	}

	client := &Client{
		hub:        h.hub,
		conn:       conn,
		businessID: businessID,
		ownerID:    claims.UserID,
		topics:     parseTopics(r.URL.Query().Get("events")),
		send:       make(chan []byte, sendBuffer),
	}
	if !h.hub.Register(client) {
		conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"),
			time.Now().Add(writeWait))
		conn.Close()
		return
	}

	go client.writePump()
	go client.readPump()
}
