package ticker

import (
	"encoding/json"
	"net/http"
	"sync"

	log "github.com/sirupsen/logrus"

	"github.com/gorilla/websocket"
)

// Event is a price-ticker update pushed to websocket subscribers whenever a
// bid is accepted or a listing closes.
type Event struct {
	Type      string  `json:"type"` // "bid" or "close"
	ListingID int     `json:"listing_id"`
	Price     float64 `json:"price"`
	Bidder    int     `json:"bidder,omitempty"`
}

type client struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

// Hub fans ticker events out to connected websocket clients
type Hub struct {
	upgrader  websocket.Upgrader
	clients   map[*client]bool
	clientsMu sync.RWMutex
}

// NewHub creates an empty hub
func NewHub() *Hub {
	return &Hub{
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true // Allow all origins in development
			},
		},
		clients: make(map[*client]bool),
	}
}

// Publish sends an event to every connected client. Clients whose connection
// fails are dropped.
func (h *Hub) Publish(event Event) {
	data, err := json.Marshal(event)
	if err != nil {
		log.WithError(err).Error("Failed to marshal ticker event")
		return
	}

	var dead []*client
	h.clientsMu.RLock()
	for c := range h.clients {
		c.mu.Lock()
		err := c.conn.WriteMessage(websocket.TextMessage, data)
		c.mu.Unlock()
		if err != nil {
			dead = append(dead, c)
		}
	}
	h.clientsMu.RUnlock()

	if len(dead) > 0 {
		h.clientsMu.Lock()
		for _, c := range dead {
			delete(h.clients, c)
		}
		h.clientsMu.Unlock()
	}
}

// ServeHTTP upgrades the request to a websocket subscription
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.WithError(err).Error("Failed to upgrade connection")
		return
	}

	c := &client{conn: conn}
	h.clientsMu.Lock()
	h.clients[c] = true
	h.clientsMu.Unlock()

	// Keep connection alive and handle disconnection
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			h.clientsMu.Lock()
			delete(h.clients, c)
			h.clientsMu.Unlock()
			conn.Close()
			break
		}
	}
}
