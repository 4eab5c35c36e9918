package websocket

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/flexystyles/storefront-backend/internal/cart"
	"github.com/flexystyles/storefront-backend/pkg/logger"
)

const sendBuffer = 16

// CartMessage is what every open tab of a signed-in user receives.
type CartMessage struct {
	Type string        `json:"type"`
	Cart cart.Snapshot `json:"cart"`
}

// Client is one WebSocket connection of a signed-in user.
type Client struct {
	Hub    *Hub
	Conn   *Conn
	UserID uint
	Send   chan []byte
}

func NewClient(hub *Hub, conn *Conn, userID uint) *Client {
	return &Client{
		Hub:    hub,
		Conn:   conn,
		UserID: userID,
		Send:   make(chan []byte, sendBuffer),
	}
}

type userMessage struct {
	userID uint
	data   []byte
}

// Hub tracks the open connections of each user and fans cart snapshots out
// to all of them.
type Hub struct {
	// UserID -> connections, one per tab or device
	clients map[uint][]*Client

	register   chan *Client
	unregister chan *Client
	broadcast  chan userMessage

	mu sync.RWMutex
}

func NewHub() *Hub {
	return &Hub{
		clients:    make(map[uint][]*Client),
		register:   make(chan *Client, 256),
		unregister: make(chan *Client, 256),
		broadcast:  make(chan userMessage, 1024),
	}
}

// Run processes registrations and broadcasts until ctx is done.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			h.closeAll()
			return

		case client := <-h.register:
			h.mu.Lock()
			h.clients[client.UserID] = append(h.clients[client.UserID], client)
			sessions := len(h.clients[client.UserID])
			h.mu.Unlock()
			logger.Info("WebSocket client registered", map[string]interface{}{
				"user_id":        client.UserID,
				"total_sessions": sessions,
			})

		case client := <-h.unregister:
			h.remove(client)

		case message := <-h.broadcast:
			h.mu.RLock()
			for _, client := range h.clients[message.userID] {
				select {
				case client.Send <- message.data:
				default:
					go h.Unregister(client)
					logger.Warn("Client send buffer full, disconnecting", map[string]interface{}{
						"user_id": message.userID,
					})
				}
			}
			h.mu.RUnlock()
		}
	}
}

func (h *Hub) remove(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	list, ok := h.clients[client.UserID]
	if !ok {
		return
	}
	kept := make([]*Client, 0, len(list))
	found := false
	for _, c := range list {
		if c == client {
			found = true
			continue
		}
		kept = append(kept, c)
	}
	if !found {
		return
	}
	if len(kept) == 0 {
		delete(h.clients, client.UserID)
	} else {
		h.clients[client.UserID] = kept
	}
	close(client.Send)

	logger.Info("WebSocket client unregistered", map[string]interface{}{
		"user_id":            client.UserID,
		"remaining_sessions": len(kept),
	})
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for userID, list := range h.clients {
		for _, c := range list {
			close(c.Send)
		}
		delete(h.clients, userID)
	}
}

func (h *Hub) Register(client *Client) {
	h.register <- client
}

func (h *Hub) Unregister(client *Client) {
	h.unregister <- client
}

// PublishCart pushes the snapshot to every connection of userID. A full
// broadcast queue drops the message; the next change sends a fresh snapshot.
func (h *Hub) PublishCart(userID uint, snapshot cart.Snapshot) {
	data, err := EncodeCart(snapshot)
	if err != nil {
		logger.Error("Failed to marshal cart message", err, map[string]interface{}{
			"user_id": userID,
		})
		return
	}

	select {
	case h.broadcast <- userMessage{userID: userID, data: data}:
	default:
		logger.Warn("Broadcast channel full, cart update dropped", map[string]interface{}{
			"user_id": userID,
		})
	}
}

// EncodeCart renders the message sent for a snapshot.
func EncodeCart(snapshot cart.Snapshot) ([]byte, error) {
	return json.Marshal(CartMessage{Type: "cart", Cart: snapshot})
}

func (h *Hub) IsUserOnline(userID uint) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	_, ok := h.clients[userID]
	return ok
}

// Connections reports how many sockets userID has open.
func (h *Hub) Connections(userID uint) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[userID])
}
