package websocket

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/ikkim/storefront-backend/internal/app/model"
	"github.com/ikkim/storefront-backend/pkg/logger"
)

const sendBufferSize = 256

// OrderEvent is the payload pushed to a user's sessions
type OrderEvent struct {
	Type  string       `json:"type"`
	Order *model.Order `json:"order"`
}

// Client is one websocket session of a user
type Client struct {
	Hub    *Hub
	Conn   *Conn
	UserID uint
	Send   chan []byte
}

// NewClient wraps an upgraded connection for userID.
func NewClient(hub *Hub, conn *Conn, userID uint) *Client {
	return &Client{
		Hub:    hub,
		Conn:   conn,
		UserID: userID,
		Send:   make(chan []byte, sendBufferSize),
	}
}

// Start registers the client and runs its pumps.
func (c *Client) Start() {
	c.Hub.Register(c)
	go c.WritePump()
	go c.ReadPump()
}

type userMessage struct {
	userID  uint
	payload []byte
}

// Hub fans order events out to every session of the owning user
type Hub struct {
	// UserID -> sessions (multiple devices)
	clients map[uint][]*Client

	register   chan *Client
	unregister chan *Client
	outbound   chan *userMessage

	mu sync.RWMutex
}

func NewHub() *Hub {
	return &Hub{
		clients:    make(map[uint][]*Client),
		register:   make(chan *Client, 256),
		unregister: make(chan *Client, 256),
		outbound:   make(chan *userMessage, 1024),
	}
}

// Run processes registrations and deliveries until ctx is done.
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

		case msg := <-h.outbound:
			h.mu.RLock()
			var stalled []*Client
			for _, client := range h.clients[msg.userID] {
				select {
				case client.Send <- msg.payload:
				default:
					stalled = append(stalled, client)
				}
			}
			h.mu.RUnlock()

			for _, client := range stalled {
				logger.Warn("Client send buffer full, disconnecting", map[string]interface{}{
					"user_id": client.UserID,
				})
				h.remove(client)
			}
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

// IsUserOnline reports whether userID has at least one open session.
func (h *Hub) IsUserOnline(userID uint) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	_, ok := h.clients[userID]
	return ok
}

// NotifyOrder queues an order event for userID. Delivery is best effort:
// offline users and a full queue drop the event.
func (h *Hub) NotifyOrder(userID uint, event string, order *model.Order) {
	if !h.IsUserOnline(userID) {
		return
	}

	data, err := json.Marshal(OrderEvent{Type: event, Order: order})
	if err != nil {
		logger.Error("Failed to marshal order event", err, map[string]interface{}{
			"user_id": userID,
		})
		return
	}

	select {
	case h.outbound <- &userMessage{userID: userID, payload: data}:
	default:
		logger.Warn("Outbound queue full, order event dropped", map[string]interface{}{
			"user_id":  userID,
			"order_id": order.ID,
		})
	}
}
