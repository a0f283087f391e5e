// Package realtime pushes pickup board changes to subscribed boards.
package realtime

import (
	"encoding/json"
	"log"
	"sync"
	"time"
)

// Subscription scopes a client to one school; empty means every school.
type Subscription struct {
	SchoolID string
}

type Client struct {
	ID           string
	Send         chan []byte
	Subscription Subscription
}

type Hub struct {
	mu      sync.RWMutex
	clients map[string]*Client
	now     func() time.Time
}

type SubscribeMessage struct {
	Action   string `json:"action"`
	SchoolID string `json:"school_id"`
}

// Envelope is what boards receive for every ledger change.
type Envelope struct {
	Type      string      `json:"type"`
	SchoolID  string      `json:"school_id,omitempty"`
	Payload   interface{} `json:"payload,omitempty"`
	CreatedAt time.Time   `json:"created_at"`
}

func New() *Hub {
	return &Hub{clients: make(map[string]*Client), now: time.Now}
}

func (h *Hub) Register(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[client.ID] = client
}

func (h *Hub) Unregister(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[client.ID]; !ok {
		return
	}
	delete(h.clients, client.ID)
	close(client.Send)
}

func (h *Hub) UpdateSubscription(client *Client, sub Subscription) {
	h.mu.Lock()
	defer h.mu.Unlock()
	client.Subscription = sub
}

func (h *Hub) Clients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Broadcast hands payload to every matching client without blocking; slow
// clients miss the message.
func (h *Hub) Broadcast(payload []byte, schoolID string) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, client := range h.clients {
		if !match(client.Subscription, schoolID) {
			continue
		}
		select {
		case client.Send <- payload:
		default:
			log.Printf("drop message for client %s", client.ID)
		}
	}
}

// Publish wraps a ledger change in an Envelope and broadcasts it. An empty
// schoolID reaches every client.
func (h *Hub) Publish(eventType, schoolID string, payload interface{}) {
	data, err := json.Marshal(Envelope{Type: eventType, SchoolID: schoolID, Payload: payload, CreatedAt: h.now().UTC()})
	if err != nil {
		log.Printf("realtime marshal error: %v", err)
		return
	}
	h.Broadcast(data, schoolID)
}

func match(sub Subscription, schoolID string) bool {
	return sub.SchoolID == "" || schoolID == "" || sub.SchoolID == schoolID
}

func ParseSubscribe(data []byte) (SubscribeMessage, bool) {
	var msg SubscribeMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return SubscribeMessage{}, false
	}
	if msg.Action != "subscribe" && msg.Action != "unsubscribe" {
		return SubscribeMessage{}, false
	}
	return msg, true
}
