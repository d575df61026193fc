package services

import (
	"sync"
	"time"
)

// Event kinds delivered to the staff audience.
const (
	EventNewFeedback      = "new_feedback"
	EventAnalysisComplete = "analysis_complete"
	EventUrgentAlert      = "urgent_alert"
)

// AudienceStaff is the single logical observer group.
const AudienceStaff = "staff"

// Event is a flat attribute bag pushed to connected observers.
type Event struct {
	Kind      string                 `json:"kind"`
	Audience  string                 `json:"audience"`
	Payload   map[string]interface{} `json:"payload"`
	EmittedAt time.Time              `json:"emitted_at"`
}

// EventHub manages observer connections and event broadcasting. Delivery is
// best-effort: a slow client drops events rather than blocking publishers.
type EventHub struct {
	clients map[string]chan Event
	mu      sync.RWMutex
}

// NewEventHub creates a new hub instance.
func NewEventHub() *EventHub {
	return &EventHub{
		clients: make(map[string]chan Event),
	}
}

// Subscribe registers a new client and returns a channel for receiving events.
func (h *EventHub) Subscribe(clientID string) <-chan Event {
	h.mu.Lock()
	defer h.mu.Unlock()

	// Buffered channel to prevent blocking publishers
	ch := make(chan Event, 100)
	h.clients[clientID] = ch
	return ch
}

// Unsubscribe removes a client from the hub.
func (h *EventHub) Unsubscribe(clientID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if ch, ok := h.clients[clientID]; ok {
		close(ch)
		delete(h.clients, clientID)
	}
}

// Publish broadcasts an event to all connected clients.
func (h *EventHub) Publish(event Event) {
	if event.EmittedAt.IsZero() {
		event.EmittedAt = time.Now()
	}
	if event.Audience == "" {
		event.Audience = AudienceStaff
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, ch := range h.clients {
		// Non-blocking send - drop event if client buffer is full
		select {
		case ch <- event:
		default:
		}
	}
}

// ClientCount returns the number of connected clients.
func (h *EventHub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
