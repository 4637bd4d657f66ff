package websocket

import (
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// Event is one realtime message pushed to a connected client.
type Event struct {
	Type      string      `json:"type"`
	Payload   interface{} `json:"payload,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
}

// Hub tracks connected clients per user and fans lifecycle events out to
// them. It satisfies the event publisher the emergency pipeline expects, so
// a user watching the app sees trigger, resolve and step updates live.
type Hub struct {
	clients     map[*Client]bool
	userClients map[string]map[*Client]bool

	register   chan *Client
	unregister chan *Client
	events     chan userEvent

	mutex sync.RWMutex

	done chan struct{}
}

type userEvent struct {
	userID string
	event  Event
}

func NewHub() *Hub {
	return &Hub{
		clients:     make(map[*Client]bool),
		userClients: make(map[string]map[*Client]bool),
		register:    make(chan *Client),
		unregister:  make(chan *Client),
		events:      make(chan userEvent, 64),
		done:        make(chan struct{}),
	}
}

// Run processes registrations and event delivery until Stop is called.
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.addClient(client)

		case client := <-h.unregister:
			h.removeClient(client)

		case evt := <-h.events:
			h.deliver(evt)

		case <-h.done:
			h.closeAll()
			return
		}
	}
}

// Stop shuts the hub down and disconnects every client.
func (h *Hub) Stop() {
	close(h.done)
}

// Publish queues an event for every connection the user has open. Non
// blocking: with no listeners the event is dropped.
func (h *Hub) Publish(userID, eventType string, payload interface{}) {
	evt := userEvent{
		userID: userID,
		event: Event{
			Type:      eventType,
			Payload:   payload,
			Timestamp: time.Now(),
		},
	}

	select {
	case h.events <- evt:
	default:
		logrus.Warnf("Event queue full, dropping %s event for user %s", eventType, userID)
	}
}

// ConnectedUsers reports how many distinct users are connected.
func (h *Hub) ConnectedUsers() int {
	h.mutex.RLock()
	defer h.mutex.RUnlock()
	return len(h.userClients)
}

func (h *Hub) addClient(client *Client) {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	h.clients[client] = true
	if h.userClients[client.userID] == nil {
		h.userClients[client.userID] = make(map[*Client]bool)
	}
	h.userClients[client.userID][client] = true

	logrus.Debugf("WebSocket client connected for user %s", client.userID)
}

func (h *Hub) removeClient(client *Client) {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	if _, ok := h.clients[client]; !ok {
		return
	}

	delete(h.clients, client)
	if clients := h.userClients[client.userID]; clients != nil {
		delete(clients, client)
		if len(clients) == 0 {
			delete(h.userClients, client.userID)
		}
	}
	close(client.send)

	logrus.Debugf("WebSocket client disconnected for user %s", client.userID)
}

func (h *Hub) deliver(evt userEvent) {
	h.mutex.RLock()
	defer h.mutex.RUnlock()

	for client := range h.userClients[evt.userID] {
		select {
		case client.send <- evt.event:
		default:
			// Slow consumer, drop the event rather than block the hub.
			logrus.Warnf("Send buffer full for user %s, dropping event", evt.userID)
		}
	}
}

func (h *Hub) closeAll() {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	for client := range h.clients {
		close(client.send)
	}
	h.clients = make(map[*Client]bool)
	h.userClients = make(map[string]map[*Client]bool)
}
