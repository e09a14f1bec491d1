package ws

import (
	"encoding/json"
	"net/http"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// Event types pushed to editor clients while generation runs.
const (
	EventSlideCreated          = "slide_created"
	EventPresentationCompleted = "presentation_completed"
	EventPresentationError     = "presentation_error"
)

// Event is one progress message for a user's open editors.
type Event struct {
	Type           string      `json:"type"`
	PresentationID uuid.UUID   `json:"presentationId"`
	Payload        interface{} `json:"payload,omitempty"`
}

type userEvent struct {
	userID uuid.UUID
	data   []byte
}

// Client is one connected editor tab.
type Client struct {
	ID     uuid.UUID
	UserID uuid.UUID
	Conn   *websocket.Conn
	Send   chan []byte
}

// Hub routes generation-progress events to connected clients by user.
type Hub struct {
	clients    map[uuid.UUID]*Client
	byUser     map[uuid.UUID]map[uuid.UUID]*Client
	register   chan *Client
	unregister chan *Client
	events     chan userEvent
	logger     *zap.Logger
	mu         sync.RWMutex
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// Origin checks are enforced at the CORS layer in front of this.
		return true
	},
}

// NewHub creates an idle hub; call Run to start routing.
func NewHub(logger *zap.Logger) *Hub {
	return &Hub{
		clients:    make(map[uuid.UUID]*Client),
		byUser:     make(map[uuid.UUID]map[uuid.UUID]*Client),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		events:     make(chan userEvent, 256),
		logger:     logger.Named("WSHub"),
	}
}

// Run processes registrations and event fan-out until the channel is drained.
// Intended to run in its own goroutine for the lifetime of the server.
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client.ID] = client
			if h.byUser[client.UserID] == nil {
				h.byUser[client.UserID] = make(map[uuid.UUID]*Client)
			}
			h.byUser[client.UserID][client.ID] = client
			h.mu.Unlock()
			h.logger.Debug("Client registered", zap.String("clientID", client.ID.String()), zap.String("userID", client.UserID.String()))

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client.ID]; ok {
				delete(h.clients, client.ID)
				delete(h.byUser[client.UserID], client.ID)
				close(client.Send)
			}
			h.mu.Unlock()

		case ev := <-h.events:
			h.mu.RLock()
			for _, client := range h.byUser[ev.userID] {
				select {
				case client.Send <- ev.data:
				default:
					// Slow consumer; drop the event rather than block the hub.
				}
			}
			h.mu.RUnlock()
		}
	}
}

// PublishToUser sends the event to every open connection of the user.
func (h *Hub) PublishToUser(userID uuid.UUID, event Event) {
	data, err := json.Marshal(event)
	if err != nil {
		h.logger.Error("Failed to marshal ws event", zap.Error(err))
		return
	}
	select {
	case h.events <- userEvent{userID: userID, data: data}:
	default:
		h.logger.Warn("Event buffer full, dropping ws event", zap.String("type", event.Type))
	}
}

// ServeWS upgrades the request and pumps events to the client until it
// disconnects.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request, userID uuid.UUID) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("WebSocket upgrade failed", zap.Error(err))
		return
	}

	client := &Client{
		ID:     uuid.New(),
		UserID: userID,
		Conn:   conn,
		Send:   make(chan []byte, 16),
	}
	h.register <- client

	go client.writePump()
	go client.readPump(h)
}

func (c *Client) writePump() {
	defer c.Conn.Close()
	for data := range c.Send {
		if err := c.Conn.WriteMessage(websocket.TextMessage, data); err != nil {
			return
		}
	}
}

// readPump discards inbound frames; its job is detecting disconnects.
func (c *Client) readPump(h *Hub) {
	defer func() {
		h.unregister <- c
		c.Conn.Close()
	}()
	for {
		if _, _, err := c.Conn.ReadMessage(); err != nil {
			return
		}
	}
}
