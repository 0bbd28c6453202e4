package streaming

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"scamguard/pkg/logger"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// Allow all origins for mobile apps
		return true
	},
}

// Publisher is the event sink the alert pipeline publishes into
type Publisher interface {
	Publish(ctx context.Context, event *AlertEvent) error
}

// Handler consumes events delivered through an in-process subscription
type Handler func(event *AlertEvent)

// Presence is the last reported status of a connected user
type Presence struct {
	UserID string    `json:"user_id"`
	Status string    `json:"status"`
	Since  time.Time `json:"since"`
}

// Hub routes alert events to connected WebSocket clients and in-process
// subscribers. Events addressed to a user reach only that user's clients.
type Hub struct {
	bridge *NATSBridge
	logger *logger.Logger

	mu       sync.RWMutex
	clients  map[*wsClient]bool
	handlers map[string][]Handler
	presence map[string]Presence

	broadcast chan *AlertEvent
}

// wsClient is one connected WebSocket consumer
type wsClient struct {
	hub          *Hub
	conn         *websocket.Conn
	send         chan []byte
	userID       string
	subscription *Subscription
	logger       *logger.Logger
}

// NewHub creates a hub. The NATS bridge is optional; with nil the hub
// serves this instance's clients only.
func NewHub(bridge *NATSBridge, log *logger.Logger) *Hub {
	return &Hub{
		bridge:    bridge,
		logger:    log.WithComponent("streaming-hub"),
		clients:   make(map[*wsClient]bool),
		handlers:  make(map[string][]Handler),
		presence:  make(map[string]Presence),
		broadcast: make(chan *AlertEvent, 256),
	}
}

// Run starts the hub's dispatch loop and blocks until ctx is done
func (h *Hub) Run(ctx context.Context) {
	h.logger.Info().Msg("streaming hub started")

	if h.bridge != nil {
		h.bridge.SubscribeInbound(ctx, h.dispatch)
	}

	for {
		select {
		case <-ctx.Done():
			h.logger.Info().Msg("streaming hub stopping")
			h.closeAllClients()
			return
		case event := <-h.broadcast:
			h.dispatch(event)
		}
	}
}

// Publish queues an event for delivery. Also forwards to the NATS bridge
// so sibling instances can serve their own clients.
func (h *Hub) Publish(ctx context.Context, event *AlertEvent) error {
	if h.bridge != nil {
		if err := h.bridge.PublishOutbound(ctx, event); err != nil {
			h.logger.Warn().Err(err).Str("event", string(event.Type)).Msg("bridge publish failed")
		}
	}

	select {
	case h.broadcast <- event:
	default:
		h.logger.Warn().Str("event", string(event.Type)).Msg("broadcast channel full, dropping event")
	}
	return nil
}

// SubscribeLocal registers an in-process handler for a user's events.
// Used by the in-app delivery channel and tests.
func (h *Hub) SubscribeLocal(userID string, handler Handler) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.handlers[userID] = append(h.handlers[userID], handler)
}

// UpdatePresence records a user's presence and broadcasts the change
func (h *Hub) UpdatePresence(userID, status string) {
	p := Presence{UserID: userID, Status: status, Since: time.Now()}

	h.mu.Lock()
	h.presence[userID] = p
	h.mu.Unlock()

	event := &AlertEvent{
		Type:      EventPresence,
		UserID:    userID,
		Payload:   map[string]any{"status": status},
		Timestamp: p.Since,
	}
	select {
	case h.broadcast <- event:
	default:
	}
}

// PresenceOf returns a user's last reported presence
func (h *Hub) PresenceOf(userID string) (Presence, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	p, ok := h.presence[userID]
	return p, ok
}

// ClientCount returns the number of connected WebSocket clients
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// dispatch fans one event out to matching clients and local handlers
func (h *Hub) dispatch(event *AlertEvent) {
	data, err := json.Marshal(event)
	if err != nil {
		h.logger.Error().Err(err).Msg("failed to marshal event")
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for client := range h.clients {
		if event.UserID != "" && client.userID != event.UserID {
			continue
		}
		if client.subscription != nil && !client.subscription.Matches(event) {
			continue
		}
		select {
		case client.send <- data:
		default:
			// Client buffer full, skip
		}
	}

	if event.UserID != "" {
		for _, handler := range h.handlers[event.UserID] {
			handler(event)
		}
	}
	for _, handler := range h.handlers[""] {
		handler(event)
	}
}

func (h *Hub) closeAllClients() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for client := range h.clients {
		close(client.send)
		delete(h.clients, client)
	}
}

func (h *Hub) registerClient(client *wsClient) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[client] = true
	h.logger.Info().Str("user_id", client.userID).Int("clients", len(h.clients)).Msg("client connected")
}

func (h *Hub) unregisterClient(client *wsClient) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[client]; ok {
		delete(h.clients, client)
		close(client.send)
		h.logger.Info().Str("user_id", client.userID).Int("clients", len(h.clients)).Msg("client disconnected")
	}
}

// ServeWebSocket upgrades the request and attaches the client to the hub.
// The user is identified by the user_id query parameter.
func (h *Hub) ServeWebSocket(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("user_id")
	if userID == "" {
		http.Error(w, "user_id is required", http.StatusBadRequest)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error().Err(err).Msg("failed to upgrade connection")
		return
	}

	client := &wsClient{
		hub:          h,
		conn:         conn,
		send:         make(chan []byte, 256),
		userID:       userID,
		subscription: &Subscription{UserID: userID},
		logger:       h.logger,
	}

	h.registerClient(client)
	h.UpdatePresence(userID, "online")

	go client.writePump()
	go client.readPump()
}

// readPump reads subscription updates from the client
func (c *wsClient) readPump() {
	defer func() {
		c.hub.unregisterClient(c)
		c.hub.UpdatePresence(c.userID, "offline")
		c.conn.Close()
	}()

	c.conn.SetReadLimit(64 * 1024)
	c.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.logger.Warn().Err(err).Msg("websocket read error")
			}
			break
		}

		var sub Subscription
		if err := json.Unmarshal(message, &sub); err == nil {
			sub.UserID = c.userID // clients cannot subscribe to other users
			c.subscription = &sub
			c.logger.Debug().Str("user_id", c.userID).Msg("subscription updated")
		}
	}
}

// writePump writes events and keepalive pings to the client
func (c *wsClient) writePump() {
	ticker := time.NewTicker(30 * time.Second)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			w, err := c.conn.NextWriter(websocket.TextMessage)
			if err != nil {
				return
			}
			w.Write(message)

			// Batch pending messages
			n := len(c.send)
			for i := 0; i < n; i++ {
				w.Write([]byte("\n"))
				w.Write(<-c.send)
			}

			if err := w.Close(); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
