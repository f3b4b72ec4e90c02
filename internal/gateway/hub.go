package gateway

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/quizbid/quizbid/internal/auction"
)

// Role distinguishes the one privileged operator connection from
// participant connections.
type Role string

const (
	RoleHost Role = "host"
	RoleTeam Role = "team"
)

// Controller is what the hub needs from the auction core.
type Controller interface {
	OpenLot(ctx context.Context, index int)
	SubmitBid(team string, amount int64) auction.BidResult
	AbortLot()
	TimeUp()
	ArmCountdown(d time.Duration)
	SettleLot(ctx context.Context) error
	Snapshot() auction.SnapshotPayload
}

// Hub manages every WebSocket connection to the auction and fans
// events out to all of them. It implements auction.Broadcaster.
type Hub struct {
	controller Controller

	connections map[*Connection]bool
	mu          sync.RWMutex

	upgrader websocket.Upgrader
	config   ConnectionConfig

	broadcastCh chan auction.Event
}

// Connection represents one WebSocket client.
type Connection struct {
	ID   string
	Team string
	Role Role
	Conn *websocket.Conn
	Send chan []byte
	hub  *Hub

	ConnectedAt time.Time

	// sendMu orders every send on Send against the close in
	// unregister. Both pumps and the hub loop can touch Send while the
	// other pump is tearing the connection down.
	sendMu sync.Mutex
	closed bool
}

// ConnectionConfig holds configuration for WebSocket connections.
type ConnectionConfig struct {
	WriteTimeout    time.Duration
	ReadTimeout     time.Duration
	PingInterval    time.Duration
	MaxMessageSize  int64
	ReadBufferSize  int
	WriteBufferSize int
	CheckOrigin     func(r *http.Request) bool
}

// DefaultConnectionConfig returns default WebSocket configuration.
func DefaultConnectionConfig() ConnectionConfig {
	return ConnectionConfig{
		WriteTimeout:    10 * time.Second,
		ReadTimeout:     60 * time.Second,
		PingInterval:    30 * time.Second,
		MaxMessageSize:  1024,
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			// Allow all origins in development - restrict in production
			return true
		},
	}
}

// NewHub creates a hub with no connections.
func NewHub(controller Controller, config ConnectionConfig) *Hub {
	return &Hub{
		controller:  controller,
		connections: make(map[*Connection]bool),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  config.ReadBufferSize,
			WriteBufferSize: config.WriteBufferSize,
			CheckOrigin:     config.CheckOrigin,
		},
		config:      config,
		broadcastCh: make(chan auction.Event, 256),
	}
}

// SetController late-binds the controller. The controller broadcasts
// into the hub and the hub routes commands to the controller, so one
// side has to bind after construction.
func (h *Hub) SetController(controller Controller) {
	h.controller = controller
}

// Start processes broadcast events until ctx is cancelled.
func (h *Hub) Start(ctx context.Context) {
	log.Info().Msg("gateway hub started")
	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("gateway hub shutting down")
			return
		case ev := <-h.broadcastCh:
			h.fanOut(ev)
		}
	}
}

// Broadcast enqueues an event for delivery to every connection.
// It never blocks; if the hub is saturated the event is dropped.
func (h *Hub) Broadcast(ev auction.Event) {
	select {
	case h.broadcastCh <- ev:
	default:
		log.Warn().Str("event_type", string(ev.Type)).Msg("broadcast channel full, dropping event")
	}
}

// Upgrade upgrades an HTTP request to a WebSocket connection and
// registers it with the hub. The new connection immediately receives a
// snapshot of the current lot state so late joiners are not stuck
// waiting for the next event.
func (h *Hub) Upgrade(w http.ResponseWriter, r *http.Request, team string, role Role) error {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return err
	}

	connection := &Connection{
		ID:          uuid.New().String(),
		Team:        team,
		Role:        role,
		Conn:        conn,
		Send:        make(chan []byte, 256),
		hub:         h,
		ConnectedAt: time.Now(),
	}

	h.register(connection)
	connection.sendEvent(auction.NewEvent(auction.EventTypeSnapshot, h.controller.Snapshot()))

	go connection.writePump()
	go connection.readPump()

	log.Info().
		Str("connection_id", connection.ID).
		Str("team", team).
		Str("role", string(role)).
		Msg("websocket connection established")
	return nil
}

func (h *Hub) register(conn *Connection) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.connections[conn] = true

	log.Debug().
		Str("connection_id", conn.ID).
		Int("total_connections", len(h.connections)).
		Msg("connection registered")
}

func (h *Hub) unregister(conn *Connection) {
	h.mu.Lock()
	_, ok := h.connections[conn]
	if ok {
		delete(h.connections, conn)
	}
	h.mu.Unlock()
	if !ok {
		return
	}

	conn.sendMu.Lock()
	conn.closed = true
	close(conn.Send)
	conn.sendMu.Unlock()

	log.Info().
		Str("connection_id", conn.ID).
		Str("team", conn.Team).
		Msg("connection unregistered")
}

// fanOut delivers one event to every connection. Delivery is at most
// once per connection with no acknowledgment; a connection whose send
// buffer is full is considered dead and dropped.
func (h *Hub) fanOut(ev auction.Event) {
	h.mu.RLock()
	targets := make([]*Connection, 0, len(h.connections))
	for conn := range h.connections {
		targets = append(targets, conn)
	}
	h.mu.RUnlock()

	data, err := json.Marshal(ev)
	if err != nil {
		log.Error().Err(err).Msg("failed to marshal event for broadcast")
		return
	}

	for _, conn := range targets {
		if !conn.trySend(data) {
			log.Warn().
				Str("connection_id", conn.ID).
				Str("team", conn.Team).
				Msg("connection closed or send buffer full, dropping connection")
			h.unregister(conn)
			conn.Conn.Close()
		}
	}

	log.Debug().
		Str("event_type", string(ev.Type)).
		Int("connections", len(targets)).
		Msg("event broadcasted")
}

// ConnectionCount returns the number of registered connections.
func (h *Hub) ConnectionCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.connections)
}

// trySend queues data for the write pump. Returns false when the
// connection has been unregistered or its buffer is full; callers
// treat both as a dead connection. The closed flag and the channel
// close happen under sendMu, so a send never hits a closed channel.
func (c *Connection) trySend(data []byte) bool {
	c.sendMu.Lock()
	defer c.sendMu.Unlock()
	if c.closed {
		return false
	}
	select {
	case c.Send <- data:
		return true
	default:
		return false
	}
}

// sendEvent marshals an event onto this connection only.
func (c *Connection) sendEvent(ev auction.Event) {
	data, err := json.Marshal(ev)
	if err != nil {
		log.Error().Err(err).Str("event_type", string(ev.Type)).Msg("failed to marshal direct event")
		return
	}
	if !c.trySend(data) {
		log.Warn().Str("connection_id", c.ID).Msg("connection closed or buffer full, dropping direct event")
	}
}

// writePump drains the send channel onto the socket and keeps the
// connection alive with pings.
func (c *Connection) writePump() {
	ticker := time.NewTicker(c.hub.config.PingInterval)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
		c.hub.unregister(c)
	}()

	for {
		select {
		case message, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(c.hub.config.WriteTimeout))
			if !ok {
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				log.Error().Err(err).Str("connection_id", c.ID).Msg("failed to write message")
				return
			}
		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(c.hub.config.WriteTimeout))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readPump reads client commands off the socket and routes them. The
// request context dies when the upgrade handler returns, so commands
// run against a fresh background context instead.
func (c *Connection) readPump() {
	ctx := context.Background()
	defer func() {
		c.hub.unregister(c)
		c.Conn.Close()
	}()

	c.Conn.SetReadLimit(c.hub.config.MaxMessageSize)
	c.Conn.SetReadDeadline(time.Now().Add(c.hub.config.ReadTimeout))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(c.hub.config.ReadTimeout))
		return nil
	})

	for {
		_, message, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Error().Err(err).Str("connection_id", c.ID).Msg("unexpected websocket close")
			}
			break
		}
		c.hub.handleCommand(ctx, c, message)
		c.Conn.SetReadDeadline(time.Now().Add(c.hub.config.ReadTimeout))
	}
}
