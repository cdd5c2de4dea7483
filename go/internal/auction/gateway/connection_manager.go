package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/mcdev12/leagify/go/internal/auction/events"
	"github.com/mcdev12/leagify/go/internal/obs"
	"github.com/rs/zerolog/log"
)

// ErrBroadcastQueueFull is returned by Publish when the broadcast queue cannot
// take another event.
var ErrBroadcastQueueFull = errors.New("broadcast queue full")

// ConnectionManager tracks WebSocket subscribers per auction and fans events
// out to them.
type ConnectionManager struct {
	auctionConnections map[uuid.UUID]map[*Connection]bool
	mu                 sync.RWMutex

	upgrader websocket.Upgrader
	config   ConnectionConfig

	broadcastCh chan BroadcastMessage

	// snapshots answers resync requests; nil disables them
	snapshots StateProvider
}

// Connection is one subscriber socket.
type Connection struct {
	ID        string
	UserID    string
	AuctionID uuid.UUID
	Conn      *websocket.Conn
	Send      chan []byte
	Manager   *ConnectionManager

	ConnectedAt time.Time
}

// ConnectionConfig holds WebSocket tuning.
type ConnectionConfig struct {
	WriteTimeout    time.Duration
	ReadTimeout     time.Duration
	PingInterval    time.Duration
	MaxMessageSize  int64
	ReadBufferSize  int
	WriteBufferSize int
	SendBufferSize  int
	CheckOrigin     func(r *http.Request) bool
}

// BroadcastMessage is an event queued for the subscribers of one auction.
type BroadcastMessage struct {
	AuctionID uuid.UUID
	Event     events.Envelope
}

// DefaultConnectionConfig returns the default WebSocket tuning.
func DefaultConnectionConfig() ConnectionConfig {
	return ConnectionConfig{
		WriteTimeout:    10 * time.Second,
		ReadTimeout:     60 * time.Second,
		PingInterval:    30 * time.Second,
		MaxMessageSize:  1024,
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		SendBufferSize:  256,
		CheckOrigin: func(r *http.Request) bool {
			return true
		},
	}
}

// NewConnectionManager creates a connection manager. snapshots may be nil.
func NewConnectionManager(config ConnectionConfig, snapshots StateProvider) *ConnectionManager {
	if config.SendBufferSize <= 0 {
		config.SendBufferSize = 256
	}
	return &ConnectionManager{
		auctionConnections: make(map[uuid.UUID]map[*Connection]bool),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  config.ReadBufferSize,
			WriteBufferSize: config.WriteBufferSize,
			CheckOrigin:     config.CheckOrigin,
		},
		config:      config,
		broadcastCh: make(chan BroadcastMessage, 1000),
		snapshots:   snapshots,
	}
}

// Start drains the broadcast queue until ctx is cancelled.
func (cm *ConnectionManager) Start(ctx context.Context) {
	log.Info().Msg("connection manager started")

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("connection manager shutting down")
			return
		case message := <-cm.broadcastCh:
			cm.handleBroadcast(message)
		}
	}
}

// Publish queues an event for the auction named by topic.
func (cm *ConnectionManager) Publish(_ context.Context, topic string, event events.Envelope) error {
	auctionID, err := events.ParseTopic(topic)
	if err != nil {
		return fmt.Errorf("failed to route event: %w", err)
	}
	select {
	case cm.broadcastCh <- BroadcastMessage{AuctionID: auctionID, Event: event}:
		return nil
	default:
		log.Warn().Str("auction_id", auctionID.String()).Msg("broadcast channel full, dropping message")
		return ErrBroadcastQueueFull
	}
}

// UpgradeConnection upgrades the request and registers the socket for the
// auction. The current snapshot is sent first when a provider is set.
func (cm *ConnectionManager) UpgradeConnection(w http.ResponseWriter, r *http.Request, userID string, auctionID uuid.UUID) error {
	conn, err := cm.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Error().Err(err).Msg("failed to upgrade WebSocket connection")
		return fmt.Errorf("failed to upgrade connection: %w", err)
	}

	connection := &Connection{
		ID:          uuid.New().String(),
		UserID:      userID,
		AuctionID:   auctionID,
		Conn:        conn,
		Send:        make(chan []byte, cm.config.SendBufferSize),
		Manager:     cm,
		ConnectedAt: time.Now(),
	}

	cm.registerConnection(connection)
	cm.sendSnapshot(r.Context(), connection)

	go connection.writePump()
	go connection.readPump()

	log.Info().
		Str("connection_id", connection.ID).
		Str("user_id", userID).
		Str("auction_id", auctionID.String()).
		Msg("WebSocket connection established")

	return nil
}

func (cm *ConnectionManager) registerConnection(conn *Connection) {
	cm.mu.Lock()
	defer cm.mu.Unlock()

	if cm.auctionConnections[conn.AuctionID] == nil {
		cm.auctionConnections[conn.AuctionID] = make(map[*Connection]bool)
	}
	cm.auctionConnections[conn.AuctionID][conn] = true
	obs.ConnectionOpened()

	log.Debug().
		Str("connection_id", conn.ID).
		Str("auction_id", conn.AuctionID.String()).
		Int("total_connections", len(cm.auctionConnections[conn.AuctionID])).
		Msg("connection registered")
}

// unregisterConnection removes the connection and closes its send channel.
// Safe to call more than once.
func (cm *ConnectionManager) unregisterConnection(conn *Connection) {
	cm.mu.Lock()
	defer cm.mu.Unlock()

	connections, ok := cm.auctionConnections[conn.AuctionID]
	if !ok || !connections[conn] {
		return
	}
	delete(connections, conn)
	close(conn.Send)
	obs.ConnectionClosed()
	if len(connections) == 0 {
		delete(cm.auctionConnections, conn.AuctionID)
	}

	log.Info().
		Str("connection_id", conn.ID).
		Str("user_id", conn.UserID).
		Str("auction_id", conn.AuctionID.String()).
		Msg("connection unregistered")
}

func (cm *ConnectionManager) handleBroadcast(message BroadcastMessage) {
	data, err := json.Marshal(message.Event)
	if err != nil {
		log.Error().Err(err).Msg("failed to marshal event for broadcast")
		return
	}

	// Sends are non-blocking, so they happen under the read lock; that keeps
	// unregisterConnection from closing a channel mid-send.
	var delivered int
	var slow []*Connection
	cm.mu.RLock()
	for conn := range cm.auctionConnections[message.AuctionID] {
		select {
		case conn.Send <- data:
			delivered++
		default:
			slow = append(slow, conn)
		}
	}
	cm.mu.RUnlock()

	for _, conn := range slow {
		log.Warn().
			Str("connection_id", conn.ID).
			Str("user_id", conn.UserID).
			Msg("connection send buffer full, closing connection")
		cm.unregisterConnection(conn)
		conn.Conn.Close()
	}

	log.Debug().
		Str("event_type", string(message.Event.EventType)).
		Str("auction_id", message.AuctionID.String()).
		Uint64("sequence", message.Event.Sequence).
		Int("connections", delivered).
		Msg("event broadcasted")
}

// deliver queues data on one connection if it is still registered.
func (cm *ConnectionManager) deliver(conn *Connection, data []byte) bool {
	cm.mu.RLock()
	defer cm.mu.RUnlock()
	if !cm.auctionConnections[conn.AuctionID][conn] {
		return false
	}
	select {
	case conn.Send <- data:
		return true
	default:
		return false
	}
}

func (cm *ConnectionManager) sendSnapshot(ctx context.Context, conn *Connection) {
	if cm.snapshots == nil {
		return
	}
	snap, err := cm.snapshots.GetAuctionState(ctx, conn.AuctionID)
	if err != nil {
		log.Error().Err(err).Str("auction_id", conn.AuctionID.String()).Msg("failed to load snapshot for subscriber")
		return
	}
	data, err := json.Marshal(StateMessage{Type: MessageTypeAuctionState, AuctionID: conn.AuctionID, Sequence: snap.Sequence, State: snap})
	if err != nil {
		log.Error().Err(err).Msg("failed to marshal snapshot")
		return
	}
	if !cm.deliver(conn, data) {
		log.Warn().Str("connection_id", conn.ID).Msg("could not queue snapshot for connection")
	}
}

// ConnectionStats summarises the open sockets.
type ConnectionStats struct {
	TotalConnections   int            `json:"total_connections"`
	ActiveAuctions     int            `json:"active_auctions"`
	AuctionConnections map[string]int `json:"auction_connections"`
}

// GetConnectionStats returns counts of open sockets per auction.
func (cm *ConnectionManager) GetConnectionStats() ConnectionStats {
	cm.mu.RLock()
	defer cm.mu.RUnlock()

	stats := ConnectionStats{
		ActiveAuctions:     len(cm.auctionConnections),
		AuctionConnections: make(map[string]int, len(cm.auctionConnections)),
	}
	for auctionID, connections := range cm.auctionConnections {
		stats.TotalConnections += len(connections)
		stats.AuctionConnections[auctionID.String()] = len(connections)
	}
	return stats
}

func (c *Connection) writePump() {
	ticker := time.NewTicker(c.Manager.config.PingInterval)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
		c.Manager.unregisterConnection(c)
	}()

	for {
		select {
		case message, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(c.Manager.config.WriteTimeout))
			if !ok {
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				log.Error().
					Err(err).
					Str("connection_id", c.ID).
					Msg("failed to write message to WebSocket")
				return
			}

		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(c.Manager.config.WriteTimeout))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				log.Error().
					Err(err).
					Str("connection_id", c.ID).
					Msg("failed to send ping")
				return
			}
		}
	}
}

func (c *Connection) readPump() {
	defer func() {
		c.Manager.unregisterConnection(c)
		c.Conn.Close()
	}()

	c.Conn.SetReadLimit(c.Manager.config.MaxMessageSize)
	c.Conn.SetReadDeadline(time.Now().Add(c.Manager.config.ReadTimeout))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(c.Manager.config.ReadTimeout))
		return nil
	})

	for {
		_, message, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Error().
					Err(err).
					Str("connection_id", c.ID).
					Msg("unexpected WebSocket close error")
			}
			break
		}

		c.handleClientMessage(message)
		c.Conn.SetReadDeadline(time.Now().Add(c.Manager.config.ReadTimeout))
	}
}

// handleClientMessage answers resync requests; anything else is logged.
func (c *Connection) handleClientMessage(message []byte) {
	var msg ClientMessage
	if err := json.Unmarshal(message, &msg); err != nil {
		log.Debug().Err(err).Str("connection_id", c.ID).Msg("ignoring malformed client message")
		return
	}
	switch msg.Type {
	case ClientMessageResync:
		c.Manager.sendSnapshot(context.Background(), c)
	default:
		log.Debug().
			Str("connection_id", c.ID).
			Str("user_id", c.UserID).
			Str("type", msg.Type).
			Msg("received client message")
	}
}
