// Package gateway fans room snapshots out to websocket viewers and feeds
// client commands into the registry.
package gateway

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/blocclock/blocclock/internal/models"
	"github.com/blocclock/blocclock/internal/registry"
)

// Manager manages websocket connections grouped per room and implements the
// registry's Publisher interface.
type Manager struct {
	// Connection pools organized by room ID
	roomConnections map[string]map[*Connection]bool
	mu              sync.RWMutex

	upgrader websocket.Upgrader
	config   Config
	registry *registry.Registry

	broadcastCh chan broadcastMessage
}

// Connection represents one websocket viewer bound to a room.
type Connection struct {
	ID      string
	RoomID  string
	Conn    *websocket.Conn
	Send    chan []byte
	Manager *Manager

	ConnectedAt time.Time
	LastPing    time.Time
}

// Config holds websocket connection tuning.
type Config struct {
	WriteTimeout    time.Duration
	ReadTimeout     time.Duration
	PingInterval    time.Duration
	MaxMessageSize  int64
	ReadBufferSize  int
	WriteBufferSize int
	CheckOrigin     func(r *http.Request) bool
}

type broadcastMessage struct {
	RoomID string
	Event  *Event
}

// DefaultConfig returns the default websocket configuration.
func DefaultConfig() Config {
	return Config{
		WriteTimeout:    10 * time.Second,
		ReadTimeout:     60 * time.Second,
		PingInterval:    30 * time.Second,
		MaxMessageSize:  16 * 1024,
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			// Timer displays are embedded all over; origins are open.
			return true
		},
	}
}

// NewManager creates a connection manager bound to the registry.
func NewManager(reg *registry.Registry, config Config) *Manager {
	return &Manager{
		roomConnections: make(map[string]map[*Connection]bool),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  config.ReadBufferSize,
			WriteBufferSize: config.WriteBufferSize,
			CheckOrigin:     config.CheckOrigin,
		},
		config:      config,
		registry:    reg,
		broadcastCh: make(chan broadcastMessage, 1000),
	}
}

// Start begins processing broadcast messages until the context is done.
func (m *Manager) Start(ctx context.Context) {
	log.Info().Msg("gateway started")

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("gateway shutting down")
			return
		case message := <-m.broadcastCh:
			m.handleBroadcast(message)
		}
	}
}

// UpgradeConnection upgrades an HTTP request to a websocket viewer of the
// given room and sends the full snapshot set to the new connection.
func (m *Manager) UpgradeConnection(w http.ResponseWriter, r *http.Request, roomID string) error {
	room := m.registry.GetOrCreate(roomID)

	conn, err := m.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return fmt.Errorf("failed to upgrade connection: %w", err)
	}

	connection := &Connection{
		ID:          uuid.New().String(),
		RoomID:      room.ID(),
		Conn:        conn,
		Send:        make(chan []byte, 256),
		Manager:     m,
		ConnectedAt: time.Now(),
		LastPing:    time.Now(),
	}

	m.registerConnection(connection)

	timer, config, rounds, cats, viewers := room.Join()
	connection.sendEvent(&Event{Type: EventTimer, Data: timer})
	connection.sendEvent(&Event{Type: EventConfig, Data: config})
	connection.sendEvent(&Event{Type: EventRounds, Data: rounds})
	connection.sendEvent(&Event{Type: EventCategories, Data: cats})
	connection.sendEvent(&Event{Type: EventViewers, Data: viewers})

	go connection.writePump()
	go connection.readPump()

	log.Info().
		Str("connection_id", connection.ID).
		Str("room", connection.RoomID).
		Msg("viewer connected")
	return nil
}

func (m *Manager) registerConnection(conn *Connection) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.roomConnections[conn.RoomID] == nil {
		m.roomConnections[conn.RoomID] = make(map[*Connection]bool)
	}
	m.roomConnections[conn.RoomID][conn] = true
}

func (m *Manager) unregisterConnection(conn *Connection) {
	m.mu.Lock()
	connections, exists := m.roomConnections[conn.RoomID]
	removed := false
	if exists {
		if _, ok := connections[conn]; ok {
			delete(connections, conn)
			close(conn.Send)
			removed = true
			if len(connections) == 0 {
				delete(m.roomConnections, conn.RoomID)
			}
		}
	}
	m.mu.Unlock()

	if removed {
		if room, ok := m.registry.Get(conn.RoomID); ok {
			room.Leave()
		}
		log.Info().
			Str("connection_id", conn.ID).
			Str("room", conn.RoomID).
			Msg("viewer disconnected")
	}
}

func (m *Manager) broadcast(roomID string, event *Event) {
	select {
	case m.broadcastCh <- broadcastMessage{RoomID: roomID, Event: event}:
	default:
		log.Warn().Str("room", roomID).Msg("broadcast channel full, dropping message")
	}
}

func (m *Manager) handleBroadcast(message broadcastMessage) {
	m.mu.RLock()
	connections, exists := m.roomConnections[message.RoomID]
	if !exists {
		m.mu.RUnlock()
		return
	}
	targets := make([]*Connection, 0, len(connections))
	for conn := range connections {
		targets = append(targets, conn)
	}
	m.mu.RUnlock()

	data, err := message.Event.Encode()
	if err != nil {
		log.Error().Err(err).Msg("failed to encode event for broadcast")
		return
	}

	for _, conn := range targets {
		select {
		case conn.Send <- data:
		default:
			// Slow or dead consumer; drop it rather than stalling the room.
			log.Warn().
				Str("connection_id", conn.ID).
				Str("room", conn.RoomID).
				Msg("connection send buffer full, closing connection")
			m.unregisterConnection(conn)
			conn.Conn.Close()
		}
	}
}

// PublishTimer implements registry.Publisher.
func (m *Manager) PublishTimer(roomID string, snap models.TimerSnapshot) {
	m.broadcast(roomID, &Event{Type: EventTimer, Data: snap})
}

// PublishConfig implements registry.Publisher.
func (m *Manager) PublishConfig(roomID string, snap models.ConfigSnapshot) {
	m.broadcast(roomID, &Event{Type: EventConfig, Data: snap})
}

// PublishRounds implements registry.Publisher.
func (m *Manager) PublishRounds(roomID string, snap models.RoundsSnapshot) {
	m.broadcast(roomID, &Event{Type: EventRounds, Data: snap})
}

// PublishCategories implements registry.Publisher.
func (m *Manager) PublishCategories(roomID string, snap models.CategoriesSnapshot) {
	m.broadcast(roomID, &Event{Type: EventCategories, Data: snap})
}

// PublishViewers implements registry.Publisher.
func (m *Manager) PublishViewers(roomID string, snap models.ViewersSnapshot) {
	m.broadcast(roomID, &Event{Type: EventViewers, Data: snap})
}

// ConnectionStats reports active connection counts for the stats endpoint.
func (m *Manager) ConnectionStats() (total int, rooms int) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, connections := range m.roomConnections {
		total += len(connections)
	}
	return total, len(m.roomConnections)
}

func (c *Connection) sendEvent(event *Event) {
	data, err := event.Encode()
	if err != nil {
		log.Error().Err(err).Str("connection_id", c.ID).Msg("failed to encode join snapshot")
		return
	}
	select {
	case c.Send <- data:
	default:
		log.Warn().Str("connection_id", c.ID).Msg("send buffer full during join snapshot")
	}
}

// writePump sends outgoing messages and keepalive pings.
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
				log.Error().Err(err).Str("connection_id", c.ID).Msg("failed to write message")
				return
			}

		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(c.Manager.config.WriteTimeout))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
			c.LastPing = time.Now()
		}
	}
}

// readPump reads client commands and applies them to the bound room.
func (c *Connection) readPump() {
	defer func() {
		c.Manager.unregisterConnection(c)
		c.Conn.Close()
	}()

	c.Conn.SetReadLimit(c.Manager.config.MaxMessageSize)
	c.Conn.SetReadDeadline(time.Now().Add(c.Manager.config.ReadTimeout))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(c.Manager.config.ReadTimeout))
		c.LastPing = time.Now()
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

		c.handleClientMessage(message)
		c.Conn.SetReadDeadline(time.Now().Add(c.Manager.config.ReadTimeout))
	}
}

// handleClientMessage parses and applies one command. A bad command is
// logged and dropped; the connection stays up.
func (c *Connection) handleClientMessage(message []byte) {
	cmd, err := ParseCommand(message)
	if err != nil {
		log.Warn().
			Err(err).
			Str("connection_id", c.ID).
			Str("room", c.RoomID).
			Msg("dropping invalid command")
		return
	}
	c.Manager.registry.Apply(c.RoomID, cmd)
}
