package connections

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// TimeoutConfig holds the various timeout settings for WebSocket connections
type TimeoutConfig struct {
	PongWait   time.Duration
	PingPeriod time.Duration
	WriteWait  time.Duration
}

// DefaultTimeouts provides sensible default timeout values
var DefaultTimeouts = TimeoutConfig{
	PongWait:   30 * time.Second,
	PingPeriod: 27 * time.Second, // (PongWait * 9) / 10
	WriteWait:  10 * time.Second,
}

// Manager tracks the debug-chat WebSocket connections and serializes writes
// per connection so agent events and pings never interleave mid-frame.
type Manager struct {
	connections sync.Map // *websocket.Conn -> *sync.Mutex
	timeouts    TimeoutConfig
}

// NewManager creates a new connection manager with the specified timeouts
func NewManager(timeouts TimeoutConfig) *Manager {
	return &Manager{
		timeouts: timeouts,
	}
}

// AddConnection registers a new WebSocket connection
func (m *Manager) AddConnection(conn *websocket.Conn) {
	m.connections.Store(conn, &sync.Mutex{})
}

// RemoveConnection removes a WebSocket connection
func (m *Manager) RemoveConnection(conn *websocket.Conn) {
	m.connections.Delete(conn)
}

// HasConnection checks if a specific connection exists
func (m *Manager) HasConnection(conn *websocket.Conn) bool {
	_, exists := m.connections.Load(conn)
	return exists
}

// ConnectionCount returns the current number of active connections
func (m *Manager) ConnectionCount() int {
	count := 0
	m.connections.Range(func(key, value interface{}) bool {
		count++
		return true
	})
	return count
}

// WriteJSON sends v on the connection with the configured write deadline.
func (m *Manager) WriteJSON(conn *websocket.Conn, v interface{}) error {
	mu, ok := m.connections.Load(conn)
	if !ok {
		return websocket.ErrCloseSent
	}

	lock := mu.(*sync.Mutex)
	lock.Lock()
	defer lock.Unlock()

	if err := conn.SetWriteDeadline(time.Now().Add(m.timeouts.WriteWait)); err != nil {
		return err
	}
	return conn.WriteJSON(v)
}

// Ping sends a control ping with the configured write deadline.
func (m *Manager) Ping(conn *websocket.Conn) error {
	deadline := time.Now().Add(m.timeouts.WriteWait)
	return conn.WriteControl(websocket.PingMessage, []byte{}, deadline)
}

// Timeouts returns the current timeout configuration
func (m *Manager) Timeouts() TimeoutConfig {
	return m.timeouts
}
