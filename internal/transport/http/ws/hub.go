package ws

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/dstaulcu/skill-enabled-dept-website/internal/metrics"
)

// Hub tracks live WebSocket connections so they can be counted and
// closed together. Hijacked connections are not closed by the HTTP
// server's Shutdown.
type Hub struct {
	metrics *metrics.Collector

	mu sync.RWMutex
	// connections indexed by connection ID
	connections map[string]*connection
	// identities maps an identity to its connection IDs
	identities map[string]map[string]struct{}
	closed     bool
}

// NewHub creates a Hub. collector may be nil.
func NewHub(collector *metrics.Collector) *Hub {
	return &Hub{
		metrics:     collector,
		connections: make(map[string]*connection),
		identities:  make(map[string]map[string]struct{}),
	}
}

// register adds conn under a fresh ID. It reports false once CloseAll has
// run; the caller must then drop the connection.
func (h *Hub) register(conn *connection) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return false
	}

	conn.id = uuid.New().String()
	h.connections[conn.id] = conn
	identity := conn.cred.Identity
	if h.identities[identity] == nil {
		h.identities[identity] = make(map[string]struct{})
	}
	h.identities[identity][conn.id] = struct{}{}
	h.metrics.SetWebSocketConnections(len(h.connections))
	return true
}

func (h *Hub) unregister(conn *connection) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.connections[conn.id]; !ok {
		return
	}

	delete(h.connections, conn.id)
	identity := conn.cred.Identity
	delete(h.identities[identity], conn.id)
	if len(h.identities[identity]) == 0 {
		delete(h.identities, identity)
	}
	h.metrics.SetWebSocketConnections(len(h.connections))
}

// ConnectionCount returns the number of live connections.
func (h *Hub) ConnectionCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.connections)
}

// IdentityCount returns the number of identities with a live connection.
func (h *Hub) IdentityCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.identities)
}

// CloseAll sends a going-away close frame to every live connection and
// stops its relay. Later upgrades are refused. It returns the number of
// connections closed.
func (h *Hub) CloseAll(reason string) int {
	h.mu.Lock()
	h.closed = true
	conns := make([]*connection, 0, len(h.connections))
	for _, conn := range h.connections {
		conns = append(conns, conn)
	}
	h.mu.Unlock()

	frame := websocket.FormatCloseMessage(websocket.CloseGoingAway, reason)
	for _, conn := range conns {
		conn.conn.WriteControl(websocket.CloseMessage, frame, time.Now().Add(WriteTimeout))
		conn.stop()
	}
	return len(conns)
}

// Wait blocks until every connection has unregistered or ctx is done.
func (h *Hub) Wait(ctx context.Context) error {
	ticker := time.NewTicker(20 * time.Millisecond)
	defer ticker.Stop()
	for h.ConnectionCount() > 0 {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
	return nil
}
