package server

import (
	"sync"

	"github.com/gorilla/websocket"
)

// ConnTracker tracks open WebSocket connections so shutdown can close them.
type ConnTracker struct {
	mu    sync.Mutex
	conns map[*websocket.Conn]struct{}
}

// NewConnTracker creates a new ConnTracker.
func NewConnTracker() *ConnTracker {
	return &ConnTracker{
		conns: make(map[*websocket.Conn]struct{}),
	}
}

// Add registers a connection.
func (ct *ConnTracker) Add(conn *websocket.Conn) {
	ct.mu.Lock()
	defer ct.mu.Unlock()
	ct.conns[conn] = struct{}{}
}

// Remove unregisters a connection.
func (ct *ConnTracker) Remove(conn *websocket.Conn) {
	ct.mu.Lock()
	defer ct.mu.Unlock()
	delete(ct.conns, conn)
}

// Len returns the number of tracked connections.
func (ct *ConnTracker) Len() int {
	ct.mu.Lock()
	defer ct.mu.Unlock()
	return len(ct.conns)
}

// CloseAll closes every tracked connection.
func (ct *ConnTracker) CloseAll() {
	ct.mu.Lock()
	defer ct.mu.Unlock()
	for conn := range ct.conns {
		conn.Close()
		delete(ct.conns, conn)
	}
}
