// Package ws provides the live duplex surface: a connection hub keyed by
// (model, session) pairs and a handler relaying inbound frames to the
// session service.
package ws

import (
	"context"
	"log/slog"
	"sync"

	"github.com/coder/websocket"
)

// Key identifies a connection slot. Two keys are equal when both the model
// and session IDs match.
type Key struct {
	ModelID   string
	SessionID string
}

// Hub tracks at most one active connection per key. A newer connect for the
// same key replaces (and closes) any prior entry.
type Hub struct {
	mu    sync.RWMutex
	conns map[Key]*websocket.Conn
}

// NewHub creates an empty connection hub.
func NewHub() *Hub {
	return &Hub{
		conns: make(map[Key]*websocket.Conn),
	}
}

// Get returns the active connection for a key, or nil.
func (h *Hub) Get(key Key) *websocket.Conn {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.conns[key]
}

// Register adds a connection for a key, closing any prior connection
// registered under the same key.
func (h *Hub) Register(key Key, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if existing, exists := h.conns[key]; exists && existing != conn {
		_ = existing.Close(websocket.StatusNormalClosure, "connection replaced")
	}
	h.conns[key] = conn
	slog.Info("Connection registered", "model_id", key.ModelID, "session_id", key.SessionID)
}

// Unregister removes a connection for a key. A stale unregister (the slot
// was already replaced by a newer connection) is a no-op.
func (h *Hub) Unregister(key Key, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if current, exists := h.conns[key]; exists && current == conn {
		delete(h.conns, key)
		slog.Info("Connection unregistered", "model_id", key.ModelID, "session_id", key.SessionID)
	}
}

// Broadcast sends a text frame to every connection sharing the key except
// the sender. A failed send to one peer is logged and never aborts the
// remaining sends.
func (h *Hub) Broadcast(ctx context.Context, key Key, text string, sender *websocket.Conn) {
	h.mu.RLock()
	var peers []*websocket.Conn
	for k, conn := range h.conns {
		if k == key && conn != sender {
			peers = append(peers, conn)
		}
	}
	h.mu.RUnlock()

	for _, peer := range peers {
		if err := peer.Write(ctx, websocket.MessageText, []byte(text)); err != nil {
			slog.Warn("Broadcast to peer failed",
				"model_id", key.ModelID, "session_id", key.SessionID, "error", err)
		}
	}
}
