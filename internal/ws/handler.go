package ws

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/coder/websocket"
	"github.com/go-chi/chi/v5"
	"github.com/modelcontext/hub/internal/domain"
	"github.com/modelcontext/hub/internal/session"
)

// Handler upgrades requests on /ws/{model_id}/{session_id} and relays each
// inbound text frame through the session service.
type Handler struct {
	svc           *session.Service
	hub           *Hub
	allowedOrigin string
	isDev         bool
}

// NewHandler creates a WebSocket handler.
func NewHandler(svc *session.Service, hub *Hub, allowedOrigin string, isDev bool) *Handler {
	return &Handler{
		svc:           svc,
		hub:           hub,
		allowedOrigin: allowedOrigin,
		isDev:         isDev,
	}
}

// ServeHTTP implements http.Handler for the WebSocket upgrade.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	modelID := chi.URLParam(r, "model_id")
	sessionID := chi.URLParam(r, "session_id")
	if modelID == "" || sessionID == "" {
		http.Error(w, "model_id and session_id are required", http.StatusBadRequest)
		return
	}

	slog.Info("WebSocket connection request", "model_id", modelID, "session_id", sessionID, "ip", r.RemoteAddr)

	if !h.checkOrigin(r) {
		http.Error(w, "origin not allowed", http.StatusForbidden)
		return
	}

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		slog.Error("Failed to accept WebSocket", "error", err, "model_id", modelID, "session_id", sessionID)
		return
	}
	defer func() {
		if closeErr := conn.Close(websocket.StatusNormalClosure, "session ended"); closeErr != nil {
			slog.Debug("Failed to close websocket", "error", closeErr, "session_id", sessionID)
		}
	}()

	key := Key{ModelID: modelID, SessionID: sessionID}
	h.hub.Register(key, conn)
	defer h.hub.Unregister(key, conn)

	h.readLoop(r, key, conn)
}

func (h *Handler) checkOrigin(r *http.Request) bool {
	if h.isDev {
		return true
	}
	origin := r.Header.Get("Origin")
	if origin == "" || h.allowedOrigin == "*" || origin == h.allowedOrigin {
		return true
	}
	slog.Warn("WebSocket origin rejected", "origin", origin, "allowed", h.allowedOrigin)
	return false
}

// readLoop processes inbound frames until the connection closes. Each frame
// becomes a message posted to the session; the sender gets one ack or error
// frame per inbound frame, and same-key peers get a derived notification.
func (h *Handler) readLoop(r *http.Request, key Key, conn *websocket.Conn) {
	ctx := r.Context()
	for {
		_, data, err := conn.Read(ctx)
		if err != nil {
			if websocket.CloseStatus(err) != -1 {
				slog.Debug("WebSocket closed by client", "model_id", key.ModelID, "session_id", key.SessionID)
			} else {
				slog.Warn("WebSocket read error", "error", err, "session_id", key.SessionID)
			}
			return
		}

		content, err := json.Marshal(string(data))
		if err != nil {
			// Marshaling a string cannot fail; keep the loop alive regardless.
			slog.Error("Failed to encode frame content", "error", err)
			continue
		}

		msg := domain.Message{
			ModelID: key.ModelID,
			Content: content,
		}

		_, postErr := h.svc.PostMessage(ctx, key.SessionID, msg)
		if postErr != nil {
			slog.Warn("Failed to post WebSocket message",
				"error", postErr, "model_id", key.ModelID, "session_id", key.SessionID)
			h.writeText(ctx, conn, key, fmt.Sprintf("error processing message for session %s", key.SessionID))
			continue
		}

		h.writeText(ctx, conn, key, fmt.Sprintf("message received, context updated for session %s", key.SessionID))

		notification := fmt.Sprintf("model %s (session %s) received new data: %s",
			key.ModelID, key.SessionID, truncate(string(data), 50))
		h.hub.Broadcast(ctx, key, notification, conn)
	}
}

// writeText sends one text frame to the originating connection. Write
// failures are logged only: the read loop decides when the connection dies.
func (h *Handler) writeText(ctx context.Context, conn *websocket.Conn, key Key, text string) {
	if err := conn.Write(ctx, websocket.MessageText, []byte(text)); err != nil {
		slog.Debug("Failed to write acknowledgment",
			"error", err, "model_id", key.ModelID, "session_id", key.SessionID)
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
