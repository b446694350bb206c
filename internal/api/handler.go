// Package api provides the HTTP handlers for the hub.
//
//nolint:revive // "api" package name is intentionally concise for this layer.
package api

import (
	"encoding/json"
	"net/http"

	"github.com/modelcontext/hub/internal/registry"
	"github.com/modelcontext/hub/internal/session"
)

// Handler provides common handler dependencies for the MCP surface.
type Handler struct {
	svc *session.Service
	reg *registry.ModelRegistry
}

// NewHandler creates a new Handler with common dependencies.
func NewHandler(svc *session.Service, reg *registry.ModelRegistry) *Handler {
	return &Handler{
		svc: svc,
		reg: reg,
	}
}

// JSON writes a JSON response with the given status code.
func JSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, `{"error": "failed to encode response"}`, http.StatusInternalServerError)
	}
}

// Error writes a JSON error response.
func Error(w http.ResponseWriter, status int, message string) {
	JSON(w, status, map[string]string{"error": message})
}
