// Package registry provides the in-memory model registry.
package registry

import (
	"log/slog"
	"sync"

	"github.com/modelcontext/hub/internal/domain"
)

// ModelRegistry is a process-wide mapping from model ID to model metadata.
// It holds no persistence: a restart loses all registrations. One instance is
// constructed at startup and passed to every handler that needs it.
type ModelRegistry struct {
	mu     sync.RWMutex
	models map[string]domain.ModelInfo
}

// New creates an empty model registry.
func New() *ModelRegistry {
	return &ModelRegistry{
		models: make(map[string]domain.ModelInfo),
	}
}

// Register inserts or overwrites the record for info.ID and returns the
// stored record. Overwriting an existing ID is not an error.
func (r *ModelRegistry) Register(info domain.ModelInfo) domain.ModelInfo {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.models[info.ID]; exists {
		slog.Warn("Model already registered, overwriting", "model_id", info.ID)
	}
	r.models[info.ID] = info
	slog.Info("Model registered", "model_id", info.ID, "type", info.Type, "status", info.Status)
	return info
}

// Get returns the record for the given ID, if present.
func (r *ModelRegistry) Get(id string) (domain.ModelInfo, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	info, ok := r.models[id]
	return info, ok
}

// List returns all registered models in unspecified order.
func (r *ModelRegistry) List() []domain.ModelInfo {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]domain.ModelInfo, 0, len(r.models))
	for _, info := range r.models {
		out = append(out, info)
	}
	return out
}
