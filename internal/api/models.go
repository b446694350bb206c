package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/modelcontext/hub/internal/domain"
)

// RegisterModel registers a model endpoint, overwriting any existing record
// with the same ID.
func (h *Handler) RegisterModel(w http.ResponseWriter, r *http.Request) {
	var info domain.ModelInfo
	if err := json.NewDecoder(r.Body).Decode(&info); err != nil {
		Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := info.Validate(); err != nil {
		Error(w, http.StatusBadRequest, err.Error())
		return
	}

	stored := h.reg.Register(info)
	JSON(w, http.StatusCreated, stored)
}

// GetModel returns a registered model by ID.
func (h *Handler) GetModel(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "model_id")

	info, ok := h.reg.Get(id)
	if !ok {
		Error(w, http.StatusNotFound, "model not found")
		return
	}
	JSON(w, http.StatusOK, info)
}

// ListModels returns all registered models.
func (h *Handler) ListModels(w http.ResponseWriter, r *http.Request) {
	JSON(w, http.StatusOK, h.reg.List())
}
