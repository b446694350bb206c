package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/modelcontext/hub/internal/auth"
	"github.com/modelcontext/hub/internal/domain"
	"github.com/modelcontext/hub/internal/store"
)

// ProductHandler handles the product catalog endpoints.
type ProductHandler struct {
	repo store.Repository
}

// NewProductHandler creates a product handler.
func NewProductHandler(repo store.Repository) *ProductHandler {
	return &ProductHandler{repo: repo}
}

// RegisterRoutes registers the product routes under /api/v1.
func (h *ProductHandler) RegisterRoutes(r chi.Router) {
	r.Route("/api/v1/products", func(r chi.Router) {
		r.Get("/", h.List)
		r.Post("/", h.Create)
		r.Get("/{id}", h.Get)
		r.Put("/{id}", h.Update)
		r.Delete("/{id}", h.Delete)
	})
}

// Create adds a product to the catalog. Requires an authenticated user.
func (h *ProductHandler) Create(w http.ResponseWriter, r *http.Request) {
	user := auth.UserFromContext(r.Context())
	if user == nil {
		Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var p domain.Product
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := p.Validate(); err != nil {
		Error(w, http.StatusBadRequest, err.Error())
		return
	}

	p.ID = 0
	p.CreatedByID = user.ID
	p.CreatedAt = time.Now()
	if err := h.repo.CreateProduct(r.Context(), &p); err != nil {
		slog.Error("Failed to create product", "error", err)
		Error(w, http.StatusInternalServerError, "failed to create product")
		return
	}
	JSON(w, http.StatusCreated, p)
}

// List returns the catalog, newest first.
func (h *ProductHandler) List(w http.ResponseWriter, r *http.Request) {
	limit, ok := queryInt(r, "limit", 50)
	if !ok || limit <= 0 || limit > 200 {
		Error(w, http.StatusBadRequest, "invalid limit")
		return
	}
	offset, ok := queryInt(r, "offset", 0)
	if !ok || offset < 0 {
		Error(w, http.StatusBadRequest, "invalid offset")
		return
	}

	products, err := h.repo.ListProducts(r.Context(), limit, offset)
	if err != nil {
		slog.Error("Failed to list products", "error", err)
		Error(w, http.StatusInternalServerError, "failed to list products")
		return
	}
	if products == nil {
		products = []*domain.Product{}
	}
	JSON(w, http.StatusOK, products)
}

// Get returns a product by ID.
func (h *ProductHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		Error(w, http.StatusBadRequest, "invalid product id")
		return
	}

	p, err := h.repo.GetProduct(r.Context(), id)
	if err != nil {
		slog.Error("Failed to get product", "error", err, "product_id", id)
		Error(w, http.StatusInternalServerError, "internal error")
		return
	}
	if p == nil {
		Error(w, http.StatusNotFound, "product not found")
		return
	}
	JSON(w, http.StatusOK, p)
}

// Update overwrites a product. Requires an authenticated user.
func (h *ProductHandler) Update(w http.ResponseWriter, r *http.Request) {
	if auth.UserFromContext(r.Context()) == nil {
		Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	id, err := pathID(r)
	if err != nil {
		Error(w, http.StatusBadRequest, "invalid product id")
		return
	}

	existing, err := h.repo.GetProduct(r.Context(), id)
	if err != nil {
		slog.Error("Failed to get product", "error", err, "product_id", id)
		Error(w, http.StatusInternalServerError, "internal error")
		return
	}
	if existing == nil {
		Error(w, http.StatusNotFound, "product not found")
		return
	}

	var p domain.Product
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := p.Validate(); err != nil {
		Error(w, http.StatusBadRequest, err.Error())
		return
	}

	p.ID = id
	p.CreatedByID = existing.CreatedByID
	p.CreatedAt = existing.CreatedAt
	if err := h.repo.UpdateProduct(r.Context(), &p); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			Error(w, http.StatusNotFound, "product not found")
			return
		}
		slog.Error("Failed to update product", "error", err, "product_id", id)
		Error(w, http.StatusInternalServerError, "failed to update product")
		return
	}
	JSON(w, http.StatusOK, p)
}

// Delete removes a product. Requires an admin.
func (h *ProductHandler) Delete(w http.ResponseWriter, r *http.Request) {
	user := auth.UserFromContext(r.Context())
	if user == nil {
		Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	if !user.IsAdmin() {
		Error(w, http.StatusForbidden, "admin role required")
		return
	}

	id, err := pathID(r)
	if err != nil {
		Error(w, http.StatusBadRequest, "invalid product id")
		return
	}

	if err := h.repo.DeleteProduct(r.Context(), id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			Error(w, http.StatusNotFound, "product not found")
			return
		}
		slog.Error("Failed to delete product", "error", err, "product_id", id)
		Error(w, http.StatusInternalServerError, "failed to delete product")
		return
	}
	JSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

func pathID(r *http.Request) (int64, error) {
	return strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
}
