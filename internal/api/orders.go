package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/modelcontext/hub/internal/auth"
	"github.com/modelcontext/hub/internal/domain"
	"github.com/modelcontext/hub/internal/store"
)

// OrderHandler handles the order endpoints. All order routes require an
// authenticated user.
type OrderHandler struct {
	repo store.Repository
}

// NewOrderHandler creates an order handler.
func NewOrderHandler(repo store.Repository) *OrderHandler {
	return &OrderHandler{repo: repo}
}

// RegisterRoutes registers the order routes under /api/v1.
func (h *OrderHandler) RegisterRoutes(r chi.Router) {
	r.Route("/api/v1/orders", func(r chi.Router) {
		r.Get("/", h.List)
		r.Post("/", h.Create)
		r.Get("/{id}", h.Get)
	})
}

type createOrderRequest struct {
	ProductID int64 `json:"product_id"`
	Quantity  int   `json:"quantity"`
}

// Create places an order for the authenticated user. The total is computed
// server-side from the product's current price.
func (h *OrderHandler) Create(w http.ResponseWriter, r *http.Request) {
	user := auth.UserFromContext(r.Context())
	if user == nil {
		Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req createOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	order := domain.Order{
		CustomerID: user.ID,
		ProductID:  req.ProductID,
		Quantity:   req.Quantity,
	}
	if err := order.Validate(); err != nil {
		Error(w, http.StatusBadRequest, err.Error())
		return
	}

	product, err := h.repo.GetProduct(r.Context(), req.ProductID)
	if err != nil {
		slog.Error("Failed to load product for order", "error", err, "product_id", req.ProductID)
		Error(w, http.StatusInternalServerError, "internal error")
		return
	}
	if product == nil {
		Error(w, http.StatusNotFound, "product not found")
		return
	}
	if product.InStock < req.Quantity {
		Error(w, http.StatusBadRequest, "insufficient stock")
		return
	}

	order.Total = product.Price * float64(req.Quantity)
	order.CreatedAt = time.Now()
	if err := h.repo.CreateOrder(r.Context(), &order); err != nil {
		slog.Error("Failed to create order", "error", err, "user_id", user.ID)
		Error(w, http.StatusInternalServerError, "failed to create order")
		return
	}

	slog.Info("Order created", "order_id", order.ID, "user_id", user.ID, "product_id", order.ProductID)
	JSON(w, http.StatusCreated, order)
}

// List returns the authenticated user's orders, newest first.
func (h *OrderHandler) List(w http.ResponseWriter, r *http.Request) {
	user := auth.UserFromContext(r.Context())
	if user == nil {
		Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	orders, err := h.repo.ListOrdersByCustomer(r.Context(), user.ID)
	if err != nil {
		slog.Error("Failed to list orders", "error", err, "user_id", user.ID)
		Error(w, http.StatusInternalServerError, "failed to list orders")
		return
	}
	if orders == nil {
		orders = []*domain.Order{}
	}
	JSON(w, http.StatusOK, orders)
}

// Get returns one of the authenticated user's orders.
func (h *OrderHandler) Get(w http.ResponseWriter, r *http.Request) {
	user := auth.UserFromContext(r.Context())
	if user == nil {
		Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	id, err := pathID(r)
	if err != nil {
		Error(w, http.StatusBadRequest, "invalid order id")
		return
	}

	order, err := h.repo.GetOrder(r.Context(), id)
	if err != nil {
		slog.Error("Failed to get order", "error", err, "order_id", id)
		Error(w, http.StatusInternalServerError, "internal error")
		return
	}
	if order == nil || (order.CustomerID != user.ID && !user.IsAdmin()) {
		Error(w, http.StatusNotFound, "order not found")
		return
	}
	JSON(w, http.StatusOK, order)
}
