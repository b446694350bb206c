// Package store provides data persistence interfaces and implementations.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/modelcontext/hub/internal/domain"
)

// ErrNotFound is returned by mutations that target a missing row.
var ErrNotFound = errors.New("row not found")

// ErrDuplicate is returned by inserts that violate a uniqueness constraint.
var ErrDuplicate = errors.New("row already exists")

// Repository defines the interface for persisting sessions and the CRUD
// entities (users, products, orders).
type Repository interface {
	// GetSession retrieves the persisted row for a session ID.
	// Returns (nil, nil) when the session does not exist.
	GetSession(ctx context.Context, sessionID string) (*domain.SessionRecord, error)

	// InsertSession creates a new session row and fills in its surrogate ID.
	InsertSession(ctx context.Context, rec *domain.SessionRecord) error

	// ReplaceSession overwrites the serialized context and metadata of an
	// existing session in a single atomic row update, advancing updated_at.
	// Returns ErrNotFound if the session row does not exist.
	ReplaceSession(ctx context.Context, sessionID, contextData, metadata string, updatedAt time.Time) error

	// GetUserByEmail retrieves a user by email. Returns (nil, nil) if absent.
	GetUserByEmail(ctx context.Context, email string) (*domain.User, error)

	// GetUserByID retrieves a user by ID. Returns (nil, nil) if absent.
	GetUserByID(ctx context.Context, id int64) (*domain.User, error)

	// CreateUser inserts a user and fills in its generated ID.
	CreateUser(ctx context.Context, user *domain.User) error

	// CreateProduct inserts a product and fills in its generated ID.
	CreateProduct(ctx context.Context, p *domain.Product) error

	// GetProduct retrieves a product by ID. Returns (nil, nil) if absent.
	GetProduct(ctx context.Context, id int64) (*domain.Product, error)

	// ListProducts returns products ordered by creation time, newest first.
	ListProducts(ctx context.Context, limit, offset int) ([]*domain.Product, error)

	// UpdateProduct overwrites a product row. Returns ErrNotFound if absent.
	UpdateProduct(ctx context.Context, p *domain.Product) error

	// DeleteProduct removes a product row. Returns ErrNotFound if absent.
	DeleteProduct(ctx context.Context, id int64) error

	// CreateOrder inserts an order and fills in its generated ID.
	CreateOrder(ctx context.Context, o *domain.Order) error

	// GetOrder retrieves an order by ID. Returns (nil, nil) if absent.
	GetOrder(ctx context.Context, id int64) (*domain.Order, error)

	// ListOrdersByCustomer returns a customer's orders, newest first.
	ListOrdersByCustomer(ctx context.Context, customerID int64) ([]*domain.Order, error)

	// Ping verifies database connectivity.
	Ping(ctx context.Context) error

	// Close closes the database connection.
	Close() error
}
