package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/modelcontext/hub/internal/domain"
	_ "modernc.org/sqlite"
)

// SQLiteStore implements Repository using SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite creates a new SQLite-backed repository.
func NewSQLite(dbPath string) (Repository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create database directory: %w", err)
	}

	// Open database with WAL mode for better concurrency.
	dsn := dbPath + "?_journal=WAL&_sync=NORMAL&_busy_timeout=5000"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}

	store := &SQLiteStore{db: db}
	if err := store.initSchema(); err != nil {
		return nil, fmt.Errorf("initialize schema: %w", err)
	}

	return store, nil
}

func (s *SQLiteStore) initSchema() error {
	query := `
	PRAGMA busy_timeout = 5000;
	CREATE TABLE IF NOT EXISTS sessions (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		session_id TEXT NOT NULL UNIQUE,
		context_data TEXT NOT NULL DEFAULT '{}',
		metadata TEXT NOT NULL DEFAULT '{}',
		created_at INTEGER NOT NULL,
		updated_at INTEGER NOT NULL
	);
	CREATE UNIQUE INDEX IF NOT EXISTS idx_sessions_session_id ON sessions(session_id);

	CREATE TABLE IF NOT EXISTS users (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		email TEXT NOT NULL UNIQUE,
		name TEXT NOT NULL,
		hashed_password TEXT NOT NULL,
		is_active INTEGER NOT NULL DEFAULT 1,
		role TEXT NOT NULL DEFAULT 'user',
		created_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_users_email ON users(email);

	CREATE TABLE IF NOT EXISTS products (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL,
		description TEXT NOT NULL,
		price REAL NOT NULL,
		category TEXT NOT NULL,
		in_stock INTEGER NOT NULL DEFAULT 0,
		images TEXT NOT NULL DEFAULT '[]',
		created_by_id INTEGER,
		created_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_products_category ON products(category);

	CREATE TABLE IF NOT EXISTS orders (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		customer_id INTEGER NOT NULL,
		product_id INTEGER NOT NULL,
		quantity INTEGER NOT NULL,
		total REAL NOT NULL,
		status TEXT NOT NULL DEFAULT 'pending',
		created_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_orders_customer ON orders(customer_id);
	`
	if _, err := s.db.Exec(query); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

// Ping verifies database connectivity.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("close database: %w", err)
	}
	return nil
}

// GetSession retrieves the persisted row for a session ID.
func (s *SQLiteStore) GetSession(ctx context.Context, sessionID string) (*domain.SessionRecord, error) {
	query := `
		SELECT id, session_id, context_data, metadata, created_at, updated_at
		FROM sessions WHERE session_id = ?`

	row := s.db.QueryRowContext(ctx, query, sessionID)

	var rec domain.SessionRecord
	var createdAt, updatedAt int64

	err := row.Scan(&rec.ID, &rec.SessionID, &rec.ContextData, &rec.Metadata, &createdAt, &updatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan session row: %w", err)
	}

	rec.CreatedAt = time.Unix(createdAt, 0)
	rec.UpdatedAt = time.Unix(updatedAt, 0)

	return &rec, nil
}

// InsertSession creates a new session row.
func (s *SQLiteStore) InsertSession(ctx context.Context, rec *domain.SessionRecord) error {
	query := `
		INSERT INTO sessions (session_id, context_data, metadata, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)`

	result, err := s.db.ExecContext(ctx, query,
		rec.SessionID, rec.ContextData, rec.Metadata,
		rec.CreatedAt.Unix(), rec.UpdatedAt.Unix(),
	)
	if isSQLiteUniqueError(err) {
		return fmt.Errorf("insert session %s: %w", rec.SessionID, ErrDuplicate)
	}
	if err != nil {
		return fmt.Errorf("insert session: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("session insert id: %w", err)
	}
	rec.ID = id
	return nil
}

// ReplaceSession overwrites the serialized documents of an existing session.
// The whole row is rewritten in one UPDATE so the context, metadata, and
// updated_at columns can never tear. Retries on transient SQLite lock errors.
func (s *SQLiteStore) ReplaceSession(ctx context.Context, sessionID, contextData, metadata string, updatedAt time.Time) error {
	const maxRetries = 3
	baseDelay := 50 * time.Millisecond

	var lastErr error
	for i := 0; i < maxRetries; i++ {
		lastErr = s.replaceSessionOnce(ctx, sessionID, contextData, metadata, updatedAt)
		if lastErr == nil || lastErr == ErrNotFound {
			return lastErr
		}
		if isSQLiteConflictError(lastErr) && i < maxRetries-1 {
			delay := baseDelay * time.Duration(1<<i)
			slog.Debug("Session replace hit SQLITE_BUSY, retrying",
				"session_id", sessionID, "attempt", i+1, "delay", delay)
			time.Sleep(delay)
			continue
		}
		return lastErr
	}
	return fmt.Errorf("replace session %s after %d attempts: %w", sessionID, maxRetries, lastErr)
}

func (s *SQLiteStore) replaceSessionOnce(ctx context.Context, sessionID, contextData, metadata string, updatedAt time.Time) error {
	query := `UPDATE sessions SET context_data = ?, metadata = ?, updated_at = ? WHERE session_id = ?`
	result, err := s.db.ExecContext(ctx, query, contextData, metadata, updatedAt.Unix(), sessionID)
	if err != nil {
		return fmt.Errorf("replace session: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("get rows affected: %w", err)
	}
	if rows == 0 {
		return ErrNotFound
	}
	return nil
}

// GetUserByEmail retrieves a user by email.
func (s *SQLiteStore) GetUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	return s.scanUser(s.db.QueryRowContext(ctx, `
		SELECT id, email, name, hashed_password, is_active, role, created_at
		FROM users WHERE email = ?`, email))
}

// GetUserByID retrieves a user by ID.
func (s *SQLiteStore) GetUserByID(ctx context.Context, id int64) (*domain.User, error) {
	return s.scanUser(s.db.QueryRowContext(ctx, `
		SELECT id, email, name, hashed_password, is_active, role, created_at
		FROM users WHERE id = ?`, id))
}

func (s *SQLiteStore) scanUser(row *sql.Row) (*domain.User, error) {
	var user domain.User
	var isActive int
	var createdAt int64

	err := row.Scan(&user.ID, &user.Email, &user.Name, &user.HashedPassword, &isActive, &user.Role, &createdAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan user row: %w", err)
	}

	user.IsActive = isActive != 0
	user.CreatedAt = time.Unix(createdAt, 0)
	return &user, nil
}

// CreateUser inserts a user record.
func (s *SQLiteStore) CreateUser(ctx context.Context, user *domain.User) error {
	query := `
		INSERT INTO users (email, name, hashed_password, is_active, role, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`

	isActive := 0
	if user.IsActive {
		isActive = 1
	}

	result, err := s.db.ExecContext(ctx, query,
		user.Email, user.Name, user.HashedPassword, isActive, user.Role, user.CreatedAt.Unix())
	if err != nil {
		return fmt.Errorf("insert user: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("user insert id: %w", err)
	}
	user.ID = id
	return nil
}

// CreateProduct inserts a product record.
func (s *SQLiteStore) CreateProduct(ctx context.Context, p *domain.Product) error {
	images, err := json.Marshal(p.Images)
	if err != nil {
		return fmt.Errorf("marshal product images: %w", err)
	}

	var createdBy interface{}
	if p.CreatedByID != 0 {
		createdBy = p.CreatedByID
	}

	query := `
		INSERT INTO products (name, description, price, category, in_stock, images, created_by_id, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`

	result, err := s.db.ExecContext(ctx, query,
		p.Name, p.Description, p.Price, p.Category, p.InStock, string(images), createdBy, p.CreatedAt.Unix())
	if err != nil {
		return fmt.Errorf("insert product: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("product insert id: %w", err)
	}
	p.ID = id
	return nil
}

// GetProduct retrieves a product by ID.
func (s *SQLiteStore) GetProduct(ctx context.Context, id int64) (*domain.Product, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, name, description, price, category, in_stock, images, created_by_id, created_at
		FROM products WHERE id = ?`, id)

	p, err := scanProduct(row.Scan)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return p, err
}

// ListProducts returns products ordered by creation time, newest first.
func (s *SQLiteStore) ListProducts(ctx context.Context, limit, offset int) ([]*domain.Product, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, description, price, category, in_stock, images, created_by_id, created_at
		FROM products ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?`, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("query products: %w", err)
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			slog.Warn("failed to close product rows", "error", closeErr)
		}
	}()

	var products []*domain.Product
	for rows.Next() {
		p, err := scanProduct(rows.Scan)
		if err != nil {
			return nil, err
		}
		products = append(products, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate products: %w", err)
	}
	return products, nil
}

func scanProduct(scan func(dest ...interface{}) error) (*domain.Product, error) {
	var p domain.Product
	var images string
	var createdBy sql.NullInt64
	var createdAt int64

	err := scan(&p.ID, &p.Name, &p.Description, &p.Price, &p.Category, &p.InStock, &images, &createdBy, &createdAt)
	if err == sql.ErrNoRows {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("scan product row: %w", err)
	}

	if err := json.Unmarshal([]byte(images), &p.Images); err != nil {
		return nil, fmt.Errorf("unmarshal product images: %w", err)
	}
	if p.Images == nil {
		p.Images = []string{}
	}
	p.CreatedByID = createdBy.Int64
	p.CreatedAt = time.Unix(createdAt, 0)
	return &p, nil
}

// UpdateProduct overwrites a product row.
func (s *SQLiteStore) UpdateProduct(ctx context.Context, p *domain.Product) error {
	images, err := json.Marshal(p.Images)
	if err != nil {
		return fmt.Errorf("marshal product images: %w", err)
	}

	query := `
		UPDATE products SET name = ?, description = ?, price = ?, category = ?, in_stock = ?, images = ?
		WHERE id = ?`
	result, err := s.db.ExecContext(ctx, query,
		p.Name, p.Description, p.Price, p.Category, p.InStock, string(images), p.ID)
	if err != nil {
		return fmt.Errorf("update product: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("get rows affected: %w", err)
	}
	if rows == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteProduct removes a product row.
func (s *SQLiteStore) DeleteProduct(ctx context.Context, id int64) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM products WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete product: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("get rows affected: %w", err)
	}
	if rows == 0 {
		return ErrNotFound
	}
	return nil
}

// CreateOrder inserts an order record.
func (s *SQLiteStore) CreateOrder(ctx context.Context, o *domain.Order) error {
	query := `
		INSERT INTO orders (customer_id, product_id, quantity, total, status, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`

	result, err := s.db.ExecContext(ctx, query,
		o.CustomerID, o.ProductID, o.Quantity, o.Total, string(o.Status), o.CreatedAt.Unix())
	if err != nil {
		return fmt.Errorf("insert order: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("order insert id: %w", err)
	}
	o.ID = id
	return nil
}

// GetOrder retrieves an order by ID.
func (s *SQLiteStore) GetOrder(ctx context.Context, id int64) (*domain.Order, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, customer_id, product_id, quantity, total, status, created_at
		FROM orders WHERE id = ?`, id)

	var o domain.Order
	var status string
	var createdAt int64

	err := row.Scan(&o.ID, &o.CustomerID, &o.ProductID, &o.Quantity, &o.Total, &status, &createdAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan order row: %w", err)
	}

	o.Status = domain.OrderStatus(status)
	o.CreatedAt = time.Unix(createdAt, 0)
	return &o, nil
}

// ListOrdersByCustomer returns a customer's orders, newest first.
func (s *SQLiteStore) ListOrdersByCustomer(ctx context.Context, customerID int64) ([]*domain.Order, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, customer_id, product_id, quantity, total, status, created_at
		FROM orders WHERE customer_id = ? ORDER BY created_at DESC, id DESC`, customerID)
	if err != nil {
		return nil, fmt.Errorf("query orders: %w", err)
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			slog.Warn("failed to close order rows", "error", closeErr)
		}
	}()

	var orders []*domain.Order
	for rows.Next() {
		var o domain.Order
		var status string
		var createdAt int64

		if err := rows.Scan(&o.ID, &o.CustomerID, &o.ProductID, &o.Quantity, &o.Total, &status, &createdAt); err != nil {
			return nil, fmt.Errorf("scan order row: %w", err)
		}
		o.Status = domain.OrderStatus(status)
		o.CreatedAt = time.Unix(createdAt, 0)
		orders = append(orders, &o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate orders: %w", err)
	}
	return orders, nil
}
