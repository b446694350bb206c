package domain

import (
	"encoding/json"
	"time"
)

// SessionRecord is the persisted shape of a session: one row holding the
// serialized context and metadata documents. The store owns this row; the
// service deserializes it transiently per operation.
type SessionRecord struct {
	ID          int64
	SessionID   string
	ContextData string
	Metadata    string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// SessionDocument is the fully materialized view of a session returned to
// callers after every read or mutation.
type SessionDocument struct {
	SessionID string                     `json:"session_id"`
	CreatedAt time.Time                  `json:"created_at"`
	UpdatedAt time.Time                  `json:"updated_at"`
	Context   *Context                   `json:"context"`
	Metadata  map[string]json.RawMessage `json:"metadata"`
}
