// Package domain contains core domain types for the model-context hub.
package domain

import (
	"encoding/json"
	"fmt"
	"sort"
	"time"
)

// Message is a single entry in a session's conversational context.
// Messages are immutable once appended.
type Message struct {
	ID        string                     `json:"id"`
	ModelID   string                     `json:"model_id"`
	Content   json.RawMessage            `json:"content"`
	Timestamp time.Time                  `json:"timestamp"`
	Metadata  map[string]json.RawMessage `json:"metadata"`
}

// Validate checks that the message carries every required field.
func (m *Message) Validate() error {
	if m.ID == "" {
		return fmt.Errorf("message missing id")
	}
	if m.ModelID == "" {
		return fmt.Errorf("message missing model_id")
	}
	if len(m.Content) == 0 {
		return fmt.Errorf("message missing content")
	}
	return nil
}

// Normalize fills defaults for optional fields.
func (m *Message) Normalize() {
	if m.Timestamp.IsZero() {
		m.Timestamp = time.Now()
	}
	if m.Metadata == nil {
		m.Metadata = map[string]json.RawMessage{}
	}
}

// SortMessagesByTimestamp orders messages oldest-first. The sort is stable
// so messages sharing a timestamp keep their original relative order.
func SortMessagesByTimestamp(msgs []Message) {
	sort.SliceStable(msgs, func(i, j int) bool {
		return msgs[i].Timestamp.Before(msgs[j].Timestamp)
	})
}
