package domain

import (
	"encoding/json"
)

// Context is the mutable conversational state of a session: its messages,
// shared key/value memory, and the set of model IDs active in the session.
type Context struct {
	SessionID    string                     `json:"session_id"`
	Messages     []Message                  `json:"messages"`
	SharedMemory map[string]json.RawMessage `json:"shared_memory"`
	Models       []string                   `json:"models"`
}

// NewContext returns an empty context owned by the given session.
func NewContext(sessionID string) *Context {
	return &Context{
		SessionID:    sessionID,
		Messages:     []Message{},
		SharedMemory: map[string]json.RawMessage{},
		Models:       []string{},
	}
}

// Normalize repairs nil collections after deserialization and re-aligns the
// context to its owning session. Persisted rows written by older clients may
// carry a diverging session_id; the owning session always wins.
func (c *Context) Normalize(sessionID string) {
	c.SessionID = sessionID
	if c.Messages == nil {
		c.Messages = []Message{}
	}
	if c.SharedMemory == nil {
		c.SharedMemory = map[string]json.RawMessage{}
	}
	if c.Models == nil {
		c.Models = []string{}
	}
}

// Append adds a message to the context.
func (c *Context) Append(msg Message) {
	c.Messages = append(c.Messages, msg)
}

// MergeSharedMemory merges the patch into shared memory key by key,
// overwriting on collision.
func (c *Context) MergeSharedMemory(patch map[string]json.RawMessage) {
	for k, v := range patch {
		c.SharedMemory[k] = v
	}
}

// AddModels unions the given model IDs into the active set. Models is
// semantically a set: duplicates never grow it. Existing order is preserved
// and new IDs are appended in input order.
func (c *Context) AddModels(ids []string) {
	seen := make(map[string]struct{}, len(c.Models)+len(ids))
	for _, id := range c.Models {
		seen[id] = struct{}{}
	}
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		c.Models = append(c.Models, id)
	}
}

// SortedMessages returns the messages ordered by timestamp ascending without
// mutating the context.
func (c *Context) SortedMessages() []Message {
	out := make([]Message, len(c.Messages))
	copy(out, c.Messages)
	SortMessagesByTimestamp(out)
	return out
}
