// Package session orchestrates read-modify-write cycles against the session
// store: create, fetch, partial context/metadata updates, message append, and
// paginated message listing.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/modelcontext/hub/internal/domain"
	"github.com/modelcontext/hub/internal/store"
)

var (
	// ErrNotFound means the session does not exist. Malformed persisted
	// state is also surfaced as ErrNotFound after being logged; the row
	// still exists, so this is a deliberate conflation, not data loss.
	ErrNotFound = errors.New("session not found")

	// ErrValidation means a caller-supplied patch could not be parsed into
	// the target shape. Nothing is persisted when it is returned.
	ErrValidation = errors.New("invalid patch")
)

// ContextPatch is a partial update to a session's context. Messages are
// appended, shared memory is merged key by key, and models are unioned into
// the active set.
type ContextPatch struct {
	Messages     []domain.Message           `json:"messages"`
	SharedMemory map[string]json.RawMessage `json:"shared_memory"`
	Models       []string                   `json:"models"`
}

// Service implements session and context operations on top of the store.
// Every mutation loads the full row, applies one bounded change, and writes
// the full row back. There is no version column, so concurrent writers on
// the same session can lose a merge; the row itself never tears because the
// replace is a single UPDATE.
type Service struct {
	repo store.Repository
}

// NewService creates a session service.
func NewService(repo store.Repository) *Service {
	return &Service{repo: repo}
}

// Create creates a session, or returns the existing one unchanged when the
// session_id is already taken. Duplicate create is idempotent, not an error;
// the boolean reports whether a new row was written.
func (s *Service) Create(ctx context.Context, sessionID string, initialContext *domain.Context, initialMetadata map[string]json.RawMessage) (*domain.SessionDocument, bool, error) {
	rec, err := s.repo.GetSession(ctx, sessionID)
	if err != nil {
		return nil, false, fmt.Errorf("load session: %w", err)
	}
	if rec != nil {
		doc, err := s.materialize(rec)
		return doc, false, err
	}

	contextObj := initialContext
	if contextObj == nil {
		contextObj = domain.NewContext(sessionID)
	} else {
		for i := range contextObj.Messages {
			if err := contextObj.Messages[i].Validate(); err != nil {
				return nil, false, fmt.Errorf("%w: initial_context messages[%d]: %v", ErrValidation, i, err)
			}
		}
		// A caller-supplied context must belong to the session being created.
		contextObj.Normalize(sessionID)
		for i := range contextObj.Messages {
			contextObj.Messages[i].Normalize()
		}
	}

	metadata := initialMetadata
	if metadata == nil {
		metadata = map[string]json.RawMessage{}
	}

	contextData, metadataData, err := serialize(contextObj, metadata)
	if err != nil {
		return nil, false, err
	}

	now := time.Now()
	newRec := &domain.SessionRecord{
		SessionID:   sessionID,
		ContextData: contextData,
		Metadata:    metadataData,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.repo.InsertSession(ctx, newRec); err != nil {
		// A concurrent create can win between the existence check and the
		// insert; the loser returns the winner's row via the idempotent path.
		if errors.Is(err, store.ErrDuplicate) {
			existing, loadErr := s.repo.GetSession(ctx, sessionID)
			if loadErr != nil {
				return nil, false, fmt.Errorf("load session after duplicate insert: %w", loadErr)
			}
			if existing != nil {
				doc, mErr := s.materialize(existing)
				return doc, false, mErr
			}
		}
		return nil, false, fmt.Errorf("insert session: %w", err)
	}

	slog.Info("Session created", "session_id", sessionID)
	return &domain.SessionDocument{
		SessionID: sessionID,
		CreatedAt: newRec.CreatedAt,
		UpdatedAt: newRec.UpdatedAt,
		Context:   contextObj,
		Metadata:  metadata,
	}, true, nil
}

// Get loads a session and its deserialized context and metadata.
func (s *Service) Get(ctx context.Context, sessionID string) (*domain.SessionDocument, error) {
	rec, err := s.repo.GetSession(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}
	if rec == nil {
		return nil, ErrNotFound
	}
	return s.materialize(rec)
}

// UpdateContext applies a partial update to a session's context. The whole
// patch is validated before anything is applied: a malformed message entry
// aborts the operation with the persisted state unchanged.
func (s *Service) UpdateContext(ctx context.Context, sessionID string, patch ContextPatch) (*domain.SessionDocument, error) {
	for i := range patch.Messages {
		if err := patch.Messages[i].Validate(); err != nil {
			return nil, fmt.Errorf("%w: messages[%d]: %v", ErrValidation, i, err)
		}
	}

	rec, contextObj, metadata, err := s.load(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	for i := range patch.Messages {
		msg := patch.Messages[i]
		msg.Normalize()
		contextObj.Append(msg)
	}
	if patch.SharedMemory != nil {
		contextObj.MergeSharedMemory(patch.SharedMemory)
	}
	if patch.Models != nil {
		contextObj.AddModels(patch.Models)
	}

	return s.save(ctx, rec, contextObj, metadata)
}

// UpdateMetadata shallow-merges the patch into the session's metadata,
// overwriting on key collision.
func (s *Service) UpdateMetadata(ctx context.Context, sessionID string, patch map[string]json.RawMessage) (*domain.SessionDocument, error) {
	rec, contextObj, metadata, err := s.load(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	for k, v := range patch {
		metadata[k] = v
	}

	return s.save(ctx, rec, contextObj, metadata)
}

// PostMessage appends a message to the session's context and persists it.
// A missing message ID is generated. The full updated document is returned:
// callers always see the whole session state after any mutation.
func (s *Service) PostMessage(ctx context.Context, sessionID string, msg domain.Message) (*domain.SessionDocument, error) {
	if msg.ID == "" {
		msg.ID = uuid.NewString()
	}
	if err := msg.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidation, err)
	}
	msg.Normalize()

	rec, contextObj, metadata, err := s.load(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	contextObj.Append(msg)

	doc, err := s.save(ctx, rec, contextObj, metadata)
	if err != nil {
		return nil, err
	}
	slog.Debug("Message appended", "session_id", sessionID, "message_id", msg.ID, "model_id", msg.ModelID)
	return doc, nil
}

// ListMessages returns the session's messages ordered by timestamp ascending,
// sliced by offset and limit. A missing session returns ErrNotFound; an
// existing session with no messages returns an empty slice. Out-of-range
// offsets and non-positive limits also return an empty slice, never an error.
func (s *Service) ListMessages(ctx context.Context, sessionID string, limit, offset int) ([]domain.Message, error) {
	doc, err := s.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	sorted := doc.Context.SortedMessages()
	if limit <= 0 || offset < 0 || offset >= len(sorted) {
		return []domain.Message{}, nil
	}
	end := offset + limit
	if end > len(sorted) {
		end = len(sorted)
	}
	return sorted[offset:end], nil
}

// load fetches and deserializes the session row for a mutation.
func (s *Service) load(ctx context.Context, sessionID string) (*domain.SessionRecord, *domain.Context, map[string]json.RawMessage, error) {
	rec, err := s.repo.GetSession(ctx, sessionID)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("load session: %w", err)
	}
	if rec == nil {
		return nil, nil, nil, ErrNotFound
	}

	contextObj, metadata, err := deserialize(rec)
	if err != nil {
		return nil, nil, nil, err
	}
	return rec, contextObj, metadata, nil
}

// save reserializes both documents and rewrites the whole row.
func (s *Service) save(ctx context.Context, rec *domain.SessionRecord, contextObj *domain.Context, metadata map[string]json.RawMessage) (*domain.SessionDocument, error) {
	contextData, metadataData, err := serialize(contextObj, metadata)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	if err := s.repo.ReplaceSession(ctx, rec.SessionID, contextData, metadataData, now); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("persist session: %w", err)
	}

	return &domain.SessionDocument{
		SessionID: rec.SessionID,
		CreatedAt: rec.CreatedAt,
		UpdatedAt: now,
		Context:   contextObj,
		Metadata:  metadata,
	}, nil
}

// materialize deserializes a loaded row into the caller-facing document.
func (s *Service) materialize(rec *domain.SessionRecord) (*domain.SessionDocument, error) {
	contextObj, metadata, err := deserialize(rec)
	if err != nil {
		return nil, err
	}
	return &domain.SessionDocument{
		SessionID: rec.SessionID,
		CreatedAt: rec.CreatedAt,
		UpdatedAt: rec.UpdatedAt,
		Context:   contextObj,
		Metadata:  metadata,
	}, nil
}

func serialize(contextObj *domain.Context, metadata map[string]json.RawMessage) (string, string, error) {
	contextData, err := json.Marshal(contextObj)
	if err != nil {
		return "", "", fmt.Errorf("serialize context: %w", err)
	}
	metadataData, err := json.Marshal(metadata)
	if err != nil {
		return "", "", fmt.Errorf("serialize metadata: %w", err)
	}
	return string(contextData), string(metadataData), nil
}

// deserialize parses the stored documents. A row that no longer parses is
// logged distinctly and reported as ErrNotFound to the caller.
func deserialize(rec *domain.SessionRecord) (*domain.Context, map[string]json.RawMessage, error) {
	var contextObj domain.Context
	if err := json.Unmarshal([]byte(rec.ContextData), &contextObj); err != nil {
		slog.Error("Malformed persisted context, treating session as not found",
			"session_id", rec.SessionID, "error", err)
		return nil, nil, ErrNotFound
	}
	contextObj.Normalize(rec.SessionID)

	var metadata map[string]json.RawMessage
	if err := json.Unmarshal([]byte(rec.Metadata), &metadata); err != nil {
		slog.Error("Malformed persisted metadata, treating session as not found",
			"session_id", rec.SessionID, "error", err)
		return nil, nil, ErrNotFound
	}
	if metadata == nil {
		metadata = map[string]json.RawMessage{}
	}

	return &contextObj, metadata, nil
}
