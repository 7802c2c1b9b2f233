// Package memory holds the in-process session store. Widget sessions are
// page-scoped and disposable, so they live in an expiring LRU rather than in
// Postgres; losing them on restart only resets open chat widgets.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/golang-lru/v2/expirable"
	"go.uber.org/zap"

	"aldercrest-web/internal/models"
	"aldercrest-web/internal/store"
)

// entry wraps a live session with its own lock so Update calls on one
// session serialize without blocking other sessions.
type entry struct {
	mu      sync.Mutex
	session *models.ChatContext
}

// SessionStore is an in-memory store.SessionStore backed by an expirable
// LRU: capacity bounds total live sessions, TTL reaps abandoned ones. The
// TTL is refreshed on every successful Update, so an active conversation
// never expires mid-chat.
type SessionStore struct {
	sessions *expirable.LRU[uuid.UUID, *entry]
	log      *zap.Logger
}

var _ store.SessionStore = (*SessionStore)(nil)

// NewSessionStore creates a session store bounded by capacity and ttl.
func NewSessionStore(capacity int, ttl time.Duration, log *zap.Logger) *SessionStore {
	s := &SessionStore{log: log}
	s.sessions = expirable.NewLRU[uuid.UUID, *entry](capacity, func(id uuid.UUID, _ *entry) {
		log.Debug("widget session evicted", zap.String("session_id", id.String()))
	}, ttl)
	return s
}

// Create inserts the session and returns a snapshot.
func (s *SessionStore) Create(_ context.Context, session *models.ChatContext) (*models.ChatContext, error) {
	now := time.Now().UTC()
	sess := session.Clone()
	if sess.ID == uuid.Nil {
		sess.ID = uuid.New()
	}
	if sess.State == "" {
		sess.State = models.StateIdle
	}
	sess.CreatedAt = now
	sess.UpdatedAt = now

	s.sessions.Add(sess.ID, &entry{session: sess})
	s.log.Debug("widget session created",
		zap.String("session_id", sess.ID.String()),
		zap.Int("live_sessions", s.sessions.Len()),
	)
	return sess.Clone(), nil
}

// Get returns a snapshot of the session, or store.ErrNotFound.
func (s *SessionStore) Get(_ context.Context, id uuid.UUID) (*models.ChatContext, error) {
	e, ok := s.sessions.Get(id)
	if !ok {
		return nil, store.ErrNotFound
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.session.Clone(), nil
}

// Update applies fn to a working copy of the session under the entry lock
// and commits it only if fn succeeds and the history is still an extension
// of what was committed before. The live value is swapped atomically, so an
// fn that errors leaves no trace.
func (s *SessionStore) Update(_ context.Context, id uuid.UUID, fn func(*models.ChatContext) error) (*models.ChatContext, error) {
	e, ok := s.sessions.Get(id)
	if !ok {
		return nil, store.ErrNotFound
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	working := e.session.Clone()
	if err := fn(working); err != nil {
		return nil, err
	}
	if !models.HistoryExtends(e.session.MessageHistory, working.MessageHistory) {
		return nil, store.ErrHistoryRewrite
	}
	working.UpdatedAt = time.Now().UTC()
	e.session = working

	// Re-add to push the entry to the front and restart its TTL.
	s.sessions.Add(id, e)
	return working.Clone(), nil
}

// Delete removes the session. Deleting an absent session is a no-op.
func (s *SessionStore) Delete(_ context.Context, id uuid.UUID) error {
	s.sessions.Remove(id)
	return nil
}
