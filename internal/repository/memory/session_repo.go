package memory

import (
	"context"
	"sync"
	"time"

	"github.com/avolkov/authd/internal/errs"
	"github.com/avolkov/authd/internal/model"
	"github.com/gofrs/uuid/v5"
)

// SessionRepo implements SessionRepository on a mutex-guarded map.
type SessionRepo struct {
	mu       sync.RWMutex
	sessions map[uuid.UUID]*model.Session
}

// NewSessionRepo constructs an empty in-memory session repository.
func NewSessionRepo() *SessionRepo {
	return &SessionRepo{sessions: make(map[uuid.UUID]*model.Session)}
}

// Create inserts a new session.
func (r *SessionRepo) Create(_ context.Context, s *model.Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.sessions[s.ID]; ok {
		return errs.ErrAlreadyExists
	}
	cpy := *s
	r.sessions[s.ID] = &cpy
	return nil
}

// GetByID loads a session by ID, expired or not.
func (r *SessionRepo) GetByID(_ context.Context, id uuid.UUID) (*model.Session, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sessions[id]
	if !ok {
		return nil, errs.ErrNotFound
	}
	cpy := *s
	return &cpy, nil
}

// Delete removes a session; absent sessions are ignored.
func (r *SessionRepo) Delete(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, id)
	return nil
}

// Validate reports whether the session exists and has not expired at now.
func (r *SessionRepo) Validate(_ context.Context, id uuid.UUID, now time.Time) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sessions[id]
	return ok && s.ValidAt(now), nil
}

// Refresh sets the expiry to now+extension even if the session had already
// expired. An expired-but-uncleaned session is therefore revived.
func (r *SessionRepo) Refresh(_ context.Context, id uuid.UUID, now time.Time, extension time.Duration) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[id]
	if !ok {
		return errs.ErrNotFound
	}
	s.ExpiresAt = now.Add(extension)
	return nil
}

// CleanExpired removes every session whose expiry has passed relative to now.
func (r *SessionRepo) CleanExpired(_ context.Context, now time.Time) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	removed := 0
	for id, s := range r.sessions {
		if !s.ValidAt(now) {
			delete(r.sessions, id)
			removed++
		}
	}
	return removed, nil
}
