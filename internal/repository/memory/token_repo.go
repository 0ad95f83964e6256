package memory

import (
	"context"
	"sync"
	"time"

	"github.com/avolkov/authd/internal/errs"
	"github.com/avolkov/authd/internal/model"
	"github.com/gofrs/uuid/v5"
)

// TokenRepo implements ResetTokenRepository on a mutex-guarded map.
// Multiple outstanding tokens per user are permitted.
type TokenRepo struct {
	mu     sync.RWMutex
	tokens map[uuid.UUID]*model.ResetToken
}

// NewTokenRepo constructs an empty in-memory reset-token repository.
func NewTokenRepo() *TokenRepo {
	return &TokenRepo{tokens: make(map[uuid.UUID]*model.ResetToken)}
}

// Create inserts a new reset token.
func (r *TokenRepo) Create(_ context.Context, t *model.ResetToken) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.tokens[t.ID]; ok {
		return errs.ErrAlreadyExists
	}
	cpy := *t
	r.tokens[t.ID] = &cpy
	return nil
}

// Get loads a token by ID, expired or not.
func (r *TokenRepo) Get(_ context.Context, id uuid.UUID) (*model.ResetToken, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.tokens[id]
	if !ok {
		return nil, errs.ErrNotFound
	}
	cpy := *t
	return &cpy, nil
}

// Delete removes a token; absent tokens are ignored.
func (r *TokenRepo) Delete(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.tokens, id)
	return nil
}

// CleanExpired removes every token whose expiry has passed relative to now.
func (r *TokenRepo) CleanExpired(_ context.Context, now time.Time) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	removed := 0
	for id, t := range r.tokens {
		if !t.ValidAt(now) {
			delete(r.tokens, id)
			removed++
		}
	}
	return removed, nil
}
