// Package memory contains in-memory implementations of repository interfaces.
// State lives for the process lifetime only; all stores are safe for
// concurrent use via a per-store RWMutex.
package memory

import (
	"context"
	"sync"

	"github.com/avolkov/authd/internal/errs"
	"github.com/avolkov/authd/internal/model"
	"github.com/gofrs/uuid/v5"
)

// UserRepo implements UserRepository with map-based indexes on id,
// username and email.
type UserRepo struct {
	mu         sync.RWMutex
	byID       map[uuid.UUID]*model.User
	byUsername map[string]uuid.UUID
	byEmail    map[string]uuid.UUID
}

// NewUserRepo constructs an empty in-memory user repository.
func NewUserRepo() *UserRepo {
	return &UserRepo{
		byID:       make(map[uuid.UUID]*model.User),
		byUsername: make(map[string]uuid.UUID),
		byEmail:    make(map[string]uuid.UUID),
	}
}

// Create inserts a new user. The service checks uniqueness before calling;
// the store still refuses to overwrite a taken key to keep indexes coherent.
func (r *UserRepo) Create(_ context.Context, u *model.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byID[u.ID]; ok {
		return errs.ErrAlreadyExists
	}
	if _, ok := r.byUsername[u.Username]; ok {
		return errs.ErrAlreadyExists
	}
	if _, ok := r.byEmail[u.Email]; ok {
		return errs.ErrAlreadyExists
	}
	cpy := *u
	r.byID[u.ID] = &cpy
	r.byUsername[u.Username] = u.ID
	r.byEmail[u.Email] = u.ID
	return nil
}

// GetByID loads a user by ID.
func (r *UserRepo) GetByID(_ context.Context, id uuid.UUID) (*model.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	u, ok := r.byID[id]
	if !ok {
		return nil, errs.ErrNotFound
	}
	cpy := *u
	return &cpy, nil
}

// GetByUsername loads a user by exact username.
func (r *UserRepo) GetByUsername(ctx context.Context, username string) (*model.User, error) {
	r.mu.RLock()
	id, ok := r.byUsername[username]
	r.mu.RUnlock()
	if !ok {
		return nil, errs.ErrNotFound
	}
	return r.GetByID(ctx, id)
}

// GetByEmail loads a user by exact email.
func (r *UserRepo) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	r.mu.RLock()
	id, ok := r.byEmail[email]
	r.mu.RUnlock()
	if !ok {
		return nil, errs.ErrNotFound
	}
	return r.GetByID(ctx, id)
}

// UpdatePassword replaces the stored password hash for the given user.
func (r *UserRepo) UpdatePassword(_ context.Context, id uuid.UUID, newHash string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.byID[id]
	if !ok {
		return errs.ErrNotFound
	}
	u.PasswordHash = newHash
	return nil
}
