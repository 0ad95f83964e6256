// Package repository defines storage interfaces implemented by concrete backends.
//
// Stores are dumb containers: they hold entities and answer exact-match
// lookups. Uniqueness and all other business policy belongs to the identity
// service. Implementations must be safe for concurrent use.
package repository

import (
	"context"

	"github.com/avolkov/authd/internal/model"
	"github.com/gofrs/uuid/v5"
)

// UserRepository provides access to registered users.
type UserRepository interface {
	// Create inserts a new user.
	Create(ctx context.Context, u *model.User) error
	// GetByID loads a user by ID.
	GetByID(ctx context.Context, id uuid.UUID) (*model.User, error)
	// GetByUsername loads a user by exact username (no case normalization).
	GetByUsername(ctx context.Context, username string) (*model.User, error)
	// GetByEmail loads a user by exact email.
	GetByEmail(ctx context.Context, email string) (*model.User, error)
	// UpdatePassword replaces the stored password hash for the given user.
	// Returns errs.ErrNotFound if the user does not exist.
	UpdatePassword(ctx context.Context, id uuid.UUID, newHash string) error
}
