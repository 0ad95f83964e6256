package repository

import (
	"context"
	"time"

	"github.com/avolkov/authd/internal/model"
	"github.com/gofrs/uuid/v5"
)

// SessionRepository provides access to active login sessions.
type SessionRepository interface {
	// Create inserts a new session.
	Create(ctx context.Context, s *model.Session) error
	// GetByID loads a session by ID, expired or not.
	GetByID(ctx context.Context, id uuid.UUID) (*model.Session, error)
	// Delete removes a session. Deleting an absent session is not an error.
	Delete(ctx context.Context, id uuid.UUID) error
	// Validate reports whether a session with the given ID exists and has
	// not expired at now. Absence and expiry are indistinguishable.
	Validate(ctx context.Context, id uuid.UUID, now time.Time) (bool, error)
	// Refresh sets the session expiry to now+extension, regardless of the
	// session's prior validity. Returns errs.ErrNotFound if absent.
	Refresh(ctx context.Context, id uuid.UUID, now time.Time, extension time.Duration) error
	// CleanExpired removes every session whose expiry is at or before now
	// and returns the number removed.
	CleanExpired(ctx context.Context, now time.Time) (int, error)
}
