package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/avolkov/authd/internal/errs"
	"github.com/avolkov/authd/internal/model"
	"github.com/gofrs/uuid/v5"
)

// SessionRepo implements SessionRepository using PostgreSQL.
type SessionRepo struct{ db *DB }

// NewSessionRepo constructs a session repository.
func NewSessionRepo(db *DB) *SessionRepo { return &SessionRepo{db: db} }

// Create inserts a new session row.
func (r *SessionRepo) Create(ctx context.Context, s *model.Session) error {
	const q = `
INSERT INTO sessions (id, user_id, created_at, expires_at)
VALUES ($1, $2, $3, $4)`
	_, err := r.db.Pool.Exec(ctx, q, s.ID, s.UserID, s.CreatedAt, s.ExpiresAt)
	if isUniqueViolation(err) {
		return errs.ErrAlreadyExists
	}
	return err
}

// GetByID selects a session by ID, expired or not.
func (r *SessionRepo) GetByID(ctx context.Context, id uuid.UUID) (*model.Session, error) {
	const q = `
SELECT id, user_id, created_at, expires_at
FROM sessions WHERE id=$1`
	var s model.Session
	if err := r.db.Pool.QueryRow(ctx, q, id).Scan(&s.ID, &s.UserID, &s.CreatedAt, &s.ExpiresAt); err != nil {
		if errors.Is(err, context.Canceled) {
			return nil, err
		}
		return nil, errs.ErrNotFound
	}
	return &s, nil
}

// Delete removes a session row; absent rows are ignored.
func (r *SessionRepo) Delete(ctx context.Context, id uuid.UUID) error {
	const q = `DELETE FROM sessions WHERE id=$1`
	_, err := r.db.Pool.Exec(ctx, q, id)
	return err
}

// Validate reports whether a non-expired session with the given ID exists.
func (r *SessionRepo) Validate(ctx context.Context, id uuid.UUID, now time.Time) (bool, error) {
	const q = `SELECT EXISTS (SELECT 1 FROM sessions WHERE id=$1 AND expires_at > $2)`
	var ok bool
	if err := r.db.Pool.QueryRow(ctx, q, id, now).Scan(&ok); err != nil {
		return false, err
	}
	return ok, nil
}

// Refresh sets the expiry to now+extension regardless of prior validity.
func (r *SessionRepo) Refresh(ctx context.Context, id uuid.UUID, now time.Time, extension time.Duration) error {
	const q = `UPDATE sessions SET expires_at=$2 WHERE id=$1`
	tag, err := r.db.Pool.Exec(ctx, q, id, now.Add(extension))
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return errs.ErrNotFound
	}
	return nil
}

// CleanExpired deletes every session whose expiry has passed relative to now.
func (r *SessionRepo) CleanExpired(ctx context.Context, now time.Time) (int, error) {
	const q = `DELETE FROM sessions WHERE expires_at <= $1`
	tag, err := r.db.Pool.Exec(ctx, q, now)
	if err != nil {
		return 0, err
	}
	return int(tag.RowsAffected()), nil
}
