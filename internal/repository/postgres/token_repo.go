package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/avolkov/authd/internal/errs"
	"github.com/avolkov/authd/internal/model"
	"github.com/gofrs/uuid/v5"
)

// TokenRepo implements ResetTokenRepository using PostgreSQL.
type TokenRepo struct{ db *DB }

// NewTokenRepo constructs a reset-token repository.
func NewTokenRepo(db *DB) *TokenRepo { return &TokenRepo{db: db} }

// Create inserts a new reset-token row.
func (r *TokenRepo) Create(ctx context.Context, t *model.ResetToken) error {
	const q = `
INSERT INTO reset_tokens (id, user_id, created_at, expires_at)
VALUES ($1, $2, $3, $4)`
	_, err := r.db.Pool.Exec(ctx, q, t.ID, t.UserID, t.CreatedAt, t.ExpiresAt)
	if isUniqueViolation(err) {
		return errs.ErrAlreadyExists
	}
	return err
}

// Get selects a token by ID, expired or not.
func (r *TokenRepo) Get(ctx context.Context, id uuid.UUID) (*model.ResetToken, error) {
	const q = `
SELECT id, user_id, created_at, expires_at
FROM reset_tokens WHERE id=$1`
	var t model.ResetToken
	if err := r.db.Pool.QueryRow(ctx, q, id).Scan(&t.ID, &t.UserID, &t.CreatedAt, &t.ExpiresAt); err != nil {
		if errors.Is(err, context.Canceled) {
			return nil, err
		}
		return nil, errs.ErrNotFound
	}
	return &t, nil
}

// Delete removes a token row; absent rows are ignored.
func (r *TokenRepo) Delete(ctx context.Context, id uuid.UUID) error {
	const q = `DELETE FROM reset_tokens WHERE id=$1`
	_, err := r.db.Pool.Exec(ctx, q, id)
	return err
}

// CleanExpired deletes every token whose expiry has passed relative to now.
func (r *TokenRepo) CleanExpired(ctx context.Context, now time.Time) (int, error) {
	const q = `DELETE FROM reset_tokens WHERE expires_at <= $1`
	tag, err := r.db.Pool.Exec(ctx, q, now)
	if err != nil {
		return 0, err
	}
	return int(tag.RowsAffected()), nil
}
