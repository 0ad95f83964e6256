package repository

import (
	"context"
	"time"

	"github.com/avolkov/authd/internal/model"
	"github.com/gofrs/uuid/v5"
)

// ResetTokenRepository provides access to outstanding password-reset tokens.
// Tokens are not renewable; a new reset request issues a fresh token
// alongside any still-outstanding ones.
type ResetTokenRepository interface {
	// Create inserts a new reset token.
	Create(ctx context.Context, t *model.ResetToken) error
	// Get loads a token by ID, expired or not.
	Get(ctx context.Context, id uuid.UUID) (*model.ResetToken, error)
	// Delete removes a token. Deleting an absent token is not an error.
	Delete(ctx context.Context, id uuid.UUID) error
	// CleanExpired removes every token whose expiry is at or before now
	// and returns the number removed.
	CleanExpired(ctx context.Context, now time.Time) (int, error)
}
