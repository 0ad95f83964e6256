// Package model defines domain entities used by services and repositories.
package model

import (
	"time"

	"github.com/gofrs/uuid/v5"
)

// User represents a registered account. The password is stored only as an
// encoded Argon2id record, never in plaintext.
type User struct {
	ID           uuid.UUID // PK
	Username     string    // unique, case-sensitive
	Email        string    // unique
	PasswordHash string    // PHC-encoded Argon2id record
	CreatedAt    time.Time
}

// Session is proof of an authenticated login, usable within
// [CreatedAt, ExpiresAt).
type Session struct {
	ID        uuid.UUID
	UserID    uuid.UUID // FK -> users.id
	CreatedAt time.Time
	ExpiresAt time.Time
}

// ValidAt reports whether the session is usable at the given instant.
func (s *Session) ValidAt(now time.Time) bool {
	return now.Before(s.ExpiresAt)
}

// ResetToken is a single-use capability to change a password without an
// active session. Consumed tokens are removed and cannot be replayed.
type ResetToken struct {
	ID        uuid.UUID
	UserID    uuid.UUID // FK -> users.id
	CreatedAt time.Time
	ExpiresAt time.Time
}

// ValidAt reports whether the token is usable at the given instant.
func (t *ResetToken) ValidAt(now time.Time) bool {
	return now.Before(t.ExpiresAt)
}
