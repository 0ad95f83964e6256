// Package service contains the identity service orchestrating registration,
// login and credential lifecycle on top of the stores.
package service

import (
	"context"
	"errors"
	"sync"
	"time"

	pkgcrypto "github.com/avolkov/authd/internal/crypto"
	"github.com/avolkov/authd/internal/errs"
	"github.com/avolkov/authd/internal/model"
	"github.com/avolkov/authd/internal/repository"
	"github.com/avolkov/authd/internal/validate"
	"github.com/gofrs/uuid/v5"
	"go.uber.org/zap"
)

// Default validity windows. Both are overridable via the constructor.
const (
	DefaultSessionTTL    = 24 * time.Hour
	DefaultResetTokenTTL = 30 * time.Minute
)

// IdentityService is the sole entry point for callers. It enforces
// validation, uniqueness and hashing before touching stored state; the
// stores themselves hold no policy.
type IdentityService struct {
	users    repository.UserRepository
	sessions repository.SessionRepository
	tokens   repository.ResetTokenRepository
	log      *zap.Logger

	sessionTTL time.Duration
	resetTTL   time.Duration

	now func() time.Time

	// userLocks serializes credential mutations per user so that a
	// verify-then-update sequence cannot lose an update to a concurrent
	// change on the same user.
	mu        sync.Mutex
	userLocks map[uuid.UUID]*sync.Mutex
}

// NewIdentityService constructs the service. Non-positive TTLs fall back to
// the defaults; a nil logger disables telemetry.
func NewIdentityService(users repository.UserRepository, sessions repository.SessionRepository, tokens repository.ResetTokenRepository, log *zap.Logger, sessionTTL, resetTTL time.Duration) *IdentityService {
	if log == nil {
		log = zap.NewNop()
	}
	if sessionTTL <= 0 {
		sessionTTL = DefaultSessionTTL
	}
	if resetTTL <= 0 {
		resetTTL = DefaultResetTokenTTL
	}
	return &IdentityService{
		users:      users,
		sessions:   sessions,
		tokens:     tokens,
		log:        log,
		sessionTTL: sessionTTL,
		resetTTL:   resetTTL,
		now:        func() time.Time { return time.Now().UTC() },
		userLocks:  make(map[uuid.UUID]*sync.Mutex),
	}
}

// lockUser acquires the per-user credential mutation lock.
func (s *IdentityService) lockUser(id uuid.UUID) *sync.Mutex {
	s.mu.Lock()
	l, ok := s.userLocks[id]
	if !ok {
		l = &sync.Mutex{}
		s.userLocks[id] = l
	}
	s.mu.Unlock()
	l.Lock()
	return l
}

// Register validates the fields, enforces username/email uniqueness, hashes
// the password and persists a new user. No session is created.
func (s *IdentityService) Register(ctx context.Context, username, email, password string) error {
	if err := validate.Username(username); err != nil {
		return errs.ErrInvalidUsername
	}
	if err := validate.Email(email); err != nil {
		return errs.ErrInvalidEmail
	}
	if err := validate.Password(password); err != nil {
		return errs.ErrInvalidPassword
	}

	if _, err := s.users.GetByUsername(ctx, username); err == nil {
		return errs.ErrUsernameExists
	} else if !errors.Is(err, errs.ErrNotFound) {
		return err
	}
	if _, err := s.users.GetByEmail(ctx, email); err == nil {
		return errs.ErrEmailExists
	} else if !errors.Is(err, errs.ErrNotFound) {
		return err
	}

	hash, err := pkgcrypto.HashPassword(password)
	if err != nil {
		s.log.Error("password hashing failed", zap.Error(err))
		return errs.ErrHashingFailed
	}

	id, err := uuid.NewV4()
	if err != nil {
		return err
	}
	u := &model.User{
		ID:           id,
		Username:     username,
		Email:        email,
		PasswordHash: hash,
		CreatedAt:    s.now(),
	}
	if err := s.users.Create(ctx, u); err != nil {
		// The uniqueness probes above race with concurrent registration;
		// the store's unique constraint is the backstop.
		if errors.Is(err, errs.ErrAlreadyExists) {
			if _, uerr := s.users.GetByUsername(ctx, username); uerr == nil {
				return errs.ErrUsernameExists
			}
			return errs.ErrEmailExists
		}
		return err
	}
	s.log.Info("user registered", zap.String("user_id", id.String()))
	return nil
}

// Login authenticates the credentials and issues a session. Unknown
// username and wrong password are reported uniformly as
// errs.ErrInvalidCredentials; the distinction is kept for telemetry only.
func (s *IdentityService) Login(ctx context.Context, username, password string) (uuid.UUID, error) {
	u, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, errs.ErrNotFound) {
			s.log.Debug("login failed: unknown username")
			return uuid.Nil, errs.ErrInvalidCredentials
		}
		return uuid.Nil, err
	}

	ok, err := pkgcrypto.VerifyPassword(password, u.PasswordHash)
	if err != nil {
		// A corrupted hash record is masked as a credential failure,
		// but logged loudly: it means stored state is damaged.
		s.log.Warn("login failed: unverifiable hash record",
			zap.String("user_id", u.ID.String()), zap.Error(err))
		return uuid.Nil, errs.ErrInvalidCredentials
	}
	if !ok {
		s.log.Debug("login failed: wrong password", zap.String("user_id", u.ID.String()))
		return uuid.Nil, errs.ErrInvalidCredentials
	}

	id, err := uuid.NewV4()
	if err != nil {
		return uuid.Nil, err
	}
	now := s.now()
	sess := &model.Session{
		ID:        id,
		UserID:    u.ID,
		CreatedAt: now,
		ExpiresAt: now.Add(s.sessionTTL),
	}
	if err := s.sessions.Create(ctx, sess); err != nil {
		return uuid.Nil, err
	}
	s.log.Info("user logged in", zap.String("user_id", u.ID.String()))
	return id, nil
}

// IsLoggedIn reports whether the session exists and has not expired.
// It never fails: absence, expiry and store faults all read as false.
func (s *IdentityService) IsLoggedIn(ctx context.Context, sessionID uuid.UUID) bool {
	ok, err := s.sessions.Validate(ctx, sessionID, s.now())
	if err != nil {
		s.log.Warn("session validation failed", zap.Error(err))
		return false
	}
	return ok
}

// Logout removes the session. Logging out an absent or already-removed
// session is not an error.
func (s *IdentityService) Logout(ctx context.Context, sessionID uuid.UUID) error {
	return s.sessions.Delete(ctx, sessionID)
}

// RefreshSession extends the session's expiry to now+extension. Refresh is
// deliberately permissive: an expired session that has not yet been swept
// is revived.
func (s *IdentityService) RefreshSession(ctx context.Context, sessionID uuid.UUID, extension time.Duration) error {
	err := s.sessions.Refresh(ctx, sessionID, s.now(), extension)
	if errors.Is(err, errs.ErrNotFound) {
		return errs.ErrSessionExpired
	}
	return err
}

// CurrentUser resolves the session's owning user. The session must be
// currently valid: an expired-but-unswept session yields ErrSessionExpired
// even though the store still holds it.
func (s *IdentityService) CurrentUser(ctx context.Context, sessionID uuid.UUID) (*model.User, error) {
	sess, err := s.sessions.GetByID(ctx, sessionID)
	if err != nil {
		if errors.Is(err, errs.ErrNotFound) {
			return nil, errs.ErrSessionExpired
		}
		return nil, err
	}
	if !sess.ValidAt(s.now()) {
		return nil, errs.ErrSessionExpired
	}
	u, err := s.users.GetByID(ctx, sess.UserID)
	if err != nil {
		if errors.Is(err, errs.ErrNotFound) {
			return nil, errs.ErrUserNotFound
		}
		return nil, err
	}
	return u, nil
}

// ChangePassword rotates the password for the session's owner after
// verifying the old password. Other active sessions for the user stay
// valid; see the design notes on credential-change revocation.
func (s *IdentityService) ChangePassword(ctx context.Context, sessionID uuid.UUID, oldPassword, newPassword string) error {
	sess, err := s.sessions.GetByID(ctx, sessionID)
	if err != nil {
		if errors.Is(err, errs.ErrNotFound) {
			return errs.ErrSessionExpired
		}
		return err
	}
	if !sess.ValidAt(s.now()) {
		return errs.ErrSessionExpired
	}

	l := s.lockUser(sess.UserID)
	defer l.Unlock()

	u, err := s.users.GetByID(ctx, sess.UserID)
	if err != nil {
		if errors.Is(err, errs.ErrNotFound) {
			// session outlived its user; should not occur
			return errs.ErrUserNotFound
		}
		return err
	}

	ok, err := pkgcrypto.VerifyPassword(oldPassword, u.PasswordHash)
	if err != nil {
		s.log.Warn("change password: unverifiable hash record",
			zap.String("user_id", u.ID.String()), zap.Error(err))
		return errs.ErrInvalidCredentials
	}
	if !ok {
		return errs.ErrInvalidCredentials
	}

	if err := validate.Password(newPassword); err != nil {
		return errs.ErrInvalidPassword
	}
	hash, err := pkgcrypto.HashPassword(newPassword)
	if err != nil {
		s.log.Error("password hashing failed", zap.Error(err))
		return errs.ErrHashingFailed
	}
	if err := s.users.UpdatePassword(ctx, u.ID, hash); err != nil {
		return err
	}
	s.log.Info("password changed", zap.String("user_id", u.ID.String()))
	return nil
}

// RequestPasswordReset issues a reset token for the account with the given
// email. Multiple outstanding tokens per user are permitted; earlier ones
// stay usable until consumed or expired.
func (s *IdentityService) RequestPasswordReset(ctx context.Context, email string) (uuid.UUID, error) {
	u, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, errs.ErrNotFound) {
			return uuid.Nil, errs.ErrUserNotFound
		}
		return uuid.Nil, err
	}

	id, err := uuid.NewV4()
	if err != nil {
		return uuid.Nil, err
	}
	now := s.now()
	tok := &model.ResetToken{
		ID:        id,
		UserID:    u.ID,
		CreatedAt: now,
		ExpiresAt: now.Add(s.resetTTL),
	}
	if err := s.tokens.Create(ctx, tok); err != nil {
		return uuid.Nil, err
	}
	s.log.Info("password reset requested", zap.String("user_id", u.ID.String()))
	return id, nil
}

// ResetPassword consumes a reset token and sets a new password. The token
// is single-use: after success it is removed and any replay fails with
// ErrTokenInvalid. Other outstanding tokens for the user are untouched.
func (s *IdentityService) ResetPassword(ctx context.Context, tokenID uuid.UUID, newPassword string) error {
	tok, err := s.tokens.Get(ctx, tokenID)
	if err != nil {
		if errors.Is(err, errs.ErrNotFound) {
			return errs.ErrTokenInvalid
		}
		return err
	}
	if !tok.ValidAt(s.now()) {
		return errs.ErrTokenExpired
	}

	if err := validate.Password(newPassword); err != nil {
		return errs.ErrInvalidPassword
	}
	hash, err := pkgcrypto.HashPassword(newPassword)
	if err != nil {
		s.log.Error("password hashing failed", zap.Error(err))
		return errs.ErrHashingFailed
	}

	l := s.lockUser(tok.UserID)
	defer l.Unlock()

	if err := s.users.UpdatePassword(ctx, tok.UserID, hash); err != nil {
		if errors.Is(err, errs.ErrNotFound) {
			return errs.ErrUserNotFound
		}
		return err
	}
	if err := s.tokens.Delete(ctx, tokenID); err != nil {
		return err
	}
	s.log.Info("password reset", zap.String("user_id", tok.UserID.String()))
	return nil
}

// SweepExpired removes expired sessions and reset tokens. It is invoked by
// a caller-owned scheduler (see Sweeper); the service does not self-schedule.
func (s *IdentityService) SweepExpired(ctx context.Context) (sessions, tokens int, err error) {
	now := s.now()
	sessions, err = s.sessions.CleanExpired(ctx, now)
	if err != nil {
		return sessions, 0, err
	}
	tokens, err = s.tokens.CleanExpired(ctx, now)
	return sessions, tokens, err
}
