package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	pkgcrypto "github.com/avolkov/authd/internal/crypto"
	"github.com/avolkov/authd/internal/errs"
	"github.com/avolkov/authd/internal/model"
	"github.com/avolkov/authd/internal/repository/memory"
	"github.com/gofrs/uuid/v5"
)

// fakeClock drives the service's notion of "now" in tests.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newService(t *testing.T) (*IdentityService, *memory.UserRepo, *fakeClock) {
	t.Helper()
	users := memory.NewUserRepo()
	svc := NewIdentityService(users, memory.NewSessionRepo(), memory.NewTokenRepo(), nil, 0, 0)
	clock := newFakeClock()
	svc.now = clock.Now
	return svc, users, clock
}

const (
	testUser  = "kelvin"
	testEmail = "kelvin@example.com"
	testPass  = "Secure123!"
)

func register(t *testing.T, svc *IdentityService) {
	t.Helper()
	if err := svc.Register(context.Background(), testUser, testEmail, testPass); err != nil {
		t.Fatalf("Register: %v", err)
	}
}

func TestRegister_Validation(t *testing.T) {
	t.Parallel()
	svc, _, _ := newService(t)
	ctx := context.Background()

	tests := []struct {
		name                      string
		username, email, password string
		want                      error
	}{
		{"bad username", "k!", testEmail, testPass, errs.ErrInvalidUsername},
		{"bad email", testUser, "not-an-email", testPass, errs.ErrInvalidEmail},
		{"bad password", testUser, testEmail, "weak", errs.ErrInvalidPassword},
		// first failure wins, in declaration order
		{"username checked first", "", "also-bad", "weak", errs.ErrInvalidUsername},
		{"email checked before password", testUser, "bad", "weak", errs.ErrInvalidEmail},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := svc.Register(ctx, tt.username, tt.email, tt.password); !errors.Is(err, tt.want) {
				t.Fatalf("Register = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestRegister_UniquenessAndHash(t *testing.T) {
	t.Parallel()
	svc, users, _ := newService(t)
	ctx := context.Background()

	register(t, svc)

	if err := svc.Register(ctx, testUser, "other@example.com", testPass); !errors.Is(err, errs.ErrUsernameExists) {
		t.Fatalf("duplicate username = %v, want ErrUsernameExists", err)
	}
	if err := svc.Register(ctx, "other", testEmail, testPass); !errors.Is(err, errs.ErrEmailExists) {
		t.Fatalf("duplicate email = %v, want ErrEmailExists", err)
	}

	u, err := users.GetByUsername(ctx, testUser)
	if err != nil {
		t.Fatalf("GetByUsername: %v", err)
	}
	if u.PasswordHash == "" || u.PasswordHash == testPass {
		t.Fatalf("stored hash %q must be non-empty and never the plaintext", u.PasswordHash)
	}
	ok, err := pkgcrypto.VerifyPassword(testPass, u.PasswordHash)
	if err != nil || !ok {
		t.Fatalf("stored hash does not verify: %v %v", ok, err)
	}
}

func TestLogin_CollapsedFailures(t *testing.T) {
	t.Parallel()
	svc, _, _ := newService(t)
	ctx := context.Background()

	register(t, svc)

	// unknown username and wrong password are indistinguishable
	if _, err := svc.Login(ctx, "nobody", testPass); !errors.Is(err, errs.ErrInvalidCredentials) {
		t.Fatalf("unknown user = %v, want ErrInvalidCredentials", err)
	}
	if _, err := svc.Login(ctx, testUser, "Wrong123!"); !errors.Is(err, errs.ErrInvalidCredentials) {
		t.Fatalf("wrong password = %v, want ErrInvalidCredentials", err)
	}
}

func TestLogin_CorruptedHashRecord(t *testing.T) {
	t.Parallel()
	svc, users, clock := newService(t)
	ctx := context.Background()

	u := &model.User{
		ID:           uuid.Must(uuid.NewV4()),
		Username:     "broken",
		Email:        "broken@example.com",
		PasswordHash: "garbage",
		CreatedAt:    clock.Now(),
	}
	if err := users.Create(ctx, u); err != nil {
		t.Fatalf("seed user: %v", err)
	}

	if _, err := svc.Login(ctx, "broken", testPass); !errors.Is(err, errs.ErrInvalidCredentials) {
		t.Fatalf("corrupted record = %v, want ErrInvalidCredentials", err)
	}
}

func TestSessionLifecycle(t *testing.T) {
	t.Parallel()
	svc, _, clock := newService(t)
	ctx := context.Background()

	register(t, svc)

	sid, err := svc.Login(ctx, testUser, testPass)
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if sid == uuid.Nil {
		t.Fatal("nil session id")
	}
	if !svc.IsLoggedIn(ctx, sid) {
		t.Fatal("fresh session not logged in")
	}

	u, err := svc.CurrentUser(ctx, sid)
	if err != nil || u.Username != testUser {
		t.Fatalf("CurrentUser = %+v, %v", u, err)
	}

	// session becomes permanently invalid at-or-after expiry
	clock.Advance(DefaultSessionTTL)
	if svc.IsLoggedIn(ctx, sid) {
		t.Fatal("session still valid at expiry instant")
	}
	if _, err := svc.CurrentUser(ctx, sid); !errors.Is(err, errs.ErrSessionExpired) {
		t.Fatalf("CurrentUser on expired session = %v, want ErrSessionExpired", err)
	}

	// refresh revives the expired-but-unswept session
	if err := svc.RefreshSession(ctx, sid, time.Hour); err != nil {
		t.Fatalf("RefreshSession: %v", err)
	}
	if !svc.IsLoggedIn(ctx, sid) {
		t.Fatal("refreshed session should be valid")
	}

	// logout is idempotent
	if err := svc.Logout(ctx, sid); err != nil {
		t.Fatalf("Logout: %v", err)
	}
	if err := svc.Logout(ctx, sid); err != nil {
		t.Fatalf("Logout twice: %v", err)
	}
	if svc.IsLoggedIn(ctx, sid) {
		t.Fatal("logged out session still valid")
	}
	if err := svc.RefreshSession(ctx, sid, time.Hour); !errors.Is(err, errs.ErrSessionExpired) {
		t.Fatalf("refresh after logout = %v, want ErrSessionExpired", err)
	}
}

func TestIsLoggedIn_AbsentSession(t *testing.T) {
	t.Parallel()
	svc, _, _ := newService(t)

	if svc.IsLoggedIn(context.Background(), uuid.Must(uuid.NewV4())) {
		t.Fatal("absent session reported logged in")
	}
}

func TestChangePassword(t *testing.T) {
	t.Parallel()
	svc, users, clock := newService(t)
	ctx := context.Background()

	register(t, svc)
	sid, err := svc.Login(ctx, testUser, testPass)
	if err != nil {
		t.Fatalf("Login: %v", err)
	}

	before, _ := users.GetByUsername(ctx, testUser)

	// wrong old password never mutates the stored hash
	if err := svc.ChangePassword(ctx, sid, "Wrong123!", "NewSecure456!"); !errors.Is(err, errs.ErrInvalidCredentials) {
		t.Fatalf("wrong old password = %v, want ErrInvalidCredentials", err)
	}
	after, _ := users.GetByUsername(ctx, testUser)
	if after.PasswordHash != before.PasswordHash {
		t.Fatal("hash mutated despite failed verification")
	}

	if err := svc.ChangePassword(ctx, sid, testPass, "weak"); !errors.Is(err, errs.ErrInvalidPassword) {
		t.Fatalf("weak new password = %v, want ErrInvalidPassword", err)
	}

	if err := svc.ChangePassword(ctx, sid, testPass, "NewSecure456!"); err != nil {
		t.Fatalf("ChangePassword: %v", err)
	}
	if _, err := svc.Login(ctx, testUser, testPass); !errors.Is(err, errs.ErrInvalidCredentials) {
		t.Fatalf("old password still accepted: %v", err)
	}
	if _, err := svc.Login(ctx, testUser, "NewSecure456!"); err != nil {
		t.Fatalf("new password rejected: %v", err)
	}

	// the session used for the change stays valid (no revocation on change)
	if !svc.IsLoggedIn(ctx, sid) {
		t.Fatal("session revoked by password change")
	}

	// expired session
	clock.Advance(DefaultSessionTTL + time.Minute)
	if err := svc.ChangePassword(ctx, sid, "NewSecure456!", "Another789!"); !errors.Is(err, errs.ErrSessionExpired) {
		t.Fatalf("expired session = %v, want ErrSessionExpired", err)
	}
	// absent session
	if err := svc.ChangePassword(ctx, uuid.Must(uuid.NewV4()), testPass, "Another789!"); !errors.Is(err, errs.ErrSessionExpired) {
		t.Fatalf("absent session = %v, want ErrSessionExpired", err)
	}
}

func TestPasswordReset_Flow(t *testing.T) {
	t.Parallel()
	svc, _, _ := newService(t)
	ctx := context.Background()

	register(t, svc)

	if _, err := svc.RequestPasswordReset(ctx, "nobody@example.com"); !errors.Is(err, errs.ErrUserNotFound) {
		t.Fatalf("unknown email = %v, want ErrUserNotFound", err)
	}

	tok, err := svc.RequestPasswordReset(ctx, testEmail)
	if err != nil {
		t.Fatalf("RequestPasswordReset: %v", err)
	}

	if err := svc.ResetPassword(ctx, tok, "weak"); !errors.Is(err, errs.ErrInvalidPassword) {
		t.Fatalf("weak new password = %v, want ErrInvalidPassword", err)
	}

	if err := svc.ResetPassword(ctx, tok, "NewSecure456!"); err != nil {
		t.Fatalf("ResetPassword: %v", err)
	}
	if _, err := svc.Login(ctx, testUser, testPass); !errors.Is(err, errs.ErrInvalidCredentials) {
		t.Fatalf("old password still accepted: %v", err)
	}
	if _, err := svc.Login(ctx, testUser, "NewSecure456!"); err != nil {
		t.Fatalf("new password rejected: %v", err)
	}

	// single-use: replay fails as unknown token
	if err := svc.ResetPassword(ctx, tok, "Another789!"); !errors.Is(err, errs.ErrTokenInvalid) {
		t.Fatalf("token replay = %v, want ErrTokenInvalid", err)
	}
}

func TestPasswordReset_Expiry(t *testing.T) {
	t.Parallel()
	svc, _, clock := newService(t)
	ctx := context.Background()

	register(t, svc)

	tok, err := svc.RequestPasswordReset(ctx, testEmail)
	if err != nil {
		t.Fatalf("RequestPasswordReset: %v", err)
	}

	clock.Advance(DefaultResetTokenTTL)
	if err := svc.ResetPassword(ctx, tok, "NewSecure456!"); !errors.Is(err, errs.ErrTokenExpired) {
		t.Fatalf("expired token = %v, want ErrTokenExpired", err)
	}

	// never consumed, so after the sweep it reads as unknown
	if _, _, err := svc.SweepExpired(ctx); err != nil {
		t.Fatalf("SweepExpired: %v", err)
	}
	if err := svc.ResetPassword(ctx, tok, "NewSecure456!"); !errors.Is(err, errs.ErrTokenInvalid) {
		t.Fatalf("swept token = %v, want ErrTokenInvalid", err)
	}
}

func TestPasswordReset_MultipleOutstandingTokens(t *testing.T) {
	t.Parallel()
	svc, _, _ := newService(t)
	ctx := context.Background()

	register(t, svc)

	tok1, err := svc.RequestPasswordReset(ctx, testEmail)
	if err != nil {
		t.Fatalf("RequestPasswordReset(1): %v", err)
	}
	tok2, err := svc.RequestPasswordReset(ctx, testEmail)
	if err != nil {
		t.Fatalf("RequestPasswordReset(2): %v", err)
	}
	if tok1 == tok2 {
		t.Fatal("token ids must be unique")
	}

	if err := svc.ResetPassword(ctx, tok1, "NewSecure456!"); err != nil {
		t.Fatalf("ResetPassword(tok1): %v", err)
	}
	// consuming one token does not invalidate the other
	if err := svc.ResetPassword(ctx, tok2, "Another789!"); err != nil {
		t.Fatalf("ResetPassword(tok2): %v", err)
	}
	if _, err := svc.Login(ctx, testUser, "Another789!"); err != nil {
		t.Fatalf("final password rejected: %v", err)
	}
}

func TestSweepExpired_Counts(t *testing.T) {
	t.Parallel()
	svc, _, clock := newService(t)
	ctx := context.Background()

	register(t, svc)

	if _, err := svc.Login(ctx, testUser, testPass); err != nil {
		t.Fatalf("Login: %v", err)
	}
	if _, err := svc.RequestPasswordReset(ctx, testEmail); err != nil {
		t.Fatalf("RequestPasswordReset: %v", err)
	}

	clock.Advance(DefaultResetTokenTTL)
	sessions, tokens, err := svc.SweepExpired(ctx)
	if err != nil {
		t.Fatalf("SweepExpired: %v", err)
	}
	if sessions != 0 || tokens != 1 {
		t.Fatalf("sweep = (%d sessions, %d tokens), want (0, 1)", sessions, tokens)
	}

	clock.Advance(DefaultSessionTTL)
	sessions, _, err = svc.SweepExpired(ctx)
	if err != nil {
		t.Fatalf("SweepExpired(2): %v", err)
	}
	if sessions != 1 {
		t.Fatalf("sessions swept = %d, want 1", sessions)
	}
}

func TestSweeper_RunStopsOnCancel(t *testing.T) {
	t.Parallel()
	svc, _, _ := newService(t)

	w := NewSweeper(svc, 10*time.Millisecond, nil)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		w.Run(ctx)
		close(done)
	}()

	time.Sleep(35 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("sweeper did not stop after cancel")
	}
}
