// Package errs contains sentinel errors used across layers for stable error mapping.
package errs

import "errors"

// Identity taxonomy. Every identity-service operation fails with exactly one
// of these; callers branch with errors.Is and never parse messages.
var (
	// ErrInvalidUsername indicates the username fails syntactic rules.
	ErrInvalidUsername = errors.New("username format is invalid")

	// ErrInvalidEmail indicates the email fails syntactic rules.
	ErrInvalidEmail = errors.New("email format is invalid")

	// ErrInvalidPassword indicates the password fails complexity rules.
	ErrInvalidPassword = errors.New("password does not meet requirements")

	// ErrUsernameExists indicates the username is already registered.
	ErrUsernameExists = errors.New("username already exists")

	// ErrEmailExists indicates the email is already registered.
	ErrEmailExists = errors.New("email already exists")

	// ErrUserNotFound indicates no user matches the given identifier.
	ErrUserNotFound = errors.New("user not found")

	// ErrInvalidCredentials indicates a failed login. Unknown username and
	// wrong password are deliberately indistinguishable to the caller.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrSessionExpired indicates the session is absent or past expiry.
	ErrSessionExpired = errors.New("session has expired")

	// ErrTokenInvalid indicates an unknown reset token.
	ErrTokenInvalid = errors.New("reset token is invalid")

	// ErrTokenExpired indicates a known reset token past expiry.
	ErrTokenExpired = errors.New("reset token has expired")

	// ErrHashingFailed indicates the password hashing primitive faulted.
	ErrHashingFailed = errors.New("password hashing failed")
)

// Store-level sentinels. Repositories report these; the identity service
// translates them into the taxonomy above.
var (
	// ErrNotFound indicates the requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrAlreadyExists indicates a unique constraint violation.
	ErrAlreadyExists = errors.New("already exists")
)
