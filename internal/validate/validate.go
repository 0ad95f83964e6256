// Package validate contains stateless syntactic checks for registration fields.
package validate

import (
	"fmt"
	"strings"
	"unicode"
)

// Error describes a single failed field check with a human-readable reason.
// The identity service maps these onto its error taxonomy.
type Error struct {
	Field  string
	Reason string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

func fail(field, reason string) error {
	return &Error{Field: field, Reason: reason}
}

// Username length bounds in characters (after trimming).
const (
	UsernameMinLen = 3
	UsernameMaxLen = 20
)

// PasswordMinLen is the minimum accepted password length.
const PasswordMinLen = 8

// Username checks that the username is non-empty after trimming, within
// length bounds, and contains only alphanumerics and underscores.
func Username(username string) error {
	name := strings.TrimSpace(username)
	if name == "" {
		return fail("username", "must not be empty")
	}
	n := len([]rune(name))
	if n < UsernameMinLen || n > UsernameMaxLen {
		return fail("username", fmt.Sprintf("length must be between %d and %d characters", UsernameMinLen, UsernameMaxLen))
	}
	for _, r := range name {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '_' {
			return fail("username", "only letters, digits and underscores are allowed")
		}
	}
	return nil
}

// Email checks the local@domain shape: non-empty after trimming, no embedded
// whitespace, exactly one @ separating non-empty parts, and at least one dot
// in the domain.
func Email(email string) error {
	e := strings.TrimSpace(email)
	if e == "" {
		return fail("email", "must not be empty")
	}
	if strings.ContainsFunc(e, unicode.IsSpace) {
		return fail("email", "must not contain whitespace")
	}
	at := strings.Index(e, "@")
	if at <= 0 || at != strings.LastIndex(e, "@") || at == len(e)-1 {
		return fail("email", "must have the form local@domain")
	}
	domain := e[at+1:]
	if !strings.Contains(domain, ".") {
		return fail("email", "domain must contain a dot")
	}
	return nil
}

// Password checks complexity: minimum length plus at least one uppercase
// letter, one digit and one non-alphanumeric character.
func Password(password string) error {
	if len([]rune(password)) < PasswordMinLen {
		return fail("password", fmt.Sprintf("must be at least %d characters long", PasswordMinLen))
	}
	var upper, digit, special bool
	for _, r := range password {
		switch {
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsDigit(r):
			digit = true
		case !unicode.IsLetter(r):
			special = true
		}
	}
	if !upper {
		return fail("password", "must contain an uppercase letter")
	}
	if !digit {
		return fail("password", "must contain a digit")
	}
	if !special {
		return fail("password", "must contain a special character")
	}
	return nil
}
