package domain

import (
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

const (
	passwordMinLen   = 8
	passwordMaxLen   = 255
	passwordSpecials = "!@#$%^&*"

	// bcrypt only reads the first 72 bytes and newer x/crypto rejects
	// longer input outright.
	bcryptMaxBytes = 72
)

// Password is a plaintext password as supplied by a caller.
//
// Parsing is deliberately separate from Validate: a password being checked
// against a stored hash is only parsed, a password being newly set is also
// validated against the policy.
type Password struct {
	value string
}

// ParsePassword accepts any single non-empty value.
func ParsePassword(raw Raw) (Password, error) {
	s, err := raw.single(FieldPassword)
	if err != nil {
		return Password{}, err
	}
	return Password{value: s}, nil
}

// ParseAndValidatePassword parses raw and enforces the password policy.
func ParseAndValidatePassword(raw Raw) (Password, error) {
	p, err := ParsePassword(raw)
	if err != nil {
		return Password{}, err
	}
	if err := p.Validate(); err != nil {
		return Password{}, err
	}
	return p, nil
}

// Validate enforces length, charset and that every character class appears.
// The returned reason names the first rule that failed.
func (p Password) Validate() error {
	n := len(p.value)
	if n < passwordMinLen {
		return fieldError(FieldPassword, "must be at least %d characters", passwordMinLen)
	}
	if n > passwordMaxLen {
		return fieldError(FieldPassword, "must be at most %d characters", passwordMaxLen)
	}

	var lower, upper, digit, special bool
	for _, r := range p.value {
		switch {
		case r >= 'a' && r <= 'z':
			lower = true
		case r >= 'A' && r <= 'Z':
			upper = true
		case r >= '0' && r <= '9':
			digit = true
		case strings.ContainsRune(passwordSpecials, r):
			special = true
		default:
			return fieldError(FieldPassword, "may only contain letters, digits and %s", passwordSpecials)
		}
	}

	switch {
	case !lower:
		return fieldError(FieldPassword, "must contain a lowercase letter")
	case !upper:
		return fieldError(FieldPassword, "must contain an uppercase letter")
	case !digit:
		return fieldError(FieldPassword, "must contain a digit")
	case !special:
		return fieldError(FieldPassword, "must contain one of %s", passwordSpecials)
	}
	return nil
}

func (p Password) String() string { return p.value }

func (p Password) hashInput() []byte {
	b := []byte(p.value)
	if len(b) > bcryptMaxBytes {
		b = b[:bcryptMaxBytes]
	}
	return b
}

// PasswordHash is an adaptive bcrypt hash of a Password.
type PasswordHash struct {
	value string
}

// HashPassword hashes p at the given bcrypt cost.
func HashPassword(p Password, cost int) (PasswordHash, error) {
	h, err := bcrypt.GenerateFromPassword(p.hashInput(), cost)
	if err != nil {
		return PasswordHash{}, fmt.Errorf("hash password: %w", err)
	}
	return PasswordHash{value: string(h)}, nil
}

// PasswordHashFromString wraps a hash read back from storage.
func PasswordHashFromString(s string) PasswordHash {
	return PasswordHash{value: s}
}

// Matches reports whether p is the plaintext behind h. A malformed hash is
// an error, a plain mismatch is not.
func (h PasswordHash) Matches(p Password) (bool, error) {
	err := bcrypt.CompareHashAndPassword([]byte(h.value), p.hashInput())
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, bcrypt.ErrMismatchedHashAndPassword):
		return false, nil
	default:
		return false, fmt.Errorf("compare password hash: %w", err)
	}
}

func (h PasswordHash) String() string { return h.value }
