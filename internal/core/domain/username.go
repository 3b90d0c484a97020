package domain

import "regexp"

// Input field names, shared with the HTTP layer so error maps line up with
// the parameters a caller sent.
const (
	FieldUsername     = "username"
	FieldEmailAddress = "email_address"
	FieldPassword     = "password"
	FieldUserID       = "user_id"
	FieldSessionToken = "session_token"
	FieldUserRole     = "user_role"

	FieldCurrentPassword = "current_password"
	FieldNewPassword     = "new_password"
)

const (
	usernameMinLen = 3
	usernameMaxLen = 255
)

var usernameCharset = regexp.MustCompile(`^[A-Za-z0-9_]*$`)

// Username is a login name.
type Username struct {
	value string
}

// ParseUsername accepts any single non-empty value. Use Validate, or
// ParseAndValidateUsername, to enforce the naming policy.
func ParseUsername(raw Raw) (Username, error) {
	s, err := raw.single(FieldUsername)
	if err != nil {
		return Username{}, err
	}
	return Username{value: s}, nil
}

// ParseAndValidateUsername parses raw and enforces the naming policy.
func ParseAndValidateUsername(raw Raw) (Username, error) {
	u, err := ParseUsername(raw)
	if err != nil {
		return Username{}, err
	}
	if err := u.Validate(); err != nil {
		return Username{}, err
	}
	return u, nil
}

// Validate enforces length and charset.
func (u Username) Validate() error {
	n := len(u.value)
	switch {
	case n < usernameMinLen:
		return fieldError(FieldUsername, "must be at least %d characters", usernameMinLen)
	case n > usernameMaxLen:
		return fieldError(FieldUsername, "must be at most %d characters", usernameMaxLen)
	case !usernameCharset.MatchString(u.value):
		return fieldError(FieldUsername, "may only contain letters, digits and underscores")
	}
	return nil
}

func (u Username) String() string { return u.value }

// IsZero reports whether u was never parsed.
func (u Username) IsZero() bool { return u.value == "" }
