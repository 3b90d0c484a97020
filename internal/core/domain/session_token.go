package domain

import (
	"github.com/google/uuid"
)

// canonical 8-4-4-4-12 form; uuid.Parse alone also accepts urn and brace forms.
const sessionTokenLen = 36

// SessionToken names a server-side session.
type SessionToken struct {
	value string
}

// ParseSessionToken checks that raw is a single canonical UUID string.
func ParseSessionToken(raw Raw) (SessionToken, error) {
	s, err := raw.single(FieldSessionToken)
	if err != nil {
		return SessionToken{}, err
	}
	if len(s) != sessionTokenLen {
		return SessionToken{}, fieldError(FieldSessionToken, "must be a UUID")
	}
	u, err := uuid.Parse(s)
	if err != nil {
		return SessionToken{}, fieldError(FieldSessionToken, "must be a UUID")
	}
	return SessionToken{value: u.String()}, nil
}

// NewSessionToken mints a random token. Uniqueness is the store's concern.
func NewSessionToken() SessionToken {
	return SessionToken{value: uuid.NewString()}
}

func (t SessionToken) String() string { return t.value }

// IsZero reports whether t was never parsed or minted.
func (t SessionToken) IsZero() bool { return t.value == "" }
