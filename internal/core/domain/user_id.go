package domain

import (
	"strconv"
)

// UserID is the 1-based numeric key of a user profile.
type UserID struct {
	value int64
}

// ParseUserID accepts a single base-10 integer.
func ParseUserID(raw Raw) (UserID, error) {
	s, err := raw.single(FieldUserID)
	if err != nil {
		return UserID{}, err
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return UserID{}, fieldError(FieldUserID, "must be an integer")
	}
	return UserID{value: n}, nil
}

// ParseAndValidateUserID parses raw and requires a positive value.
func ParseAndValidateUserID(raw Raw) (UserID, error) {
	id, err := ParseUserID(raw)
	if err != nil {
		return UserID{}, err
	}
	if err := id.Validate(); err != nil {
		return UserID{}, err
	}
	return id, nil
}

// NewUserID wraps an id read from storage or a verified claim.
func NewUserID(n int64) (UserID, error) {
	id := UserID{value: n}
	if err := id.Validate(); err != nil {
		return UserID{}, err
	}
	return id, nil
}

// Validate requires id >= 1.
func (id UserID) Validate() error {
	if id.value < 1 {
		return fieldError(FieldUserID, "must be a positive integer")
	}
	return nil
}

// Int64 returns the numeric value.
func (id UserID) Int64() int64 { return id.value }

func (id UserID) String() string { return strconv.FormatInt(id.value, 10) }
