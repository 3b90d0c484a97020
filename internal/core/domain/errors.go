package domain

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Authentication failures. Messages are fixed and short; they never say which
// factor was wrong beyond these categories.
var (
	ErrInvalidSession     = errors.New("session invalid")
	ErrIncorrectPassword  = errors.New("password incorrect")
	ErrNotAdmin           = errors.New("not admin")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidAccessToken = errors.New("access token invalid")
)

// ErrUserNotFound is only used when an authorized admin targets a user id
// that does not exist.
var ErrUserNotFound = errors.New("user does not exist")

// FieldError is a validation failure attributable to a single input field.
type FieldError struct {
	Field  string
	Reason string
}

func (e *FieldError) Error() string {
	return e.Field + " " + e.Reason
}

func fieldError(field, format string, args ...any) *FieldError {
	return &FieldError{Field: field, Reason: fmt.Sprintf(format, args...)}
}

// ValidationErrors accumulates field errors so that every bad field is
// reported at once. The zero value is ready to use after make.
type ValidationErrors map[string]string

// Add records err under its field when it is a *FieldError. Any other
// non-nil error is returned unchanged so the caller can propagate it.
func (v ValidationErrors) Add(err error) error {
	if err == nil {
		return nil
	}
	var fe *FieldError
	if errors.As(err, &fe) {
		v.Set(fe.Field, fe.Reason)
		return nil
	}
	return err
}

// AddAll is Add over errs. It stops at the first error that is not a
// *FieldError and returns it.
func (v ValidationErrors) AddAll(errs ...error) error {
	for _, err := range errs {
		if other := v.Add(err); other != nil {
			return other
		}
	}
	return nil
}

// AddAs is Add with the field error re-attributed to field, for inputs whose
// transport name differs from the primitive's own (new_password, role).
func (v ValidationErrors) AddAs(field string, err error) error {
	if err == nil {
		return nil
	}
	var fe *FieldError
	if errors.As(err, &fe) {
		v.Set(field, fe.Reason)
		return nil
	}
	return err
}

// Set records reason for field, replacing nothing that is already there.
func (v ValidationErrors) Set(field, reason string) {
	if _, exists := v[field]; !exists {
		v[field] = reason
	}
}

// Has reports whether field already failed.
func (v ValidationErrors) Has(field string) bool {
	_, ok := v[field]
	return ok
}

// Err returns v as an error, or nil when nothing was recorded.
func (v ValidationErrors) Err() error {
	if len(v) == 0 {
		return nil
	}
	return v
}

func (v ValidationErrors) Error() string {
	fields := make([]string, 0, len(v))
	for f := range v {
		fields = append(fields, f)
	}
	sort.Strings(fields)

	parts := make([]string, 0, len(fields))
	for _, f := range fields {
		parts = append(parts, f+" "+v[f])
	}
	return "validation failed: " + strings.Join(parts, "; ")
}
