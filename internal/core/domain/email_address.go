package domain

import (
	"regexp"
	"strings"
)

const emailAddressMaxLen = 255

// local part: dot-separated atoms from the RFC 5322 atext set.
// domain: two or more labels of [a-z0-9], hyphens only inside a label.
var emailAddressGrammar = regexp.MustCompile(
	`^[a-z0-9!#$%&'*+/=?^_` + "`" + `{|}~-]+(\.[a-z0-9!#$%&'*+/=?^_` + "`" + `{|}~-]+)*` +
		`@([a-z0-9]([a-z0-9-]*[a-z0-9])?\.)+[a-z0-9]([a-z0-9-]*[a-z0-9])?$`,
)

// EmailAddress is always stored lower-cased.
type EmailAddress struct {
	value string
}

// ParseEmailAddress accepts any single non-empty value and lower-cases it.
func ParseEmailAddress(raw Raw) (EmailAddress, error) {
	s, err := raw.single(FieldEmailAddress)
	if err != nil {
		return EmailAddress{}, err
	}
	return EmailAddress{value: strings.ToLower(s)}, nil
}

// ParseAndValidateEmailAddress parses raw and checks its structure.
func ParseAndValidateEmailAddress(raw Raw) (EmailAddress, error) {
	e, err := ParseEmailAddress(raw)
	if err != nil {
		return EmailAddress{}, err
	}
	if err := e.Validate(); err != nil {
		return EmailAddress{}, err
	}
	return e, nil
}

// Validate checks length and the structural grammar.
func (e EmailAddress) Validate() error {
	if len(e.value) > emailAddressMaxLen {
		return fieldError(FieldEmailAddress, "must be at most %d characters", emailAddressMaxLen)
	}
	if !emailAddressGrammar.MatchString(e.value) {
		return fieldError(FieldEmailAddress, "must be a valid email address")
	}
	return nil
}

func (e EmailAddress) String() string { return e.value }

// IsZero reports whether e was never parsed.
func (e EmailAddress) IsZero() bool { return e.value == "" }
