package domain

// Raw is an untrusted input value exactly as a transport delivered it: nil
// when absent, one element for a single value, several elements when the
// caller repeated the parameter.
type Raw []string

// RawString wraps a single known value.
func RawString(s string) Raw {
	return Raw{s}
}

// single returns the lone non-empty value of r, or a field error that tells
// a wrong-shaped input apart from a missing one.
func (r Raw) single(field string) (string, error) {
	switch {
	case len(r) > 1:
		return "", fieldError(field, "must be a single value")
	case len(r) == 0 || r[0] == "":
		return "", fieldError(field, "is required")
	}
	return r[0], nil
}
