package util

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/thushan/striker/internal/core/constants"
)

var ErrInvalidLiteral = errors.New("invalid boolean literal")

// InvalidLiteralError carries the string ParseBool could not interpret.
type InvalidLiteralError struct {
	Value string
}

func (e *InvalidLiteralError) Error() string {
	return fmt.Sprintf("%s %q", ErrInvalidLiteral, e.Value)
}

func (e *InvalidLiteralError) Is(target error) bool {
	return target == ErrInvalidLiteral
}

// BoolLiteral is the closed set of inputs ParseBool accepts.
type BoolLiteral interface {
	bool | int | int64 | uint | uint64 | float64 | string
}

// BoolDefault is an optional fallback for ParseBool. The zero value (NoDefault)
// means "no default", so false can be passed as a real default.
type BoolDefault struct {
	value bool
	set   bool
}

var NoDefault = BoolDefault{}

// DefaultTo makes ParseBool return b for unrecognised strings instead of failing.
func DefaultTo(b bool) BoolDefault {
	return BoolDefault{value: b, set: true}
}

// Get returns the default and whether one was supplied.
func (d BoolDefault) Get() (bool, bool) {
	return d.value, d.set
}

// ParseBool converts a loosely formatted value to a bool.
//
// Non-string values use their truthiness (zero is false). Strings made only of
// decimal digits are read as integers, so "0" is false and "7" is true. Other
// strings are matched case-insensitively against true/t/yes/y/on and
// false/f/no/n/off. Anything else returns def if one was supplied, otherwise an
// *InvalidLiteralError (errors.Is(err, ErrInvalidLiteral) holds).
func ParseBool[T BoolLiteral](value T, def BoolDefault) (bool, error) {
	switch v := any(value).(type) {
	case bool:
		return v, nil
	case int:
		return v != 0, nil
	case int64:
		return v != 0, nil
	case uint:
		return v != 0, nil
	case uint64:
		return v != 0, nil
	case float64:
		return v != 0, nil
	case string:
		return parseBoolString(v, def)
	}
	// unreachable, the constraint is closed
	return false, fmt.Errorf("%w: unsupported type %T", ErrInvalidLiteral, value)
}

func parseBoolString(s string, def BoolDefault) (bool, error) {
	if isDigits(s) {
		// any non-zero digit makes the integer non-zero, no need to parse it
		return strings.Trim(s, "0") != "", nil
	}

	lowered := strings.ToLower(s)
	if slices.Contains(constants.TruthyTokens, lowered) {
		return true, nil
	}
	if slices.Contains(constants.FalsyTokens, lowered) {
		return false, nil
	}

	if b, ok := def.Get(); ok {
		return b, nil
	}
	return false, &InvalidLiteralError{Value: s}
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
