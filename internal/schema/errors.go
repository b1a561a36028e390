package schema

import (
	"errors"
	"strings"
)

// ErrorCode categorizes resolution failures.
type ErrorCode string

const (
	UnresolvedReference   ErrorCode = "UnresolvedReference"
	CyclicSchemaReference ErrorCode = "CyclicSchemaReference"
)

// Error reports a reference that could not be expanded.
type Error struct {
	Code    ErrorCode
	Ref     string
	Chain   []string // definition names on the active resolution path
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if len(e.Chain) > 0 {
		return e.Message + " (via " + strings.Join(e.Chain, " -> ") + ")"
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Cause }

// HasCode reports whether err carries a schema Error with the given code.
func HasCode(err error, code ErrorCode) bool {
	var se *Error
	return errors.As(err, &se) && se.Code == code
}
