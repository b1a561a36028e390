package endpoint

import (
	"errors"
	"fmt"
)

// ErrorCode categorizes endpoint build failures.
type ErrorCode string

const (
	UnsupportedMethod            ErrorCode = "UnsupportedMethod"
	UnsupportedParameterLocation ErrorCode = "UnsupportedParameterLocation"
	InvalidRequestBodyMethod     ErrorCode = "InvalidRequestBodyMethod"
	MissingRequestBodyContent    ErrorCode = "MissingRequestBodyContent"
	MissingResponseBodyContent   ErrorCode = "MissingResponseBodyContent"
	FilterExtractionDefect       ErrorCode = "FilterExtractionDefect"
	SchemaResolution             ErrorCode = "SchemaResolution"
)

// BuildError reports why one operation could not be turned into an Endpoint.
type BuildError struct {
	Code        ErrorCode
	OperationID string
	Method      string
	Path        string
	Message     string
	Cause       error
}

func (e *BuildError) Error() string {
	where := e.Method + " " + e.Path
	if e.OperationID != "" {
		where = e.OperationID + " (" + where + ")"
	}
	msg := fmt.Sprintf("%s: %s", where, e.Message)
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

func (e *BuildError) Unwrap() error { return e.Cause }

// HasCode reports whether err carries a BuildError with the given code.
func HasCode(err error, code ErrorCode) bool {
	var be *BuildError
	return errors.As(err, &be) && be.Code == code
}
