package errors

import (
	stderrors "errors"
	"fmt"
)

// Error is a coded sqlbatch error. Code is one of the SB constants in codes.go.
type Error struct {
	Code    string // sqlbatch error code
	Message string // Primary error message
	Detail  string // Optional detailed error message
	Hint    string // Optional hint message
	Cause   error  // Underlying error, if any
}

// Error implements the error interface
func (e *Error) Error() string {
	msg := fmt.Sprintf("%s (%s)", e.Message, e.Code)
	if e.Detail != "" {
		msg += " DETAIL: " + e.Detail
	}
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

// Unwrap returns the underlying cause so errors.Is/As see through the wrapper.
func (e *Error) Unwrap() error {
	return e.Cause
}

// New creates a new Error with the given code and message
func New(code string, message string) *Error {
	return &Error{
		Code:    code,
		Message: message,
	}
}

// Newf creates a new Error with a formatted message
func Newf(code string, format string, args ...interface{}) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
	}
}

// Wrap creates a new Error carrying cause.
func Wrap(code string, cause error, message string) *Error {
	return &Error{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// WithDetail adds detail to the error
func (e *Error) WithDetail(detail string) *Error {
	e.Detail = detail
	return e
}

// WithDetailf adds formatted detail to the error
func (e *Error) WithDetailf(format string, args ...interface{}) *Error {
	e.Detail = fmt.Sprintf(format, args...)
	return e
}

// WithHint adds a hint to the error
func (e *Error) WithHint(hint string) *Error {
	e.Hint = hint
	return e
}

// Common error constructors

// ReadErrorf creates a statement file read error.
func ReadErrorf(cause error, path string) *Error {
	return Wrap(ReadError, cause, fmt.Sprintf("cannot read statement file %q", path)).
		WithHint("Check the --file path and its permissions.")
}

// InvocationFaultf creates an error for a client process that could not be
// started or whose pipes failed.
func InvocationFaultf(cause error, format string, args ...interface{}) *Error {
	return Wrap(InvocationFault, cause, fmt.Sprintf(format, args...))
}

// TimeoutError creates an invocation timeout error.
func TimeoutError(limit fmt.Stringer) *Error {
	return Newf(InvocationTimeout, "client did not finish within %s", limit).
		WithHint("Raise client.timeout or set it to 0 to disable the limit.")
}

// InvalidConfigf creates a configuration error.
func InvalidConfigf(format string, args ...interface{}) *Error {
	return Newf(InvalidConfig, format, args...)
}

// ReportErrorf creates a report writer error.
func ReportErrorf(cause error, format string, args ...interface{}) *Error {
	return Wrap(ReportFailure, cause, fmt.Sprintf(format, args...))
}

// IsError checks if an error is an sqlbatch Error with a specific code
func IsError(err error, code string) bool {
	var sbErr *Error
	if !stderrors.As(err, &sbErr) {
		return false
	}
	return sbErr.Code == code
}

// GetError attempts to extract an sqlbatch Error from any error
func GetError(err error) *Error {
	if err == nil {
		return nil
	}
	var sbErr *Error
	if stderrors.As(err, &sbErr) {
		return sbErr
	}
	// Wrap generic errors as internal errors
	return Wrap(InternalError, err, "internal error")
}
