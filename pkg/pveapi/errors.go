package pveapi

import (
	"errors"
	"fmt"
)

// Error is a client failure carrying a stable code.
//
// Two errors are considered equal by errors.Is when their codes match, so callers
// can branch on the sentinels below regardless of the details attached.
type Error struct {
	Code    string // Error code (e.g., "PVE-AUTH-4010")
	Message string // Human-readable message
	Details string // Optional additional details
	Cause   error  // Underlying error (if any)
}

// Error implements the error interface.
func (e *Error) Error() string {
	msg := fmt.Sprintf("[%s] %s", e.Code, e.Message)
	if e.Details != "" {
		msg += ": " + e.Details
	}
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target carries the same code.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

func newError(code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// WithDetails returns a copy of the error with additional details.
func (e *Error) WithDetails(details string) *Error {
	return &Error{
		Code:    e.Code,
		Message: e.Message,
		Details: details,
		Cause:   e.Cause,
	}
}

// WithCause returns a copy of the error wrapping the given cause.
func (e *Error) WithCause(cause error) *Error {
	return &Error{
		Code:    e.Code,
		Message: e.Message,
		Details: e.Details,
		Cause:   cause,
	}
}

var (
	// ErrConfiguration indicates a required construction field is missing.
	ErrConfiguration = newError("PVE-CFG-4000", "invalid client configuration")

	// ErrAuth indicates the login exchange returned an unusable payload.
	ErrAuth = newError("PVE-AUTH-4010", "authentication failed")

	// ErrNotAuthenticated indicates a dispatch without a valid session.
	ErrNotAuthenticated = newError("PVE-AUTH-4011", "not logged in: no ticket or ticket expired")

	// ErrInvalidArgument indicates a convenience call is missing a required parameter.
	ErrInvalidArgument = newError("PVE-REQ-4000", "invalid argument")

	// ErrUnsupportedMethod indicates a verb outside GET, PUT, POST and DELETE.
	ErrUnsupportedMethod = newError("PVE-REQ-4050", "http method not allowed")

	// ErrRequestRejected matches every *RejectedError.
	ErrRequestRejected = newError("PVE-RESP-4000", "request rejected")

	// ErrEmptyResponse indicates the server returned nothing.
	ErrEmptyResponse = newError("PVE-RESP-5020", "empty response")

	// ErrMalformedResponse indicates a status line or payload that cannot be interpreted.
	ErrMalformedResponse = newError("PVE-RESP-5021", "malformed response")

	// ErrTransport indicates a network or TLS failure.
	ErrTransport = newError("PVE-NET-5030", "transport failure")
)

// RejectedError is returned when the server answers with a status other than 200.
type RejectedError struct {
	StatusCode int
	StatusLine string
}

// Error implements the error interface.
func (e *RejectedError) Error() string {
	return fmt.Sprintf("[%s] %s: HTTP %d (%s)", ErrRequestRejected.Code, ErrRequestRejected.Message, e.StatusCode, e.StatusLine)
}

// Is lets errors.Is(err, ErrRequestRejected) match.
func (e *RejectedError) Is(target error) bool {
	return target == ErrRequestRejected
}

// ErrorCode extracts the error code from err, or "" when err carries none.
func ErrorCode(err error) string {
	var re *RejectedError
	if errors.As(err, &re) {
		return ErrRequestRejected.Code
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// StatusCode returns the HTTP status of a rejected request.
func StatusCode(err error) (int, bool) {
	var re *RejectedError
	if errors.As(err, &re) {
		return re.StatusCode, true
	}
	return 0, false
}
