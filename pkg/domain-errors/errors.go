// Package domainerrors carries coded errors across layer boundaries. Stores
// return infrastructure sentinels (pkg/platform/sentinel); services translate
// them into coded errors; the HTTP layer maps codes onto status codes. Nothing
// below the service layer leaks raw storage errors to the client.
package domainerrors

import (
	"errors"
	"fmt"
	"net/http"
)

// Code identifies a class of failure independent of transport.
type Code string

const (
	CodeBadRequest   Code = "bad_request"
	CodeUnauthorized Code = "unauthorized"
	CodeForbidden    Code = "forbidden"
	CodeNotFound     Code = "not_found"
	CodeConflict     Code = "conflict"
	CodeTimeout      Code = "timeout"
	CodeInternal     Code = "internal_error"

	// CodeInvalidToken covers provider credential verification failures.
	CodeInvalidToken Code = "invalid_token"
	// CodeLastIdentity blocks unlinking a user's only identity.
	CodeLastIdentity Code = "last_identity"
	// CodeAlreadyLinked means an attach bypassed collision detection. This is
	// a programming error and must not normally reach the client.
	CodeAlreadyLinked Code = "already_linked"
	CodePendingLinkNotFound Code = "pending_link_not_found"
	CodePendingLinkExpired  Code = "pending_link_expired"
	// CodeMergeFailed means the merge transaction aborted and rolled back.
	// Safe to retry.
	CodeMergeFailed Code = "merge_failed"
)

// Error is the coded error type passed between layers.
type Error struct {
	Code    Code
	Message string
	cause   error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.cause }

// Is lets errors.Is match two coded errors by code and message, so tests can
// compare against a freshly constructed expectation.
func (e *Error) Is(target error) bool {
	other, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Code == other.Code && e.Message == other.Message
}

// New creates a coded error without a cause.
func New(code Code, message string) error {
	return &Error{Code: code, Message: message}
}

// Wrap attaches a code and message to an underlying error, preserving the
// cause for errors.Is / errors.As chains.
func Wrap(err error, code Code, message string) error {
	return &Error{Code: code, Message: message, cause: err}
}

// HasCode reports whether err (or anything it wraps) carries the given code.
func HasCode(err error, code Code) bool {
	var coded *Error
	if errors.As(err, &coded) {
		return coded.Code == code
	}
	return false
}

// Is is a readability alias for HasCode.
func Is(err error, code Code) bool {
	return HasCode(err, code)
}

// CodeOf extracts the code from err, defaulting to CodeInternal for errors
// that never went through this package.
func CodeOf(err error) Code {
	var coded *Error
	if errors.As(err, &coded) {
		return coded.Code
	}
	return CodeInternal
}

// ToHTTPStatus maps a code onto the HTTP status the client should see.
func ToHTTPStatus(code Code) int {
	switch code {
	case CodeBadRequest, CodeLastIdentity, CodePendingLinkNotFound:
		return http.StatusBadRequest
	case CodeUnauthorized, CodeInvalidToken:
		return http.StatusUnauthorized
	case CodeForbidden:
		return http.StatusForbidden
	case CodeNotFound:
		return http.StatusNotFound
	case CodeConflict:
		return http.StatusConflict
	case CodePendingLinkExpired:
		return http.StatusGone
	case CodeTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}
