// Package domainerrors provides coded errors for the vigil domain.
//
// Services return these so transport layers can translate them into HTTP
// responses without inspecting error strings. Infrastructure facts (record
// missing, record expired) live in pkg/platform/sentinel; services translate
// sentinel errors into coded domain errors at the boundary.
package domainerrors

import (
	"errors"
	"fmt"
	"net/http"
)

// Code classifies a domain error. Codes are part of the wire contract: they
// appear verbatim in the JSON error envelope.
type Code string

const (
	// Validation failures: rejected before any mutation, retry after correcting input.
	CodeInvalidInput    Code = "invalid_input"
	CodeInvalidLocation Code = "invalid_location"
	CodeBadRequest      Code = "bad_request"

	// Conflicts: surfaced to the caller, never retried automatically.
	CodeDuplicateEmail    Code = "duplicate_email"
	CodeInvalidTransition Code = "invalid_transition"
	CodeConflict          Code = "conflict"

	// Authorization: surfaced with minimal detail.
	CodeInvalidCredentials Code = "invalid_credentials"
	CodeAccountNotApproved Code = "account_not_approved"
	CodeUnauthorized       Code = "unauthorized"
	CodeForbidden          Code = "forbidden"

	// Resource availability and expiry.
	CodeNotFound   Code = "not_found"
	CodeNoCoverage Code = "no_coverage"
	CodeExpired    Code = "expired"
	CodeMismatch   Code = "mismatch"

	// Everything else.
	CodeInvariantViolation Code = "invariant_violation"
	CodeInternal           Code = "internal"
)

// Error is a coded domain error.
type Error struct {
	Code    Code
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// New creates a domain error with the given code and message.
func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// HasCode reports whether err is (or wraps) a domain error with the code.
func HasCode(err error, code Code) bool {
	var de *Error
	if errors.As(err, &de) {
		return de.Code == code
	}
	return false
}

// CodeOf extracts the code from err, defaulting to CodeInternal for
// unclassified errors so nothing leaks implementation detail to clients.
func CodeOf(err error) Code {
	var de *Error
	if errors.As(err, &de) {
		return de.Code
	}
	return CodeInternal
}

// MessageOf extracts the client-safe message from err.
func MessageOf(err error) string {
	var de *Error
	if errors.As(err, &de) {
		return de.Message
	}
	return "internal error"
}

// ToHTTPStatus maps a domain error code onto an HTTP status.
func ToHTTPStatus(code Code) int {
	switch code {
	case CodeInvalidInput, CodeInvalidLocation, CodeBadRequest,
		CodeInvalidCredentials, CodeExpired, CodeMismatch:
		return http.StatusBadRequest
	case CodeUnauthorized:
		return http.StatusUnauthorized
	case CodeForbidden, CodeAccountNotApproved:
		return http.StatusForbidden
	case CodeNotFound, CodeNoCoverage:
		return http.StatusNotFound
	case CodeDuplicateEmail:
		return http.StatusBadRequest
	case CodeInvalidTransition, CodeConflict:
		return http.StatusConflict
	case CodeInvariantViolation, CodeInternal:
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}
