// Package apierror provides standardized API error handling.
// These error types are used across all HTTP handlers for consistent
// error responses.
package apierror

import (
	"encoding/json"
	"net/http"

	"github.com/contentgraph/api/pkg/domain/relation"
	"github.com/contentgraph/api/pkg/domain/shared"
)

// Error represents a standardized API error.
type Error struct {
	// HTTP status code
	Status int `json:"-"`

	// Machine-readable error kind
	Kind string `json:"error"`

	// Human-readable error message
	Message string `json:"message"`

	// Additional error details (optional)
	Details any `json:"details,omitempty"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	return e.Kind + ": " + e.Message
}

// WriteJSON writes the error as JSON to the response writer.
func (e *Error) WriteJSON(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(e.Status)
	_ = json.NewEncoder(w).Encode(e)
}

// New creates a new API error.
func New(status int, kind, message string) *Error {
	return &Error{Status: status, Kind: kind, Message: message}
}

// BadRequest creates a 400 error.
func BadRequest(message string) *Error {
	return New(http.StatusBadRequest, "bad_request", message)
}

// Unauthorized creates a 401 error.
func Unauthorized(message string) *Error {
	return New(http.StatusUnauthorized, "unauthorized", message)
}

// Forbidden creates a 403 error.
func Forbidden(message string) *Error {
	return New(http.StatusForbidden, "forbidden", message)
}

// NotFound creates a 404 error.
func NotFound(message string) *Error {
	return New(http.StatusNotFound, "not_found", message)
}

// Conflict creates a 409 error.
func Conflict(message string) *Error {
	return New(http.StatusConflict, "conflict", message)
}

// UnprocessableEntity creates a 422 error.
func UnprocessableEntity(message string, details any) *Error {
	e := New(http.StatusUnprocessableEntity, "validation_failed", message)
	e.Details = details
	return e
}

// Internal creates a 500 error.
func Internal(message string) *Error {
	return New(http.StatusInternalServerError, "internal_error", message)
}

// kindStatus maps relation error kinds to HTTP status codes.
var kindStatus = map[string]int{
	relation.KindRelationNotAllowed:  http.StatusForbidden,
	relation.KindPermissionDenied:    http.StatusForbidden,
	relation.KindImmutableMode:       http.StatusForbidden,
	relation.KindInvalidID:           http.StatusBadRequest,
	relation.KindInvalidRelationType: http.StatusBadRequest,
	relation.KindPostTypeNotAllowed:  http.StatusBadRequest,
	relation.KindSelfRelation:        http.StatusBadRequest,
	relation.KindEndpointNotFound:    http.StatusNotFound,
	relation.KindRelationExists:      http.StatusConflict,
	relation.KindInfiniteLoop:        http.StatusConflict,
	relation.KindMaxRelationships:    http.StatusConflict,
	relation.KindDBError:             http.StatusInternalServerError,
}

// FromDomain translates a domain error into an HTTP error, keeping the
// stable kind in the response body where one exists.
func FromDomain(err error) *Error {
	kind := relation.KindOf(err)
	status, ok := kindStatus[kind]
	if !ok {
		return Internal("unexpected error")
	}
	// Shared sentinels without a relation kind still deserve precise codes.
	if kind == relation.KindDBError {
		switch {
		case shared.IsValidation(err):
			return BadRequest(err.Error())
		case shared.IsNotFound(err):
			return NotFound(err.Error())
		case shared.IsAlreadyExists(err):
			return Conflict(err.Error())
		case shared.IsForbidden(err):
			return Forbidden(err.Error())
		}
	}
	msg := err.Error()
	if status == http.StatusInternalServerError {
		// Do not leak backend details.
		msg = "storage backend failure"
	}
	return New(status, kind, msg)
}
