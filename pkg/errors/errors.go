package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Error represents a typed domain error with HTTP awareness.
type Error struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Status  int    `json:"status"`
	Err     error  `json:"-"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the wrapped error.
func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// New creates a new Error instance.
func New(code string, status int, message string) *Error {
	return &Error{Code: code, Status: status, Message: message}
}

// Wrap attaches context to an existing error.
func Wrap(err error, code string, status int, message string) *Error {
	return &Error{Code: code, Status: status, Message: message, Err: err}
}

// FromError normalises any error into an *Error.
func FromError(err error) *Error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return Wrap(err, ErrInternal.Code, ErrInternal.Status, ErrInternal.Message)
}

// Clone returns a copy of the error allowing for message overrides.
func Clone(err *Error, message string) *Error {
	if err == nil {
		return nil
	}
	clone := *err
	if message != "" {
		clone.Message = message
	}
	return &clone
}

// Predefined errors for common scenarios.
var (
	ErrValidation         = New("VALIDATION_ERROR", http.StatusBadRequest, "validation failed")
	ErrNotFound           = New("NOT_FOUND", http.StatusNotFound, "resource not found")
	ErrDuplicateID        = New("DUPLICATE_ID", http.StatusConflict, "identifier already exists")
	ErrStorageUnavailable = New("STORAGE_UNAVAILABLE", http.StatusServiceUnavailable, "content storage unavailable")
	ErrMetadataPersist    = New("METADATA_PERSIST_FAILURE", http.StatusServiceUnavailable, "document metadata could not be persisted")
	ErrInvalidTransition  = New("INVALID_TRANSITION", http.StatusConflict, "signature is no longer pending")
	ErrVersionConflict    = New("VERSION_CONFLICT", http.StatusConflict, "document was modified concurrently")
	ErrIndexing           = New("INDEXING_FAILURE", http.StatusInternalServerError, "document could not be indexed")
	ErrIndexUnavailable   = New("INDEX_UNAVAILABLE", http.StatusServiceUnavailable, "question answering backend unreachable")
	ErrShareInvalid       = New("SHARE_INVALID", http.StatusForbidden, "share token invalid or expired")
	ErrLinkInvalid        = New("LINK_INVALID", http.StatusForbidden, "download link invalid or expired")
	ErrInternal           = New("INTERNAL_ERROR", http.StatusInternalServerError, "internal server error")
	ErrCacheMiss          = New("CACHE_MISS", http.StatusInternalServerError, "cache miss")
)
