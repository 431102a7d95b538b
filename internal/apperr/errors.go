// Package apperr defines the errors the auth flows report to API clients.
package apperr

import (
	"errors"
	"net/http"
)

// Kind classifies an APIError.
type Kind string

const (
	KindValidation     Kind = "validation"
	KindDuplicateEmail Kind = "duplicate_email"
	KindUnauthorized   Kind = "unauthorized"
	KindNotFound       Kind = "not_found"
	KindBadRequest     Kind = "bad_request"
	KindInternal       Kind = "internal"
)

// APIError is an error with a client-facing message and HTTP status.
type APIError struct {
	Kind       Kind
	HTTPStatus int
	Message    string
	Err        error
}

func (e *APIError) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *APIError) Unwrap() error {
	return e.Err
}

// Detail returns the underlying error text, if any.
func (e *APIError) Detail() string {
	if e.Err == nil {
		return ""
	}
	return e.Err.Error()
}

// As extracts an APIError from err's chain.
func As(err error) (*APIError, bool) {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr, true
	}
	return nil, false
}

// IsKind reports whether err carries an APIError of the given kind.
func IsKind(err error, kind Kind) bool {
	apiErr, ok := As(err)
	return ok && apiErr.Kind == kind
}

func NewErrValidation(message string) *APIError {
	return &APIError{Kind: KindValidation, HTTPStatus: http.StatusBadRequest, Message: message}
}

func NewErrDuplicateEmail() *APIError {
	return &APIError{Kind: KindDuplicateEmail, HTTPStatus: http.StatusBadRequest, Message: "User already exists"}
}

func NewErrUnauthorized(message string) *APIError {
	return &APIError{Kind: KindUnauthorized, HTTPStatus: http.StatusUnauthorized, Message: message}
}

func NewErrNotFound(message string) *APIError {
	return &APIError{Kind: KindNotFound, HTTPStatus: http.StatusNotFound, Message: message}
}

func NewErrBadRequest(message string, err error) *APIError {
	return &APIError{Kind: KindBadRequest, HTTPStatus: http.StatusBadRequest, Message: message, Err: err}
}

func NewErrInternal(err error) *APIError {
	return &APIError{Kind: KindInternal, HTTPStatus: http.StatusInternalServerError, Message: "Internal server error", Err: err}
}
