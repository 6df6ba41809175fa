package models

import (
	"errors"
	"fmt"
)

// ErrorKind classifies an AppError. Handlers map each kind to one HTTP
// status code.
type ErrorKind string

const (
	KindValidation     ErrorKind = "VALIDATION_ERROR"
	KindAuthentication ErrorKind = "UNAUTHORIZED"
	KindPermission     ErrorKind = "FORBIDDEN"
	KindNotFound       ErrorKind = "NOT_FOUND"
	KindConflict       ErrorKind = "CONFLICT"
	KindStore          ErrorKind = "STORE_ERROR"
)

// AppError is the error type returned by the service layer. Message is
// safe to show to the caller; Err, when present, is the underlying cause.
type AppError struct {
	Kind    ErrorKind
	Message string
	Err     error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// NewValidationError reports a missing or malformed field.
func NewValidationError(message string) *AppError {
	return &AppError{Kind: KindValidation, Message: message}
}

// NewAuthenticationError reports that the caller is not logged in.
func NewAuthenticationError(message string) *AppError {
	return &AppError{Kind: KindAuthentication, Message: message}
}

// NewPermissionError reports that the caller is logged in but not allowed.
func NewPermissionError(message string) *AppError {
	return &AppError{Kind: KindPermission, Message: message}
}

// NewNotFoundError reports that a referenced entity does not exist.
func NewNotFoundError(message string) *AppError {
	return &AppError{Kind: KindNotFound, Message: message}
}

// NewConflictError reports a uniqueness or referential conflict.
func NewConflictError(message string) *AppError {
	return &AppError{Kind: KindConflict, Message: message}
}

// NewStoreError wraps a database failure. The driver detail stays visible
// in Error().
func NewStoreError(message string, err error) *AppError {
	return &AppError{Kind: KindStore, Message: message, Err: err}
}

// KindOf returns the kind of err, treating anything that is not an
// AppError as a store failure.
func KindOf(err error) ErrorKind {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return KindStore
}

// IsKind reports whether err is an AppError of the given kind.
func IsKind(err error, kind ErrorKind) bool {
	var appErr *AppError
	return errors.As(err, &appErr) && appErr.Kind == kind
}
