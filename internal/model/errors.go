package model

import (
	"errors"
	"fmt"
)

// ValidationError reports a missing or malformed request field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// NewValidationError returns a ValidationError for the given field.
func NewValidationError(field, format string, args ...any) *ValidationError {
	return &ValidationError{
		Field:   field,
		Message: fmt.Sprintf(format, args...),
	}
}

// NotFoundError reports a reference lookup with no match, such as an unknown
// country name.
type NotFoundError struct {
	Kind string
	Name string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %q not found", e.Kind, e.Name)
}

// NoDataError reports that the remote catalog holds no observations for the
// requested window. It is surfaced as a structured result, not an HTTP error.
type NoDataError struct {
	Message string
}

func (e *NoDataError) Error() string {
	return e.Message
}

// ServiceError wraps a failure of the remote processing backend. Its message
// is the backend message, passed through verbatim.
type ServiceError struct {
	Op  string
	Err error
}

func (e *ServiceError) Error() string {
	if e.Err == nil {
		return e.Op + " failed"
	}
	return e.Err.Error()
}

func (e *ServiceError) Unwrap() error {
	return e.Err
}

// NewServiceError wraps err as a ServiceError for op. Errors that are already
// classified are returned unchanged.
func NewServiceError(op string, err error) error {
	if err == nil {
		return nil
	}
	if IsClassified(err) {
		return err
	}
	return &ServiceError{Op: op, Err: err}
}

// IsClassified reports whether err already carries one of the API error kinds.
func IsClassified(err error) bool {
	var (
		validationErr *ValidationError
		notFoundErr   *NotFoundError
		noDataErr     *NoDataError
		serviceErr    *ServiceError
	)
	return errors.As(err, &validationErr) ||
		errors.As(err, &notFoundErr) ||
		errors.As(err, &noDataErr) ||
		errors.As(err, &serviceErr)
}
