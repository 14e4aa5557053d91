package glosas

import (
	"errors"
	"fmt"
)

var (
	// ErrValidation marks malformed caller input.
	ErrValidation = errors.New("glosas: validation failed")
	// ErrNotFound indicates the request matched no rows.
	ErrNotFound = errors.New("glosas: not found")
)

// ValidationError describes a rejected input field.
type ValidationError struct {
	Field   string
	Message string
}

func newValidationError(field, message string) ValidationError {
	return ValidationError{Field: field, Message: message}
}

func (e ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Unwrap lets errors.Is match ErrValidation.
func (e ValidationError) Unwrap() error {
	return ErrValidation
}

// DataSourceError wraps a failure of the external data source.
type DataSourceError struct {
	Op  string
	Err error
}

func (e *DataSourceError) Error() string {
	return fmt.Sprintf("glosas: data source %s: %v", e.Op, e.Err)
}

func (e *DataSourceError) Unwrap() error {
	return e.Err
}
