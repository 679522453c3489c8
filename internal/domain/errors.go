package domain

import (
	"errors"
	"fmt"
	"strings"
)

// ErrNotFound is returned when a company scoped lookup misses.
var ErrNotFound = errors.New("not found")

// ValidationError reports missing or malformed request fields.
type ValidationError struct {
	Fields  []string
	Message string
}

// NewMissingFieldsError builds a validation error for absent required fields.
func NewMissingFieldsError(fields ...string) *ValidationError {
	return &ValidationError{Fields: fields}
}

func (e *ValidationError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("missing required fields: %s", strings.Join(e.Fields, ", "))
}

// ConflictError is returned when a unique field is already taken.
type ConflictError struct {
	Field    string
	Value    string
	Existing any
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("%s %q already exists", e.Field, e.Value)
}

// IsValidation reports whether err carries a ValidationError.
func IsValidation(err error) bool {
	var target *ValidationError
	return errors.As(err, &target)
}
