package models

import (
	"fmt"
	"strings"
)

// ValidationError reports every offending field or score in one go, so the
// caller sees the full list instead of the first failure.
type ValidationError struct {
	Problems []string
}

func NewValidationError(problems ...string) *ValidationError {
	return &ValidationError{Problems: problems}
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed: %s", strings.Join(e.Problems, "; "))
}

type NotFoundError struct {
	Msg string
}

func (e *NotFoundError) Error() string {
	return e.Msg
}

// ConflictError signals a uniqueness violation, e.g. a duplicate metric name.
type ConflictError struct {
	Msg string
}

func (e *ConflictError) Error() string {
	return e.Msg
}

// IntegrityError signals a referential-integrity violation, e.g. deleting a
// metric that existing grades still reference.
type IntegrityError struct {
	Msg string
}

func (e *IntegrityError) Error() string {
	return e.Msg
}
