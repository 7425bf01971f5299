package models

import (
	"errors"
	"fmt"
)

var (
	ErrEntryNotFound = errors.New("entry not found")
	ErrUnauthorized  = errors.New("missing or invalid credentials")
)

// ValidationError marks input rejected before any persistence happened.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// NewValidationError creates a validation error for a single field
func NewValidationError(field, reason string) *ValidationError {
	return &ValidationError{Field: field, Reason: reason}
}

// RateLimitError marks a submission rejected by one of the rate limit
// policies. Scope names the specific limit that was hit so the client can
// show it.
type RateLimitError struct {
	Scope string // "cell_per_day" or "user_per_hour"
	Limit int
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("rate limit exceeded (%s, limit %d)", e.Scope, e.Limit)
}

// StoreError wraps an underlying persistence failure
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("store error during %s: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}
