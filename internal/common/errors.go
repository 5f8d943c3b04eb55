// Package common provides shared utilities and types used across the application.
package common

import (
	"context"
	"errors"
	"fmt"
)

// Common application errors.
var (
	ErrNotFound = errors.New("not found")

	// Input errors.
	ErrMalformedInput = errors.New("malformed input")
	ErrMissingField   = errors.New("missing field")

	// Table store errors.
	ErrExternalStore = errors.New("external store failure")
	ErrPageLimit     = errors.New("page limit reached")

	// Configuration errors.
	ErrMissingConfig = errors.New("missing configuration")
	ErrInvalidConfig = errors.New("invalid configuration")
)

// UserError represents an error that should be shown to the user.
type UserError struct {
	Err         error
	UserMessage string
}

func (e *UserError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.UserMessage, e.Err)
	}
	return e.UserMessage
}

func (e *UserError) Unwrap() error {
	return e.Err
}

// NewUserError creates a new user-friendly error.
func NewUserError(userMessage string, err error) error {
	return &UserError{
		UserMessage: userMessage,
		Err:         err,
	}
}

// MalformedInputError describes a record field that could not be decoded.
type MalformedInputError struct {
	RecordID string
	Field    string
	Raw      any
	Reason   string
}

func (e *MalformedInputError) Error() string {
	return fmt.Sprintf("record %s: field %q (%v): %s", e.RecordID, e.Field, e.Raw, e.Reason)
}

func (e *MalformedInputError) Unwrap() error {
	return ErrMalformedInput
}

// NewMalformedInput creates an error for an unusable record field.
func NewMalformedInput(recordID, field string, raw any, reason string) error {
	return &MalformedInputError{RecordID: recordID, Field: field, Raw: raw, Reason: reason}
}

// IsRetryable determines if an error should trigger a retry.
func IsRetryable(err error) bool {
	if errors.Is(err, ErrRateLimit) ||
		errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	var retryableErr *RetryableError
	if errors.As(err, &retryableErr) {
		return retryableErr.Retryable
	}

	return false
}
