// Package shared contains common domain types, errors and value objects
// that are used across all domain packages. This package has zero external dependencies.
package shared

import (
	"errors"
	"fmt"
)

// Base error kinds that can be used for error checking with errors.Is().
var (
	// Entity errors
	ErrNotFound      = errors.New("entity not found")
	ErrAlreadyExists = errors.New("entity already exists")

	// Validation errors
	ErrValidation      = errors.New("validation error")
	ErrInvalidInput    = errors.New("invalid input")
	ErrEmptyValue      = errors.New("value cannot be empty")
	ErrNegativeValue   = errors.New("value cannot be negative")
	ErrValueOutOfRange = errors.New("value out of range")
	ErrInvalidFormat   = errors.New("invalid format")

	// Transient errors: the same call may succeed later.
	ErrTransient          = errors.New("transient failure")
	ErrTimeout            = errors.New("operation timeout")
	ErrServiceUnavailable = errors.New("service unavailable")
	ErrRateLimited        = errors.New("rate limited")

	// Non-retryable external failures.
	ErrExternalService = errors.New("external service error")
)

// DomainError represents a domain-specific error with context.
type DomainError struct {
	Domain  string // e.g., "profile", "leaderboard", "leetcode"
	Op      string // Operation that failed, e.g., "Validate", "Upsert"
	Kind    error  // Base error type for errors.Is() checking
	Message string // Human-readable message
	Err     error  // Underlying error (optional)
}

// Error implements the error interface.
func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s.%s: %s: %v", e.Domain, e.Op, e.Message, e.Err)
	}
	return fmt.Sprintf("%s.%s: %s", e.Domain, e.Op, e.Message)
}

// Unwrap returns the underlying error for errors.Unwrap().
func (e *DomainError) Unwrap() error {
	if e.Err != nil {
		return e.Err
	}
	return e.Kind
}

// Is implements errors.Is() matching.
func (e *DomainError) Is(target error) bool {
	if t, ok := target.(*DomainError); ok {
		return e.Domain == t.Domain && e.Op == t.Op && e.Message == t.Message
	}
	if e.Kind != nil && errors.Is(e.Kind, target) {
		return true
	}
	if e.Err != nil && errors.Is(e.Err, target) {
		return true
	}
	return false
}

// UserMessage returns the human-readable part without domain/op prefixes.
func (e *DomainError) UserMessage() string {
	return e.Message
}

// NewDomainError creates a new domain error.
func NewDomainError(domain, op string, kind error, message string) *DomainError {
	return &DomainError{
		Domain:  domain,
		Op:      op,
		Kind:    kind,
		Message: message,
	}
}

// WrapError wraps an existing error with domain context.
func WrapError(domain, op string, kind error, message string, err error) *DomainError {
	return &DomainError{
		Domain:  domain,
		Op:      op,
		Kind:    kind,
		Message: message,
		Err:     err,
	}
}

// Wrap returns a copy of a sentinel domain error carrying err as its cause.
func (e *DomainError) Wrap(err error) *DomainError {
	return WrapError(e.Domain, e.Op, e.Kind, e.Message, err)
}

// Profile domain errors
var (
	ErrInvalidUsername = NewDomainError("profile", "Validate", ErrValidation,
		"username must be 3-30 characters of letters, digits, '_' or '-'")
	ErrProfileNotFound = NewDomainError("profile", "Find", ErrNotFound,
		"profile does not exist on LeetCode, check the username spelling")
	ErrProfileVerificationFailed = NewDomainError("profile", "Verify", ErrTransient,
		"could not reach LeetCode to verify the profile, try again later")
	ErrInvalidSample = NewDomainError("profile", "ValidateSample", ErrValidation, "invalid stat sample")
)

// Group domain errors
var (
	ErrGroupNotFound = NewDomainError("group", "Find", ErrNotFound, "group not found")
)

// Leaderboard domain errors
var (
	ErrSnapshotNotFound   = NewDomainError("leaderboard", "FindSnapshot", ErrNotFound, "snapshot not found")
	ErrInvalidSnapshot    = NewDomainError("leaderboard", "ValidateSnapshot", ErrValidation, "invalid snapshot payload")
	ErrGroupNotEligible   = NewDomainError("leaderboard", "BuildSnapshot", ErrInvalidInput, "group has too few members for a snapshot")
	ErrUnsupportedVersion = NewDomainError("leaderboard", "DecodeSnapshot", ErrInvalidFormat, "unsupported snapshot payload version")
)

// External service errors
var (
	ErrLeetCodeTimeout         = NewDomainError("leetcode", "Request", ErrTimeout, "LeetCode request timed out")
	ErrLeetCodeUnavailable     = NewDomainError("leetcode", "Request", ErrServiceUnavailable, "LeetCode is unavailable")
	ErrLeetCodeRateLimited     = NewDomainError("leetcode", "Request", ErrRateLimited, "LeetCode rate limit exceeded")
	ErrLeetCodeRejected        = NewDomainError("leetcode", "Request", ErrExternalService, "LeetCode rejected the request")
	ErrLeetCodeInvalidResponse = NewDomainError("leetcode", "Parse", ErrInvalidFormat, "invalid response from LeetCode")
)

// IsNotFound checks if the error is a "not found" error.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsValidation checks if the error is a validation error.
func IsValidation(err error) bool {
	return errors.Is(err, ErrValidation) ||
		errors.Is(err, ErrInvalidInput) ||
		errors.Is(err, ErrEmptyValue) ||
		errors.Is(err, ErrNegativeValue) ||
		errors.Is(err, ErrValueOutOfRange)
}

// IsTransient checks if the operation may succeed when repeated.
func IsTransient(err error) bool {
	return errors.Is(err, ErrTransient) ||
		errors.Is(err, ErrServiceUnavailable) ||
		errors.Is(err, ErrTimeout) ||
		errors.Is(err, ErrRateLimited)
}

// UserMessage extracts a human-readable message from err, falling back to err.Error().
func UserMessage(err error) string {
	var de *DomainError
	if errors.As(err, &de) {
		return de.UserMessage()
	}
	return err.Error()
}
