package store

import (
	"errors"
	"fmt"
)

// Sentinel errors callers can match with errors.Is.
var (
	ErrNotFound        = errors.New("store: baseline not found")
	ErrTooLarge        = errors.New("store: baseline exceeds size limit")
	ErrInvalidJSON     = errors.New("store: baseline is not valid JSON")
	ErrInvalidSchema   = errors.New("store: baseline does not match the required shape")
	ErrIntegrityFailure = errors.New("store: stored hash does not match recomputed hash")
)

// NotFoundError wraps ErrNotFound with the baseline key that was missing.
type NotFoundError struct {
	Key string
}

func (e *NotFoundError) Error() string { return fmt.Sprintf("store: baseline %q not found", e.Key) }
func (e *NotFoundError) Unwrap() error { return ErrNotFound }

// TooLargeError wraps ErrTooLarge with the observed and permitted sizes.
type TooLargeError struct {
	Key     string
	SizeBytes, LimitBytes int64
}

func (e *TooLargeError) Error() string {
	return fmt.Sprintf("store: baseline %q is %d bytes, exceeding the %d byte limit", e.Key, e.SizeBytes, e.LimitBytes)
}
func (e *TooLargeError) Unwrap() error { return ErrTooLarge }

// InvalidJSONError wraps ErrInvalidJSON with the underlying decode error.
type InvalidJSONError struct {
	Key string
	Err error
}

func (e *InvalidJSONError) Error() string {
	return fmt.Sprintf("store: baseline %q is not valid JSON: %v", e.Key, e.Err)
}
func (e *InvalidJSONError) Unwrap() error { return ErrInvalidJSON }

// InvalidSchemaError wraps ErrInvalidSchema with the validation messages.
type InvalidSchemaError struct {
	Key    string
	Issues []string
}

func (e *InvalidSchemaError) Error() string {
	return fmt.Sprintf("store: baseline %q failed shape validation: %v", e.Key, e.Issues)
}
func (e *InvalidSchemaError) Unwrap() error { return ErrInvalidSchema }

// IntegrityFailureError wraps ErrIntegrityFailure with both hashes.
type IntegrityFailureError struct {
	Key                   string
	StoredHash, Recomputed string
}

func (e *IntegrityFailureError) Error() string {
	return fmt.Sprintf("store: baseline %q integrity check failed: stored %s, recomputed %s", e.Key, e.StoredHash, e.Recomputed)
}
func (e *IntegrityFailureError) Unwrap() error { return ErrIntegrityFailure }
