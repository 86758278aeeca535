package store

import (
	"errors"
	"fmt"
)

// Common sentinel errors
var (
	ErrRoutingNotFound = errors.New("routing not found")
	ErrEmptyModelID    = errors.New("model id is empty")
	ErrStoreClosed     = errors.New("store is closed")
)

// StoreError provides structured error information for store operations.
type StoreError struct {
	Op      string // Operation that failed (e.g., "replace", "delete")
	ModelID string // Model the operation targeted (if applicable)
	Backend string // Backend name (memory, sqlite, postgres)
	Cause   error  // Underlying error
	Context string // Additional context
}

// Error implements the error interface.
func (e *StoreError) Error() string {
	op := e.Op
	if e.Backend != "" {
		op = e.Backend + " " + op
	}
	if e.ModelID != "" {
		if e.Context != "" {
			return fmt.Sprintf("%s routing %s (%s): %v", op, e.ModelID, e.Context, e.Cause)
		}
		return fmt.Sprintf("%s routing %s: %v", op, e.ModelID, e.Cause)
	}
	if e.Context != "" {
		return fmt.Sprintf("%s (%s): %v", op, e.Context, e.Cause)
	}
	return fmt.Sprintf("%s: %v", op, e.Cause)
}

// Unwrap returns the underlying cause for error chain support.
func (e *StoreError) Unwrap() error {
	return e.Cause
}

// Is reports whether the target error matches this error or its cause.
func (e *StoreError) Is(target error) bool {
	if target == nil {
		return false
	}
	return errors.Is(e.Cause, target)
}

// ErrorBuilder provides a fluent interface for building StoreErrors.
type ErrorBuilder struct {
	err StoreError
}

// NewError creates a new error builder with the given operation.
func NewError(op string) *ErrorBuilder {
	return &ErrorBuilder{err: StoreError{Op: op}}
}

// Model sets the model the operation targeted.
func (b *ErrorBuilder) Model(id string) *ErrorBuilder {
	b.err.ModelID = id
	return b
}

// Backend names the backend the error came from.
func (b *ErrorBuilder) Backend(name string) *ErrorBuilder {
	b.err.Backend = name
	return b
}

// Context sets additional context information.
func (b *ErrorBuilder) Context(ctx string) *ErrorBuilder {
	b.err.Context = ctx
	return b
}

// Cause sets the underlying error cause.
func (b *ErrorBuilder) Cause(err error) *ErrorBuilder {
	b.err.Cause = err
	return b
}

// Build returns the constructed StoreError.
func (b *ErrorBuilder) Build() *StoreError {
	return &b.err
}

// Err returns the error as an error interface.
func (b *ErrorBuilder) Err() error {
	return &b.err
}

// Convenience functions for common error patterns

// RoutingNotFoundError creates a not found error for a model.
func RoutingNotFoundError(backend, modelID string) error {
	return NewError("get").Backend(backend).Model(modelID).Cause(ErrRoutingNotFound).Err()
}

// IsNotFound returns true if the error indicates an absent routing.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrRoutingNotFound)
}

// IsClosed returns true if the error indicates the store is closed.
func IsClosed(err error) bool {
	return errors.Is(err, ErrStoreClosed)
}
