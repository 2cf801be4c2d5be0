package service

import (
	"errors"
	"fmt"
)

// ErrNoCandidate is returned by auto-assignment when no technician exists
// system-wide, even after the specialty fallback.
var ErrNoCandidate = errors.New("no technicians available: create technician accounts or assign manually")

// ValidationError rejects malformed input before any mutation.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// NotFoundError reports that an entity id did not resolve. Nothing is mutated.
type NotFoundError struct {
	Entity string
	ID     string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s with id %s not found", e.Entity, e.ID)
}

// ConflictError reports a rejected operation together with the identity of
// the conflicting entity, so the caller can reference the existing record.
type ConflictError struct {
	Message    string
	EntityID   string
	EntityName string
}

func (e *ConflictError) Error() string {
	return e.Message
}

// IsNotFound reports whether err wraps a NotFoundError.
func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}

// IsConflict reports whether err wraps a ConflictError.
func IsConflict(err error) bool {
	var c *ConflictError
	return errors.As(err, &c)
}

// IsValidation reports whether err wraps a ValidationError.
func IsValidation(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}
