package repositories

import (
	"errors"
	"fmt"
)

// StoreErrorCode enumerates failure reasons shared by the non-Firestore stores.
type StoreErrorCode string

const (
	// StoreErrorNotFound indicates the record does not exist.
	StoreErrorNotFound StoreErrorCode = "not_found"
	// StoreErrorConflict indicates a create collided with an existing record.
	StoreErrorConflict StoreErrorCode = "conflict"
	// StoreErrorUnavailable indicates the backend could not be reached.
	StoreErrorUnavailable StoreErrorCode = "unavailable"
)

// StoreError wraps store failures with machine readable codes and satisfies RepositoryError.
type StoreError struct {
	Op   string
	Code StoreErrorCode
	Err  error
}

var _ RepositoryError = (*StoreError)(nil)

// NewStoreError constructs a typed store error.
func NewStoreError(op string, code StoreErrorCode, err error) *StoreError {
	if err == nil {
		err = errors.New(string(code))
	}
	return &StoreError{Op: op, Code: code, Err: err}
}

// Error implements the error interface.
func (e *StoreError) Error() string {
	if e == nil {
		return ""
	}
	if e.Op != "" {
		return fmt.Sprintf("%s: %s: %v", e.Op, e.Code, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Code, e.Err)
}

// Unwrap exposes the underlying error, if any.
func (e *StoreError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

func (e *StoreError) IsNotFound() bool    { return e != nil && e.Code == StoreErrorNotFound }
func (e *StoreError) IsConflict() bool    { return e != nil && e.Code == StoreErrorConflict }
func (e *StoreError) IsUnavailable() bool { return e != nil && e.Code == StoreErrorUnavailable }

// IsNotFound reports whether err carries a RepositoryError classified as not found.
func IsNotFound(err error) bool {
	var repoErr RepositoryError
	return errors.As(err, &repoErr) && repoErr.IsNotFound()
}

// IsConflict reports whether err carries a RepositoryError classified as a conflict.
func IsConflict(err error) bool {
	var repoErr RepositoryError
	return errors.As(err, &repoErr) && repoErr.IsConflict()
}
