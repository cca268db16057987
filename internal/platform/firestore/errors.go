package firestore

import (
	"context"
	"errors"
	"fmt"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

type errorClass uint8

const (
	classOther errorClass = iota
	classNotFound
	classConflict
	classUnavailable
)

// grpcClasses maps Firestore status codes onto the repository error classes callers branch on.
var grpcClasses = map[codes.Code]errorClass{
	codes.NotFound:           classNotFound,
	codes.AlreadyExists:      classConflict,
	codes.FailedPrecondition: classConflict,
	codes.Aborted:            classConflict,
	codes.OutOfRange:         classConflict,
	codes.Unavailable:        classUnavailable,
	codes.ResourceExhausted:  classUnavailable,
	codes.Internal:           classUnavailable,
	codes.DeadlineExceeded:   classUnavailable,
}

// Error carries a Firestore failure for carts, pending orders and idempotency records.
// It satisfies repositories.RepositoryError.
type Error struct {
	op    string
	err   error
	class errorClass
}

func (e *Error) Error() string {
	if e.op == "" {
		return e.err.Error()
	}
	return fmt.Sprintf("%s: %v", e.op, e.err)
}

func (e *Error) Unwrap() error { return e.err }

func (e *Error) IsNotFound() bool    { return e != nil && e.class == classNotFound }
func (e *Error) IsConflict() bool    { return e != nil && e.class == classConflict }
func (e *Error) IsUnavailable() bool { return e != nil && e.class == classUnavailable }

// WrapError classifies err by its gRPC status. Cancellation comes back as the plain
// context error so request aborts are not reported as store outages.
func WrapError(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}

	code := status.Code(err)
	switch code {
	case codes.Canceled:
		return context.Canceled
	case codes.DeadlineExceeded:
		return context.DeadlineExceeded
	}

	var existing *Error
	if errors.As(err, &existing) {
		if existing.op == "" {
			existing.op = op
		}
		return existing
	}
	return &Error{op: op, err: err, class: grpcClasses[code]}
}

// IsNotFound reports whether err, or anything it wraps, is a missing document.
func IsNotFound(err error) bool {
	var classified interface{ IsNotFound() bool }
	return errors.As(err, &classified) && classified.IsNotFound()
}
