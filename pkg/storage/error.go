package storage

import (
	"context"
	"errors"
	"fmt"
	"net"
)

// Class tells the tiered store and sync queue which policy applies to a
// failed operation.
type Class string

const (
	// ClassTransient is a connectivity failure or timeout. Retry later.
	ClassTransient Class = "transient"

	// ClassRejected is a write the tier refused, e.g. a validation failure.
	// Retrying will not help.
	ClassRejected Class = "rejected"

	// ClassLocal is a failure of the local durable store.
	ClassLocal Class = "local"
)

var (
	// ErrRejected matches errors of ClassRejected through errors.Is.
	ErrRejected = errors.New("write rejected")

	// ErrUnavailable matches errors of ClassTransient through errors.Is.
	ErrUnavailable = errors.New("storage unavailable")

	// ErrLocal matches errors of ClassLocal through errors.Is.
	ErrLocal = errors.New("local storage failure")
)

// Error is a classified tier failure.
type Error struct {
	Tier  string
	Op    string
	Class Class
	Err   error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s %s (%s): %v", e.Tier, e.Op, e.Class, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func (e *Error) Is(target error) bool {
	switch e.Class {
	case ClassRejected:
		return target == ErrRejected
	case ClassTransient:
		return target == ErrUnavailable
	case ClassLocal:
		return target == ErrLocal
	}
	return false
}

// NewError wraps err with a class. A nil err returns nil.
func NewError(tier, op string, class Class, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Tier: tier, Op: op, Class: class, Err: err}
}

// ClassOf returns the class of err. Unclassified context and network errors
// are transient; anything else unclassified is reported as rejected.
func ClassOf(err error) Class {
	var se *Error
	if errors.As(err, &se) {
		return se.Class
	}
	if IsConnectivity(err) {
		return ClassTransient
	}
	return ClassRejected
}

// IsConnectivity reports whether err is a deadline, cancellation or network
// failure.
func IsConnectivity(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	var opErr *net.OpError
	return errors.As(err, &opErr)
}
