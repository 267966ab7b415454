package store

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"

	"github.com/jinzhu/gorm"
	"github.com/mattn/go-sqlite3"
)

// Kind classifies a store failure.
type Kind int

const (
	// KindInternal is a failure that fits no other kind.
	KindInternal Kind = iota
	// KindConnectivity means the database could not be reached or was
	// busy. Callers may retry.
	KindConnectivity
	// KindConstraint is an integrity violation outside the documented
	// conflict policies. It indicates a bug and should not be retried.
	KindConstraint
	// KindMalformedInput means the batch was rejected before anything was
	// written.
	KindMalformedInput
)

// Sentinel kinds, matched with errors.Is.
var (
	ErrInternal       = errors.New("internal store failure")
	ErrConnectivity   = errors.New("store unreachable")
	ErrConstraint     = errors.New("constraint violation")
	ErrMalformedInput = errors.New("malformed input")
)

func (k Kind) sentinel() error {
	switch k {
	case KindConnectivity:
		return ErrConnectivity
	case KindConstraint:
		return ErrConstraint
	case KindMalformedInput:
		return ErrMalformedInput
	default:
		return ErrInternal
	}
}

func (k Kind) String() string {
	switch k {
	case KindConnectivity:
		return "connectivity"
	case KindConstraint:
		return "constraint"
	case KindMalformedInput:
		return "malformed input"
	default:
		return "internal"
	}
}

// Error is returned by every Store operation that fails.
type Error struct {
	Op   string
	Kind Kind
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("store: %s: %s: %v", e.Op, e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

func (e *Error) Is(target error) bool {
	return target == e.Kind.sentinel()
}

// IsRetryable reports whether err is a connectivity failure.
func IsRetryable(err error) bool {
	var storeErr *Error
	return errors.As(err, &storeErr) && storeErr.Kind == KindConnectivity
}

func malformed(op, format string, args ...interface{}) error {
	return &Error{Op: op, Kind: KindMalformedInput, Err: fmt.Errorf(format, args...)}
}

// wrap classifies a driver error. Nil stays nil and *Error passes through.
func wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	var storeErr *Error
	if errors.As(err, &storeErr) {
		return err
	}
	return &Error{Op: op, Kind: classify(err), Err: err}
}

func classify(err error) Kind {
	// gorm v1 collects repeated failures into gorm.Errors, which has no
	// Unwrap. The first classifiable entry decides.
	var gormErrs gorm.Errors
	if errors.As(err, &gormErrs) {
		for _, e := range gormErrs {
			if k := classify(e); k != KindInternal {
				return k
			}
		}
		return KindInternal
	}

	switch {
	case errors.Is(err, context.Canceled),
		errors.Is(err, context.DeadlineExceeded),
		errors.Is(err, sql.ErrConnDone),
		errors.Is(err, sql.ErrTxDone),
		errors.Is(err, driver.ErrBadConn),
		errors.Is(err, gorm.ErrCantStartTransaction):
		return KindConnectivity
	}

	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		switch sqliteErr.Code {
		case sqlite3.ErrBusy, sqlite3.ErrLocked, sqlite3.ErrCantOpen,
			sqlite3.ErrIoErr, sqlite3.ErrNotADB, sqlite3.ErrProtocol:
			return KindConnectivity
		case sqlite3.ErrConstraint:
			return KindConstraint
		case sqlite3.ErrMismatch, sqlite3.ErrRange, sqlite3.ErrTooBig:
			return KindMalformedInput
		}
	}
	return KindInternal
}
