// Package apperr defines the error taxonomy shared by the vault and its consumers.
package apperr

import (
	"errors"
	"fmt"
)

var (
	ErrValidation  = errors.New("invalid input")
	ErrNotFound    = errors.New("not found")
	ErrIO          = errors.New("storage failure")
	ErrPersistence = errors.New("tag persistence failure")
	ErrConflict    = errors.New("conflict")
)

// Error records the operation and target that failed together with the
// failure kind (one of the sentinels above) and the underlying cause.
type Error struct {
	Op     string
	Target string
	Kind   error
	Err    error
}

func (e *Error) Error() string {
	msg := e.Op
	if e.Target != "" {
		msg += " " + e.Target
	}
	msg += ": " + e.Kind.Error()
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap exposes both the kind and the cause to errors.Is / errors.As.
func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

func newError(kind error, op, target string, err error) *Error {
	return &Error{Op: op, Target: target, Kind: kind, Err: err}
}

// Validation reports rejected caller input. No I/O has happened.
func Validation(op, target, format string, args ...any) error {
	return newError(ErrValidation, op, target, fmt.Errorf(format, args...))
}

// NotFound reports a missing file.
func NotFound(op, target string, err error) error {
	return newError(ErrNotFound, op, target, err)
}

// IO reports a storage read/write/move/copy failure.
func IO(op, target string, err error) error {
	return newError(ErrIO, op, target, err)
}

// Persistence reports a tag index load or save failure.
func Persistence(op, target string, err error) error {
	return newError(ErrPersistence, op, target, err)
}

// Conflict reports a stale precondition such as a mismatched ETag.
func Conflict(op, target string, err error) error {
	return newError(ErrConflict, op, target, err)
}

// IsNonFatal reports whether err only concerns tag metadata, meaning the file
// operation that produced it still took effect.
func IsNonFatal(err error) bool {
	return err != nil &&
		errors.Is(err, ErrPersistence) &&
		!errors.Is(err, ErrIO) &&
		!errors.Is(err, ErrNotFound) &&
		!errors.Is(err, ErrValidation)
}
