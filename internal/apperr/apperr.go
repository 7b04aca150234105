// Package apperr holds the error taxonomy shared by stores, services and the HTTP layer.
// Every error returned by the core wraps exactly one of these sentinels, so callers
// dispatch with errors.Is.
package apperr

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound         = errors.New("not found")
	ErrInvalidState     = errors.New("invalid state")
	ErrUnauthorized     = errors.New("unauthorized")
	ErrCapacityExceeded = errors.New("capacity exceeded")
	ErrConflict         = errors.New("conflict")
	ErrInvalidInput     = errors.New("invalid input")
)

func NotFound(format string, args ...any) error {
	return wrap(ErrNotFound, format, args...)
}

func InvalidState(format string, args ...any) error {
	return wrap(ErrInvalidState, format, args...)
}

func Unauthorized(format string, args ...any) error {
	return wrap(ErrUnauthorized, format, args...)
}

func CapacityExceeded(format string, args ...any) error {
	return wrap(ErrCapacityExceeded, format, args...)
}

func Conflict(format string, args ...any) error {
	return wrap(ErrConflict, format, args...)
}

func InvalidInput(format string, args ...any) error {
	return wrap(ErrInvalidInput, format, args...)
}

func wrap(sentinel error, format string, args ...any) error {
	return fmt.Errorf("%w: %s", sentinel, fmt.Sprintf(format, args...))
}
