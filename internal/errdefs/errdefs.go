// Package errdefs defines the error kinds shared across the service so that
// callers can distinguish "no data" from "bad input" from "upstream failure"
// without inspecting error strings.
package errdefs

import (
	"errors"
	"fmt"
)

// Sentinel kinds. Wrap with the constructors below; test with the Is helpers.
var (
	// ErrNotFound means no report resolves for the requested
	// repository/revision/filter combination.
	ErrNotFound = errors.New("not found")

	// ErrPathNotFound means the report resolved but the requested path does
	// not exist in its tree. A client input problem, not a server fault.
	ErrPathNotFound = errors.New("path not found")

	// ErrInvalidFilter means the requested platform or suite is not known
	// for the repository.
	ErrInvalidFilter = errors.New("invalid filter")

	// ErrStoreUnavailable means the report store could not be reached or
	// timed out. Retryable from the caller's point of view.
	ErrStoreUnavailable = errors.New("report store unavailable")
)

// kindError carries a kind sentinel alongside the concrete error so that
// errors.Is matches both.
type kindError struct {
	kind error
	err  error
}

func (e *kindError) Error() string { return e.err.Error() }

func (e *kindError) Unwrap() []error { return []error{e.kind, e.err} }

func withKind(kind error, err error) error {
	if err == nil {
		return nil
	}
	return &kindError{kind: kind, err: err}
}

// NotFound marks err as a not-found error.
func NotFound(err error) error { return withKind(ErrNotFound, err) }

// NotFoundf creates a not-found error from a format string.
func NotFoundf(format string, args ...any) error {
	return withKind(ErrNotFound, fmt.Errorf(format, args...))
}

// PathNotFoundf creates a path-not-found error from a format string.
func PathNotFoundf(format string, args ...any) error {
	return withKind(ErrPathNotFound, fmt.Errorf(format, args...))
}

// InvalidFilterf creates an invalid-filter error from a format string.
func InvalidFilterf(format string, args ...any) error {
	return withKind(ErrInvalidFilter, fmt.Errorf(format, args...))
}

// StoreUnavailable marks err as a store-unavailable error.
func StoreUnavailable(err error) error { return withKind(ErrStoreUnavailable, err) }

// StoreUnavailablef creates a store-unavailable error from a format string.
func StoreUnavailablef(format string, args ...any) error {
	return withKind(ErrStoreUnavailable, fmt.Errorf(format, args...))
}

// IsNotFound reports whether err is a not-found error.
func IsNotFound(err error) bool { return errors.Is(err, ErrNotFound) }

// IsPathNotFound reports whether err is a path-not-found error.
func IsPathNotFound(err error) bool { return errors.Is(err, ErrPathNotFound) }

// IsInvalidFilter reports whether err is an invalid-filter error.
func IsInvalidFilter(err error) bool { return errors.Is(err, ErrInvalidFilter) }

// IsStoreUnavailable reports whether err is a store-unavailable error.
func IsStoreUnavailable(err error) bool { return errors.Is(err, ErrStoreUnavailable) }
