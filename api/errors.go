// File: api/errors.go
// Package api
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Common error types and error handling utilities for the ibvlink library.

package api

import (
	"errors"
	"fmt"
)

// Common errors used across the library.
var (
	// ErrNoAddrFound means the search space was exhausted without a
	// qualifying candidate: no matching interface, no bindable resolved
	// address, or an empty candidate list.
	ErrNoAddrFound = errors.New("no address found")

	// ErrNotSupported is returned by constructors on platforms without the
	// required kernel facilities.
	ErrNotSupported = errors.New("operation not supported")

	// ErrClosed is returned when an operation is attempted on a loop that
	// has begun shutting down.
	ErrClosed = errors.New("loop is closed")
)

// SystemError reports a failed OS call by name, carrying the OS-reported
// cause (typically a unix.Errno).
type SystemError struct {
	Call string // name of the failed call, e.g. "getifaddrs", "bind"
	Err  error
}

func (e *SystemError) Error() string {
	return fmt.Sprintf("%s: %v", e.Call, e.Err)
}

func (e *SystemError) Unwrap() error { return e.Err }

// NameResolutionError reports a hostname resolution failure. Resolution
// failures form their own namespace, distinct from OS errno values.
type NameResolutionError struct {
	Err error
}

func (e *NameResolutionError) Error() string {
	return fmt.Sprintf("name resolution failed: %v", e.Err)
}

func (e *NameResolutionError) Unwrap() error { return e.Err }
