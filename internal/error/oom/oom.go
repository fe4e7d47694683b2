// Copyright (c) 2025 Timo Savola. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package oom deals with memory allocation failures.
package oom

import (
	"errors"

	"gate.computer/cage/internal/error/public"
)

var _ public.Error = wrappedError{}

// Wrap an allocation failure.  The cause is not public.
func Wrap(cause error) error {
	return wrappedError{cause}
}

type wrappedError struct {
	cause error
}

func (e wrappedError) Error() string       { return "out of memory: " + e.cause.Error() }
func (e wrappedError) PublicError() string { return "out of memory" }
func (e wrappedError) OutOfMemory() bool   { return true }
func (e wrappedError) Unwrap() error       { return e.cause }

type memoryError interface {
	error
	OutOfMemory() bool
}

// Is the error caused by memory exhaustion?
func Is(err error) bool {
	var e memoryError
	return errors.As(err, &e) && e.OutOfMemory()
}
