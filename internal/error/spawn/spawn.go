// Copyright (c) 2025 Timo Savola. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package spawn deals with errors which prevent a runner from being
// started.
package spawn

import (
	"errors"

	"gate.computer/cage/internal/error/public"
)

var _ public.Error = wrappedError{}

// Wrap a runner startup failure.  The cause is not public.
func Wrap(cause error) error {
	return wrappedError{cause}
}

type wrappedError struct {
	cause error
}

func (e wrappedError) Error() string       { return "runner spawn: " + e.cause.Error() }
func (e wrappedError) PublicError() string { return "runner unavailable" }
func (e wrappedError) SpawnError() bool    { return true }
func (e wrappedError) Unwrap() error       { return e.cause }

type spawnError interface {
	error
	SpawnError() bool
}

// Is the error a runner startup failure?
func Is(err error) bool {
	var e spawnError
	return errors.As(err, &e) && e.SpawnError()
}
