// Copyright (c) 2025 Timo Savola. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package badstate deals with errors which are caused by operations
// attempted in an incompatible session or engine state.
package badstate

import (
	"errors"
	"fmt"

	"gate.computer/cage/internal/error/public"
)

var _ public.Error = errorType("")

// Error with public information.
func Error(s string) error {
	return errorType(s)
}

// Errorf formats public information.
func Errorf(format string, args ...any) error {
	return errorType(fmt.Sprintf(format, args...))
}

type errorType string

func (s errorType) Error() string       { return string(s) }
func (s errorType) PublicError() string { return string(s) }
func (s errorType) BadState() bool      { return true }

type stateError interface {
	error
	BadState() bool
}

// Is the error caused by current state?
func Is(err error) bool {
	var e stateError
	return errors.As(err, &e) && e.BadState()
}
