// Copyright (c) 2018 Timo Savola. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package resourcelimit deals with errors which are caused by exceeding a
// configured or hard resource limit.
package resourcelimit

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
func (s errorType) ResourceLimit() bool { return true }

type limitError interface {
	error
	ResourceLimit() bool
}

// Is the error caused by a resource limit?
func Is(err error) bool {
	var e limitError
	return errors.As(err, &e) && e.ResourceLimit()
}
