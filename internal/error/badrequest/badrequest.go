// Copyright (c) 2018 Timo Savola. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package badrequest deals with errors which are caused by malformed or
// unsupported inputs.
package badrequest

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
func (s errorType) BadRequest() bool    { return true }

type requestError interface {
	error
	BadRequest() bool
}

// Is the error caused by the request?
func Is(err error) bool {
	var e requestError
	return errors.As(err, &e) && e.BadRequest()
}
