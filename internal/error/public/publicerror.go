// Copyright (c) 2018 Timo Savola. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package public contains errors which may be shown to untrusted callers.
package public

// Error provides a message which can be exposed outside of the trust
// boundary.
type Error interface {
	error
	PublicError() string
}

// ErrorString returns err.PublicError() if err is an Error.  Otherwise the
// alternative is returned.
func ErrorString(err error, alternative string) string {
	if x, ok := err.(Error); ok {
		return x.PublicError()
	}
	return alternative
}
