// Copyright (c) 2025 Timo Savola. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package cage exposes sandboxed execution engines as sessions.  A session
// holds at most one engine: code is loaded once, calls into it are
// serialized, and closing the session releases the engine's mappings.
//
// Error strings may contain sensitive details.  Errors which are safe to
// expose to a client implement this interface:
//
//	interface {
//		PublicError() string
//	}
package cage

import (
	"log/slog"
)

// Config for a session.
type Config struct {
	// Log defaults to slog.Default().
	Log *slog.Logger
}
