// Copyright (c) 2025 Timo Savola. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package cage

import (
	"log/slog"
	"sync"

	"gate.computer/cage/internal/error/badstate"
	"gate.computer/cage/runtime"
	"gate.computer/cage/vm"
	"github.com/google/uuid"
	"import.name/lock"

	. "import.name/type/context"
)

var (
	ErrLoaded    = badstate.Error("code already loaded")
	ErrNotLoaded = badstate.Error("no code loaded")
	ErrBusy      = badstate.Error("call in progress")
	ErrClosed    = badstate.Error("session is closed")
)

// Session owns at most one execution engine.  Methods may be called
// concurrently.
type Session struct {
	log *slog.Logger
	id  string

	mu     sync.Mutex // Protects the fields below.
	engine *vm.Engine
	busy   bool
	closed bool
}

// NewSession is ready for loading code.
func NewSession(config Config) *Session {
	log := config.Log
	if log == nil {
		log = slog.Default()
	}

	s := &Session{
		log: log,
		id:  uuid.New().String(),
	}

	s.log.Debug("session opened", "session", s.id)
	return s
}

// ID is unique across sessions.
func (s *Session) ID() string { return s.id }

// Load code into the session by creating its execution engine.  It can be
// done once per session.
func (s *Session) Load(config vm.Config) error {
	if config.Log == nil {
		config.Log = s.log
	}

	var err error
	lock.Guard(&s.mu, func() {
		switch {
		case s.closed:
			err = ErrClosed
		case s.engine != nil:
			err = ErrLoaded
		default:
			s.engine, err = vm.NewEngine(config)
		}
	})
	if err != nil {
		return err
	}

	s.log.Debug("session loaded", "session", s.id)
	return nil
}

// Run a call in the loaded engine.  At most one call can be in progress at
// a time.
func (s *Session) Run(ctx Context, req runtime.Request) (runtime.Result, error) {
	var e *vm.Engine
	var err error
	lock.Guard(&s.mu, func() {
		switch {
		case s.closed:
			err = ErrClosed
		case s.engine == nil:
			err = ErrNotLoaded
		case s.busy:
			err = ErrBusy
		default:
			s.busy = true
			e = s.engine
		}
	})
	if err != nil {
		return runtime.Result{}, err
	}
	defer lock.Guard(&s.mu, func() { s.busy = false })

	return runtime.Run(ctx, e, req, s.log.With("session", s.id))
}

// Close the session and release the engine.  Closing fails while a call is
// in progress.  Closing again is a no-op.
func (s *Session) Close() error {
	var e *vm.Engine
	var err error
	closing := false

	lock.Guard(&s.mu, func() {
		switch {
		case s.closed:
		case s.busy:
			err = ErrBusy
		default:
			e = s.engine
			s.engine = nil
			s.closed = true
			closing = true
		}
	})
	if err != nil || !closing {
		return err
	}

	if e != nil {
		err = e.Close()
	}

	s.log.Debug("session closed", "session", s.id)
	return err
}
