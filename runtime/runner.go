// Copyright (c) 2025 Timo Savola. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package runtime

import (
	"log/slog"
	"runtime"

	"gate.computer/cage/internal/error/badrequest"
	"gate.computer/cage/internal/error/spawn"
	"gate.computer/cage/vm"

	. "import.name/type/context"
)

// Request identifies the function to call.
type Request struct {
	// EntryOffset of the function within the engine's code.
	EntryOffset uint32

	// ParamCount must be zero.  The calling convention passes only the
	// engine context; there is no way to marshal further arguments.
	ParamCount uint32
}

// ForcedCanceller kills a call in flight by making its instruction fetches
// fault.  It is not a clean cancellation mechanism, which is why it is
// spelled out in the signature of everything that uses it.
type ForcedCanceller interface {
	RevokeExecute() error
	RestoreExecute() error
}

// Engine is the call surface of vm.Engine.
type Engine interface {
	CodeSize() int
	Call0(offset uint32) (uint64, *vm.Fault)
	ForcedCanceller
}

// Run the function at the request's entry offset until it terminates.
// Canceling the context kills the call: execute permission is revoked from
// the code mapping so that the call thread faults, unwinds, and exits.
// Permission is restored before returning, so the engine remains usable.
//
// An engine supports one call at a time; see the cage package for
// serialization.
//
// The returned error represents a failure to run.  Abnormal termination of
// the function is not an error; it's indicated by the Result.
func Run(ctx Context, e Engine, req Request, log *slog.Logger) (Result, error) {
	if log == nil {
		log = slog.Default()
	}

	if req.ParamCount != 0 {
		return Result{}, badrequest.Errorf("invalid param count: %d", req.ParamCount)
	}
	if uint64(req.EntryOffset) >= uint64(e.CodeSize()) {
		return Result{}, badrequest.Errorf("entry offset %d exceeds code size", req.EntryOffset)
	}

	if err := vm.InitGuard(); err != nil {
		return Result{}, spawn.Wrap(err)
	}

	t := &task{
		sem:  make(chan struct{}, 2),
		done: make(chan struct{}),
	}

	go t.call(e, req.EntryOffset)

	// The call thread is coming up regardless; wait for it unconditionally.
	<-t.sem

	cancelled := false

	select {
	case <-t.sem:

	case <-ctx.Done():
		// Termination that has already been signalled takes precedence.
		select {
		case <-t.sem:

		default:
			cancelled = true
			if err := e.RevokeExecute(); err != nil {
				log.Error("runtime: revoking execute permission", "error", err)
			}
		}
	}

	<-t.done

	// Consume the termination signal if it raced with cancellation.
	select {
	case <-t.sem:
	default:
	}

	if cancelled {
		if err := e.RestoreExecute(); err != nil {
			return Result{}, err
		}
		log.Debug("call killed", "entry", req.EntryOffset)
		return Result{cause: Killed}, nil
	}

	if t.fault != nil {
		log.Warn("call faulted", "entry", req.EntryOffset, "fault", t.fault.String())
		return Result{cause: Faulted, fault: t.fault}, nil
	}

	log.Debug("call completed", "entry", req.EntryOffset, "value", t.value)
	return Result{value: t.value}, nil
}

type task struct {
	sem   chan struct{} // Signals startup and termination of the call thread.
	done  chan struct{}
	value uint64
	fault *vm.Fault
}

func (t *task) call(e Engine, offset uint32) {
	defer close(t.done)

	runtime.LockOSThread() // Keep thread locked across the fault handling.
	defer runtime.UnlockOSThread()

	t.sem <- struct{}{}
	t.value, t.fault = e.Call0(offset)
	t.sem <- struct{}{}
}
