// Copyright (c) 2025 Timo Savola. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package runtime

import (
	"fmt"

	"gate.computer/cage/vm"
)

// Cause of call termination.
type Cause int

const (
	// Exited means that the function returned normally.
	Exited Cause = iota

	// Faulted means that the call was terminated by a memory access
	// violation of its own making.
	Faulted

	// Killed means that the call was terminated because the context was
	// done.
	Killed
)

func (c Cause) String() string {
	switch c {
	case Exited:
		return "exited"
	case Faulted:
		return "faulted"
	case Killed:
		return "killed"
	default:
		return fmt.Sprintf("invalid cause %d", int(c))
	}
}

// Result of a terminated call.
type Result struct {
	value uint64
	cause Cause
	fault *vm.Fault
}

// Value returned by the function.  It is meaningful only when the cause is
// Exited.
func (r Result) Value() uint64 { return r.value }

// Cause of termination.
func (r Result) Cause() Cause { return r.cause }

// Fault details, or nil unless the cause is Faulted.
func (r Result) Fault() *vm.Fault { return r.fault }

// Exited normally?
func (r Result) Exited() bool { return r.cause == Exited }

// Killed via the context?
func (r Result) Killed() bool { return r.cause == Killed }

func (r Result) String() string {
	switch r.cause {
	case Exited:
		return fmt.Sprintf("exited with value %d", r.value)
	case Faulted:
		return fmt.Sprintf("faulted: %v", r.fault)
	default:
		return r.cause.String()
	}
}
