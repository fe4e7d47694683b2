// Copyright (c) 2025 Timo Savola. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package vm

/*
#include "guard.h"
*/
import "C"

import (
	"fmt"
	"syscall"
	"unsafe"
)

// InitGuard installs the process-wide fault handlers which confine guest
// faults to the faulting call.  Call0 does it implicitly; calling this up
// front gets the error out of band.
func InitGuard() error {
	if rc := C.cage_guard_init(); rc != 0 {
		return fmt.Errorf("sigaction: %v", syscall.Errno(rc))
	}
	return nil
}

// Fault describes a signal caught during a guest call.
type Fault struct {
	Signal syscall.Signal
	Addr   uintptr

	// CodeFetch is set if the faulting address falls within the code
	// mapping.  After RevokeExecute it means a forced instruction-fetch
	// fault.
	CodeFetch bool
}

func (f *Fault) String() string {
	return fmt.Sprintf("%v at %#x", f.Signal, f.Addr)
}

// Call0 transfers control to the code at offset with the engine's context
// as the sole argument, running on the engine's own stack, and returns the
// guest's 64-bit result.  The offset is not validated against the code
// size here; this is the trust boundary, and callers are responsible for
// range checking (package runtime is).
//
// A fault on the calling thread during the call is confined to the call
// and reported instead of crashing the process.  That covers the forced
// instruction-fetch fault after RevokeExecute as well as stack overflow
// into the guard band and wild accesses.  A Fault with Signal 0 means the
// guard could not be installed.
func (e *Engine) Call0(offset uint32) (uint64, *Fault) {
	var call C.struct_cage_call

	pc := e.codeBase() + uintptr(offset)
	_, stackTop := e.StackBounds()

	rc := C.cage_call_invoke(&call, C.uintptr_t(pc), C.uintptr_t(e.arenaAddr(e.layout.ctx)), C.uintptr_t(stackTop))
	if rc != 0 {
		f := &Fault{
			Signal: syscall.Signal(call.sig),
			Addr:   uintptr(call.addr),
		}
		f.CodeFetch = f.Addr >= e.codeBase() && f.Addr < e.codeBase()+uintptr(len(e.code))
		return 0, f
	}

	return uint64(call.result), nil
}

func (e *Engine) bindIntrinsics() {
	C.cage_bind_intrinsics((*C.struct_cage_intrinsics)(unsafe.Pointer(e.arenaAddr(e.layout.intrinsics))))
}

// IntrinsicResolver returns a resolver which binds every import slot to
// the memory_size intrinsic.  It stands in when the imported functions are
// not meant to be called.
func IntrinsicResolver() Resolver {
	return intrinsicResolver{}
}

type intrinsicResolver struct{}

func (intrinsicResolver) ResolveFunc(i int) (uintptr, error) {
	return uintptr(C.cage_memory_size_addr()), nil
}
