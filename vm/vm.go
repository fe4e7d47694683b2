// Copyright (c) 2025 Timo Savola. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package vm implements a sandboxed execution engine for pre-compiled
// native code.  An engine owns an executable code mapping, a guarded call
// stack, a bounded linear memory, and the flat context structure which
// guest code receives as its implicit argument.  Guest memory access by the
// host goes through the bounds-checked accessor of VMContext.
//
// The engine's code mapping can be made non-executable while a call is in
// flight, forcing the call to fault; package runtime builds its forced
// cancellation on that.
//
// The package requires linux/amd64 and cgo.
package vm
