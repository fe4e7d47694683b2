// Copyright (c) 2025 Timo Savola. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package vm

import (
	"unsafe"
)

// VMContext is a view of an engine's guest-visible context.  The engine
// owns all backing storage; views become invalid when the engine is closed.
type VMContext struct {
	e *Engine
}

// Context returns a view of the guest-visible context structure.
func (e *Engine) Context() *VMContext {
	return &VMContext{e}
}

// MemorySlice validates offset and length against linear memory and returns
// the backing bytes, or nil if any part of the range falls outside of it.
//
// The boundary conditions are contract: a range ending exactly at the
// memory bound is valid, but a range beginning at the bound is not, even
// when it is empty.
func (c *VMContext) MemorySlice(offset, length uint32) []byte {
	ctx := c.e.rawCtx()
	if ctx == nil || ctx.memories == 0 {
		return nil
	}
	mem := (*localMemory)(unsafe.Pointer(*(*uintptr)(unsafe.Pointer(ctx.memories))))

	begin := mem.base + uintptr(offset)
	end := begin + uintptr(length)
	realEnd := mem.base + mem.bound
	if end < begin || begin < mem.base || begin >= realEnd || end > realEnd {
		return nil
	}
	return unsafe.Slice((*byte)(unsafe.Pointer(begin)), length)
}
