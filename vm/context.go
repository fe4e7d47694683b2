// Copyright (c) 2025 Timo Savola. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package vm

import (
	"unsafe"
)

// Guest ABI structures.  Guest code addresses these through the context
// pointer it receives, so field order and pointer-vs-value distinction are
// contract.  The C declarations in guard.h mirror these; the asserts at the
// bottom pin the layout.
//
// Pointer fields are declared as uintptr: every address stored here refers
// to one of the engine's own mappings, never to Go-managed memory.

type vmctx struct {
	memories          uintptr // **localMemory; slot 0 is the only one used
	tables            uintptr // **localTable; slot 0 is the only one used
	globals           uintptr // **uint64; one pointer per global cell
	importedMemories  uintptr // Reserved.
	importedTables    uintptr // Reserved.
	importedGlobals   uintptr // Reserved.
	importedFuncs     uintptr // *importedFunc
	dynamicSigindices uintptr // *uint32
	intrinsics        uintptr // *vmIntrinsics
	stackLowerBound   uintptr // Lowest usable stack address.
}

type localMemory struct {
	base   uintptr // *uint8
	bound  uintptr // Byte count.
	unused uintptr
}

type localTable struct {
	base   uintptr // *anyfunc
	count  uintptr
	unused uintptr
}

type anyfunc struct {
	fn    uintptr
	ctx   uintptr // *vmctx
	sigID uint32
}

type importedFunc struct {
	fn  uintptr
	ctx uintptr // *vmctx
}

type vmIntrinsics struct {
	memoryGrow uintptr
	memorySize uintptr
}

var (
	_ [unsafe.Sizeof(vmctx{}) - 80]byte
	_ [80 - unsafe.Sizeof(vmctx{})]byte
	_ [unsafe.Offsetof(vmctx{}.stackLowerBound) - 72]byte
	_ [72 - unsafe.Offsetof(vmctx{}.stackLowerBound)]byte
	_ [unsafe.Sizeof(localMemory{}) - 24]byte
	_ [24 - unsafe.Sizeof(localMemory{})]byte
	_ [unsafe.Sizeof(localTable{}) - 24]byte
	_ [24 - unsafe.Sizeof(localTable{})]byte
	_ [unsafe.Sizeof(anyfunc{}) - 24]byte
	_ [24 - unsafe.Sizeof(anyfunc{})]byte
	_ [unsafe.Sizeof(importedFunc{}) - 16]byte
	_ [16 - unsafe.Sizeof(importedFunc{})]byte
	_ [unsafe.Sizeof(vmIntrinsics{}) - 16]byte
	_ [16 - unsafe.Sizeof(vmIntrinsics{})]byte
)

// arenaLayout places every guest-visible record in the engine's metadata
// mapping.  Offsets are resolved before the mapping exists so that one
// allocation covers everything.
type arenaLayout struct {
	size int

	ctx           int
	memoryPtr     int // One *localMemory slot.
	memory        int
	tablePtr      int // One *localTable slot.
	table         int
	anyfuncs      int
	globalPtrs    int
	globals       int
	importedFuncs int
	sigindices    int
	intrinsics    int
}

func (l *arenaLayout) alloc(size, align int) int {
	offset := (l.size + align - 1) &^ (align - 1)
	l.size = offset + size
	return offset
}

func computeLayout(config *Config) arenaLayout {
	var l arenaLayout

	l.ctx = l.alloc(int(unsafe.Sizeof(vmctx{})), 8)
	l.memoryPtr = l.alloc(8, 8)
	l.memory = l.alloc(int(unsafe.Sizeof(localMemory{})), 8)
	l.tablePtr = l.alloc(8, 8)
	l.table = l.alloc(int(unsafe.Sizeof(localTable{})), 8)
	l.anyfuncs = l.alloc(config.TableCount*int(unsafe.Sizeof(anyfunc{})), 8)
	l.globalPtrs = l.alloc(config.GlobalCount*8, 8)
	l.globals = l.alloc(config.GlobalCount*8, 8)
	l.importedFuncs = l.alloc(config.ImportCount*int(unsafe.Sizeof(importedFunc{})), 8)
	l.sigindices = l.alloc(config.SigIndexCount*4, 4)
	l.intrinsics = l.alloc(int(unsafe.Sizeof(vmIntrinsics{})), 8)

	return l
}

func (e *Engine) arenaBase() uintptr {
	return uintptr(unsafe.Pointer(&e.arena[0]))
}

func (e *Engine) arenaAddr(offset int) uintptr {
	return e.arenaBase() + uintptr(offset)
}

func (e *Engine) rawCtx() *vmctx {
	if e.arena == nil {
		return nil
	}
	return (*vmctx)(unsafe.Pointer(e.arenaAddr(e.layout.ctx)))
}

func (e *Engine) localMem() *localMemory {
	return (*localMemory)(unsafe.Pointer(e.arenaAddr(e.layout.memory)))
}

func (e *Engine) localTab() *localTable {
	return (*localTable)(unsafe.Pointer(e.arenaAddr(e.layout.table)))
}

func (e *Engine) globalCells() []uint64 {
	if e.globalCount == 0 {
		return nil
	}
	return unsafe.Slice((*uint64)(unsafe.Pointer(e.arenaAddr(e.layout.globals))), e.globalCount)
}

func (e *Engine) globalPtrs() []uintptr {
	if e.globalCount == 0 {
		return nil
	}
	return unsafe.Slice((*uintptr)(unsafe.Pointer(e.arenaAddr(e.layout.globalPtrs))), e.globalCount)
}

func (e *Engine) anyfuncs() []anyfunc {
	if e.tableCount == 0 {
		return nil
	}
	return unsafe.Slice((*anyfunc)(unsafe.Pointer(e.arenaAddr(e.layout.anyfuncs))), e.tableCount)
}

func (e *Engine) importedFuncEntries() []importedFunc {
	if e.importCount == 0 {
		return nil
	}
	return unsafe.Slice((*importedFunc)(unsafe.Pointer(e.arenaAddr(e.layout.importedFuncs))), e.importCount)
}

func (e *Engine) sigindexEntries() []uint32 {
	if e.sigindexCount == 0 {
		return nil
	}
	return unsafe.Slice((*uint32)(unsafe.Pointer(e.arenaAddr(e.layout.sigindices))), e.sigindexCount)
}
