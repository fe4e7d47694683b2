// Copyright (c) 2025 Timo Savola. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package vm

import (
	"encoding/binary"
	"syscall"
	"testing"

	"github.com/stretchr/testify/assert"
)

// Hand-assembled guest functions.  The context arrives in RDI per the
// calling convention; results return in RAX.
var (
	// mov eax, 42; ret
	ret42 = []byte{0xb8, 0x2a, 0x00, 0x00, 0x00, 0xc3}

	// mov rax, [rdi+16]; mov rax, [rax]; mov rax, [rax]; ret
	//
	// Returns the first global through the pointer indirection array.
	readGlobal = []byte{0x48, 0x8b, 0x47, 0x10, 0x48, 0x8b, 0x00, 0x48, 0x8b, 0x00, 0xc3}

	// mov rax, [rdi]; mov rax, [rax]; mov rax, [rax]; mov eax, [rax]; ret
	//
	// Returns the first 32 bits of linear memory: memories, record at slot
	// zero, base, load.
	readMemory = []byte{0x48, 0x8b, 0x07, 0x48, 0x8b, 0x00, 0x48, 0x8b, 0x00, 0x8b, 0x00, 0xc3}

	// mov rax, [rdi+64]; mov rax, [rax+8]; jmp rax
	//
	// Tail call of the memory_size intrinsic; RDI still holds the context.
	callMemorySize = []byte{0x48, 0x8b, 0x47, 0x40, 0x48, 0x8b, 0x40, 0x08, 0xff, 0xe0}

	// mov esi, 1; mov rax, [rdi+64]; mov rax, [rax]; jmp rax
	//
	// Tail call of the memory_grow intrinsic with delta 1 in RSI.
	callMemoryGrow = []byte{0xbe, 0x01, 0x00, 0x00, 0x00, 0x48, 0x8b, 0x47, 0x40, 0x48, 0x8b, 0x00, 0xff, 0xe0}

	// xor esi, esi; mov rax, [rdi+64]; mov rax, [rax]; jmp rax
	//
	// Tail call of the memory_grow intrinsic with delta 0 in RSI.
	callMemoryGrowZero = []byte{0x31, 0xf6, 0x48, 0x8b, 0x47, 0x40, 0x48, 0x8b, 0x00, 0xff, 0xe0}

	// mov rax, [rdi+48]; mov rdi, [rax+8]; mov rax, [rax]; jmp rax
	//
	// Tail call of imported function 0 with its bound context argument.
	callImport0 = []byte{0x48, 0x8b, 0x47, 0x30, 0x48, 0x8b, 0x78, 0x08, 0x48, 0x8b, 0x00, 0xff, 0xe0}

	// mov rax, [0]; ret
	wildRead = []byte{0x48, 0x8b, 0x04, 0x25, 0x00, 0x00, 0x00, 0x00, 0xc3}
)

func TestInitGuard(t *testing.T) {
	if err := InitGuard(); err != nil {
		t.Fatal(err)
	}
}

func TestCall0Return(t *testing.T) {
	e := testEngine(t, Config{Code: ret42})

	v, fault := e.Call0(0)
	if fault != nil {
		t.Fatal(fault)
	}
	assert.Equal(t, uint64(42), v)
}

func TestCall0ReadGlobal(t *testing.T) {
	e := testEngine(t, Config{Code: readGlobal, GlobalCount: 2})
	e.Globals()[0] = 77777

	v, fault := e.Call0(0)
	if fault != nil {
		t.Fatal(fault)
	}
	assert.Equal(t, uint64(77777), v)
}

func TestCall0ReadMemory(t *testing.T) {
	e := testEngine(t, Config{Code: readMemory, MemorySize: WasmPageSize})

	binary.LittleEndian.PutUint32(e.Context().MemorySlice(0, 4), 0xdeadbeef)

	v, fault := e.Call0(0)
	if fault != nil {
		t.Fatal(fault)
	}
	assert.Equal(t, uint64(0xdeadbeef), v)
}

func TestCall0MemorySize(t *testing.T) {
	e := testEngine(t, Config{Code: callMemorySize, MemorySize: 3 * WasmPageSize})

	v, fault := e.Call0(0)
	if fault != nil {
		t.Fatal(fault)
	}
	assert.Equal(t, uint64(3), v)
}

func TestCall0MemoryGrow(t *testing.T) {
	code := make([]byte, 32)
	for i := range code {
		code[i] = 0xcc // int3
	}
	copy(code, callMemoryGrow)
	copy(code[16:], callMemoryGrowZero)

	e := testEngine(t, Config{Code: code, MemorySize: 3 * WasmPageSize})

	// The linear memory bound is fixed, so growing must fail.
	v, fault := e.Call0(0)
	if fault != nil {
		t.Fatal(fault)
	}
	assert.Equal(t, ^uint64(0), v)

	// A zero delta reports the current page count like memory_size does.
	v, fault = e.Call0(16)
	if fault != nil {
		t.Fatal(fault)
	}
	assert.Equal(t, uint64(3), v)
}

func TestCall0Import(t *testing.T) {
	e := testEngine(t, Config{
		Code:        callImport0,
		MemorySize:  2 * WasmPageSize,
		ImportCount: 1,
		Resolver:    IntrinsicResolver(),
	})

	v, fault := e.Call0(0)
	if fault != nil {
		t.Fatal(fault)
	}
	assert.Equal(t, uint64(2), v)
}

func TestCall0Fault(t *testing.T) {
	code := make([]byte, 32)
	for i := range code {
		code[i] = 0xcc // int3
	}
	copy(code, ret42)
	copy(code[16:], wildRead)

	e := testEngine(t, Config{Code: code})

	_, fault := e.Call0(16)
	if fault == nil {
		t.Fatal("wild read did not fault")
	}
	assert.Equal(t, syscall.SIGSEGV, fault.Signal)
	assert.Equal(t, uintptr(0), fault.Addr)
	assert.False(t, fault.CodeFetch)

	// The engine survives the fault.
	v, fault := e.Call0(0)
	if fault != nil {
		t.Fatal(fault)
	}
	assert.Equal(t, uint64(42), v)
}
