// Copyright (c) 2025 Timo Savola. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package vm

import (
	"fmt"
	"log/slog"
	"syscall"
	"unsafe"

	"gate.computer/cage/internal/error/badrequest"
	"gate.computer/cage/internal/error/badstate"
	"gate.computer/cage/internal/error/oom"
	"gate.computer/cage/internal/error/resourcelimit"
	"gate.computer/cage/internal/file"
)

// Config describes an execution engine to be created.
type Config struct {
	Code          []byte // Pre-compiled native code, at most MaxCodeSize bytes.
	MemorySize    int    // Linear memory bound in bytes, at most MaxMemorySize.
	GlobalCount   int
	TableCount    int
	ImportCount   int
	SigIndexCount int

	// Resolver binds the imported function slots.  Required if ImportCount
	// is nonzero.
	Resolver Resolver

	Log *slog.Logger
}

// Engine owns a loaded module's code, stack, linear memory, globals, tables
// and import bindings.  It is not safe for concurrent use; the session
// layer serializes access.
type Engine struct {
	log *slog.Logger

	code   []byte // Private mapping of the sealed code file.
	stack  []byte // Guard band at the low end, usable stack above it.
	memory []byte // Page-rounded; nil if the bound is zero.
	arena  []byte // Every guest-visible record lives here.

	codeLen       int
	bound         int // Linear memory bound in bytes.
	globalCount   int
	tableCount    int
	importCount   int
	sigindexCount int
	layout        arenaLayout

	executable bool
}

func checkConfig(config *Config) error {
	switch {
	case len(config.Code) == 0:
		return badrequest.Error("no code")
	case config.MemorySize < 0 || config.GlobalCount < 0 || config.TableCount < 0 || config.ImportCount < 0 || config.SigIndexCount < 0:
		return badrequest.Error("negative size or count")
	case config.ImportCount > 0 && config.Resolver == nil:
		return badrequest.Error("imported functions without resolver")
	}

	switch {
	case len(config.Code) > MaxCodeSize:
		return resourcelimit.Error("code size limit exceeded")
	case config.MemorySize > MaxMemorySize:
		return resourcelimit.Error("memory size limit exceeded")
	case config.GlobalCount > MaxGlobalCount:
		return resourcelimit.Error("global count limit exceeded")
	case config.TableCount > MaxTableCount:
		return resourcelimit.Error("table count limit exceeded")
	case config.ImportCount > MaxImportCount:
		return resourcelimit.Error("import count limit exceeded")
	case config.SigIndexCount > MaxSigIndexCount:
		return resourcelimit.Error("signature index count limit exceeded")
	}

	return nil
}

// NewEngine creates an execution engine: an executable mapping of the code,
// a guarded stack, a zero-filled linear memory, and the guest-visible
// context wired over them.  Nothing is left mapped on failure.
func NewEngine(config Config) (e *Engine, err error) {
	if err := checkConfig(&config); err != nil {
		return nil, err
	}

	err = z.Recover(func() {
		e = mustNewEngine(&config)
	})
	return
}

func mustNewEngine(config *Config) *Engine {
	e := &Engine{
		log:           config.Log,
		codeLen:       len(config.Code),
		bound:         config.MemorySize,
		globalCount:   config.GlobalCount,
		tableCount:    config.TableCount,
		importCount:   config.ImportCount,
		sigindexCount: config.SigIndexCount,
		layout:        computeLayout(config),
	}
	if e.log == nil {
		e.log = slog.Default()
	}

	var done bool
	defer func() {
		if !done {
			e.unmap()
		}
	}()

	f := mustCodeFile(config.Code)
	defer f.Close() // The mapping outlives the descriptor.
	e.code = mustMmapFile(f, alignPageSize(e.codeLen), syscall.PROT_READ|syscall.PROT_EXEC)
	e.executable = true

	e.stack = mustMmapAnon(StackGuardSize+StackSize, syscall.PROT_READ|syscall.PROT_WRITE)
	z.Check(mprotect(e.stack[:StackGuardSize], syscall.PROT_NONE))

	if e.bound > 0 {
		e.memory = mustMmapAnon(alignPageSize(e.bound), syscall.PROT_READ|syscall.PROT_WRITE)
	}

	e.arena = mustMmapAnon(e.layout.size, syscall.PROT_READ|syscall.PROT_WRITE)

	e.buildContext()
	if e.importCount > 0 {
		e.mustBindImports(config.Resolver)
	}
	e.bindIntrinsics()

	stackLo, stackHi := e.StackBounds()

	e.log.Debug("execution engine initialized",
		"code_base", fmt.Sprintf("%#x", e.codeBase()),
		"code_size", e.codeLen,
		"stack", fmt.Sprintf("%#x-%#x", stackLo, stackHi),
		"memory_size", e.bound,
		"globals", e.globalCount,
		"tables", e.tableCount,
		"imports", e.importCount,
		"sigindices", e.sigindexCount,
	)

	done = true
	return e
}

func mustCodeFile(code []byte) *file.File {
	f, err := newCodeFile(code)
	if err != nil {
		z.Check(oom.Wrap(err))
	}
	return f
}

func mustMmapFile(f *file.File, length, prot int) []byte {
	b, err := mmap(f.Fd(), 0, length, prot, syscall.MAP_PRIVATE)
	if err != nil {
		z.Check(oom.Wrap(err))
	}
	return b
}

func mustMmapAnon(length, prot int) []byte {
	b, err := mmapAnon(length, prot)
	if err != nil {
		z.Check(oom.Wrap(err))
	}
	return b
}

func (e *Engine) buildContext() {
	mem := e.localMem()
	if len(e.memory) > 0 {
		mem.base = uintptr(unsafe.Pointer(&e.memory[0]))
	}
	mem.bound = uintptr(e.bound)
	*(*uintptr)(unsafe.Pointer(e.arenaAddr(e.layout.memoryPtr))) = e.arenaAddr(e.layout.memory)

	tab := e.localTab()
	if e.tableCount > 0 {
		tab.base = e.arenaAddr(e.layout.anyfuncs)
	}
	tab.count = uintptr(e.tableCount)
	*(*uintptr)(unsafe.Pointer(e.arenaAddr(e.layout.tablePtr))) = e.arenaAddr(e.layout.table)

	// Guest code addresses globals through the pointer array, never the
	// cells directly.
	ptrs := e.globalPtrs()
	for i := range ptrs {
		ptrs[i] = e.arenaAddr(e.layout.globals) + uintptr(i)*8
	}

	ctx := e.rawCtx()
	ctx.memories = e.arenaAddr(e.layout.memoryPtr)
	ctx.tables = e.arenaAddr(e.layout.tablePtr)
	ctx.globals = e.arenaAddr(e.layout.globalPtrs)
	ctx.importedFuncs = e.arenaAddr(e.layout.importedFuncs)
	ctx.dynamicSigindices = e.arenaAddr(e.layout.sigindices)
	ctx.intrinsics = e.arenaAddr(e.layout.intrinsics)
	ctx.stackLowerBound = uintptr(unsafe.Pointer(&e.stack[StackGuardSize]))
}

func (e *Engine) mustBindImports(r Resolver) {
	funcs := e.importedFuncEntries()
	for i := range funcs {
		pc, err := r.ResolveFunc(i)
		if err != nil {
			z.Check(badrequest.Errorf("import function %d: %v", i, err))
		}
		funcs[i] = importedFunc{fn: pc, ctx: e.arenaAddr(e.layout.ctx)}
	}
}

// Close releases all mappings.  The engine must not have a call in flight.
func (e *Engine) Close() error {
	if e.code == nil && e.arena == nil {
		return badstate.Error("engine already closed")
	}
	e.unmap()
	e.log.Debug("execution engine released")
	return nil
}

func (e *Engine) unmap() {
	for _, b := range [][]byte{e.code, e.stack, e.memory, e.arena} {
		if b != nil {
			mustMunmap(b)
		}
	}
	e.code = nil
	e.stack = nil
	e.memory = nil
	e.arena = nil
}

// RevokeExecute strips the execute permission from the code mapping.  If a
// call is in flight on the engine, its next instruction fetch faults and
// the call unwinds; this is how a run is cancelled without guest
// cooperation.  It is a best-effort kill switch, not a clean cancellation
// mechanism.  RestoreExecute must be called before the engine is used
// again.
func (e *Engine) RevokeExecute() error {
	if err := mprotect(e.code, syscall.PROT_READ); err != nil {
		return err
	}
	e.executable = false
	return nil
}

// RestoreExecute returns the execute permission taken by RevokeExecute,
// leaving the engine runnable.
func (e *Engine) RestoreExecute() error {
	if err := mprotect(e.code, syscall.PROT_READ|syscall.PROT_EXEC); err != nil {
		return err
	}
	e.executable = true
	return nil
}

// Executable tells if the code mapping currently has execute permission.
func (e *Engine) Executable() bool {
	return e.executable
}

// CodeSize returns the loaded code size in bytes.
func (e *Engine) CodeSize() int {
	return e.codeLen
}

// MemorySize returns the linear memory bound in bytes.
func (e *Engine) MemorySize() int {
	return e.bound
}

// Globals exposes the global cells for initialization and inspection.
// Guest code addresses the same cells through the context's pointer array.
func (e *Engine) Globals() []uint64 {
	return e.globalCells()
}

// SigIndices exposes the dynamic signature index cells for initialization
// and inspection.  Indirect calls compare against these at run time.
func (e *Engine) SigIndices() []uint32 {
	return e.sigindexEntries()
}

// SetTableFunc binds table slot i to the function at codeOffset with the
// given signature index.
func (e *Engine) SetTableFunc(i int, codeOffset, sigIndex uint32) error {
	if i < 0 || i >= e.tableCount {
		return badrequest.Errorf("table index %d out of range", i)
	}
	if uint64(codeOffset) >= uint64(e.codeLen) {
		return badrequest.Errorf("code offset %d out of range", codeOffset)
	}

	e.anyfuncs()[i] = anyfunc{
		fn:    e.codeBase() + uintptr(codeOffset),
		ctx:   e.arenaAddr(e.layout.ctx),
		sigID: sigIndex,
	}
	return nil
}

// StackBounds returns the usable stack range.  The guard band below lo is
// not accessible.
func (e *Engine) StackBounds() (lo, hi uintptr) {
	lo = uintptr(unsafe.Pointer(&e.stack[StackGuardSize]))
	hi = lo + StackSize
	return
}

func (e *Engine) codeBase() uintptr {
	return uintptr(unsafe.Pointer(&e.code[0]))
}
