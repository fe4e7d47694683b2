// Copyright (c) 2025 Timo Savola. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package runtime_test

import (
	"context"
	"testing"
	"time"

	"gate.computer/cage/internal/error/badrequest"
	"gate.computer/cage/runtime"
	"gate.computer/cage/vm"
	"github.com/stretchr/testify/assert"
)

const (
	entryReturn = 0  // mov eax, 42; ret
	entrySpin   = 16 // jmp short $
	entryFault  = 32 // mov rax, [0]; ret
)

func testCode() []byte {
	code := make([]byte, 48)
	for i := range code {
		code[i] = 0xcc // int3
	}
	copy(code[entryReturn:], []byte{0xb8, 0x2a, 0x00, 0x00, 0x00, 0xc3})
	copy(code[entrySpin:], []byte{0xeb, 0xfe})
	copy(code[entryFault:], []byte{0x48, 0x8b, 0x04, 0x25, 0x00, 0x00, 0x00, 0x00, 0xc3})
	return code
}

func testEngine(t *testing.T) *vm.Engine {
	t.Helper()

	e, err := vm.NewEngine(vm.Config{Code: testCode()})
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { e.Close() })
	return e
}

func TestRun(t *testing.T) {
	e := testEngine(t)

	res, err := runtime.Run(context.Background(), e, runtime.Request{}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if !res.Exited() {
		t.Fatal(res)
	}
	assert.Equal(t, uint64(42), res.Value())
	assert.Equal(t, "exited with value 42", res.String())
}

func TestRunParamCount(t *testing.T) {
	e := testEngine(t)

	_, err := runtime.Run(context.Background(), e, runtime.Request{ParamCount: 2}, nil)
	if !badrequest.Is(err) {
		t.Fatalf("not a bad request error: %v", err)
	}

	// The rejection must leave the engine runnable.
	res, err := runtime.Run(context.Background(), e, runtime.Request{}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if !res.Exited() {
		t.Fatal(res)
	}
}

func TestRunEntryOffset(t *testing.T) {
	e := testEngine(t)

	_, err := runtime.Run(context.Background(), e, runtime.Request{EntryOffset: uint32(e.CodeSize())}, nil)
	if !badrequest.Is(err) {
		t.Fatalf("not a bad request error: %v", err)
	}
}

func TestRunKill(t *testing.T) {
	e := testEngine(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	time.AfterFunc(100*time.Millisecond, cancel)

	res, err := runtime.Run(ctx, e, runtime.Request{EntryOffset: entrySpin}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if !res.Killed() {
		t.Fatal(res)
	}

	if !e.Executable() {
		t.Error("engine not executable after kill")
	}

	// The engine must survive the kill.
	res, err = runtime.Run(context.Background(), e, runtime.Request{}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if !res.Exited() || res.Value() != 42 {
		t.Fatal(res)
	}

	if err := e.Close(); err != nil {
		t.Fatal(err)
	}
}

// laggedContext delays the visibility of its parent's cancellation.
type laggedContext struct {
	context.Context
	lag time.Duration
}

func (c laggedContext) Done() <-chan struct{} {
	time.Sleep(c.lag)
	return c.Context.Done()
}

// TestRunLateCancel cancels up front, but reveals the cancellation so late
// that the call has already terminated.  The exit value wins over the kill.
func TestRunLateCancel(t *testing.T) {
	e := testEngine(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	for i := 0; i < 20; i++ {
		res, err := runtime.Run(laggedContext{ctx, 50 * time.Millisecond}, e, runtime.Request{}, nil)
		if err != nil {
			t.Fatal(err)
		}
		if !res.Exited() || res.Value() != 42 {
			t.Fatal(res)
		}
	}
}

func TestRunFault(t *testing.T) {
	e := testEngine(t)

	res, err := runtime.Run(context.Background(), e, runtime.Request{EntryOffset: entryFault}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if res.Cause() != runtime.Faulted {
		t.Fatal(res)
	}
	if res.Fault() == nil {
		t.Fatal("no fault information")
	}

	// The engine must survive the fault.
	res, err = runtime.Run(context.Background(), e, runtime.Request{}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if !res.Exited() {
		t.Fatal(res)
	}
}
