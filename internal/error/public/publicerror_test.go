// Copyright (c) 2025 Timo Savola. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package public_test

import (
	"errors"
	"testing"

	"gate.computer/cage/internal/error/badrequest"
	"gate.computer/cage/internal/error/badstate"
	"gate.computer/cage/internal/error/oom"
	"gate.computer/cage/internal/error/public"
	"gate.computer/cage/internal/error/resourcelimit"
	"gate.computer/cage/internal/error/spawn"
	"github.com/stretchr/testify/assert"
)

func TestErrorString(t *testing.T) {
	assert.Equal(t, "no code loaded", public.ErrorString(badstate.Error("no code loaded"), "x"))
	assert.Equal(t, "x", public.ErrorString(errors.New("sensitive detail"), "x"))

	err := oom.Wrap(errors.New("mmap: cannot allocate memory"))
	assert.Equal(t, "out of memory", public.ErrorString(err, "x"))
	assert.Equal(t, "out of memory: mmap: cannot allocate memory", err.Error())
}

func TestErrorKinds(t *testing.T) {
	err := badrequest.Errorf("param count %d", 3)
	assert.True(t, badrequest.Is(err))
	assert.False(t, badstate.Is(err))
	assert.Equal(t, "param count 3", public.ErrorString(err, "x"))

	err = badstate.Errorf("closed %d times", 2)
	assert.True(t, badstate.Is(err))
	assert.False(t, badrequest.Is(err))
	assert.Equal(t, "closed 2 times", err.Error())

	err = resourcelimit.Errorf("%d globals", 129)
	assert.True(t, resourcelimit.Is(err))
	assert.Equal(t, "129 globals", public.ErrorString(err, "x"))

	err = oom.Wrap(errors.New("mmap: cannot allocate memory"))
	assert.True(t, oom.Is(err))
	assert.False(t, spawn.Is(err))

	err = spawn.Wrap(errors.New("sigaction: invalid argument"))
	assert.True(t, spawn.Is(err))
	assert.False(t, oom.Is(err))
	assert.Equal(t, "runner unavailable", public.ErrorString(err, "x"))
	assert.Equal(t, "runner spawn: sigaction: invalid argument", err.Error())
	assert.NotNil(t, errors.Unwrap(err))
}
