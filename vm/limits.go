// Copyright (c) 2025 Timo Savola. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package vm

// Hard limits on engine creation.  Config dimensions beyond these fail with
// a resource limit error.
const (
	MaxCodeSize      = 8 * 1024 * 1024  // Code bytes.
	MaxMemorySize    = 16 * 1024 * 1024 // Linear memory bound in bytes.
	MaxGlobalCount   = 128
	MaxImportCount   = 128
	MaxSigIndexCount = 8192
	MaxTableCount    = 1024
)

// Stack mapping dimensions.  The guard band is non-accessible and sits at
// the low end, so that overflow faults instead of corrupting adjacent
// memory.
const (
	StackSize      = 2 * 1024 * 1024
	StackGuardSize = 8192
)

// WasmPageSize is the unit in which the memory intrinsics report linear
// memory size.
const WasmPageSize = 65536
