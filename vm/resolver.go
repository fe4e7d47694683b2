// Copyright (c) 2025 Timo Savola. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package vm

// Resolver binds imported function slots during engine creation.  It is
// consulted once per slot and not retained.
type Resolver interface {
	// ResolveFunc returns the native entry address for import slot i.
	ResolveFunc(i int) (uintptr, error)
}
