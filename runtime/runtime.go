// Copyright (c) 2025 Timo Savola. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package runtime drives calls into an execution engine.  Each call runs
// on its own locked thread so that fault confinement and forced
// cancellation are contained to that call.
package runtime
