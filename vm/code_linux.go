// Copyright (c) 2025 Timo Savola. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package vm

import (
	"fmt"

	"gate.computer/cage/internal/file"
	"golang.org/x/sys/unix"
)

const codeFileName = "cage-code"

// newCodeFile creates a fully sealed memory file holding the code bytes,
// rounded up to a whole number of pages.
func newCodeFile(code []byte) (*file.File, error) {
	fd, err := unix.MemfdCreate(codeFileName, unix.MFD_CLOEXEC|unix.MFD_ALLOW_SEALING)
	if err != nil {
		return nil, fmt.Errorf("memfd_create: %w", err)
	}
	f := file.New(fd)

	if err := sealCodeFile(f, code); err != nil {
		f.Close()
		return nil, err
	}

	return f, nil
}

func sealCodeFile(f *file.File, code []byte) error {
	if err := unix.Ftruncate(f.FD(), int64(alignPageSize(len(code)))); err != nil {
		return fmt.Errorf("ftruncate: %w", err)
	}

	if _, err := f.WriteAt(code, 0); err != nil {
		return err
	}

	_, err := unix.FcntlInt(f.Fd(), unix.F_ADD_SEALS, unix.F_SEAL_SHRINK|unix.F_SEAL_GROW|unix.F_SEAL_WRITE|unix.F_SEAL_SEAL)
	if err != nil {
		return fmt.Errorf("fcntl: %w", err)
	}
	return nil
}
