// Copyright (c) 2019 Timo Savola. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package vm

import (
	"fmt"
	"os"
	"syscall"

	"golang.org/x/sys/unix"
)

var (
	pageSize = os.Getpagesize()
	pageMask = pageSize - 1
)

func alignPageSize(n int) int { return (n + pageMask) &^ pageMask }

func mmap(fd uintptr, offset int64, length, prot, flags int) (data []byte, err error) {
	data, err = syscall.Mmap(int(fd), offset, length, prot, flags)
	if err != nil {
		err = fmt.Errorf("mmap: %v", err)
		return
	}

	return
}

func mmapAnon(length, prot int) ([]byte, error) {
	return mmap(^uintptr(0), 0, length, prot, syscall.MAP_PRIVATE|syscall.MAP_ANON)
}

func mustMunmap(b []byte) {
	if err := syscall.Munmap(b); err != nil {
		panic(fmt.Errorf("munmap: %v", err))
	}
}

func mprotect(b []byte, prot int) error {
	if err := unix.Mprotect(b, prot); err != nil {
		return fmt.Errorf("mprotect: %v", err)
	}
	return nil
}
