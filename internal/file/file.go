// Copyright (c) 2019 Timo Savola. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package file

import (
	"fmt"
	"io"
	"log/slog"
	"runtime"
	"syscall"
)

type File struct {
	fd   int
	file string
	line int
}

func New(fd int) *File {
	_, file, line, ok := runtime.Caller(2)
	if !ok {
		slog.Error("file: failed to discover caller of New")
	}
	f := &File{fd, file, line}
	runtime.SetFinalizer(f, (*File).finalize)
	return f
}

func (f *File) finalize() {
	if f.fd >= 0 {
		slog.Error("file: closing unreachable file descriptor", "fd", f.fd, slog.Group("creator", "file", f.file, "line", f.line))
		f.Close()
	}
}

func (f *File) Close() error {
	fd := f.fd
	f.fd = -1
	if err := syscall.Close(fd); err != nil {
		return fmt.Errorf("close: %w", err)
	}
	return nil
}

func (f *File) FD() int     { return f.fd }
func (f *File) Fd() uintptr { return uintptr(f.fd) }

func (f *File) WriteAt(b []byte, offset int64) (int, error) {
	var n int

	for len(b) > 0 {
		switch count, err := syscall.Pwrite(f.fd, b, offset); err {
		case nil:
			if count == 0 {
				return n, io.EOF
			}
			b = b[count:]
			offset += int64(count)
			n += count

		case syscall.EAGAIN, syscall.EINTR:
			continue

		default:
			return n, fmt.Errorf("pwrite: %w", err)
		}
	}

	return n, nil
}
