// Copyright (c) 2025 Timo Savola. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"gate.computer/cage"
	"gate.computer/cage/internal/logging"
	"gate.computer/cage/runtime"
	"gate.computer/cage/vm"
	"import.name/confi"
)

type Config struct {
	Engine struct {
		MemorySize int
		Globals    int
		Tables     int
		Imports    int
		SigIndices int
	}

	Entry   int
	Timeout time.Duration

	Log struct {
		Journal bool
		Debug   bool
	}
}

var c = new(Config)

func main() {
	c.Engine.MemorySize = vm.WasmPageSize

	flag.Var(confi.FileReader(c), "f", "read a configuration file")
	flag.Var(confi.Assigner(c), "o", "set a configuration option (path.to.key=value)")
	flag.Usage = confi.FlagUsage(nil, c)
	flag.Parse()

	if flag.NArg() != 1 {
		flag.Usage()
		os.Exit(2)
	}
	filename := flag.Arg(0)

	level := slog.LevelInfo
	if c.Log.Debug {
		level = slog.LevelDebug
	}

	log, err := logging.Init(c.Log.Journal, level)
	if err != nil {
		log.Error("journal initialization failed", "error", err)
		os.Exit(1)
	}

	code, err := os.ReadFile(filename)
	if err != nil {
		log.Error("code file reading failed", "error", err)
		os.Exit(1)
	}

	s := cage.NewSession(cage.Config{Log: log})
	defer s.Close()

	config := vm.Config{
		Code:          code,
		MemorySize:    c.Engine.MemorySize,
		GlobalCount:   c.Engine.Globals,
		TableCount:    c.Engine.Tables,
		ImportCount:   c.Engine.Imports,
		SigIndexCount: c.Engine.SigIndices,
		Log:           log,
	}
	if config.ImportCount > 0 {
		config.Resolver = vm.IntrinsicResolver()
	}

	if err := s.Load(config); err != nil {
		log.Error("load failed", "error", err)
		os.Exit(1)
	}

	ctx := context.Background()
	if c.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.Timeout)
		defer cancel()
	}
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	res, err := s.Run(ctx, runtime.Request{EntryOffset: uint32(c.Entry)})
	if err != nil {
		log.Error("run failed", "error", err)
		os.Exit(1)
	}

	switch {
	case res.Exited():
		fmt.Println(res.Value())

	case res.Killed():
		log.Error("call killed")
		os.Exit(1)

	default:
		log.Error("call faulted", "fault", res.Fault().String())
		os.Exit(1)
	}
}
