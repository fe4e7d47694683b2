// Copyright (c) 2022 Timo Savola. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

//go:build generate
// +build generate

package main

import (
	. "import.name/make"
)

func main() { Main(targets, "make.go", "go.mod") }

func targets() (targets Tasks) {
	GO := Getvar("GO", "go")

	targets.Add(Target("check", check(GO)))
	targets.Add(Target("build", build(GO)))
	targets.Add(Target("clean", Removal("bin")))
	return
}

func build(GO string) Task {
	return Command(GO, "build", "-o", "bin/", "./cmd/cage-run")
}

func check(GO string) Task {
	return Group(
		Command(GO, "build", "-o", "/dev/null", "./..."),
		Command(GO, "vet", "./..."),
		Command(GO, "test", "./..."),
	)
}
