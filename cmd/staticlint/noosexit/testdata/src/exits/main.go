package main

import (
	"os"
	xos "os"
)

func main() {
	defer cleanup()

	if len(os.Args) > 3 {
		os.Exit(2) // want "avoid using os.Exit in main.main"
	}
	if len(os.Args) > 2 {
		xos.Exit(1) // want "avoid using os.Exit in main.main"
	}

	run := func() {
		os.Exit(3)
	}
	_ = run
}

func cleanup() {}

func fail() {
	os.Exit(1)
}
