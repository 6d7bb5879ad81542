// Package main provides the entry point for csim.
// csim replays a valgrind memory trace against a set-associative cache with
// LRU replacement and reports hits, misses and evictions.
package main

import (
	"fmt"
	"os"

	"github.com/tebeka/atexit"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		atexit.Exit(1)
	}

	atexit.Exit(0)
}
