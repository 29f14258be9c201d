// Package main is the entry point for the bytescope stream inspector.
package main

import (
	"fmt"
	"os"

	"firestige.xyz/bytescope/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
