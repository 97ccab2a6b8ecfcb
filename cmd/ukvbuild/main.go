// Command ukvbuild compiles the native engine for a backend selection,
// expands its public header and regenerates the Go bindings.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
