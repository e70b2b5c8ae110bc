// Command medscan is the operator CLI for the medication identification
// pipeline: offline resolution and catalog maintenance.
package main

import (
	"fmt"
	"os"
)

// Version is set by build flags
var Version = "dev"

func main() {
	if err := getRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
