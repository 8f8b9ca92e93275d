// Command fanatpg is the cobra-based CLI front end for the SAT-based ATPG
// engine, replacing the teacher's flag-based cmd/main.go with three
// subcommands (run, sweep, verify) over the same pkg/dtpg driver.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
