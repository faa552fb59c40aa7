// Command notes-e2e runs the Notes end-to-end scenario catalog.
package main

import (
	"fmt"
	"os"

	"github.com/kuitang/notes-e2e/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		code := cli.ExitCode(err)
		if code != cli.ExitFailure {
			fmt.Fprintf(os.Stderr, "notes-e2e: %v\n", err)
		}
		os.Exit(code)
	}
}
