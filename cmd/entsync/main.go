// Command entsync reconciles JSON payloads into a SQLite object store.
package main

import (
	"fmt"
	"os"

	"github.com/roach88/entsync/internal/cli"
)

func main() {
	cmd := cli.NewRootCommand()
	if err := cmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "entsync: %v\n", err)
		os.Exit(cli.GetExitCode(err))
	}
}
