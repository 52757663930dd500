// Command daybook is the operational CLI for the daybook journal
// database: schema maintenance, entry CRUD, portable exports and
// imports, session administration, and the encryption backfill.
package main

import (
	"fmt"
	"os"

	"github.com/daybookhq/daybook/internal/cli"
)

func main() {
	cmd := cli.NewRootCommand()
	if err := cmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(cli.GetExitCode(err))
	}
}
