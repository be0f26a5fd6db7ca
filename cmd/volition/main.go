package main

import (
	"fmt"
	"os"

	"github.com/roach88/volition/internal/cli"
)

func main() {
	cmd := cli.NewRootCommand()
	if err := cmd.Execute(); err != nil {
		// Subcommands set SilenceErrors, so this is the single place
		// errors reach the user.
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(cli.GetExitCode(err))
	}
}
