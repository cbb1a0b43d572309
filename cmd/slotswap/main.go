// Command slotswap runs the slot swap service and its operator tooling.
package main

import (
	"fmt"
	"os"

	"github.com/roach88/slotswap/internal/cli"
)

func main() {
	cmd := cli.NewRootCommand()
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(cli.GetExitCode(err))
	}
}
