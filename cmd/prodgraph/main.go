// Command prodgraph plans and executes builds over a product graph.
package main

import (
	"fmt"
	"os"

	"github.com/roach88/prodgraph/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(cli.GetExitCode(err))
	}
}
