// Command qcml compiles convex optimization problems to second-order cone
// programs.
package main

import (
	"fmt"
	"os"

	"github.com/roach88/qcml/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(cli.GetExitCode(err))
	}
}
