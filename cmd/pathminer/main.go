// Command pathminer extracts behavioral call sequences from program
// descriptions.
package main

import (
	"fmt"
	"os"

	"github.com/roach88/pathminer/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(cli.GetExitCode(err))
	}
}
