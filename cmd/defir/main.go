// Command defir replays recorded placeholder operations in graph files.
package main

import (
	"fmt"
	"os"

	"github.com/lowermost/defir/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(cli.GetExitCode(err))
	}
}
