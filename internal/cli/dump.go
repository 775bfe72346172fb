package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/lowermost/defir/internal/graph"
	"github.com/lowermost/defir/internal/graphfile"
)

// DumpResult holds the dump output for JSON format.
type DumpResult struct {
	Module string `json:"module"`
	Funcs  int    `json:"funcs"`
	Text   string `json:"text"`
}

// NewDumpCommand creates the dump command.
func NewDumpCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "dump <graph.yaml>",
		Short: "Print the canonical text form of a graph file",
		Long: `Load and validate a graph file, then print its deterministic textual
form without replaying anything.

Examples:
  defir dump shader.yaml
  defir dump shader.yaml --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDump(rootOpts, cmd, args[0])
		},
	}
	return cmd
}

func runDump(opts *RootOptions, cmd *cobra.Command, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read graph file", err)
	}

	m, err := graphfile.Decode(data)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to decode graph file", err)
	}

	text := graph.Print(m)

	if opts.Format == "json" {
		return writeJSON(cmd.OutOrStdout(), DumpResult{
			Module: m.Name(),
			Funcs:  len(m.Funcs()),
			Text:   text,
		})
	}

	fmt.Fprint(cmd.OutOrStdout(), text)
	return nil
}
