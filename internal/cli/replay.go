package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/lowermost/defir/internal/construct"
	"github.com/lowermost/defir/internal/graph"
	"github.com/lowermost/defir/internal/graphfile"
	"github.com/lowermost/defir/internal/replay"
	"github.com/lowermost/defir/internal/trace"
)

// ReplayOptions holds flags for the replay command.
type ReplayOptions struct {
	*RootOptions
	TraceDB string // optional trace database path
	Out     string // optional output graph file path
}

// ReplayCmdResult holds the replay summary for JSON output.
type ReplayCmdResult struct {
	Module   string `json:"module"`
	Changed  bool   `json:"changed"`
	RunToken string `json:"run_token,omitempty"`
}

// NewReplayCommand creates the replay command.
func NewReplayCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ReplayOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "replay <graph.yaml>",
		Short: "Replay recorded placeholders in a graph file",
		Long: `Load a graph file, replay every recorded placeholder onto the concrete
builder, and print the rewritten module.

A graph with no tagged declarations is reported unchanged.

Exit codes:
  0 - Replay succeeded (changed or not)
  1 - Malformed placeholder encoding (recorder/replayer mismatch)
  2 - Command error (file not found, schema violation, etc.)

Examples:
  defir replay shader.yaml
  defir replay shader.yaml --trace-db ./replay.db
  defir replay shader.yaml --out rewritten.yaml --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReplay(opts, cmd, args[0])
		},
	}

	cmd.Flags().StringVar(&opts.TraceDB, "trace-db", "", "record the replay trace to this SQLite database")
	cmd.Flags().StringVar(&opts.Out, "out", "", "write the rewritten module to this graph file")

	return cmd
}

func runReplay(opts *ReplayOptions, cmd *cobra.Command, path string) (err error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read graph file", err)
	}

	m, err := graphfile.Decode(data)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to decode graph file", err)
	}

	var replayOpts []replay.Option
	tokens := replay.UUIDv7Tokens{}
	runToken := tokens.Generate()
	replayOpts = append(replayOpts, replay.WithTokens(replay.NewFixedTokens(runToken)))

	if opts.TraceDB != "" {
		rec, openErr := trace.Open(opts.TraceDB)
		if openErr != nil {
			return WrapExitError(ExitCommandError, "failed to open trace database", openErr)
		}
		defer rec.Close()
		replayOpts = append(replayOpts, replay.WithTrace(rec))
	}

	// A malformed encoding panics in the engine (it is a contract
	// violation, not an input error); convert it to a failure exit so
	// the CLI reports it cleanly.
	var changed bool
	err = func() (err error) {
		defer func() {
			if r := recover(); r != nil {
				if ee, ok := r.(*replay.EncodingError); ok {
					err = WrapExitError(ExitFailure, "malformed placeholder encoding", ee)
					return
				}
				panic(r)
			}
		}()
		r := replay.New(construct.New(), replayOpts...)
		changed = r.Run(m)
		return nil
	}()
	if err != nil {
		return err
	}

	if opts.Out != "" {
		out, encErr := graphfile.Encode(m)
		if encErr != nil {
			return WrapExitError(ExitCommandError, "failed to encode rewritten module", encErr)
		}
		if writeErr := os.WriteFile(opts.Out, out, 0o644); writeErr != nil {
			return WrapExitError(ExitCommandError, "failed to write output graph file", writeErr)
		}
	}

	if opts.Format == "json" {
		return writeJSON(cmd.OutOrStdout(), ReplayCmdResult{
			Module:   m.Name(),
			Changed:  changed,
			RunToken: runToken,
		})
	}

	w := cmd.OutOrStdout()
	if changed {
		fmt.Fprintf(w, "replayed placeholders in module %s (run %s)\n\n", m.Name(), runToken)
	} else {
		fmt.Fprintf(w, "module %s has no placeholders; unchanged\n\n", m.Name())
	}
	fmt.Fprint(w, graph.Print(m))
	return nil
}
