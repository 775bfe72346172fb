package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/lowermost/defir/internal/trace"
)

// TraceOptions holds flags for the trace command.
type TraceOptions struct {
	*RootOptions
	Database string
}

// TraceRunResult holds one run's entries for JSON output.
type TraceRunResult struct {
	RunToken string       `json:"run_token"`
	Entries  []TraceEntry `json:"entries"`
}

// TraceEntry is one replayed placeholder in JSON output.
type TraceEntry struct {
	Seq         int64  `json:"seq"`
	Opcode      string `json:"opcode"`
	Func        string `json:"func"`
	Placeholder string `json:"placeholder,omitempty"`
	Replacement string `json:"replacement"`
	Forced      bool   `json:"forced,omitempty"`
}

// NewTraceCommand creates the trace command.
func NewTraceCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TraceOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "trace [run-token]",
		Short: "Show recorded replay traces",
		Long: `List recorded replay runs, or show the replay entries of one run in
seq order.

Examples:
  defir trace --db ./replay.db
  defir trace --db ./replay.db 0190f5a2-... --format json`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				return runTraceList(opts, cmd)
			}
			return runTraceShow(opts, cmd, args[0])
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to trace SQLite database (required)")
	_ = cmd.MarkFlagRequired("db")

	return cmd
}

func runTraceList(opts *TraceOptions, cmd *cobra.Command) error {
	rec, err := trace.Open(opts.Database)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open trace database", err)
	}
	defer rec.Close()

	tokens, err := rec.Runs(context.Background())
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to list runs", err)
	}

	if opts.Format == "json" {
		return writeJSON(cmd.OutOrStdout(), map[string]interface{}{"runs": tokens})
	}

	w := cmd.OutOrStdout()
	if len(tokens) == 0 {
		fmt.Fprintln(w, "No runs recorded.")
		return nil
	}
	for _, t := range tokens {
		fmt.Fprintln(w, t)
	}
	return nil
}

func runTraceShow(opts *TraceOptions, cmd *cobra.Command, runToken string) error {
	rec, err := trace.Open(opts.Database)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open trace database", err)
	}
	defer rec.Close()

	entries, err := rec.ReadRun(context.Background(), runToken)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read run", err)
	}

	if opts.Format == "json" {
		result := TraceRunResult{RunToken: runToken, Entries: make([]TraceEntry, 0, len(entries))}
		for _, e := range entries {
			result.Entries = append(result.Entries, TraceEntry{
				Seq:         e.Seq,
				Opcode:      e.Opcode,
				Func:        e.Func,
				Placeholder: e.Placeholder,
				Replacement: e.Replacement,
				Forced:      e.Forced,
			})
		}
		return writeJSON(cmd.OutOrStdout(), result)
	}

	w := cmd.OutOrStdout()
	if len(entries) == 0 {
		fmt.Fprintf(w, "No entries for run %s.\n", runToken)
		return nil
	}
	fmt.Fprintf(w, "Run %s: %d replayed placeholder(s)\n\n", runToken, len(entries))
	for _, e := range entries {
		forced := ""
		if e.Forced {
			forced = " (forced out of order)"
		}
		name := e.Placeholder
		if name == "" {
			name = "<unnamed>"
		}
		fmt.Fprintf(w, "%4d  %-22s %s in @%s -> %s%s\n", e.Seq, e.Opcode, name, e.Func, e.Replacement, forced)
	}
	return nil
}
