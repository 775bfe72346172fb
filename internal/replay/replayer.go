package replay

import (
	"context"
	"log/slog"
	"strings"

	"github.com/lowermost/defir/internal/graph"
	"github.com/lowermost/defir/internal/op"
	"github.com/lowermost/defir/internal/trace"
)

// Replayer rewrites a module in place, replacing recorded placeholder
// calls with the concrete operations its Builder produces.
//
// A Replayer is single-threaded: Run owns the module exclusively for the
// duration of the pass and must not be called concurrently. Replayers
// are constructed explicitly; there is no global pass registry.
type Replayer struct {
	builder Builder
	tokens  TokenGenerator
	rec     *trace.Recorder

	// Per-pass state, reset by Run.
	runToken    string
	seq         int64
	forcedDepth int
}

// Option configures a Replayer.
type Option func(*Replayer)

// WithTrace attaches a trace recorder; each replayed placeholder is
// written as one trace entry. The engine behaves identically without it.
func WithTrace(rec *trace.Recorder) Option {
	return func(r *Replayer) { r.rec = rec }
}

// WithTokens overrides the run-token generator. Tests use FixedTokens
// for deterministic trace output.
func WithTokens(gen TokenGenerator) Option {
	return func(r *Replayer) { r.tokens = gen }
}

// New creates a Replayer that replays placeholders onto b.
func New(b Builder, opts ...Option) *Replayer {
	r := &Replayer{
		builder: b,
		tokens:  UUIDv7Tokens{},
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run replays every placeholder in the module and removes the drained
// placeholder declarations. Returns whether the module was mutated; a
// module with no tagged declarations is a no-op returning false, so the
// pass is idempotent.
//
// Run panics with *EncodingError on a malformed placeholder encoding:
// it means the recorder and this engine disagree, which no caller can
// recover from.
func (r *Replayer) Run(m *graph.Module) bool {
	r.runToken = r.tokens.Generate()
	r.seq = 0
	r.forcedDepth = 0

	slog.Debug("replay pass starting", "module", m.Name(), "run_token", r.runToken)

	changed := false
	var drained []*graph.Func

	// Funcs() is re-read each iteration index; forced replays never add
	// or remove declarations, only placeholder calls, so a plain range
	// over a snapshot is safe.
	for _, fn := range m.Funcs() {
		// Bodies are never placeholder callees.
		if !fn.IsDecl() {
			continue
		}

		opcode, ok := declOpcode(fn)
		if !ok {
			// A reserved-prefix name without a tag means the opcode was
			// not encoded correctly.
			if strings.HasPrefix(fn.Name(), op.CallPrefix) {
				panic(&EncodingError{Code: ErrCodeMissingTag, Decl: fn.Name()})
			}
			continue
		}

		// A tagged declaration is replay work even if its uses were
		// already drained out of order: the declaration itself goes.
		changed = true

		// Drain every placeholder call. Each replay removes the use it
		// came from, and forced out-of-order replays may remove further
		// uses, so always re-read the use list.
		for len(fn.Uses()) > 0 {
			call := fn.Uses()[0].User
			r.replayCall(opcode, call)
		}

		drained = append(drained, fn)
	}

	for _, fn := range drained {
		m.RemoveFunc(fn)
	}

	slog.Info("replay pass finished",
		"module", m.Name(),
		"run_token", r.runToken,
		"changed", changed,
		"replayed", r.seq,
		"declarations_removed", len(drained),
	)

	return changed
}

// replayCall replays one placeholder call: positions the builder at the
// call (which also propagates the call's source location onto newly
// built nodes), dispatches, rewires uses of the call to the replacement
// when one is returned, transfers the call's name to a freshly created
// replacement, and deletes the call.
//
// Reentrant: the waterfall resolver calls back into this via
// replayIfPlaceholder while an outer replayCall is in progress.
func (r *Replayer) replayCall(opcode op.Opcode, call *graph.Node) {
	r.builder.SetInsertPoint(call)

	slog.Debug("replaying placeholder",
		"run_token", r.runToken,
		"opcode", opcode.String(),
		"placeholder", call.Name(),
		"func", call.Func().Name(),
		"forced", r.forcedDepth > 0,
	)

	entry := trace.Entry{
		RunToken:    r.runToken,
		Opcode:      opcode.String(),
		Func:        call.Func().Name(),
		Placeholder: call.Name(),
		Replacement: "none",
		Forced:      r.forcedDepth > 0,
	}

	newValue := r.processCall(opcode, call)

	if newValue != nil {
		graph.ReplaceAllUses(call, newValue)
		if n, ok := newValue.(*graph.Node); ok {
			entry.Replacement = string(n.Kind())
			// Builder-created nodes are unnamed; an already-present
			// value keeps its own name.
			if n.Name() == "" {
				n.TakeName(call)
			}
		}
	}
	call.Erase()

	r.seq++
	entry.Seq = r.seq
	r.record(entry)
}

// replayIfPlaceholder classifies value: if it is an unreplayed
// placeholder call, replay it immediately; otherwise no-op. This is the
// sole reentry point used by the waterfall dependency resolver to force
// out-of-order replay of producer placeholders.
func (r *Replayer) replayIfPlaceholder(value graph.Value) {
	call, ok := value.(*graph.Node)
	if !ok || call.Kind() != graph.KindCall {
		return
	}
	callee := call.Callee()
	if callee == nil || !strings.HasPrefix(callee.Name(), op.CallPrefix) {
		return
	}
	opcode, ok := declOpcode(callee)
	if !ok {
		panic(&EncodingError{Code: ErrCodeMissingTag, Decl: callee.Name()})
	}

	r.forcedDepth++
	r.replayCall(opcode, call)
	r.forcedDepth--
}

// declOpcode extracts the opcode tag from a placeholder declaration.
func declOpcode(fn *graph.Func) (op.Opcode, bool) {
	v, ok := fn.Tag(op.TagKey)
	return op.Opcode(v), ok
}

func (r *Replayer) record(e trace.Entry) {
	if r.rec == nil {
		return
	}
	// The pass is synchronous with no cancellation points, timeouts, or
	// retries, so trace writes get a background context.
	if err := r.rec.WriteReplay(context.Background(), e); err != nil {
		slog.Error("trace write failed",
			"run_token", e.RunToken,
			"seq", e.Seq,
			"error", err,
		)
	}
}
