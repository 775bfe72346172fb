// Package replay implements the consumer half of the deferred-operation
// record/replay split: it rewrites a graph in place, substituting each
// recorded placeholder call with the concrete operation(s) it stands for,
// as produced by a Builder.
//
// The recording phase (out of scope here) emits placeholder calls to
// bodyless declarations named with the reserved op.CallPrefix and tagged
// with an opcode under op.TagKey. This package drains those placeholders:
//
//	Run → for each tagged declaration → replayCall → dispatch
//	    → (waterfall opcodes) resolve designated operands, forcing
//	      out-of-order replay of producer placeholders as needed
//
// The pass is single-threaded and synchronous; the only non-trivial
// control flow is the dependency resolver calling back into replayCall,
// which terminates because every forced replay permanently removes one
// placeholder from the graph.
//
// Malformed encodings (a reserved-prefix name without an opcode tag, or
// the sentinel opcode reaching dispatch) indicate a recorder/replayer
// version mismatch and panic with *EncodingError; they are never expected
// in a correctly paired pipeline and are not recoverable.
package replay
