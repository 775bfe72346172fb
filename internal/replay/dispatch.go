package replay

import (
	"fmt"

	"github.com/lowermost/defir/internal/graph"
	"github.com/lowermost/defir/internal/op"
)

// processCall dispatches one placeholder to its handler and returns the
// replacement value, or nil when the caller must not rewire uses of the
// placeholder (the side-effect-tagging waterfall store case patches its
// one consumer directly).
//
// Argument interpretation is positional and fixed per opcode: constant
// operands decode by direct extraction of their literal value, value
// operands pass through unchanged, and the placeholder's declared result
// type supplies the out-of-band pointee type for pointer-returning
// loads.
func (r *Replayer) processCall(opcode op.Opcode, call *graph.Node) graph.Value {
	args := call.Operands()

	switch opcode {
	case op.WaterfallLoop, op.WaterfallStoreLoop:
		return r.processWaterfall(opcode, call)

	case op.LoadBufferDesc:
		return r.builder.CreateLoadBufferDesc(
			constU32(args[0]),       // set
			constU32(args[1]),       // binding
			args[2],                 // index
			constBool(args[3]),      // nonUniform
			call.Type().Pointee(),   // pointee, nil for non-pointer results
		)

	case op.LoadSamplerDesc:
		return r.builder.CreateLoadSamplerDesc(
			constU32(args[0]), constU32(args[1]), args[2], constBool(args[3]))

	case op.LoadResourceDesc:
		return r.builder.CreateLoadResourceDesc(
			constU32(args[0]), constU32(args[1]), args[2], constBool(args[3]))

	case op.LoadTexelBufferDesc:
		return r.builder.CreateLoadTexelBufferDesc(
			constU32(args[0]), constU32(args[1]), args[2], constBool(args[3]))

	case op.LoadFmaskDesc:
		return r.builder.CreateLoadFmaskDesc(
			constU32(args[0]), constU32(args[1]), args[2], constBool(args[3]))

	case op.LoadSpillTablePtr:
		return r.builder.CreateLoadSpillTablePtr(call.Type().Pointee())

	case op.Kill:
		return r.builder.CreateKill()

	case op.ReadClock:
		return r.builder.CreateReadClock(constBool(args[0]))

	default:
		// Includes the reserved Nop sentinel: a well-formed graph never
		// records it, so reaching here is a version mismatch.
		calleeName := ""
		if call.Callee() != nil {
			calleeName = call.Callee().Name()
		}
		panic(&EncodingError{Code: ErrCodeUnknownOpcode, Opcode: opcode, Decl: calleeName})
	}
}

// processWaterfall handles both waterfall opcodes.
//
// args[0] is the designated instruction whose operands at the recorded
// indices must be per-lane uniform. For the plain variant it is also the
// operation the loop wraps. For the store variant the placeholder
// intercepts one of the store's inputs instead: its single recorded use
// identifies the store, and that operand is restored to args[0] (the
// original pre-interception value) before the loop is built.
//
// Before constructing the loop, each designated operand is resolved: the
// builder inspects those operands structurally and knows nothing about
// the record/replay split, so any producer that is still an unreplayed
// placeholder must be replayed first, even though declaration-drain
// order would reach it later. The operand may be separated from its real
// source by a chain of pure address-computation nodes; walking each
// node's base operand bottoms out at the root. Chains that end at an
// already-concrete value (including function parameters) need no forced
// replay. Termination: every forced replay permanently removes one
// placeholder, and a placeholder cannot depend on its own unproduced
// result, so the recursion is strictly decreasing.
func (r *Replayer) processWaterfall(opcode op.Opcode, call *graph.Node) graph.Value {
	args := call.Operands()

	var operandIdxs []uint32
	for _, arg := range args {
		if c, ok := arg.(*graph.Const); ok {
			operandIdxs = append(operandIdxs, uint32(c.Int))
		}
	}

	var nonUniform *graph.Node
	if opcode == op.WaterfallLoop {
		nonUniform = args[0].(*graph.Node)
	} else {
		// The placeholder is consumed by exactly the store it tags, as
		// one of its operands. Find the store through that use and undo
		// the interception.
		use := call.Uses()[0]
		nonUniform = use.User
		use.User.SetOperand(use.Index, args[0])
	}

	target := args[0].(*graph.Node)
	for _, operandIdx := range operandIdxs {
		input := target.Operand(int(operandIdx))
		for {
			n, ok := input.(*graph.Node)
			if !ok || n.Kind() != graph.KindAddr {
				break
			}
			input = n.Operand(0)
		}
		r.replayIfPlaceholder(input)
	}

	// A forced replay moves the insert point to the producer placeholder
	// and then erases it; re-pin at this call before building the loop.
	r.builder.SetInsertPoint(call)

	loop := r.builder.CreateWaterfallLoop(nonUniform, operandIdxs)

	if opcode == op.WaterfallLoop {
		return loop
	}

	// Store variant: the placeholder had no consumers besides the store
	// already patched above, so the caller must not rewire. Hand the
	// recorded name to the loop here instead.
	loop.TakeName(call)
	return nil
}

func constU32(v graph.Value) uint32 {
	c, ok := v.(*graph.Const)
	if !ok {
		panic(fmt.Sprintf("replay: expected constant operand, got %T", v))
	}
	return uint32(c.Int)
}

func constBool(v graph.Value) bool {
	c, ok := v.(*graph.Const)
	if !ok {
		panic(fmt.Sprintf("replay: expected constant operand, got %T", v))
	}
	return c.IsTrue()
}
