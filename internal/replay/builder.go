package replay

import "github.com/lowermost/defir/internal/graph"

// Builder is the abstract construction interface the engine replays
// placeholders onto. Implemented by construct.Builder (production) and by
// test doubles.
//
// SetInsertPoint positions construction immediately before a node; every
// Create method emits at that position and inherits the insert point's
// source location, so diagnostics on replayed operations attribute to the
// original recording site.
type Builder interface {
	SetInsertPoint(before *graph.Node)

	// Resource-descriptor loads. The buffer variant returns a pointer
	// whose pointee is supplied out of band from the placeholder's
	// declared result type; pointee may be nil when the result type was
	// not a pointer.
	CreateLoadBufferDesc(set, binding uint32, index graph.Value, nonUniform bool, pointee *graph.Type) *graph.Node
	CreateLoadSamplerDesc(set, binding uint32, index graph.Value, nonUniform bool) *graph.Node
	CreateLoadResourceDesc(set, binding uint32, index graph.Value, nonUniform bool) *graph.Node
	CreateLoadTexelBufferDesc(set, binding uint32, index graph.Value, nonUniform bool) *graph.Node
	CreateLoadFmaskDesc(set, binding uint32, index graph.Value, nonUniform bool) *graph.Node
	CreateLoadSpillTablePtr(spillTy *graph.Type) *graph.Node

	// CreateWaterfallLoop builds the per-lane-uniform guarding loop
	// around target, re-reading the operands at operandIdxs each
	// iteration.
	CreateWaterfallLoop(target *graph.Node, operandIdxs []uint32) *graph.Node

	// CreateKill builds the termination operation.
	CreateKill() *graph.Node

	// CreateReadClock builds a clock read; realtime selects the
	// realtime clock domain.
	CreateReadClock(realtime bool) *graph.Node
}
