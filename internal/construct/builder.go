// Package construct provides the production Builder: it materializes
// concrete graph nodes for each deferred operation at the current insert
// point.
//
// Construction is positional: SetInsertPoint pins both where new nodes
// go (immediately before the given node, i.e. where the placeholder
// sits) and which source location they inherit. Nodes are created
// unnamed; the replay executor transfers the placeholder's name onto the
// replacement.
package construct

import (
	"github.com/lowermost/defir/internal/graph"
)

// Opaque descriptor types produced when a load has no recorded pointee.
var (
	bufferDescTy      = graph.Opaque("buffer.desc")
	samplerDescTy     = graph.Opaque("sampler.desc")
	resourceDescTy    = graph.Opaque("resource.desc")
	texelBufferDescTy = graph.Opaque("texelbuffer.desc")
	fmaskDescTy       = graph.Opaque("fmask.desc")
	spillTableTy      = graph.Opaque("spill.table")
)

// Builder implements replay.Builder over the graph substrate.
type Builder struct {
	fn     *graph.Func
	insert *graph.Node
	loc    graph.SourceLoc
}

// New creates a Builder with no insert point. SetInsertPoint must be
// called before any Create method.
func New() *Builder {
	return &Builder{}
}

// SetInsertPoint positions construction immediately before the given
// node and adopts its source location for subsequently created nodes.
func (b *Builder) SetInsertPoint(before *graph.Node) {
	b.fn = before.Func()
	b.insert = before
	b.loc = before.Loc()
}

func (b *Builder) emit(kind graph.NodeKind, ty *graph.Type, operands ...graph.Value) *graph.Node {
	n := b.fn.InsertBefore(b.insert, kind, "", ty, operands...)
	n.SetLoc(b.loc)
	return n
}

// CreateLoadBufferDesc builds a buffer-descriptor load returning a
// pointer over pointee (or over a generic buffer descriptor when no
// pointee was recorded).
func (b *Builder) CreateLoadBufferDesc(set, binding uint32, index graph.Value, nonUniform bool, pointee *graph.Type) *graph.Node {
	if pointee == nil {
		pointee = bufferDescTy
	}
	return b.descLoad(graph.KindLoadBufferDesc, graph.PointerTo(pointee), set, binding, index, nonUniform)
}

// CreateLoadSamplerDesc builds a sampler-descriptor load.
func (b *Builder) CreateLoadSamplerDesc(set, binding uint32, index graph.Value, nonUniform bool) *graph.Node {
	return b.descLoad(graph.KindLoadSamplerDesc, samplerDescTy, set, binding, index, nonUniform)
}

// CreateLoadResourceDesc builds a resource-descriptor load.
func (b *Builder) CreateLoadResourceDesc(set, binding uint32, index graph.Value, nonUniform bool) *graph.Node {
	return b.descLoad(graph.KindLoadResourceDesc, resourceDescTy, set, binding, index, nonUniform)
}

// CreateLoadTexelBufferDesc builds a texel-buffer-descriptor load.
func (b *Builder) CreateLoadTexelBufferDesc(set, binding uint32, index graph.Value, nonUniform bool) *graph.Node {
	return b.descLoad(graph.KindLoadTexelBufferDesc, texelBufferDescTy, set, binding, index, nonUniform)
}

// CreateLoadFmaskDesc builds an fmask-descriptor load.
func (b *Builder) CreateLoadFmaskDesc(set, binding uint32, index graph.Value, nonUniform bool) *graph.Node {
	return b.descLoad(graph.KindLoadFmaskDesc, fmaskDescTy, set, binding, index, nonUniform)
}

func (b *Builder) descLoad(kind graph.NodeKind, ty *graph.Type, set, binding uint32, index graph.Value, nonUniform bool) *graph.Node {
	return b.emit(kind, ty,
		graph.NewIntConst(graph.Int32, int64(set)),
		graph.NewIntConst(graph.Int32, int64(binding)),
		index,
		graph.NewBoolConst(nonUniform),
	)
}

// CreateLoadSpillTablePtr builds a spill-table pointer load returning a
// pointer over spillTy.
func (b *Builder) CreateLoadSpillTablePtr(spillTy *graph.Type) *graph.Node {
	if spillTy == nil {
		spillTy = spillTableTy
	}
	return b.emit(graph.KindLoadSpillTablePtr, graph.PointerTo(spillTy))
}

// CreateWaterfallLoop builds the guarding loop node around target. The
// loop node's first operand is the wrapped operation, followed by the
// recorded operand indices as constants; its result type mirrors the
// target's so the loop can stand in for the target's value.
func (b *Builder) CreateWaterfallLoop(target *graph.Node, operandIdxs []uint32) *graph.Node {
	operands := make([]graph.Value, 0, 1+len(operandIdxs))
	operands = append(operands, target)
	for _, idx := range operandIdxs {
		operands = append(operands, graph.NewIntConst(graph.Int32, int64(idx)))
	}
	return b.emit(graph.KindWaterfallLoop, target.Type(), operands...)
}

// CreateKill builds the termination operation.
func (b *Builder) CreateKill() *graph.Node {
	return b.emit(graph.KindKill, graph.Void)
}

// CreateReadClock builds a clock read.
func (b *Builder) CreateReadClock(realtime bool) *graph.Node {
	return b.emit(graph.KindReadClock, graph.Int64, graph.NewBoolConst(realtime))
}
