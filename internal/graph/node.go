package graph

import "fmt"

// NodeKind identifies what operation a node performs. Kinds are open:
// the replay engine only interprets KindCall (placeholders) and KindAddr
// (pure address-computation steps); everything else passes through.
type NodeKind string

const (
	// KindCall is a call-shaped node. Calls whose callee carries the
	// reserved placeholder prefix are recorded placeholders.
	KindCall NodeKind = "call"

	// KindAddr is a pure address-computation step: it narrows or offsets
	// its base address (operand 0) without changing the underlying
	// source. The waterfall resolver walks through these.
	KindAddr NodeKind = "addr"

	KindLoad  NodeKind = "load"
	KindStore NodeKind = "store"

	// Kinds produced by the concrete builder.
	KindLoadBufferDesc      NodeKind = "load.buffer.desc"
	KindLoadSamplerDesc     NodeKind = "load.sampler.desc"
	KindLoadResourceDesc    NodeKind = "load.resource.desc"
	KindLoadTexelBufferDesc NodeKind = "load.texelbuffer.desc"
	KindLoadFmaskDesc       NodeKind = "load.fmask.desc"
	KindLoadSpillTablePtr   NodeKind = "load.spilltable.ptr"
	KindWaterfallLoop       NodeKind = "waterfall.loop"
	KindKill                NodeKind = "kill"
	KindReadClock           NodeKind = "read.clock"
)

// SourceLoc is a source position carried by a node. New nodes built
// during replay inherit the replaced placeholder's location so that
// diagnostics attribute correctly.
type SourceLoc struct {
	File string
	Line int
	Col  int
}

// IsValid reports whether the location carries a position.
func (l SourceLoc) IsValid() bool { return l.File != "" }

func (l SourceLoc) String() string {
	return fmt.Sprintf("%s:%d:%d", l.File, l.Line, l.Col)
}

// Node is one operation in a function body. Nodes own an ordered operand
// list; the values they reference track the back-edges (see Value).
type Node struct {
	uselist
	fn       *Func
	kind     NodeKind
	name     string
	ty       *Type
	operands []Value
	callee   *Func // non-nil only for KindCall
	loc      SourceLoc
}

func (n *Node) Name() string { return n.name }
func (n *Node) Type() *Type  { return n.ty }

// Kind returns the node's operation kind.
func (n *Node) Kind() NodeKind { return n.kind }

// Func returns the function containing the node.
func (n *Node) Func() *Func { return n.fn }

// Callee returns the called function for KindCall nodes, nil otherwise.
func (n *Node) Callee() *Func { return n.callee }

// Loc returns the node's source location.
func (n *Node) Loc() SourceLoc { return n.loc }

// SetLoc sets the node's source location.
func (n *Node) SetLoc(loc SourceLoc) { n.loc = loc }

// Operands returns the ordered operand list. Callers must not mutate the
// returned slice; use SetOperand.
func (n *Node) Operands() []Value { return n.operands }

// NumOperands returns the operand count.
func (n *Node) NumOperands() int { return len(n.operands) }

// Operand returns the operand at index i.
func (n *Node) Operand(i int) Value { return n.operands[i] }

// SetOperand replaces the operand at index i, keeping both values' use
// lists consistent.
func (n *Node) SetOperand(i int, v Value) {
	n.operands[i].removeUse(Use{User: n, Index: i})
	n.operands[i] = v
	v.addUse(Use{User: n, Index: i})
}

// SetName renames the node.
func (n *Node) SetName(name string) { n.name = name }

// TakeName moves from's name onto n, leaving from unnamed.
func (n *Node) TakeName(from *Node) {
	n.name = from.name
	from.name = ""
}

// Erase removes the node from its function and drops all of its operand
// back-edges. The node must itself be unused; erasing a node that still
// has uses would leave dangling references and panics.
func (n *Node) Erase() {
	if len(n.uses) > 0 {
		panic(fmt.Sprintf("graph: erasing node %q with %d remaining uses", n.name, len(n.uses)))
	}
	for i, op := range n.operands {
		op.removeUse(Use{User: n, Index: i})
	}
	n.operands = nil
	if n.callee != nil {
		n.callee.removeUse(Use{User: n, Index: CalleeIndex})
		n.callee = nil
	}
	n.fn.removeNode(n)
	n.fn = nil
}
