package graph

import "fmt"

// Func is a function in a module: either a definition with an ordered
// node list, or a bodyless declaration. Declarations exist mainly as the
// nominal callees of recorded placeholder calls; they carry small-integer
// metadata tags (the opcode encoding) and are removed once drained.
type Func struct {
	uselist
	mod     *Module
	name    string
	result  *Type
	params  []*Param
	nodes   []*Node
	defined bool
	tags    map[string]int64
}

func (f *Func) Name() string { return f.name }

// Type returns the function's result type.
func (f *Func) Type() *Type { return f.result }

// IsDecl reports whether the function is a bodyless declaration.
func (f *Func) IsDecl() bool { return !f.defined }

// Module returns the containing module.
func (f *Func) Module() *Module { return f.mod }

// Params returns the parameter list.
func (f *Func) Params() []*Param { return f.params }

// AddParam appends a parameter to the function.
func (f *Func) AddParam(name string, ty *Type) *Param {
	p := &Param{name: name, ty: ty, fn: f}
	f.params = append(f.params, p)
	return p
}

// Param returns the named parameter, or nil.
func (f *Func) Param(name string) *Param {
	for _, p := range f.params {
		if p.name == name {
			return p
		}
	}
	return nil
}

// Nodes returns the ordered node list. Callers must not mutate the
// returned slice.
func (f *Func) Nodes() []*Node { return f.nodes }

// SetTag attaches a small-integer metadata tag to the function.
func (f *Func) SetTag(key string, v int64) {
	if f.tags == nil {
		f.tags = make(map[string]int64)
	}
	f.tags[key] = v
}

// Tag reads a metadata tag.
func (f *Func) Tag(key string) (int64, bool) {
	v, ok := f.tags[key]
	return v, ok
}

// Tags returns the tag map. Nil when the function carries no tags.
func (f *Func) Tags() map[string]int64 { return f.tags }

// AppendNode appends a new node to the function body.
func (f *Func) AppendNode(kind NodeKind, name string, ty *Type, operands ...Value) *Node {
	return f.insertNode(len(f.nodes), kind, name, ty, nil, operands)
}

// InsertBefore creates a new node immediately before an existing one.
// This is how the builder positions newly constructed operations at the
// placeholder they replace.
func (f *Func) InsertBefore(before *Node, kind NodeKind, name string, ty *Type, operands ...Value) *Node {
	return f.insertNode(f.nodeIndex(before), kind, name, ty, nil, operands)
}

// AppendCall appends a call node. The node's result type is the callee's
// result type.
func (f *Func) AppendCall(callee *Func, name string, args ...Value) *Node {
	return f.insertNode(len(f.nodes), KindCall, name, callee.result, callee, args)
}

func (f *Func) insertNode(at int, kind NodeKind, name string, ty *Type, callee *Func, operands []Value) *Node {
	if !f.defined {
		panic(fmt.Sprintf("graph: adding node to declaration %q", f.name))
	}
	n := &Node{fn: f, kind: kind, name: name, ty: ty, callee: callee}
	n.operands = append(n.operands, operands...)
	for i, op := range n.operands {
		op.addUse(Use{User: n, Index: i})
	}
	if callee != nil {
		callee.addUse(Use{User: n, Index: CalleeIndex})
	}
	f.nodes = append(f.nodes, nil)
	copy(f.nodes[at+1:], f.nodes[at:])
	f.nodes[at] = n
	return n
}

func (f *Func) nodeIndex(n *Node) int {
	for i, have := range f.nodes {
		if have == n {
			return i
		}
	}
	panic(fmt.Sprintf("graph: node %q not in function %q", n.name, f.name))
}

func (f *Func) removeNode(n *Node) {
	i := f.nodeIndex(n)
	f.nodes = append(f.nodes[:i], f.nodes[i+1:]...)
}
