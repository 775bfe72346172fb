package graph

// Value is a sealed interface over everything a node operand can
// reference: nodes, integer constants, function parameters, and functions
// (as call callees). Only types in this package implement it.
//
// Every Value maintains an explicit use list: the set of (user node,
// operand index) back-edges referencing it. The use list is updated
// automatically by node construction, SetOperand, and Erase; callers
// never mutate it directly. Rewiring through the use list instead of raw
// pointer surgery is what makes in-place deletion safe.
type Value interface {
	// Name returns the value's name, which may be empty.
	Name() string

	// Type returns the value's result type.
	Type() *Type

	// Uses returns the current back-edges referencing this value.
	// The returned slice is the live list; callers must not mutate it
	// and should clone it before performing mutations that rewire uses.
	Uses() []Use

	addUse(Use)
	removeUse(Use)
}

// CalleeIndex is the operand index recorded in a Use when a call node
// references a function as its callee rather than as an argument.
const CalleeIndex = -1

// Use is one back-edge: user references the value at the given operand
// index (or as callee when Index == CalleeIndex).
type Use struct {
	User  *Node
	Index int
}

// uselist is the shared use-list implementation embedded by every Value.
type uselist struct {
	uses []Use
}

func (u *uselist) Uses() []Use { return u.uses }

func (u *uselist) addUse(use Use) {
	u.uses = append(u.uses, use)
}

func (u *uselist) removeUse(use Use) {
	for i, have := range u.uses {
		if have == use {
			u.uses = append(u.uses[:i], u.uses[i+1:]...)
			return
		}
	}
	panic("graph: removing unregistered use")
}

// Const is an integer-valued compile-time constant. Booleans are
// constants of type Bool with Int 0 or 1. Constants have no defining
// node; handlers decode them by direct extraction of Int.
type Const struct {
	uselist
	ty  *Type
	Int int64
}

// NewIntConst creates an integer constant of the given type.
func NewIntConst(ty *Type, v int64) *Const {
	return &Const{ty: ty, Int: v}
}

// NewBoolConst creates a boolean constant.
func NewBoolConst(b bool) *Const {
	v := int64(0)
	if b {
		v = 1
	}
	return &Const{ty: Bool, Int: v}
}

func (c *Const) Name() string { return "" }
func (c *Const) Type() *Type  { return c.ty }

// IsTrue reports whether the constant is non-zero.
func (c *Const) IsTrue() bool { return c.Int != 0 }

// Param is a function parameter. Parameters are graph boundaries: an
// address-computation chain may legitimately bottom out at one.
type Param struct {
	uselist
	name string
	ty   *Type
	fn   *Func
}

func (p *Param) Name() string { return p.name }
func (p *Param) Type() *Type  { return p.ty }

// Func returns the function the parameter belongs to.
func (p *Param) Func() *Func { return p.fn }

// ReplaceAllUses rewires every use of old to reference new instead.
// Use count is conserved: each back-edge of old becomes exactly one
// back-edge of new. Callee uses cannot be rewired to a non-function
// value; old must not be referenced as a callee.
func ReplaceAllUses(old, new Value) {
	uses := append([]Use(nil), old.Uses()...)
	for _, u := range uses {
		if u.Index == CalleeIndex {
			panic("graph: cannot rewire a callee use")
		}
		u.User.SetOperand(u.Index, new)
	}
}
