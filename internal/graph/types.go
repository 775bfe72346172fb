package graph

import (
	"fmt"
	"strings"
)

// TypeKind discriminates the small set of types the graph models.
type TypeKind int

const (
	TypeVoid TypeKind = iota
	TypeBool
	TypeInt32
	TypeInt64
	TypePointer
	TypeOpaque
)

// Type describes the result type of a value. Types are immutable once
// created; the shared scalar types below may be compared by pointer, but
// Equal is the portable comparison (pointer and opaque types are built
// on demand).
type Type struct {
	Kind TypeKind
	Elem *Type  // pointee, for TypePointer
	Name string // for TypeOpaque
}

// Shared scalar types.
var (
	Void  = &Type{Kind: TypeVoid}
	Bool  = &Type{Kind: TypeBool}
	Int32 = &Type{Kind: TypeInt32}
	Int64 = &Type{Kind: TypeInt64}
)

// PointerTo returns a pointer type over elem.
func PointerTo(elem *Type) *Type {
	return &Type{Kind: TypePointer, Elem: elem}
}

// Opaque returns a named opaque type (descriptors, samplers, and other
// types the graph does not need to look inside).
func Opaque(name string) *Type {
	return &Type{Kind: TypeOpaque, Name: name}
}

// Pointee returns the pointed-to type, or nil if t is not a pointer.
// Nil-safe: a nil type has no pointee.
func (t *Type) Pointee() *Type {
	if t == nil || t.Kind != TypePointer {
		return nil
	}
	return t.Elem
}

// Equal reports structural type equality.
func (t *Type) Equal(o *Type) bool {
	if t == nil || o == nil {
		return t == o
	}
	if t.Kind != o.Kind {
		return false
	}
	switch t.Kind {
	case TypePointer:
		return t.Elem.Equal(o.Elem)
	case TypeOpaque:
		return t.Name == o.Name
	default:
		return true
	}
}

// String renders the type in the textual graph syntax: void, bool, i32,
// i64, ptr(T), or the opaque type's name.
func (t *Type) String() string {
	if t == nil {
		return "none"
	}
	switch t.Kind {
	case TypeVoid:
		return "void"
	case TypeBool:
		return "bool"
	case TypeInt32:
		return "i32"
	case TypeInt64:
		return "i64"
	case TypePointer:
		return "ptr(" + t.Elem.String() + ")"
	case TypeOpaque:
		return t.Name
	default:
		return fmt.Sprintf("invalid(%d)", t.Kind)
	}
}

// ParseType parses the textual type syntax produced by Type.String.
// Unknown bare identifiers parse as opaque types.
func ParseType(s string) (*Type, error) {
	s = strings.TrimSpace(s)
	switch s {
	case "":
		return nil, fmt.Errorf("empty type")
	case "void":
		return Void, nil
	case "bool":
		return Bool, nil
	case "i32":
		return Int32, nil
	case "i64":
		return Int64, nil
	}
	if inner, ok := strings.CutPrefix(s, "ptr("); ok {
		if !strings.HasSuffix(inner, ")") {
			return nil, fmt.Errorf("unterminated pointer type %q", s)
		}
		elem, err := ParseType(strings.TrimSuffix(inner, ")"))
		if err != nil {
			return nil, err
		}
		return PointerTo(elem), nil
	}
	if strings.ContainsAny(s, "() ") {
		return nil, fmt.Errorf("malformed type %q", s)
	}
	return Opaque(s), nil
}
