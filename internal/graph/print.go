package graph

import (
	"fmt"
	"sort"
	"strings"
)

// Print renders the module in a deterministic textual form. The output
// is stable across runs for structurally identical modules, so it doubles
// as the structural-equality witness in tests and as golden-file content.
func Print(m *Module) string {
	var b strings.Builder
	fmt.Fprintf(&b, "module %s\n", m.name)
	for _, f := range m.funcs {
		b.WriteByte('\n')
		printFunc(&b, f)
	}
	return b.String()
}

func printFunc(b *strings.Builder, f *Func) {
	if f.IsDecl() {
		fmt.Fprintf(b, "declare @%s : %s%s\n", f.name, f.result, printTags(f))
		return
	}
	fmt.Fprintf(b, "func @%s(", f.name)
	for i, p := range f.params {
		if i > 0 {
			b.WriteString(", ")
		}
		fmt.Fprintf(b, "%%%s : %s", p.name, p.ty)
	}
	fmt.Fprintf(b, ") : %s {\n", f.result)

	names := DisplayNames(f)
	for _, n := range f.nodes {
		b.WriteString("  ")
		if name := names[n]; name != "" {
			fmt.Fprintf(b, "%%%s = ", name)
		}
		if n.kind == KindCall {
			fmt.Fprintf(b, "call @%s", n.callee.name)
		} else {
			b.WriteString(string(n.kind))
		}
		b.WriteByte('(')
		for i, op := range n.operands {
			if i > 0 {
				b.WriteString(", ")
			}
			b.WriteString(printOperand(op, names))
		}
		b.WriteByte(')')
		if names[n] != "" {
			fmt.Fprintf(b, " : %s", n.ty)
		}
		if n.loc.IsValid() {
			fmt.Fprintf(b, " ; %s", n.loc)
		}
		b.WriteByte('\n')
	}
	b.WriteString("}\n")
}

// DisplayNames assigns stable names for rendering a function: named
// nodes keep their name, unnamed value-producing or referenced nodes get
// t0, t1, ... in body order, and unreferenced unnamed void nodes get no
// name. Used by the printer and the graph-file encoder so both render a
// module identically.
func DisplayNames(f *Func) map[*Node]string {
	names := make(map[*Node]string, len(f.nodes))
	next := 0
	for _, n := range f.nodes {
		switch {
		case n.name != "":
			names[n] = n.name
		case (n.ty != nil && n.ty.Kind != TypeVoid) || len(n.uses) > 0:
			names[n] = fmt.Sprintf("t%d", next)
			next++
		}
	}
	return names
}

func printOperand(v Value, names map[*Node]string) string {
	switch val := v.(type) {
	case *Const:
		if val.ty.Kind == TypeBool {
			if val.IsTrue() {
				return "bool true"
			}
			return "bool false"
		}
		return fmt.Sprintf("%s %d", val.ty, val.Int)
	case *Param:
		return "%" + val.name
	case *Node:
		if name := names[val]; name != "" {
			return "%" + name
		}
		return "%?"
	case *Func:
		return "@" + val.name
	default:
		return "?"
	}
}

func printTags(f *Func) string {
	if len(f.tags) == 0 {
		return ""
	}
	keys := make([]string, 0, len(f.tags))
	for k := range f.tags {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = fmt.Sprintf("%s=%d", k, f.tags[k])
	}
	return " [" + strings.Join(parts, ", ") + "]"
}
