package graph

import "fmt"

// Module is the unit the replay engine operates on: an ordered list of
// functions, mutated in place.
type Module struct {
	name  string
	funcs []*Func
}

// NewModule creates an empty module.
func NewModule(name string) *Module {
	return &Module{name: name}
}

// Name returns the module name.
func (m *Module) Name() string { return m.name }

// Funcs returns the functions in insertion order. Callers must not
// mutate the returned slice.
func (m *Module) Funcs() []*Func { return m.funcs }

// Func returns the named function, or nil.
func (m *Module) Func(name string) *Func {
	for _, f := range m.funcs {
		if f.name == name {
			return f
		}
	}
	return nil
}

// DeclareFunc adds a bodyless declaration with the given result type.
func (m *Module) DeclareFunc(name string, result *Type) *Func {
	f := &Func{mod: m, name: name, result: result}
	m.funcs = append(m.funcs, f)
	return f
}

// DefineFunc adds a function definition with an initially empty body.
func (m *Module) DefineFunc(name string, result *Type) *Func {
	f := &Func{mod: m, name: name, result: result, defined: true}
	m.funcs = append(m.funcs, f)
	return f
}

// RemoveFunc deletes a function from the module. The function must be
// unused (no remaining call sites).
func (m *Module) RemoveFunc(f *Func) {
	if len(f.uses) > 0 {
		panic(fmt.Sprintf("graph: removing function %q with %d remaining uses", f.name, len(f.uses)))
	}
	for i, have := range m.funcs {
		if have == f {
			m.funcs = append(m.funcs[:i], m.funcs[i+1:]...)
			f.mod = nil
			return
		}
	}
	panic(fmt.Sprintf("graph: function %q not in module %q", f.name, m.name))
}
