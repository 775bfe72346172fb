// Package graphfile reads and writes modules as YAML documents.
//
// Graph files are the fixture and interchange format for the CLI and
// tests: functions with parameters, metadata tags, and nodes whose
// operands reference earlier values by name. Documents are validated
// against an embedded CUE schema before decoding, and all names are
// NFC-normalized so two spellings of the same name cannot produce
// structurally different graphs.
//
// Operand syntax:
//
//	%name       an earlier node or a parameter of the same function
//	@name       a function (call callees use the callee field instead)
//	i32 7       an integer constant (i64 likewise)
//	bool true   a boolean constant
//	7           shorthand for "i32 7"
package graphfile

import (
	"bytes"
	_ "embed"
	"fmt"
	"strconv"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueyaml "cuelang.org/go/encoding/yaml"
	"golang.org/x/text/unicode/norm"
	"gopkg.in/yaml.v3"

	"github.com/lowermost/defir/internal/graph"
)

//go:embed schema.cue
var schemaCUE string

// Document is the YAML shape of a module.
type Document struct {
	Module string    `yaml:"module"`
	Funcs  []FuncDoc `yaml:"funcs"`
}

// FuncDoc is the YAML shape of a function.
type FuncDoc struct {
	Name   string           `yaml:"name"`
	Decl   bool             `yaml:"decl,omitempty"`
	Result string           `yaml:"result,omitempty"`
	Params []ParamDoc       `yaml:"params,omitempty"`
	Tags   map[string]int64 `yaml:"tags,omitempty"`
	Nodes  []NodeDoc        `yaml:"nodes,omitempty"`
}

// ParamDoc is the YAML shape of a parameter.
type ParamDoc struct {
	Name string `yaml:"name"`
	Type string `yaml:"type"`
}

// NodeDoc is the YAML shape of a node.
type NodeDoc struct {
	Name   string   `yaml:"name,omitempty"`
	Kind   string   `yaml:"kind"`
	Type   string   `yaml:"type,omitempty"`
	Callee string   `yaml:"callee,omitempty"`
	Args   []string `yaml:"args,omitempty"`
	Loc    string   `yaml:"loc,omitempty"`
}

// Validate checks a YAML graph document against the embedded schema
// without decoding it.
func Validate(data []byte) error {
	ctx := cuecontext.New()
	schema := ctx.CompileString(schemaCUE)
	if err := schema.Err(); err != nil {
		return fmt.Errorf("compile graph-file schema: %w", err)
	}
	def := schema.LookupPath(cue.ParsePath("#Module"))
	if err := def.Err(); err != nil {
		return fmt.Errorf("lookup graph-file schema: %w", err)
	}
	if err := cueyaml.Validate(data, def); err != nil {
		return fmt.Errorf("graph file does not match schema: %w", err)
	}
	return nil
}

// Decode validates and decodes a YAML graph document into a module.
func Decode(data []byte) (*graph.Module, error) {
	if err := Validate(data); err != nil {
		return nil, err
	}

	var doc Document
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("decode graph file: %w", err)
	}

	m := graph.NewModule(norm.NFC.String(doc.Module))

	// Functions first, so calls can reference any function regardless
	// of declaration order.
	fns := make([]*graph.Func, len(doc.Funcs))
	for i, fd := range doc.Funcs {
		name := norm.NFC.String(fd.Name)
		result := graph.Void
		if fd.Result != "" {
			var err error
			result, err = graph.ParseType(fd.Result)
			if err != nil {
				return nil, fmt.Errorf("func %q: result: %w", name, err)
			}
		}

		var fn *graph.Func
		if fd.Decl {
			if len(fd.Nodes) > 0 {
				return nil, fmt.Errorf("func %q: declaration cannot have nodes", name)
			}
			fn = m.DeclareFunc(name, result)
		} else {
			fn = m.DefineFunc(name, result)
		}
		for k, v := range fd.Tags {
			fn.SetTag(norm.NFC.String(k), v)
		}
		for _, pd := range fd.Params {
			ty, err := graph.ParseType(pd.Type)
			if err != nil {
				return nil, fmt.Errorf("func %q: param %q: %w", name, pd.Name, err)
			}
			fn.AddParam(norm.NFC.String(pd.Name), ty)
		}
		fns[i] = fn
	}

	for i, fd := range doc.Funcs {
		if fd.Decl {
			continue
		}
		if err := decodeBody(m, fns[i], fd); err != nil {
			return nil, err
		}
	}

	return m, nil
}

func decodeBody(m *graph.Module, fn *graph.Func, fd FuncDoc) error {
	byName := make(map[string]graph.Value)
	for _, p := range fn.Params() {
		byName["%"+p.Name()] = p
	}

	for _, nd := range fd.Nodes {
		name := norm.NFC.String(nd.Name)

		ty := graph.Void
		if nd.Type != "" {
			var err error
			ty, err = graph.ParseType(nd.Type)
			if err != nil {
				return fmt.Errorf("func %q: node %q: type: %w", fn.Name(), name, err)
			}
		}

		args := make([]graph.Value, len(nd.Args))
		for i, ref := range nd.Args {
			v, err := parseOperand(m, byName, ref)
			if err != nil {
				return fmt.Errorf("func %q: node %q: arg %d: %w", fn.Name(), name, i, err)
			}
			args[i] = v
		}

		var n *graph.Node
		if nd.Kind == string(graph.KindCall) {
			callee := m.Func(norm.NFC.String(nd.Callee))
			if callee == nil {
				return fmt.Errorf("func %q: node %q: unknown callee %q", fn.Name(), name, nd.Callee)
			}
			n = fn.AppendCall(callee, name, args...)
		} else {
			n = fn.AppendNode(graph.NodeKind(nd.Kind), name, ty, args...)
		}

		if nd.Loc != "" {
			loc, err := parseLoc(nd.Loc)
			if err != nil {
				return fmt.Errorf("func %q: node %q: loc: %w", fn.Name(), name, err)
			}
			n.SetLoc(loc)
		}
		if name != "" {
			byName["%"+name] = n
		}
	}
	return nil
}

func parseOperand(m *graph.Module, byName map[string]graph.Value, ref string) (graph.Value, error) {
	ref = strings.TrimSpace(ref)
	switch {
	case ref == "":
		return nil, fmt.Errorf("empty operand")

	case strings.HasPrefix(ref, "%"):
		v, ok := byName[norm.NFC.String(ref)]
		if !ok {
			return nil, fmt.Errorf("unknown value %s (operands must reference parameters or earlier nodes)", ref)
		}
		return v, nil

	case strings.HasPrefix(ref, "@"):
		fn := m.Func(norm.NFC.String(ref[1:]))
		if fn == nil {
			return nil, fmt.Errorf("unknown function %s", ref)
		}
		return fn, nil

	case ref == "bool true":
		return graph.NewBoolConst(true), nil
	case ref == "bool false":
		return graph.NewBoolConst(false), nil
	}

	tyName, lit, found := strings.Cut(ref, " ")
	if !found {
		// Bare integer shorthand for i32.
		tyName, lit = "i32", ref
	}
	ty, err := graph.ParseType(tyName)
	if err != nil {
		return nil, fmt.Errorf("constant %q: %w", ref, err)
	}
	n, err := strconv.ParseInt(strings.TrimSpace(lit), 10, 64)
	if err != nil {
		return nil, fmt.Errorf("constant %q: %w", ref, err)
	}
	return graph.NewIntConst(ty, n), nil
}

func parseLoc(s string) (graph.SourceLoc, error) {
	// file:line:col, splitting from the right so file paths keep their
	// own colons.
	i := strings.LastIndexByte(s, ':')
	if i < 0 {
		return graph.SourceLoc{}, fmt.Errorf("malformed location %q", s)
	}
	j := strings.LastIndexByte(s[:i], ':')
	if j < 0 {
		return graph.SourceLoc{}, fmt.Errorf("malformed location %q", s)
	}
	line, err := strconv.Atoi(s[j+1 : i])
	if err != nil {
		return graph.SourceLoc{}, fmt.Errorf("malformed location %q: %w", s, err)
	}
	col, err := strconv.Atoi(s[i+1:])
	if err != nil {
		return graph.SourceLoc{}, fmt.Errorf("malformed location %q: %w", s, err)
	}
	return graph.SourceLoc{File: s[:j], Line: line, Col: col}, nil
}

// Encode renders a module as a YAML graph document. Unnamed nodes are
// assigned the same display names the printer uses, so an encoded module
// decodes to a structurally identical graph.
func Encode(m *graph.Module) ([]byte, error) {
	doc := Document{Module: m.Name()}
	for _, fn := range m.Funcs() {
		fd := FuncDoc{
			Name: fn.Name(),
			Decl: fn.IsDecl(),
			Tags: fn.Tags(),
		}
		if ty := fn.Type(); ty != nil && ty != graph.Void {
			fd.Result = ty.String()
		}
		for _, p := range fn.Params() {
			fd.Params = append(fd.Params, ParamDoc{Name: p.Name(), Type: p.Type().String()})
		}
		if !fn.IsDecl() {
			names := graph.DisplayNames(fn)
			for _, n := range fn.Nodes() {
				nd := NodeDoc{
					Name: names[n],
					Kind: string(n.Kind()),
				}
				if ty := n.Type(); ty != nil && ty != graph.Void {
					nd.Type = ty.String()
				}
				if n.Callee() != nil {
					nd.Callee = n.Callee().Name()
				}
				for _, arg := range n.Operands() {
					nd.Args = append(nd.Args, encodeOperand(arg, names))
				}
				if n.Loc().IsValid() {
					nd.Loc = n.Loc().String()
				}
				fd.Nodes = append(fd.Nodes, nd)
			}
		}
		doc.Funcs = append(doc.Funcs, fd)
	}

	out, err := yaml.Marshal(&doc)
	if err != nil {
		return nil, fmt.Errorf("encode graph file: %w", err)
	}
	return out, nil
}

func encodeOperand(v graph.Value, names map[*graph.Node]string) string {
	switch val := v.(type) {
	case *graph.Const:
		if val.Type().Kind == graph.TypeBool {
			if val.IsTrue() {
				return "bool true"
			}
			return "bool false"
		}
		return fmt.Sprintf("%s %d", val.Type(), val.Int)
	case *graph.Param:
		return "%" + val.Name()
	case *graph.Node:
		return "%" + names[val]
	case *graph.Func:
		return "@" + val.Name()
	default:
		return ""
	}
}
