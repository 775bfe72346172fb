package graph

import (
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func buildPrintFixture() *Module {
	m := NewModule("demo")

	decl := m.DeclareFunc("defir.call.load.buffer.desc", PointerTo(Int32))
	decl.SetTag("defir.opcode", 1)

	f := m.DefineFunc("main", Void)
	idx := f.AddParam("idx", Int32)

	call := f.AppendCall(decl, "desc",
		NewIntConst(Int32, 0), NewIntConst(Int32, 3), idx, NewBoolConst(false))
	call.SetLoc(SourceLoc{File: "shader.px", Line: 10, Col: 4})

	addr := f.AppendNode(KindAddr, "", PointerTo(Int32), call, NewIntConst(Int32, 4))
	load := f.AppendNode(KindLoad, "x", Int32, addr)
	f.AppendNode(KindStore, "", Void, addr, load)

	return m
}

func TestPrintGolden(t *testing.T) {
	m := buildPrintFixture()

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, "print_module", []byte(Print(m)))
}

func TestPrintDeterministic(t *testing.T) {
	m := buildPrintFixture()
	assert.Equal(t, Print(m), Print(m))
}

func TestPrintAssignsStableTempNames(t *testing.T) {
	m := NewModule("m")
	f := m.DefineFunc("f", Void)
	p := f.AddParam("p", PointerTo(Int32))

	a := f.AppendNode(KindAddr, "", PointerTo(Int32), p)
	b := f.AppendNode(KindAddr, "", PointerTo(Int32), a)
	f.AppendNode(KindLoad, "", Int32, b)

	names := DisplayNames(f)
	require.Equal(t, "t0", names[a])
	require.Equal(t, "t1", names[b])

	out := Print(m)
	assert.Contains(t, out, "%t1 = addr(%t0) : ptr(i32)")
	assert.Contains(t, out, "%t2 = load(%t1) : i32")
}
