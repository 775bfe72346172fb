package replay

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lowermost/defir/internal/construct"
	"github.com/lowermost/defir/internal/graph"
	"github.com/lowermost/defir/internal/op"
	"github.com/lowermost/defir/internal/trace"
)

// declarePlaceholder adds a tagged placeholder declaration the way the
// recording phase would.
func declarePlaceholder(m *graph.Module, opcode op.Opcode, result *graph.Type) *graph.Func {
	fn := m.DeclareFunc(opcode.CallName(), result)
	fn.SetTag(op.TagKey, int64(opcode))
	return fn
}

func newTestReplayer(opts ...Option) *Replayer {
	opts = append([]Option{WithTokens(NewFixedTokens("run-1", "run-2", "run-3"))}, opts...)
	return New(construct.New(), opts...)
}

// assertNoPlaceholders checks the completeness property: no callee with
// the reserved prefix and no tagged declaration survives replay.
func assertNoPlaceholders(t *testing.T, m *graph.Module) {
	t.Helper()
	for _, fn := range m.Funcs() {
		_, tagged := fn.Tag(op.TagKey)
		assert.False(t, tagged, "declaration %q still tagged", fn.Name())
		for _, n := range fn.Nodes() {
			if callee := n.Callee(); callee != nil {
				assert.NotContains(t, callee.Name(), op.CallPrefix,
					"node %q still calls a placeholder", n.Name())
			}
		}
	}
}

func recoverEncodingError(t *testing.T, fn func()) *EncodingError {
	t.Helper()
	var ee *EncodingError
	func() {
		defer func() {
			r := recover()
			require.NotNil(t, r, "expected a panic")
			var ok bool
			ee, ok = r.(*EncodingError)
			require.True(t, ok, "expected *EncodingError, got %T: %v", r, r)
		}()
		fn()
	}()
	return ee
}

func TestRunNoTaggedDeclarationsIsNoOp(t *testing.T) {
	m := graph.NewModule("m")
	f := m.DefineFunc("main", graph.Void)
	f.AppendNode(graph.KindKill, "", graph.Void)

	before := graph.Print(m)
	changed := newTestReplayer().Run(m)

	assert.False(t, changed)
	assert.Equal(t, before, graph.Print(m))
}

func TestRunUntaggedDeclarationIsSkipped(t *testing.T) {
	m := graph.NewModule("m")
	m.DeclareFunc("external.helper", graph.Int32)

	changed := newTestReplayer().Run(m)

	assert.False(t, changed)
	require.NotNil(t, m.Func("external.helper"), "foreign declarations must survive")
}

func TestRunDefinedFuncWithTagIsNotADeclaration(t *testing.T) {
	// Bodies are never placeholder callees, even if somehow tagged.
	m := graph.NewModule("m")
	f := m.DefineFunc("main", graph.Void)
	f.SetTag(op.TagKey, int64(op.Kill))

	changed := newTestReplayer().Run(m)

	assert.False(t, changed)
	require.NotNil(t, m.Func("main"))
}

func TestRunReplaysAndRemovesDeclaration(t *testing.T) {
	m := graph.NewModule("m")
	killDecl := declarePlaceholder(m, op.Kill, graph.Void)
	f := m.DefineFunc("main", graph.Void)
	f.AppendCall(killDecl, "end")

	changed := newTestReplayer().Run(m)

	assert.True(t, changed)
	assertNoPlaceholders(t, m)
	assert.Nil(t, m.Func(op.Kill.CallName()), "drained declaration must be deleted")
	require.Len(t, f.Nodes(), 1)
	assert.Equal(t, graph.KindKill, f.Nodes()[0].Kind())
	assert.Equal(t, "end", f.Nodes()[0].Name(), "replacement takes the placeholder's name")
}

func TestRunDrainsEveryUseOfADeclaration(t *testing.T) {
	m := graph.NewModule("m")
	clockDecl := declarePlaceholder(m, op.ReadClock, graph.Int64)
	f := m.DefineFunc("main", graph.Void)
	for i := 0; i < 3; i++ {
		f.AppendCall(clockDecl, "", graph.NewBoolConst(i%2 == 0))
	}

	changed := newTestReplayer().Run(m)

	assert.True(t, changed)
	assertNoPlaceholders(t, m)
	require.Len(t, f.Nodes(), 3)
	for _, n := range f.Nodes() {
		assert.Equal(t, graph.KindReadClock, n.Kind())
	}
}

func TestRunTaggedDeclarationWithNoUsesStillCounts(t *testing.T) {
	m := graph.NewModule("m")
	declarePlaceholder(m, op.Kill, graph.Void)

	changed := newTestReplayer().Run(m)

	assert.True(t, changed, "deleting the declaration is a mutation")
	assert.Empty(t, m.Funcs())
}

func TestRunIsIdempotent(t *testing.T) {
	m := graph.NewModule("m")
	descDecl := declarePlaceholder(m, op.LoadBufferDesc, graph.PointerTo(graph.Int32))
	f := m.DefineFunc("main", graph.Void)
	idx := f.AddParam("i", graph.Int32)
	call := f.AppendCall(descDecl, "desc",
		graph.NewIntConst(graph.Int32, 1), graph.NewIntConst(graph.Int32, 3),
		idx, graph.NewBoolConst(false))
	f.AppendNode(graph.KindLoad, "x", graph.Int32, call)

	r := newTestReplayer()
	require.True(t, r.Run(m))

	after := graph.Print(m)
	assert.False(t, r.Run(m), "second pass must report no mutation")
	assert.Equal(t, after, graph.Print(m), "second pass must leave the graph structurally unchanged")
}

func TestRunUsePreservation(t *testing.T) {
	m := graph.NewModule("m")
	descDecl := declarePlaceholder(m, op.LoadResourceDesc, graph.Opaque("resource.desc"))
	f := m.DefineFunc("main", graph.Void)
	idx := f.AddParam("i", graph.Int32)

	call := f.AppendCall(descDecl, "rsrc",
		graph.NewIntConst(graph.Int32, 0), graph.NewIntConst(graph.Int32, 2),
		idx, graph.NewBoolConst(true))
	u1 := f.AppendNode(graph.KindLoad, "a", graph.Int32, call)
	u2 := f.AppendNode(graph.KindStore, "", graph.Void, call, u1)

	require.Len(t, call.Uses(), 2)
	require.True(t, newTestReplayer().Run(m))

	repl := u1.Operand(0).(*graph.Node)
	assert.Equal(t, graph.KindLoadResourceDesc, repl.Kind())
	assert.Same(t, repl, u2.Operand(0).(*graph.Node), "every prior use must reference the replacement")
	assert.Len(t, repl.Uses(), 2, "total use count is conserved")
	assert.Equal(t, "rsrc", repl.Name())
}

func TestRunMissingTagOnReservedPrefixIsFatal(t *testing.T) {
	m := graph.NewModule("m")
	m.DeclareFunc(op.CallPrefix+"mystery", graph.Void)

	ee := recoverEncodingError(t, func() { newTestReplayer().Run(m) })
	assert.Equal(t, ErrCodeMissingTag, ee.Code)
	assert.Equal(t, op.CallPrefix+"mystery", ee.Decl)
}

func TestRunSentinelOpcodeIsFatal(t *testing.T) {
	m := graph.NewModule("m")
	nopDecl := declarePlaceholder(m, op.Nop, graph.Void)
	f := m.DefineFunc("main", graph.Void)
	f.AppendCall(nopDecl, "")

	ee := recoverEncodingError(t, func() { newTestReplayer().Run(m) })
	assert.Equal(t, ErrCodeUnknownOpcode, ee.Code)
	assert.Equal(t, op.Nop, ee.Opcode)
}

func TestRunUnknownOpcodeIsFatal(t *testing.T) {
	m := graph.NewModule("m")
	decl := m.DeclareFunc(op.CallPrefix+"future", graph.Void)
	decl.SetTag(op.TagKey, 9999)
	f := m.DefineFunc("main", graph.Void)
	f.AppendCall(decl, "")

	ee := recoverEncodingError(t, func() { newTestReplayer().Run(m) })
	assert.Equal(t, ErrCodeUnknownOpcode, ee.Code)
}

func TestRunPropagatesSourceLocation(t *testing.T) {
	m := graph.NewModule("m")
	killDecl := declarePlaceholder(m, op.Kill, graph.Void)
	f := m.DefineFunc("main", graph.Void)
	call := f.AppendCall(killDecl, "end")
	call.SetLoc(graph.SourceLoc{File: "shader.px", Line: 42, Col: 7})

	require.True(t, newTestReplayer().Run(m))

	require.Len(t, f.Nodes(), 1)
	assert.Equal(t, graph.SourceLoc{File: "shader.px", Line: 42, Col: 7}, f.Nodes()[0].Loc(),
		"replacement inherits the placeholder's source location")
}

func TestRunRecordsTrace(t *testing.T) {
	rec, err := trace.Open(filepath.Join(t.TempDir(), "trace.db"))
	require.NoError(t, err)
	t.Cleanup(func() { rec.Close() })

	m := graph.NewModule("m")
	clockDecl := declarePlaceholder(m, op.ReadClock, graph.Int64)
	f := m.DefineFunc("main", graph.Void)
	f.AppendCall(clockDecl, "t_start", graph.NewBoolConst(true))
	f.AppendCall(clockDecl, "t_end", graph.NewBoolConst(false))

	r := New(construct.New(), WithTokens(NewFixedTokens("run-1")), WithTrace(rec))
	require.True(t, r.Run(m))

	entries, err := rec.ReadRun(context.Background(), "run-1")
	require.NoError(t, err)
	require.Len(t, entries, 2)

	assert.Equal(t, int64(1), entries[0].Seq)
	assert.Equal(t, "t_start", entries[0].Placeholder)
	assert.Equal(t, int64(2), entries[1].Seq)
	assert.Equal(t, "t_end", entries[1].Placeholder)
	for _, e := range entries {
		assert.Equal(t, "read.clock", e.Opcode)
		assert.Equal(t, "main", e.Func)
		assert.Equal(t, string(graph.KindReadClock), e.Replacement)
		assert.False(t, e.Forced)
	}
}

func TestFixedTokens(t *testing.T) {
	gen := NewFixedTokens("a", "b")
	assert.Equal(t, "a", gen.Generate())
	assert.Equal(t, "b", gen.Generate())
	require.Panics(t, func() { gen.Generate() })
}

func TestUUIDv7TokensAreUnique(t *testing.T) {
	gen := UUIDv7Tokens{}
	assert.NotEqual(t, gen.Generate(), gen.Generate())
}

func TestIsEncodingError(t *testing.T) {
	assert.True(t, IsEncodingError(&EncodingError{Code: ErrCodeMissingTag}))
	assert.False(t, IsEncodingError(assert.AnError))
}
