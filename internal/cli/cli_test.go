package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const fixtureYAML = `module: demo
funcs:
  - name: defir.call.load.buffer.desc
    decl: true
    result: ptr(i32)
    tags:
      defir.opcode: 1
  - name: main
    params:
      - name: idx
        type: i32
    nodes:
      - name: desc
        kind: call
        callee: defir.call.load.buffer.desc
        args: ["i32 1", "i32 3", "%idx", "bool false"]
        loc: shader.px:10:4
      - name: x
        kind: load
        type: i32
        args: ["%desc"]
`

const plainYAML = `module: plain
funcs:
  - name: main
    nodes:
      - kind: kill
`

// A reserved-prefix declaration with no opcode tag: a malformed encoding
// the engine treats as fatal.
const malformedYAML = `module: broken
funcs:
  - name: defir.call.mystery
    decl: true
  - name: main
`

func writeFixture(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "graph.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func executeCommand(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

type jsonResponse struct {
	Status string          `json:"status"`
	Data   json.RawMessage `json:"data"`
}

func decodeResponse(t *testing.T, out string, data interface{}) {
	t.Helper()
	var resp jsonResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	require.Equal(t, "ok", resp.Status)
	require.NoError(t, json.Unmarshal(resp.Data, data))
}

func TestDumpCommand(t *testing.T) {
	path := writeFixture(t, fixtureYAML)

	out, err := executeCommand(t, "dump", path)
	require.NoError(t, err)

	assert.Contains(t, out, "module demo")
	assert.Contains(t, out, "declare @defir.call.load.buffer.desc : ptr(i32) [defir.opcode=1]")
	assert.Contains(t, out, "%desc = call @defir.call.load.buffer.desc(i32 1, i32 3, %idx, bool false) : ptr(i32) ; shader.px:10:4")
}

func TestDumpCommandJSON(t *testing.T) {
	path := writeFixture(t, fixtureYAML)

	out, err := executeCommand(t, "dump", path, "--format", "json")
	require.NoError(t, err)

	var result DumpResult
	decodeResponse(t, out, &result)
	assert.Equal(t, "demo", result.Module)
	assert.Equal(t, 2, result.Funcs)
	assert.Contains(t, result.Text, "module demo")
}

func TestDumpCommandMissingFile(t *testing.T) {
	_, err := executeCommand(t, "dump", filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestDumpCommandInvalidGraph(t *testing.T) {
	path := writeFixture(t, "module: demo\nfuncs:\n  - decl: true\n")

	_, err := executeCommand(t, "dump", path)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestReplayCommand(t *testing.T) {
	path := writeFixture(t, fixtureYAML)

	out, err := executeCommand(t, "replay", path)
	require.NoError(t, err)

	assert.Contains(t, out, "replayed placeholders in module demo")
	assert.Contains(t, out, "%desc = load.buffer.desc(i32 1, i32 3, %idx, bool false) : ptr(i32)")
	assert.NotContains(t, out, "defir.call.", "no placeholder survives replay")
}

func TestReplayCommandUnchanged(t *testing.T) {
	path := writeFixture(t, plainYAML)

	out, err := executeCommand(t, "replay", path)
	require.NoError(t, err)
	assert.Contains(t, out, "module plain has no placeholders; unchanged")
}

func TestReplayCommandJSON(t *testing.T) {
	path := writeFixture(t, fixtureYAML)

	out, err := executeCommand(t, "replay", path, "--format", "json")
	require.NoError(t, err)

	var result ReplayCmdResult
	decodeResponse(t, out, &result)
	assert.Equal(t, "demo", result.Module)
	assert.True(t, result.Changed)
	assert.NotEmpty(t, result.RunToken)
}

func TestReplayCommandWritesOut(t *testing.T) {
	path := writeFixture(t, fixtureYAML)
	outPath := filepath.Join(t.TempDir(), "rewritten.yaml")

	_, err := executeCommand(t, "replay", path, "--out", outPath)
	require.NoError(t, err)

	data, err := os.ReadFile(outPath)
	require.NoError(t, err)
	assert.Contains(t, string(data), "load.buffer.desc")
	assert.NotContains(t, string(data), "defir.call.")
}

func TestReplayCommandMalformedEncoding(t *testing.T) {
	path := writeFixture(t, malformedYAML)

	_, err := executeCommand(t, "replay", path)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, err.Error(), "malformed placeholder encoding")
}

func TestReplayThenTraceCommands(t *testing.T) {
	path := writeFixture(t, fixtureYAML)
	dbPath := filepath.Join(t.TempDir(), "replay.db")

	out, err := executeCommand(t, "replay", path, "--trace-db", dbPath, "--format", "json")
	require.NoError(t, err)

	var result ReplayCmdResult
	decodeResponse(t, out, &result)
	require.NotEmpty(t, result.RunToken)

	listOut, err := executeCommand(t, "trace", "--db", dbPath)
	require.NoError(t, err)
	assert.Contains(t, listOut, result.RunToken)

	showOut, err := executeCommand(t, "trace", "--db", dbPath, result.RunToken)
	require.NoError(t, err)
	assert.Contains(t, showOut, "1 replayed placeholder(s)")
	assert.Contains(t, showOut, "load.buffer.desc")
	assert.Contains(t, showOut, "desc in @main")

	var run TraceRunResult
	showJSON, err := executeCommand(t, "trace", "--db", dbPath, result.RunToken, "--format", "json")
	require.NoError(t, err)
	decodeResponse(t, showJSON, &run)
	require.Len(t, run.Entries, 1)
	assert.Equal(t, "load.buffer.desc", run.Entries[0].Opcode)
	assert.Equal(t, "desc", run.Entries[0].Placeholder)
}

func TestTraceCommandEmptyDatabase(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "empty.db")

	out, err := executeCommand(t, "trace", "--db", dbPath)
	require.NoError(t, err)
	assert.Contains(t, out, "No runs recorded.")
}

func TestTraceCommandUnknownRun(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "empty.db")

	out, err := executeCommand(t, "trace", "--db", dbPath, "no-such-run")
	require.NoError(t, err)
	assert.Contains(t, out, "No entries for run no-such-run.")
}

func TestInvalidFormatFlag(t *testing.T) {
	path := writeFixture(t, plainYAML)

	_, err := executeCommand(t, "dump", path, "--format", "xml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid format")
}

func TestGetExitCode(t *testing.T) {
	assert.Equal(t, ExitCommandError, GetExitCode(NewExitError(ExitCommandError, "boom")))
	assert.Equal(t, ExitFailure, GetExitCode(assert.AnError))
}
