package compiler

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/pathminer/internal/ir"
)

const fileProgram = `
classes: {
	"app.Main": {super: "android.app.Activity", application: true, source_file: "Main.java"}
	"android.app.Activity": {}
	"java.io.File": {}
}

methods: [{
	class: "app.Main"
	name:  "onCreate"
	params: ["android.os.Bundle"]
	body: {
		stmts: [
			{kind: "assign", succs: [1], line: 10, def: {repr: "r1", type: "java.io.File"}},
			{kind: "invoke", succs: [2], line: 11, invoke: {
				kind: "special", method: "java.io.File: void <init>(java.lang.String)"
				base: {repr: "r1", type: "java.io.File"}
				args: [{kind: "string", repr: "/tmp/x", type: "java.lang.String"}]
			}},
			{kind: "if", succs: [3, 4], line: 12},
			{kind: "invoke", succs: [4], line: 13, invoke: {
				kind: "virtual", method: "java.io.File: boolean delete()"
				base: {repr: "r1", type: "java.io.File"}
			}},
			{kind: "return_void", line: 14},
		]
		traps: [{begin: 1, end: 2, handler: 4, exception: "java.io.IOException"}]
	}
}]
`

func TestCompileProgramCUE(t *testing.T) {
	prog, err := CompileBytes("main.cue", []byte(fileProgram))
	require.NoError(t, err)

	require.Len(t, prog.Classes, 3)
	assert.Equal(t, ir.Class{
		Name:        "app.Main",
		Super:       "android.app.Activity",
		Application: true,
		SourceFile:  "Main.java",
	}, prog.Classes["app.Main"])
	assert.False(t, prog.Classes["java.io.File"].Application)

	require.Len(t, prog.Methods, 1)
	m := prog.Methods[0]
	assert.Equal(t, `"app.Main: void onCreate(android.os.Bundle)"`, m.Signature())
	assert.False(t, m.Static)

	require.NotNil(t, m.Body)
	require.Len(t, m.Body.Stmts, 5)

	ctor := m.Body.Stmts[1]
	require.NotNil(t, ctor.Invoke)
	assert.Equal(t, ir.InvokeSpecial, ctor.Invoke.Kind)
	assert.True(t, ctor.Invoke.Method.IsConstructor())
	assert.Equal(t, []string{"java.lang.String"}, ctor.Invoke.Method.Params)
	require.Len(t, ctor.Invoke.Args, 1)
	assert.True(t, ctor.Invoke.Args[0].IsStringConstant())
	assert.Equal(t, ir.ValueLocal, ctor.Invoke.Base.Kind)

	assert.Equal(t, []int{3, 4}, m.Body.Stmts[2].Succs)
	assert.Empty(t, m.Body.Stmts[4].Succs)
	assert.Equal(t, []ir.Trap{{Begin: 1, End: 2, Handler: 4, Exception: "java.io.IOException"}}, m.Body.Traps)
}

func TestCompileProgramJSON(t *testing.T) {
	src := `{
  "classes": {"A": {"application": true}},
  "methods": [
    {"class": "A", "name": "run", "static": true, "returns": "int",
     "body": {"stmts": [{"kind": "return", "line": 3}]}}
  ]
}`
	prog, err := CompileBytes("prog.json", []byte(src))
	require.NoError(t, err)

	require.Len(t, prog.Methods, 1)
	assert.True(t, prog.Methods[0].Static)
	assert.Equal(t, `"A: int run()"`, prog.Methods[0].Signature())
	assert.Equal(t, []string{}, prog.Methods[0].Params)
}

func TestCompileProgramSchemaErrors(t *testing.T) {
	tests := []struct {
		name string
		src  string
	}{
		{"unknown statement kind", `classes: A: {}, methods: [{class: "A", name: "m", body: stmts: [{kind: "jump"}]}]`},
		{"unknown field", `classes: A: {}, methods: [{class: "A", name: "m", color: "red"}]`},
		{"negative successor", `classes: A: {}, methods: [{class: "A", name: "m", body: stmts: [{kind: "goto", succs: [-1]}]}]`},
		{"missing method name", `classes: A: {}, methods: [{class: "A"}]`},
		{"syntax error", `classes: {`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := CompileBytes("bad.cue", []byte(tt.src))
			require.Error(t, err)
		})
	}
}

func TestCompileProgramSemanticErrorHasPosition(t *testing.T) {
	src := `classes: A: {}
methods: [{
	class: "A"
	name: "m"
	body: stmts: [
		{kind: "goto", succs: [7]},
	]
}]
`
	_, err := CompileBytes("range.cue", []byte(src))
	require.Error(t, err)

	var ce *CompileError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, "methods[0].body.stmts[0].succs", ce.Field)
	assert.Contains(t, ce.Message, ErrSuccOutOfRange)
	assert.True(t, ce.Pos.IsValid())
	assert.Contains(t, ce.Error(), "range.cue:")
}

func TestCompileProgramBadSignature(t *testing.T) {
	src := `classes: A: {}
methods: [{class: "A", name: "m", body: stmts: [
	{kind: "invoke", invoke: {kind: "static", method: "not a signature"}},
]}]
`
	_, err := CompileBytes("sig.cue", []byte(src))
	require.Error(t, err)

	var ce *CompileError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, "methods[0].body.stmts[0].invoke.method", ce.Field)
}

func TestLoadProgramFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "prog.cue")
	require.NoError(t, os.WriteFile(path, []byte(fileProgram), 0o644))

	prog, err := LoadProgramFile(path)
	require.NoError(t, err)
	assert.Len(t, prog.Methods, 1)

	_, err = LoadProgramFile(filepath.Join(dir, "missing.cue"))
	assert.Error(t, err)
}
