package compiler

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/joeydtaylor/steeze-host/pkg/engine"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

type home struct{ engine.Base }

func TestParseMode(t *testing.T) {
	for in, want := range map[string]Mode{"": Optimized, "optimized": Optimized, "DEBUG": Debug, " debug ": Debug} {
		m, err := ParseMode(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, m, in)
	}
	_, err := ParseMode("fast")
	assert.Error(t, err)
}

func TestFindSources(t *testing.T) {
	dir := t.TempDir()
	writeSource(t, dir, "b.go", "package main")
	writeSource(t, dir, "a.go", "package main")
	writeSource(t, dir, "a_test.go", "package main")
	writeSource(t, dir, "sub/c.go", "package main")
	writeSource(t, dir, "testdata/x.go", "package main")
	writeSource(t, dir, "_skip/y.go", "package main")
	writeSource(t, dir, ".hidden/z.go", "package main")
	writeSource(t, dir, "notes.txt", "")

	got, err := FindSources(dir)
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(dir, "a.go"),
		filepath.Join(dir, "b.go"),
		filepath.Join(dir, "sub", "c.go"),
	}, got)
}

func TestCompileStatic(t *testing.T) {
	dir := t.TempDir()
	src := writeSource(t, dir, "a.go", "//#include /lib/one.a\n")
	p := NewStatic("fixed", engine.Export("Home", home{}))

	res, err := Compile(context.Background(), p, []string{src}, Optimized)
	require.NoError(t, err)
	require.True(t, res.OK())

	assert.Equal(t, "fixed", res.Module.Name)
	require.Len(t, res.Module.Types, 1)
	assert.Equal(t, "Home", res.Module.Types[0].Name)
	assert.Equal(t, []string{"/lib/one.a"}, res.References)
	assert.Equal(t, Baseline, res.Baseline)
	require.Len(t, res.Warnings, 1)
	assert.Equal(t, "static-ref", res.Warnings[0].Code)
}

func TestCompileStopsOnUnreadableSource(t *testing.T) {
	p := NewStatic("fixed")
	res, err := Compile(context.Background(), p, []string{filepath.Join(t.TempDir(), "gone.go")}, Optimized)
	require.NoError(t, err)
	assert.False(t, res.OK())
	assert.Nil(t, res.Module)
	require.Len(t, res.Errors, 1)
	assert.Equal(t, "read", res.Errors[0].Code)
}

func TestCompileNilProvider(t *testing.T) {
	_, err := Compile(context.Background(), nil, nil, Optimized)
	assert.Error(t, err)
}

func TestResultLog(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	res := Result{
		Errors:   []Diagnostic{{Severity: Error, File: "a.go", Line: 1, Code: "compile", Message: "bad"}},
		Warnings: []Diagnostic{{Severity: Warning, File: "b.go", Line: 2, Code: "vet", Message: "meh"}},
	}
	res.Log(zap.New(core))

	entries := logs.AllUntimed()
	require.Len(t, entries, 2)
	assert.Equal(t, zapcore.ErrorLevel, entries[0].Level)
	assert.Equal(t, "[a.go;1:0] compile bad", entries[0].Message)
	assert.Equal(t, zapcore.WarnLevel, entries[1].Level)
}

// fakeTool records toolchain invocations and plays back canned results.
type fakeTool struct {
	calls [][]string
	envs  [][]string
	build func(args []string) ([]byte, error)
	vet   func(args []string) ([]byte, error)
}

func (f *fakeTool) run(_ context.Context, _ string, env []string, name string, args ...string) ([]byte, error) {
	f.calls = append(f.calls, append([]string{name}, args...))
	f.envs = append(f.envs, env)
	switch args[0] {
	case "build":
		if f.build != nil {
			return f.build(args)
		}
	case "vet":
		if f.vet != nil {
			return f.vet(args)
		}
	}
	return nil, nil
}

func openTable(types ...engine.Type) Opener {
	return func(string) ([]engine.Type, error) { return types, nil }
}

func TestPluginProviderBuildsAndOpens(t *testing.T) {
	dir := t.TempDir()
	src := writeSource(t, filepath.Join(dir, "hello"), "home.go", "//#include /lib/one.a\npackage main\n")
	tool := &fakeTool{}
	var opened string
	p := NewPluginProvider(
		WithGoBin("gotool"),
		WithOutDir(filepath.Join(dir, "out")),
		WithRunner(tool.run),
		WithOpener(func(path string) ([]engine.Type, error) {
			opened = path
			return []engine.Type{engine.Export("Home", home{})}, nil
		}),
	)

	res, err := Compile(context.Background(), p, []string{src}, Optimized)
	require.NoError(t, err)
	require.True(t, res.OK())

	require.Len(t, tool.calls, 1, "optimized builds do not vet")
	call := tool.calls[0]
	assert.Equal(t, []string{"gotool", "build", "-buildmode=plugin", "-o"}, call[:4])
	assert.Equal(t, src, call[len(call)-1])
	assert.NotContains(t, call, "-gcflags=-N -l")
	assert.Contains(t, tool.envs[0], "CGO_ENABLED=1")
	assert.True(t, hasPrefix(tool.envs[0], "CGO_LDFLAGS=") && strings.Contains(strings.Join(tool.envs[0], " "), "/lib/one.a"))

	assert.Equal(t, opened, res.Module.Artifact)
	assert.Equal(t, "hello", res.Module.Name)
	assert.True(t, strings.HasPrefix(filepath.Base(res.Module.Artifact), "module-"))
}

func TestPluginProviderDebugVetsAndWarns(t *testing.T) {
	dir := t.TempDir()
	src := writeSource(t, dir, "home.go", "package main\n")
	tool := &fakeTool{
		vet: func([]string) ([]byte, error) {
			return []byte("# hello\n" + src + ":4:2: unreachable code\n"), ErrToolFailed
		},
	}
	p := NewPluginProvider(WithOutDir(dir), WithRunner(tool.run), WithOpener(openTable()))

	res, err := Compile(context.Background(), p, []string{src}, Debug)
	require.NoError(t, err)
	require.True(t, res.OK())

	require.Len(t, tool.calls, 2)
	assert.Contains(t, tool.calls[0], "-gcflags=-N -l")
	assert.Equal(t, "vet", tool.calls[1][1])
	require.Len(t, res.Warnings, 1)
	assert.Equal(t, Warning, res.Warnings[0].Severity)
	assert.Equal(t, 4, res.Warnings[0].Line)
}

func TestPluginProviderCompileErrors(t *testing.T) {
	dir := t.TempDir()
	src := writeSource(t, dir, "home.go", "package main\n")
	tool := &fakeTool{
		build: func([]string) ([]byte, error) {
			return []byte(src + ":3:1: syntax error: unexpected }\n"), ErrToolFailed
		},
	}
	opened := false
	p := NewPluginProvider(WithOutDir(dir), WithRunner(tool.run), WithOpener(func(string) ([]engine.Type, error) {
		opened = true
		return nil, nil
	}))

	res, err := Compile(context.Background(), p, []string{src}, Debug)
	require.NoError(t, err)
	assert.False(t, res.OK())
	assert.Nil(t, res.Module)
	require.Len(t, res.Errors, 1)
	assert.Equal(t, "compile", res.Errors[0].Code)
	assert.Equal(t, 3, res.Errors[0].Line)
	assert.False(t, opened)
	assert.Len(t, tool.calls, 1, "vet does not run after a failed build")
}

func TestPluginProviderInfrastructureFailure(t *testing.T) {
	dir := t.TempDir()
	src := writeSource(t, dir, "home.go", "package main\n")
	tool := &fakeTool{
		build: func([]string) ([]byte, error) { return nil, errors.New("exec: \"go\": executable file not found") },
	}
	p := NewPluginProvider(WithOutDir(dir), WithRunner(tool.run), WithOpener(openTable()))

	_, err := Compile(context.Background(), p, []string{src}, Optimized)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "plugin provider")
}

func TestPluginProviderExportFailure(t *testing.T) {
	dir := t.TempDir()
	src := writeSource(t, dir, "home.go", "package main\n")
	p := NewPluginProvider(WithOutDir(dir), WithRunner((&fakeTool{}).run), WithOpener(func(string) ([]engine.Type, error) {
		return nil, errors.New("lookup Exports: symbol Exports not found")
	}))

	res, err := Compile(context.Background(), p, []string{src}, Optimized)
	require.NoError(t, err)
	require.Len(t, res.Errors, 1)
	assert.Equal(t, "export", res.Errors[0].Code)
}

func TestPluginProviderNoSources(t *testing.T) {
	p := NewPluginProvider(WithOutDir(t.TempDir()), WithRunner((&fakeTool{}).run))
	res, err := Compile(context.Background(), p, nil, Optimized)
	require.NoError(t, err)
	require.Len(t, res.Errors, 1)
	assert.Equal(t, "no-sources", res.Errors[0].Code)
}

func TestLinkEnv(t *testing.T) {
	t.Setenv("CGO_LDFLAGS", "-L/base")
	assert.Equal(t, []string{"CGO_ENABLED=1"}, linkEnv(nil))
	assert.Equal(t, []string{"CGO_ENABLED=1", "CGO_LDFLAGS=-L/base /lib/a.a /lib/b.so"}, linkEnv([]string{"/lib/a.a", "/lib/b.so"}))
}

func hasPrefix(env []string, prefix string) bool {
	for _, e := range env {
		if strings.HasPrefix(e, prefix) {
			return true
		}
	}
	return false
}
