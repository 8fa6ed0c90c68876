// Package compiler turns a set of source files into one loadable module, or into
// the diagnostics explaining why it could not.
package compiler

import (
	"context"
	"fmt"
	"io/fs"
	"path/filepath"
	"sort"
	"strings"

	"github.com/joeydtaylor/steeze-host/pkg/engine"
)

// Mode selects between optimized output and output that is easy to debug.
type Mode int

const (
	Optimized Mode = iota
	Debug
)

func (m Mode) String() string {
	if m == Debug {
		return "debug"
	}
	return "optimized"
}

// ParseMode accepts "optimized" (or "") and "debug".
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "optimized", "optimize", "release":
		return Optimized, nil
	case "debug":
		return Debug, nil
	}
	return Optimized, fmt.Errorf("unknown compile mode %q", s)
}

// Baseline is the fixed library set every module links, on top of its own
// references: the runtime, the HTTP stack the request context wraps, and the engine
// package defining the marker capability and the request context.
var Baseline = []string{"runtime", "net/http", engine.ImportPath}

// Request is what a provider is asked to compile.
type Request struct {
	Sources    []string
	References []string
	Mode       Mode
}

// Module is a successfully compiled unit.
type Module struct {
	Name     string
	Artifact string
	Types    []engine.Type
}

// Result separates warnings from errors. Module is set only when Errors is empty.
type Result struct {
	Module     *Module
	Warnings   []Diagnostic
	Errors     []Diagnostic
	References []string
	Baseline   []string
}

// OK reports whether the compile produced a module.
func (r Result) OK() bool { return len(r.Errors) == 0 && r.Module != nil }

// Diagnostics returns errors followed by warnings.
func (r Result) Diagnostics() []Diagnostic {
	out := make([]Diagnostic, 0, len(r.Errors)+len(r.Warnings))
	out = append(out, r.Errors...)
	return append(out, r.Warnings...)
}

// Provider compiles sources into a module. The returned error is for
// infrastructure failures only; problems in the sources are diagnostics.
type Provider interface {
	Name() string
	Compile(ctx context.Context, req Request) (Result, error)
}

// Compile resolves library references from the given sources (shallowly) and hands
// the request to p.
func Compile(ctx context.Context, p Provider, sources []string, mode Mode) (Result, error) {
	if p == nil {
		return Result{}, fmt.Errorf("no compile provider")
	}
	refs, diags := CollectReferences(sources)
	if len(diags) > 0 {
		return Result{Errors: diags, References: refs, Baseline: Baseline}, nil
	}
	res, err := p.Compile(ctx, Request{Sources: sources, References: refs, Mode: mode})
	if err != nil {
		return Result{}, fmt.Errorf("%s provider: %w", p.Name(), err)
	}
	res.References = refs
	res.Baseline = Baseline
	if len(res.Errors) > 0 {
		res.Module = nil
	}
	return res, nil
}

// FindSources lists every .go file under dir, recursively, in lexical order. Test
// files and directories named testdata or starting with "_" or "." are skipped.
func FindSources(dir string) ([]string, error) {
	var out []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		name := d.Name()
		if d.IsDir() {
			if path != dir && (name == "testdata" || strings.HasPrefix(name, "_") || strings.HasPrefix(name, ".")) {
				return filepath.SkipDir
			}
			return nil
		}
		if strings.HasSuffix(name, ".go") && !strings.HasSuffix(name, "_test.go") {
			out = append(out, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("find sources in %s: %w", dir, err)
	}
	sort.Strings(out)
	return out, nil
}
