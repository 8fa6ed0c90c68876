package compiler

import (
	"context"

	"github.com/joeydtaylor/steeze-host/pkg/engine"
)

// StaticProvider serves a handler table linked into the host binary ahead of time.
// Sources are still scanned for library references, but nothing is linked at
// runtime, so every reference is reported as a warning.
type StaticProvider struct {
	module string
	types  []engine.Type
}

// NewStatic returns a provider that always yields the given table.
func NewStatic(module string, types ...engine.Type) *StaticProvider {
	return &StaticProvider{module: module, types: append([]engine.Type(nil), types...)}
}

func (s *StaticProvider) Name() string { return "static" }

func (s *StaticProvider) Compile(ctx context.Context, req Request) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}
	var res Result
	for _, ref := range req.References {
		res.Warnings = append(res.Warnings,
			warnf("", "static-ref", "library reference %q is not linked by the static provider", ref))
	}
	res.Module = &Module{
		Name:  s.module,
		Types: append([]engine.Type(nil), s.types...),
	}
	return res, nil
}
