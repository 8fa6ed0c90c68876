// core/registry.go
package core

import (
	"fmt"
	"go/token"
	"sort"
	"strings"

	"github.com/joeydtaylor/steeze-host/pkg/compiler"
	"github.com/joeydtaylor/steeze-host/pkg/engine"
	"go.uber.org/zap"
)

// Group is a routable controller: one discovered module type and the methods on it
// that passed eligibility. It is immutable after discovery.
type Group struct {
	name    string
	methods map[string]engine.HandlerFunc
}

func (g *Group) Name() string { return g.name }

// Methods returns the eligible method names in lexical order.
func (g *Group) Methods() []string {
	out := make([]string, 0, len(g.methods))
	for n := range g.methods {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

// Has reports whether method is an eligible method of g.
func (g *Group) Has(method string) bool {
	_, ok := g.methods[method]
	return ok
}

// Call invokes method synchronously and reports whether it exists. Panics raised
// by the method reach the caller unchanged.
func (g *Group) Call(method string, ctx *engine.Context) bool {
	h, ok := g.methods[method]
	if !ok {
		return false
	}
	h(ctx)
	return true
}

// Registry is the set of controllers discovered in one module.
type Registry struct {
	groups map[string]*Group
}

// Discover builds the registry of a compiled module.
func Discover(mod *compiler.Module, log *zap.Logger) (*Registry, error) {
	if mod == nil {
		return nil, fmt.Errorf("discover: no module")
	}
	return NewRegistry(mod.Types, log)
}

// NewRegistry keeps every exported type carrying the controller capability and, on
// each, every eligible method. Controllers and methods with clashing names are
// rejected.
func NewRegistry(types []engine.Type, log *zap.Logger) (*Registry, error) {
	if log == nil {
		log = zap.NewNop()
	}
	r := &Registry{groups: make(map[string]*Group)}
	dups := map[string]struct{}{}

	for _, t := range types {
		if !exportedName(t.Name) {
			continue
		}
		c, ok := t.Value.(engine.Controller)
		if !ok {
			continue
		}
		if _, exists := r.groups[t.Name]; exists {
			dups[t.Name] = struct{}{}
			continue
		}
		g, err := newGroup(t.Name, c.Methods())
		if err != nil {
			return nil, err
		}
		r.groups[t.Name] = g

		log.Info("controller", zap.String("name", g.name))
		for _, m := range g.Methods() {
			log.Debug("export", zap.String("route", g.name+"/"+m))
		}
	}

	if len(dups) > 0 {
		return nil, &DuplicateError{Names: sortedKeys(dups)}
	}
	return r, nil
}

func newGroup(name string, methods []engine.Method) (*Group, error) {
	g := &Group{name: name, methods: make(map[string]engine.HandlerFunc)}
	dups := map[string]struct{}{}
	for _, m := range methods {
		h, ok := Eligible(m)
		if !ok {
			continue
		}
		if _, exists := g.methods[m.Name]; exists {
			dups[m.Name] = struct{}{}
			continue
		}
		g.methods[m.Name] = h
	}
	if len(dups) > 0 {
		return nil, &DuplicateError{Controller: name, Names: sortedKeys(dups)}
	}
	return g, nil
}

// Eligible reports whether m may be routed and returns its handler. A method must
// be exported, not hidden, and take exactly one *engine.Context with no result. A
// method expression carries its receiver as an extra parameter and so never
// qualifies: only funcs callable without an instance do.
func Eligible(m engine.Method) (engine.HandlerFunc, bool) {
	if m.Hidden || !token.IsExported(m.Name) {
		return nil, false
	}
	switch fn := m.Func.(type) {
	case engine.HandlerFunc:
		return fn, fn != nil
	case func(*engine.Context):
		return fn, fn != nil
	}
	return nil, false
}

// Lookup finds a controller by exact, case-sensitive name.
func (r *Registry) Lookup(name string) (*Group, bool) {
	g, ok := r.groups[name]
	return g, ok
}

// Groups returns every controller sorted by name.
func (r *Registry) Groups() []*Group {
	out := make([]*Group, 0, len(r.groups))
	for _, g := range r.groups {
		out = append(out, g)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].name < out[j].name })
	return out
}

func (r *Registry) Len() int { return len(r.groups) }

// DuplicateError lists names claimed more than once, either controller names in a
// module (Controller empty) or method names in one controller.
type DuplicateError struct {
	Controller string
	Names      []string
}

func (e *DuplicateError) Error() string {
	if e.Controller == "" {
		return fmt.Sprintf("duplicate controller names: %s", strings.Join(e.Names, ", "))
	}
	return fmt.Sprintf("controller %q: duplicate method names: %s", e.Controller, strings.Join(e.Names, ", "))
}

// exportedName accepts exported identifiers and the fallback controller's name,
// which no Go type can carry and so is always given explicitly.
func exportedName(name string) bool {
	return name == FallbackController || token.IsExported(name)
}

func sortedKeys(m map[string]struct{}) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
