package compiler

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"plugin"
	"strings"

	"github.com/google/uuid"
	"github.com/joeydtaylor/steeze-host/pkg/engine"
	"go.uber.org/zap"
)

// ErrToolFailed marks a toolchain run that started but exited unsuccessfully.
var ErrToolFailed = errors.New("tool exited with failure")

// Runner executes a toolchain command in dir with extra environment entries and
// returns its combined output.
type Runner func(ctx context.Context, dir string, env []string, name string, args ...string) ([]byte, error)

// Opener loads a compiled artifact and returns the types it exports.
type Opener func(path string) ([]engine.Type, error)

// ExecRunner runs commands with os/exec.
func ExecRunner(ctx context.Context, dir string, env []string, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = dir
	cmd.Env = append(os.Environ(), env...)
	out, err := cmd.CombinedOutput()
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return out, fmt.Errorf("%w: %v", ErrToolFailed, err)
		}
		return out, err
	}
	return out, nil
}

// OpenPlugin loads a Go plugin and resolves its exports symbol.
func OpenPlugin(path string) ([]engine.Type, error) {
	p, err := plugin.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open plugin: %w", err)
	}
	sym, err := p.Lookup(engine.ExportsSymbol)
	if err != nil {
		return nil, fmt.Errorf("lookup %s: %w", engine.ExportsSymbol, err)
	}
	switch v := sym.(type) {
	case *[]engine.Type:
		return *v, nil
	case func() []engine.Type:
		return v(), nil
	}
	return nil, fmt.Errorf("symbol %s has type %T, want []engine.Type or func() []engine.Type", engine.ExportsSymbol, sym)
}

// PluginProvider compiles sources at runtime with `go build -buildmode=plugin` and
// loads the result into the host process.
type PluginProvider struct {
	goBin   string
	workDir string
	outDir  string
	vet     bool
	run     Runner
	open    Opener
	log     *zap.Logger
}

type PluginOption func(*PluginProvider)

func WithGoBin(bin string) PluginOption     { return func(p *PluginProvider) { p.goBin = bin } }
func WithWorkDir(dir string) PluginOption   { return func(p *PluginProvider) { p.workDir = dir } }
func WithOutDir(dir string) PluginOption    { return func(p *PluginProvider) { p.outDir = dir } }
func WithVet(on bool) PluginOption          { return func(p *PluginProvider) { p.vet = on } }
func WithRunner(r Runner) PluginOption      { return func(p *PluginProvider) { p.run = r } }
func WithOpener(o Opener) PluginOption      { return func(p *PluginProvider) { p.open = o } }
func WithLogger(l *zap.Logger) PluginOption { return func(p *PluginProvider) { p.log = l } }

// NewPluginProvider returns a provider using the go binary on PATH, building in the
// current directory and writing artifacts under the system temp dir.
func NewPluginProvider(opts ...PluginOption) *PluginProvider {
	p := &PluginProvider{
		goBin:  "go",
		outDir: filepath.Join(os.TempDir(), "steeze-host"),
		vet:    true,
		run:    ExecRunner,
		open:   OpenPlugin,
		log:    zap.NewNop(),
	}
	for _, o := range opts {
		o(p)
	}
	return p
}

func (p *PluginProvider) Name() string { return "plugin" }

func (p *PluginProvider) Compile(ctx context.Context, req Request) (Result, error) {
	if len(req.Sources) == 0 {
		return Result{Errors: []Diagnostic{errorf("", "no-sources", "no source files to compile")}}, nil
	}
	if err := os.MkdirAll(p.outDir, 0o755); err != nil {
		return Result{}, fmt.Errorf("create output dir: %w", err)
	}

	sources := make([]string, 0, len(req.Sources))
	for _, s := range req.Sources {
		abs, err := filepath.Abs(s)
		if err != nil {
			return Result{}, fmt.Errorf("resolve %s: %w", s, err)
		}
		sources = append(sources, abs)
	}

	// A process cannot open two plugins from the same path, so every build is unique.
	artifact := filepath.Join(p.outDir, "module-"+uuid.NewString()+".so")
	args := append([]string{"build", "-buildmode=plugin", "-o", artifact}, buildFlags(req.Mode)...)
	args = append(args, sources...)
	env := linkEnv(req.References)

	p.log.Info("compiling module",
		zap.Int("sources", len(sources)),
		zap.Strings("references", req.References),
		zap.String("mode", req.Mode.String()),
		zap.String("artifact", artifact),
	)

	out, err := p.run(ctx, p.workDir, env, p.goBin, args...)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return Result{}, ctxErr
		}
		if !errors.Is(err, ErrToolFailed) {
			return Result{}, fmt.Errorf("run %s: %w", p.goBin, err)
		}
		diags := ParseToolOutput(out, Error, "compile", p.workDir)
		if len(diags) == 0 {
			diags = []Diagnostic{errorf("", "compile", "%s build failed: %v", p.goBin, err)}
		}
		return Result{Errors: diags}, nil
	}

	var res Result
	if req.Mode == Debug && p.vet {
		vout, verr := p.run(ctx, p.workDir, env, p.goBin, append([]string{"vet"}, sources...)...)
		switch {
		case verr == nil:
		case errors.Is(verr, ErrToolFailed):
			res.Warnings = ParseToolOutput(vout, Warning, "vet", p.workDir)
		default:
			p.log.Warn("go vet did not run", zap.Error(verr))
		}
	}

	types, err := p.open(artifact)
	if err != nil {
		res.Errors = append(res.Errors, errorf(artifact, "export", "%v", err))
		return res, nil
	}
	res.Module = &Module{
		Name:     moduleName(sources),
		Artifact: artifact,
		Types:    types,
	}
	return res, nil
}

// buildFlags only touches the module's own package: packages shared with the host
// must be built identically or the plugin will not load.
func buildFlags(m Mode) []string {
	if m == Debug {
		return []string{"-gcflags=-N -l"}
	}
	return nil
}

// linkEnv hands library references to the cgo linker; a plugin build always runs
// with cgo enabled.
func linkEnv(refs []string) []string {
	env := []string{"CGO_ENABLED=1"}
	if len(refs) == 0 {
		return env
	}
	flags := strings.TrimSpace(os.Getenv("CGO_LDFLAGS") + " " + strings.Join(refs, " "))
	return append(env, "CGO_LDFLAGS="+flags)
}

func moduleName(sources []string) string {
	return filepath.Base(filepath.Dir(sources[0]))
}
