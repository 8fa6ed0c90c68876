package serverfx

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/joeydtaylor/steeze-host/pkg/builtin"
	"github.com/joeydtaylor/steeze-host/pkg/compiler"
	"github.com/joeydtaylor/steeze-host/pkg/config"
	"github.com/joeydtaylor/steeze-host/pkg/core"
	"github.com/joeydtaylor/steeze-host/pkg/middleware/logger"
	"github.com/joeydtaylor/steeze-host/pkg/middleware/metrics"
	"github.com/joeydtaylor/steeze-host/pkg/server"
	"github.com/joeydtaylor/steeze-host/pkg/transport/httpx"
	"go.uber.org/zap"
)

// CompileError aborts startup when a module does not compile.
type CompileError struct {
	Errors []compiler.Diagnostic
}

func (e *CompileError) Error() string {
	lines := make([]string, 0, len(e.Errors))
	for _, d := range e.Errors {
		lines = append(lines, d.String())
	}
	return fmt.Sprintf("module failed to compile (%d errors):\n%s", len(e.Errors), strings.Join(lines, "\n"))
}

func provideCompileProvider(cfg config.Config, zl *zap.Logger) compiler.Provider {
	if cfg.Provider == config.ProviderStatic {
		return builtin.Provider()
	}
	opts := []compiler.PluginOption{
		compiler.WithGoBin(cfg.GoBin),
		compiler.WithVet(cfg.Vet),
		compiler.WithLogger(zl.Named("compiler")),
	}
	if cfg.WorkDir != "" {
		opts = append(opts, compiler.WithWorkDir(cfg.WorkDir))
	} else {
		opts = append(opts, compiler.WithWorkDir(cfg.SourcesDir))
	}
	if cfg.OutDir != "" {
		opts = append(opts, compiler.WithOutDir(cfg.OutDir))
	}
	return compiler.NewPluginProvider(opts...)
}

// provideModule compiles the configured sources. Warnings are always reported;
// any error fails the fx graph.
func provideModule(cfg config.Config, p compiler.Provider, zl *zap.Logger) (*compiler.Module, error) {
	var sources []string
	if cfg.Provider != config.ProviderStatic {
		found, err := compiler.FindSources(cfg.SourcesDir)
		if err != nil {
			return nil, err
		}
		sources = found
	}

	res, err := compiler.Compile(context.Background(), p, sources, cfg.CompileMode())
	if err != nil {
		return nil, err
	}
	res.Log(zl)
	metrics.ObserveDiagnostics(compiler.Warning.String(), len(res.Warnings))
	metrics.ObserveDiagnostics(compiler.Error.String(), len(res.Errors))

	if !res.OK() {
		return nil, &CompileError{Errors: res.Errors}
	}
	zl.Info("module compiled",
		zap.String("provider", p.Name()),
		zap.String("module", res.Module.Name),
		zap.Int("sources", len(sources)),
		zap.Strings("references", res.References),
		zap.Strings("baseline", res.Baseline),
		zap.Int("warnings", len(res.Warnings)),
	)
	return res.Module, nil
}

func provideRegistry(mod *compiler.Module, zl *zap.Logger) (*core.Registry, error) {
	reg, err := core.Discover(mod, zl.Named("registry"))
	if err != nil {
		return nil, err
	}
	if reg.Len() == 0 {
		zl.Warn("module exports no controllers; every request will 404", zap.String("module", mod.Name))
	}
	return reg, nil
}

func provideRouter(cfg config.Config, reg *core.Registry, lm *logger.Middleware, r httpx.Router, zl *zap.Logger) http.Handler {
	return core.BuildRouter(reg, core.BuildDeps{
		Log:         zl.Named("dispatch"),
		LogMW:       lm,
		Router:      r,
		MetricsSkip: cfg.MetricsSkipPaths,
	})
}

func provideServer(cfg config.Config, d appDeps) *server.Server {
	return server.New(cfg.ServerConfig(), d.App, d.Logger.Named("server"))
}
