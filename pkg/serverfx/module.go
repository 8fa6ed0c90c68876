// Package serverfx wires a host together with fx: config, logging, compilation,
// discovery, routing and the server lifecycle.
package serverfx

import (
	"github.com/joeydtaylor/steeze-host/pkg/bundlefx"
	"github.com/joeydtaylor/steeze-host/pkg/compiler"
	"github.com/joeydtaylor/steeze-host/pkg/config"
	"github.com/joeydtaylor/steeze-host/pkg/middleware/logger"
	"github.com/joeydtaylor/steeze-host/pkg/transport/httpx"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"
)

// ---------- Options ----------

type options struct {
	provider compiler.Provider
	logOpts  *logger.Options
}

type Option func(*options)

// WithProvider replaces the provider chosen from config.
func WithProvider(p compiler.Provider) Option { return func(o *options) { o.provider = p } }

// WithLogOptions replaces the log options derived from config.
func WithLogOptions(lo logger.Options) Option { return func(o *options) { o.logOpts = &lo } }

// Module returns a complete Fx option set for a validated config.
func Module(cfg config.Config, opts ...Option) fx.Option {
	var o options
	for _, fn := range opts {
		fn(&o)
	}
	logOpts := logOptions(cfg)
	if o.logOpts != nil {
		logOpts = *o.logOpts
	}
	logger.AddBodyLogPaths(cfg.BodyLogPaths...)

	return fx.Options(
		fx.Supply(cfg, logOpts),
		fx.WithLogger(func(l *zap.Logger) fxevent.Logger {
			return &fxevent.ZapLogger{Logger: l.Named("fx")}
		}),

		// Core middleware
		bundlefx.Module,
		// Router impl
		fx.Provide(httpx.NewChi),

		// Compile and discover
		fx.Provide(func(c config.Config, l *zap.Logger) compiler.Provider {
			if o.provider != nil {
				return o.provider
			}
			return provideCompileProvider(c, l)
		}),
		fx.Provide(provideModule),
		fx.Provide(provideRegistry),

		// Router (named "app")
		fx.Provide(
			fx.Annotate(
				provideRouter,
				fx.ResultTags(`name:"app"`),
			),
		),
		fx.Provide(provideServer),

		// Lifecycle
		fx.Invoke(registerHooks),
	)
}

func logOptions(cfg config.Config) logger.Options {
	return logger.Options{
		Dir:     cfg.LogDir,
		Level:   cfg.LogLevel,
		Console: cfg.LogConsole,
	}
}
