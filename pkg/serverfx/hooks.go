package serverfx

import (
	"context"
	"errors"
	"net/http"

	"github.com/joeydtaylor/steeze-host/pkg/config"
	"github.com/joeydtaylor/steeze-host/pkg/server"
	"github.com/joeydtaylor/steeze-host/pkg/watch"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type appDeps struct {
	fx.In
	Logger *zap.Logger
	App    http.Handler `name:"app"`
}

type hookDeps struct {
	fx.In
	Logger  *zap.Logger
	Server  *server.Server
	Metrics http.Handler `name:"metrics"`
}

func registerHooks(lc fx.Lifecycle, cfg config.Config, d hookDeps) {
	var metricsSrv *server.Server
	if cfg.MetricsListen != "" {
		metricsSrv = server.New(server.Config{Addr: cfg.MetricsListen}, d.Metrics, d.Logger.Named("metrics"))
	}

	watchCtx, watchCancel := context.WithCancel(context.Background())
	watchDone := make(chan struct{})

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			if err := d.Server.Start(ctx); err != nil {
				return err
			}
			if metricsSrv != nil {
				if err := metricsSrv.Start(ctx); err != nil {
					_ = d.Server.Shutdown(ctx)
					return err
				}
			}

			if cfg.Watch && cfg.Provider != config.ProviderStatic {
				w := watch.New(cfg.SourcesDir, cfg.WatchDebounce, d.Logger.Named("watch"), nil)
				go func() {
					defer close(watchDone)
					if err := w.Run(watchCtx); err != nil {
						d.Logger.Error("source watcher stopped", zap.Error(err))
					}
				}()
			} else {
				close(watchDone)
			}

			d.Logger.Info("host ready", zap.String("url", d.Server.BaseURL()))
			return nil
		},
		OnStop: func(ctx context.Context) error {
			watchCancel()
			var errs []error
			if err := d.Server.Shutdown(ctx); err != nil {
				errs = append(errs, err)
			}
			if metricsSrv != nil {
				if err := metricsSrv.Shutdown(ctx); err != nil {
					errs = append(errs, err)
				}
			}
			select {
			case <-watchDone:
			case <-ctx.Done():
			}
			return errors.Join(errs...)
		},
	})
}
