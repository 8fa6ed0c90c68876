package logger

import "go.uber.org/fx"

// Module expects an Options value in the graph.
var Module = fx.Options(
	fx.Provide(ProvideLoggers),
	fx.Provide(ProvideLoggerMiddleware),
	fx.Provide(ProvideLogger),
)
