package core

import (
	"github.com/joeydtaylor/steeze-host/pkg/middleware/logger"
	httpx "github.com/joeydtaylor/steeze-host/pkg/transport/httpx"
	"go.uber.org/zap"
)

type BuildDeps struct {
	Log    *zap.Logger
	LogMW  *logger.Middleware
	Router httpx.Router

	// MetricsSkip lists exact paths left out of the request metrics.
	MetricsSkip []string
}
