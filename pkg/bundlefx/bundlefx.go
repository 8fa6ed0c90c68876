// bundlefx/bundlefx.go
package bundlefx

import (
	"github.com/joeydtaylor/steeze-host/pkg/middleware/logger"
	"github.com/joeydtaylor/steeze-host/pkg/middleware/metrics"
	"go.uber.org/fx"
)

// Module provides the ambient HTTP middleware: the system and access loggers and
// the metrics handler. It expects a logger.Options in the graph.
var Module = fx.Options(
	logger.Module,
	metrics.Module,
)
