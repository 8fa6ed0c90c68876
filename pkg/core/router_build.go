package core

import (
	"net/http"

	chimd "github.com/go-chi/chi/v5/middleware"
	hmetrics "github.com/joeydtaylor/steeze-host/pkg/middleware/metrics"
	httpx "github.com/joeydtaylor/steeze-host/pkg/transport/httpx"
)

// BuildRouter mounts the dispatcher for reg behind the request-id, access-log and
// metrics middleware. Every path and method reaches the dispatcher; nothing else is
// mounted so no route can shadow a controller.
func BuildRouter(reg *Registry, d BuildDeps) http.Handler {
	r := d.Router
	if r == nil {
		r = httpx.NewChi()
	}
	r.Use(chimd.RequestID)
	if d.LogMW != nil {
		r.Use(d.LogMW.Middleware())
	}
	r.Use(hmetrics.Collect(
		hmetrics.WithURILabel(routeLabel),
		hmetrics.WithSkipPaths(d.MetricsSkip...),
	))

	disp := NewDispatcher(reg, d.Log)
	r.Any("/", disp)
	r.Any("/*", disp)
	r.NotFound(disp)
	return r.Mux()
}

// routeLabel keeps the metrics uri label to /controller/method.
func routeLabel(r *http.Request) string {
	c, m := Route(r.URL.Path)
	return "/" + c + "/" + m
}
