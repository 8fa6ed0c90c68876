package core

import (
	"errors"
	"fmt"
	"net/http"
	"runtime/debug"

	chimd "github.com/go-chi/chi/v5/middleware"
	"github.com/joeydtaylor/steeze-host/pkg/engine"
	hmetrics "github.com/joeydtaylor/steeze-host/pkg/middleware/metrics"
	"go.uber.org/zap"
)

var errFaultUnrenderable = errors.New("handler fault could not be rendered")

// Dispatcher routes each request to a controller method of one registry. It holds no
// mutable state and serves requests concurrently.
type Dispatcher struct {
	reg *Registry
	log *zap.Logger
}

func NewDispatcher(reg *Registry, log *zap.Logger) *Dispatcher {
	if log == nil {
		log = zap.NewNop()
	}
	if reg == nil {
		reg = &Registry{groups: map[string]*Group{}}
	}
	return &Dispatcher{reg: reg, log: log}
}

func (d *Dispatcher) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	controller, method := Route(r.URL.Path)
	log := d.log.With(
		zap.String("requestId", chimd.GetReqID(r.Context())),
		zap.String("controller", controller),
		zap.String("method", method),
	)
	ctx := engine.NewContext(w, r, log)

	outcome := d.serve(ctx, controller, method)
	if outcome == hmetrics.OutcomeHandled {
		hmetrics.ObserveDispatch(controller, method, outcome)
	} else {
		// misses carry client-chosen names; keep them out of the label set
		hmetrics.ObserveDispatch("", "", outcome)
	}
}

// serve delivers the request and turns a handler panic into a 500. It never lets a
// panic escape, so one failing request cannot take the server down.
func (d *Dispatcher) serve(ctx *engine.Context, controller, method string) (outcome string) {
	defer func() {
		v := recover()
		if v == nil {
			return
		}
		if v == http.ErrAbortHandler {
			panic(v)
		}
		outcome = hmetrics.OutcomeFault
		d.fault(ctx, v, debug.Stack())
	}()

	outcome = d.deliver(ctx, controller, method)
	ctx.Close()
	return outcome
}

// deliver tries controller/method, then the fallback controller's HTTP404 method,
// then gives up with a bare 404.
func (d *Dispatcher) deliver(ctx *engine.Context, controller, method string) string {
	if d.call(ctx, controller, method) {
		return hmetrics.OutcomeHandled
	}
	if controller != FallbackController && d.call(ctx, FallbackController, NotFoundMethod) {
		return hmetrics.OutcomeFallback
	}
	if err := ctx.NotFound(); err != nil {
		ctx.Logger().Debug("http: 404 not sent", zap.Error(err))
	}
	return hmetrics.OutcomeNotFound
}

func (d *Dispatcher) call(ctx *engine.Context, controller, method string) bool {
	g, ok := d.reg.Lookup(controller)
	if !ok {
		ctx.Logger().Debug("http: no such controller", zap.String("target", controller))
		return false
	}
	if !g.Call(method, ctx) {
		ctx.Logger().Debug("http: no such method", zap.String("target", controller+"/"+method))
		return false
	}
	return true
}

// fault reports v as a 500. If rendering v panics in turn, a minimal page is sent
// instead so the second panic never leaves the dispatcher.
func (d *Dispatcher) fault(ctx *engine.Context, v any, stack []byte) {
	defer func() {
		r := recover()
		if r == nil {
			return
		}
		ctx.Logger().Error("http: fault could not be rendered",
			zap.String("panic", fmt.Sprintf("%v", r)),
			zap.ByteString("stack", stack),
		)
		if err := ctx.InternalError(errFaultUnrenderable, nil); err != nil {
			ctx.Logger().Warn("http: response already closed, 500 not sent", zap.Error(err))
		}
	}()

	frames := engine.Chain(v, stack)
	ctx.Logger().Warn("http: handler fault",
		zap.String("error", frames[0].Message),
		zap.Int("chain", len(frames)),
		zap.ByteString("stack", stack),
	)
	if err := ctx.InternalError(v, stack); err != nil {
		ctx.Logger().Warn("http: response already closed, 500 not sent", zap.Error(err))
	}
}
