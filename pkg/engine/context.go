package engine

import (
	"context"
	"errors"
	"net/http"
	"sync/atomic"

	"github.com/joeydtaylor/steeze-host/pkg/codec"
	"go.uber.org/zap"
)

// ErrResponseClosed is returned by a terminal action on a context that already
// completed, or that already started streaming its body.
var ErrResponseClosed = errors.New("response already closed")

// MaxBodyBytes caps DecodeJSON reads.
const MaxBodyBytes = 1 << 20

// Context carries one request's inbound state and its outbound response. It is owned
// by the dispatcher for the lifetime of a single request and must not be kept after
// the handler returns.
type Context struct {
	w   http.ResponseWriter
	r   *http.Request
	log *zap.Logger

	status  int
	closed  atomic.Bool
	started atomic.Bool
}

// NewContext wraps a request/response pair. A nil logger is replaced by a no-op one.
func NewContext(w http.ResponseWriter, r *http.Request, log *zap.Logger) *Context {
	if log == nil {
		log = zap.NewNop()
	}
	return &Context{w: w, r: r, log: log}
}

func (c *Context) Request() *http.Request   { return c.r }
func (c *Context) Method() string           { return c.r.Method }
func (c *Context) Path() string             { return c.r.URL.Path }
func (c *Context) Header() http.Header      { return c.w.Header() }
func (c *Context) Logger() *zap.Logger      { return c.log }
func (c *Context) Context() context.Context { return c.r.Context() }

// Segments returns every path segment, including those past controller/method.
func (c *Context) Segments() []string { return Segments(c.r.URL.Path) }

// SetStatus sets the status code used by the next terminal action or the first
// streamed write. Zero means 200.
func (c *Context) SetStatus(code int) { c.status = code }

// Closed reports whether a terminal action has completed the response.
func (c *Context) Closed() bool { return c.closed.Load() }

// Write streams body bytes. The status line and headers go out on the first call.
func (c *Context) Write(p []byte) (int, error) {
	if c.closed.Load() {
		return 0, ErrResponseClosed
	}
	if c.started.CompareAndSwap(false, true) {
		c.w.WriteHeader(c.statusOr(http.StatusOK))
	}
	return c.w.Write(p)
}

// DecodeJSON strictly decodes the request body into v.
func (c *Context) DecodeJSON(v any) error {
	body, err := codec.ReadLimited(c.r.Body, MaxBodyBytes)
	if err != nil {
		return err
	}
	return codec.JSONStrict.Unmarshal(body, v)
}

// Close completes the response if no terminal action did. A response that never
// wrote anything is sent as an empty body with the pending status.
func (c *Context) Close() {
	if !c.closed.CompareAndSwap(false, true) {
		return
	}
	if c.started.Load() {
		return
	}
	c.w.WriteHeader(c.statusOr(http.StatusOK))
}

// begin claims the terminal action for the caller.
func (c *Context) begin() error {
	if c.started.Load() {
		return ErrResponseClosed
	}
	if !c.closed.CompareAndSwap(false, true) {
		return ErrResponseClosed
	}
	return nil
}

func (c *Context) statusOr(def int) int {
	if c.status > 0 {
		return c.status
	}
	return def
}
