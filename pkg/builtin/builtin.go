// Package builtin is the module linked into the host binary, served by the static
// provider when no sources are compiled at runtime.
package builtin

import (
	"fmt"
	"net/http"
	"time"

	"github.com/joeydtaylor/steeze-host/pkg/compiler"
	"github.com/joeydtaylor/steeze-host/pkg/engine"
)

const Name = "builtin"

const welcome = `<!doctype html>
<html>
<head><meta charset="utf-8"><title>steeze-host</title></head>
<body>
<h1>It works</h1>
<p>This host is serving its built-in module. Point it at a directory of sources to
serve your own controllers: <code>steeze-host 8080 ./app</code>.</p>
</body>
</html>
`

type Home struct{ engine.Base }

func (Home) Methods() []engine.Method {
	return []engine.Method{
		engine.Handle("Index", index),
	}
}

func index(ctx *engine.Context) { _ = ctx.SendString(welcome, "index.html") }

// Health answers liveness probes.
type Health struct {
	engine.Base
	started time.Time
}

func (h *Health) Methods() []engine.Method {
	return []engine.Method{
		engine.Handle("Index", func(ctx *engine.Context) {
			_ = ctx.SendJSON(map[string]any{
				"status": "ok",
				"uptime": time.Since(h.started).Round(time.Second).String(),
			})
		}),
	}
}

// NotFound is exported as the fallback controller.
type NotFound struct{ engine.Base }

func (NotFound) Methods() []engine.Method {
	return []engine.Method{
		engine.Handle("HTTP404", notFound),
	}
}

func notFound(ctx *engine.Context) {
	ctx.SetStatus(http.StatusNotFound)
	_ = ctx.SendString(fmt.Sprintf("404 page not found: %s\n", ctx.Path()), "404.txt")
}

// Types is the export table of the built-in module.
func Types() []engine.Type {
	return []engine.Type{
		engine.Export("Home", Home{}),
		engine.Export("Health", &Health{started: time.Now()}),
		engine.Export("_", NotFound{}),
	}
}

// Provider returns the static provider serving this module.
func Provider() *compiler.StaticProvider { return compiler.NewStatic(Name, Types()...) }
