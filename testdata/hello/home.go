// Command hello is a sample module: build it with the plugin provider, e.g.
//
//	steeze-host 8080 ./testdata/hello
//
// A source that needs a prebuilt library names it on a line of its own:
//
//	//#include $HOME/lib/libgreeting.a
package main

import (
	"errors"
	"fmt"

	"github.com/joeydtaylor/steeze-host/pkg/engine"
)

// Exports is looked up by the host after the plugin is opened.
var Exports = []engine.Type{
	engine.Export("Home", Home{}),
	engine.Export("Greet", Greet{}),
	engine.Export("_", Missing{}),
}

type Home struct{ engine.Base }

func (Home) Methods() []engine.Method {
	return []engine.Method{
		engine.Handle("Index", func(ctx *engine.Context) {
			_ = ctx.SendString("<h1>hello from a module</h1>", "index.html")
		}),
		engine.Handle("Fail", func(ctx *engine.Context) {
			panic(engine.Wrap(errors.New("disk on fire"), "could not render"))
		}),
		engine.Hide("Secret", func(ctx *engine.Context) {}),
	}
}

type Missing struct{ engine.Base }

func (Missing) Methods() []engine.Method {
	return []engine.Method{
		engine.Handle("HTTP404", func(ctx *engine.Context) {
			ctx.SetStatus(404)
			_ = ctx.SendString(fmt.Sprintf("nothing at %s", ctx.Path()), "404.txt")
		}),
	}
}
