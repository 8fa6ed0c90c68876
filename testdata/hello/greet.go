package main

import (
	"strings"

	"github.com/joeydtaylor/steeze-host/pkg/engine"
)

type Greet struct{ engine.Base }

func (Greet) Methods() []engine.Method {
	return []engine.Method{
		// /Greet/Name/<who>
		engine.Handle("Name", func(ctx *engine.Context) {
			who := "stranger"
			if seg := ctx.Segments(); len(seg) > 2 {
				who = seg[2]
			}
			_ = ctx.SendJSON(map[string]string{"greeting": "hello, " + strings.TrimSpace(who)})
		}),
	}
}
