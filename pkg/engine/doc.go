// Package engine is the library every hosted module links against.
//
// It defines the marker capability (Controller, embedded through Base), the
// per-method registration descriptor (Method), the request context handed to every
// routable method (*Context) and the terminal response helpers on it. A routable
// method has the shape:
//
//	func Index(ctx *engine.Context) { _ = ctx.SendString("hello", "index.txt") }
//
// and is listed by its controller:
//
//	type Home struct{ engine.Base }
//
//	func (Home) Methods() []engine.Method {
//		return []engine.Method{engine.Handle("Index", Index)}
//	}
package engine
