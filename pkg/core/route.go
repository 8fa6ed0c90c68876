package core

import "github.com/joeydtaylor/steeze-host/pkg/engine"

const (
	DefaultController  = "Home"
	DefaultMethod      = "Index"
	FallbackController = "_"
	NotFoundMethod     = "HTTP404"
)

// Route maps a request path to its controller and method. Missing segments fall
// back to Home and Index; segments past the second are left to the handler.
func Route(path string) (controller, method string) {
	controller, method = DefaultController, DefaultMethod
	seg := engine.Segments(path)
	if len(seg) > 0 {
		controller = seg[0]
	}
	if len(seg) > 1 {
		method = seg[1]
	}
	return controller, method
}
