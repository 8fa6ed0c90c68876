package engine

// ImportPath is the import path compiled modules use to reach this package. Every
// module links against it.
const ImportPath = "github.com/joeydtaylor/steeze-host/pkg/engine"

// HandlerFunc is the invocation contract of a routable method: exactly one
// request-context parameter and no return value.
type HandlerFunc func(*Context)

// Controller is the capability a module type must carry to be discovered. The
// unexported method means only types embedding Base implement it.
type Controller interface {
	Methods() []Method
	controller()
}

// Base marks a type as a controller. Embed it and override Methods.
type Base struct{}

func (Base) controller() {}

// Methods on Base exposes nothing; controllers shadow it with their own table.
func (Base) Methods() []Method { return nil }

// Method is the registration descriptor of one method on a controller type.
//
// Func is untyped. The registry decides eligibility from its signature,
// so a func with a receiver parameter (a method expression) or extra parameters is
// listed but never routed.
type Method struct {
	Name   string
	Hidden bool
	Func   any
}

// Handle describes a routable method.
func Handle(name string, fn any) Method { return Method{Name: name, Func: fn} }

// Hide describes a method that must never be reachable over HTTP.
func Hide(name string, fn any) Method { return Method{Name: name, Hidden: true, Func: fn} }

// Type is one type exported by a compiled module.
type Type struct {
	Name  string
	Value any
}

// Export pairs a type name with a value of that type.
func Export(name string, v any) Type { return Type{Name: name, Value: v} }

// ExportsSymbol is the symbol a plugin module must define, either as
// `var Exports []engine.Type` or `func Exports() []engine.Type`.
const ExportsSymbol = "Exports"
