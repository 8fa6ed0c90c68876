package engine

import (
	"errors"
	"fmt"
	"runtime"
	"strings"
)

const unknownLocation = "unknown"

// maxChainDepth bounds Chain against self-referencing Unwrap implementations.
const maxChainDepth = 64

// Fault is an error that remembers where it was raised.
type Fault struct {
	Msg      string
	Location string
	Cause    error
}

func (f *Fault) Error() string {
	if f == nil {
		return nilFaultMsg
	}
	if f.Cause != nil {
		return f.Msg + ": " + f.Cause.Error()
	}
	return f.Msg
}

func (f *Fault) Unwrap() error {
	if f == nil {
		return nil
	}
	return f.Cause
}

const nilFaultMsg = "nil *engine.Fault"

// Errorf builds a Fault located at the caller.
func Errorf(format string, args ...any) *Fault {
	return &Fault{Msg: fmt.Sprintf(format, args...), Location: caller(2)}
}

// Wrap builds a Fault around cause, located at the caller.
func Wrap(cause error, msg string) *Fault {
	return &Fault{Msg: msg, Location: caller(2), Cause: cause}
}

// Frame is one entry of a fault chain.
type Frame struct {
	Message  string
	Location string
}

// Chain flattens v and everything it wraps, outermost first. Multi-error nodes are
// walked depth-first in order. Only errors built by Errorf or Wrap carry their own
// location; any other entry reports "unknown". When stack is given it is the
// location of the outermost entry unless that entry located itself.
//
// Error and Unwrap methods of foreign errors are run under recover, so a broken
// error value still yields a frame.
func Chain(v any, stack []byte) []Frame {
	var root error
	switch x := v.(type) {
	case nil:
		root = errors.New("Unknown error")
	case error:
		root = x
	default:
		root = fmt.Errorf("%v", x)
	}

	var frames []Frame
	var walk func(err error, depth int)
	walk = func(err error, depth int) {
		if err == nil || depth > maxChainDepth {
			return
		}
		frames = append(frames, frameOf(err))
		for _, e := range unwrap(err) {
			walk(e, depth+1)
		}
	}
	walk(root, 0)

	if len(stack) > 0 && frames[0].Location == unknownLocation {
		frames[0].Location = strings.TrimSpace(string(stack))
	}
	return frames
}

func frameOf(err error) Frame {
	if f, ok := err.(*Fault); ok {
		if f == nil {
			return Frame{Message: nilFaultMsg, Location: unknownLocation}
		}
		loc := f.Location
		if loc == "" {
			loc = unknownLocation
		}
		return Frame{Message: f.Msg, Location: loc}
	}
	return Frame{Message: errorText(err), Location: unknownLocation}
}

func errorText(err error) (msg string) {
	defer func() {
		if r := recover(); r != nil {
			msg = fmt.Sprintf("%T (Error() panicked: %v)", err, r)
		}
	}()
	return err.Error()
}

// unwrap returns what err wraps. A panicking Unwrap ends the chain there.
func unwrap(err error) (out []error) {
	defer func() {
		if recover() != nil {
			out = nil
		}
	}()
	switch u := err.(type) {
	case interface{ Unwrap() []error }:
		return u.Unwrap()
	case interface{ Unwrap() error }:
		if e := u.Unwrap(); e != nil {
			return []error{e}
		}
	}
	return nil
}

const faultHeader = `HTTP 500 - Internal Server Error
Due to an unforeseen error we are unable to execute your current request.

Details
`

// FaultPage renders the plain-text body of a 500 response.
func FaultPage(frames []Frame) string {
	var b strings.Builder
	b.WriteString(faultHeader)
	for _, f := range frames {
		fmt.Fprintf(&b, "==================================\n\nError: %s\n\nLocation:\n%s\n", f.Message, f.Location)
	}
	return b.String()
}

func caller(skip int) string {
	pc, file, line, ok := runtime.Caller(skip)
	if !ok {
		return unknownLocation
	}
	name := "?"
	if fn := runtime.FuncForPC(pc); fn != nil {
		name = fn.Name()
	}
	return fmt.Sprintf("%s:%d %s", file, line, name)
}
