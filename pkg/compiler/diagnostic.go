package compiler

import (
	"fmt"

	"go.uber.org/zap"
)

// Severity classifies a diagnostic.
type Severity int

const (
	Warning Severity = iota
	Error
)

func (s Severity) String() string {
	if s == Error {
		return "error"
	}
	return "warning"
}

// Diagnostic is one compiler-reported problem with its source location.
type Diagnostic struct {
	Severity Severity
	File     string
	Line     int
	Column   int
	Code     string
	Message  string
}

func (d Diagnostic) String() string {
	return fmt.Sprintf("[%s;%d:%d] %s %s", d.File, d.Line, d.Column, d.Code, d.Message)
}

// Log reports diagnostics through l, warnings at warn level and errors at error level.
func Log(l *zap.Logger, diags ...Diagnostic) {
	for _, d := range diags {
		fields := []zap.Field{
			zap.String("file", d.File),
			zap.Int("line", d.Line),
			zap.Int("column", d.Column),
			zap.String("code", d.Code),
		}
		if d.Severity == Error {
			l.Error(d.String(), fields...)
		} else {
			l.Warn(d.String(), fields...)
		}
	}
}

func errorf(file, code, format string, args ...any) Diagnostic {
	return Diagnostic{Severity: Error, File: file, Code: code, Message: fmt.Sprintf(format, args...)}
}

func warnf(file, code, format string, args ...any) Diagnostic {
	return Diagnostic{Severity: Warning, File: file, Code: code, Message: fmt.Sprintf(format, args...)}
}

// Log reports every diagnostic of r, errors first.
func (r Result) Log(l *zap.Logger) { Log(l, r.Diagnostics()...) }
