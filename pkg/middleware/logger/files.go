package logger

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

const (
	SystemLog = "system.log"
	AccessLog = "http-access.log"
)

// Options selects where a logger writes. An empty Dir disables the file sink.
type Options struct {
	Dir     string
	File    string
	Level   string
	Console bool

	// Output replaces stdout as the console sink; used by tests.
	Output io.Writer
}

// DefaultOptions logs at info to log/<file> and stdout.
func DefaultOptions(file string) Options {
	return Options{Dir: "log", File: file, Level: "info", Console: true}
}

func ensureLogDir(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create log dir: %w", err)
	}
	return nil
}

// NewLog builds a JSON logger tee'd over a rotated file and the console.
func NewLog(o Options) (*zap.Logger, error) {
	level := zap.InfoLevel
	if o.Level != "" {
		l, err := zapcore.ParseLevel(o.Level)
		if err != nil {
			return nil, fmt.Errorf("log level: %w", err)
		}
		level = l
	}

	cfg := zap.NewProductionEncoderConfig()
	cfg.MessageKey = zapcore.OmitKey
	cfg.EncodeTime = zapcore.ISO8601TimeEncoder

	var cores []zapcore.Core
	if o.Dir != "" && o.File != "" {
		if err := ensureLogDir(o.Dir); err != nil {
			return nil, err
		}
		w := zapcore.AddSync(&lumberjack.Logger{
			Filename:   filepath.Join(o.Dir, o.File),
			MaxSize:    50, // MB
			MaxBackups: 3,
			MaxAge:     7, // days
		})
		cores = append(cores, zapcore.NewCore(zapcore.NewJSONEncoder(cfg), w, level))
	}
	if o.Console {
		var console zapcore.WriteSyncer = zapcore.Lock(os.Stdout)
		if o.Output != nil {
			console = zapcore.AddSync(o.Output)
		}
		cores = append(cores, zapcore.NewCore(zapcore.NewJSONEncoder(cfg), console, level))
	}
	if len(cores) == 0 {
		return zap.NewNop(), nil
	}
	return zap.New(zapcore.NewTee(cores...)), nil
}

// MustLog is NewLog for callers that cannot recover from a bad logger setup.
func MustLog(o Options) *zap.Logger {
	l, err := NewLog(o)
	if err != nil {
		panic(err)
	}
	return l
}
