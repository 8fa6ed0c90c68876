// Package config resolves host settings from defaults, a TOML file, STEEZE_HOST_*
// environment variables and command-line flags, in increasing precedence.
package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/joeydtaylor/steeze-host/pkg/compiler"
	"github.com/joeydtaylor/steeze-host/pkg/server"
	"go.uber.org/zap/zapcore"
)

const (
	ProviderPlugin = "plugin"
	ProviderStatic = "static"
)

// Config holds everything needed to compile a module and serve it.
type Config struct {
	Host              string
	Port              int
	MaxWorkers        int
	ShutdownGrace     time.Duration
	ReadHeaderTimeout time.Duration

	SourcesDir string
	Provider   string
	Mode       string
	GoBin      string
	WorkDir    string
	OutDir     string
	Vet        bool

	LogDir       string
	LogLevel     string
	LogConsole   bool
	BodyLogPaths []string

	MetricsListen    string
	MetricsSkipPaths []string

	Watch         bool
	WatchDebounce time.Duration
}

// Default returns a Config with default values.
func Default() Config {
	return Config{
		Host:          "localhost",
		Port:          8080,
		ShutdownGrace: 5 * time.Second,
		SourcesDir:    ".",
		Provider:      ProviderPlugin,
		Mode:          compiler.Optimized.String(),
		GoBin:         "go",
		Vet:           true,
		LogDir:        "log",
		LogLevel:      "info",
		LogConsole:    true,
		WatchDebounce: 500 * time.Millisecond,
	}
}

// Validate checks the configuration for errors and normalizes derived values.
func (c *Config) Validate() error {
	if !server.ValidPort(c.Port) {
		return fmt.Errorf("port %d out of range %d-%d", c.Port, server.MinPort, server.MaxPort)
	}
	if c.MaxWorkers < 0 {
		return fmt.Errorf("max-workers must not be negative")
	}
	if c.ShutdownGrace < 0 {
		return fmt.Errorf("shutdown-grace must not be negative")
	}

	c.Provider = strings.ToLower(strings.TrimSpace(c.Provider))
	switch c.Provider {
	case ProviderPlugin, ProviderStatic:
	default:
		return fmt.Errorf("unknown provider %q (want %s or %s)", c.Provider, ProviderPlugin, ProviderStatic)
	}

	m, err := compiler.ParseMode(c.Mode)
	if err != nil {
		return err
	}
	c.Mode = m.String()

	if c.LogLevel != "" {
		if _, err := zapcore.ParseLevel(c.LogLevel); err != nil {
			return fmt.Errorf("log-level: %w", err)
		}
	}
	if c.SourcesDir == "" {
		c.SourcesDir = "."
	}
	if c.Watch && c.WatchDebounce <= 0 {
		return fmt.Errorf("watch debounce must be positive")
	}
	return nil
}

// CompileMode is the parsed Mode. Call after Validate.
func (c Config) CompileMode() compiler.Mode {
	m, _ := compiler.ParseMode(c.Mode)
	return m
}

// Addr is the listen address of the application server.
func (c Config) Addr() string { return server.JoinAddr(c.Host, c.Port) }

// ServerConfig projects the fields the server needs.
func (c Config) ServerConfig() server.Config {
	return server.Config{
		Addr:              c.Addr(),
		MaxWorkers:        c.MaxWorkers,
		ShutdownGrace:     c.ShutdownGrace,
		ReadHeaderTimeout: c.ReadHeaderTimeout,
	}
}

// ParsePort parses a positional port argument.
func ParsePort(s string) (int, error) {
	p, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, fmt.Errorf("port %q is not a number", s)
	}
	if !server.ValidPort(p) {
		return 0, fmt.Errorf("port %d out of range %d-%d", p, server.MinPort, server.MaxPort)
	}
	return p, nil
}

// configSetter applies values only where the corresponding flag was not set
// explicitly.
type configSetter struct {
	changed map[string]bool
}

func newConfigSetter(changed map[string]bool) *configSetter {
	return &configSetter{changed: changed}
}

func (s *configSetter) setString(flag, value string, dst *string) {
	if value == "" || s.changed[flag] {
		return
	}
	*dst = value
}

func (s *configSetter) setInt(flag string, value *int, dst *int) {
	if value == nil || s.changed[flag] {
		return
	}
	*dst = *value
}

func (s *configSetter) setBool(flag string, value *bool, dst *bool) {
	if value == nil || s.changed[flag] {
		return
	}
	*dst = *value
}

func (s *configSetter) setStrings(flag string, value []string, dst *[]string) {
	if len(value) == 0 || s.changed[flag] {
		return
	}
	*dst = append([]string(nil), value...)
}

func (s *configSetter) setDuration(flag, value string, dst *time.Duration) error {
	if value == "" || s.changed[flag] {
		return nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return fmt.Errorf("parse %s: %w", flag, err)
	}
	*dst = d
	return nil
}

func (s *configSetter) setIntFromString(flag, value string, dst *int) error {
	if value == "" || s.changed[flag] {
		return nil
	}
	v, err := strconv.Atoi(value)
	if err != nil {
		return fmt.Errorf("parse %s: %w", flag, err)
	}
	*dst = v
	return nil
}

func (s *configSetter) setBoolFromString(flag, value string, dst *bool) error {
	if value == "" || s.changed[flag] {
		return nil
	}
	v, err := strconv.ParseBool(value)
	if err != nil {
		return fmt.Errorf("parse %s: %w", flag, err)
	}
	*dst = v
	return nil
}
