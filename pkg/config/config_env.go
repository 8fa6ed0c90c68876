package config

import (
	"os"
	"strings"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "STEEZE_HOST_"

// ApplyEnvConfig applies STEEZE_HOST_* variables. They override the file but not
// explicitly set flags.
func ApplyEnvConfig(cfg *Config, changed map[string]bool) error {
	s := newConfigSetter(changed)

	s.setString("host", env("HOST"), &cfg.Host)
	if err := s.setIntFromString("port", env("PORT"), &cfg.Port); err != nil {
		return err
	}
	if err := s.setIntFromString("max-workers", env("MAX_WORKERS"), &cfg.MaxWorkers); err != nil {
		return err
	}
	if err := s.setDuration("shutdown-grace", env("SHUTDOWN_GRACE"), &cfg.ShutdownGrace); err != nil {
		return err
	}

	s.setString("dir", env("SOURCES"), &cfg.SourcesDir)
	s.setString("provider", env("PROVIDER"), &cfg.Provider)
	s.setString("mode", env("MODE"), &cfg.Mode)
	s.setString("go-bin", env("GO_BIN"), &cfg.GoBin)

	s.setString("log-dir", env("LOG_DIR"), &cfg.LogDir)
	s.setString("log-level", env("LOG_LEVEL"), &cfg.LogLevel)
	if p := env("BODY_LOG_PATHS"); p != "" {
		s.setStrings("body-log-path", strings.Split(p, ","), &cfg.BodyLogPaths)
	}

	s.setString("metrics-listen", env("METRICS_LISTEN"), &cfg.MetricsListen)
	if p := env("METRICS_SKIP_PATHS"); p != "" {
		s.setStrings("metrics-skip-path", strings.Split(p, ","), &cfg.MetricsSkipPaths)
	}
	return s.setBoolFromString("watch", env("WATCH"), &cfg.Watch)
}

func env(key string) string { return strings.TrimSpace(os.Getenv(EnvPrefix + key)) }

// envOr returns the value of the environment variable k, or def when unset.
func envOr(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

// DefaultPath is $STEEZE_HOST_CONFIG, or steeze-host.toml in the working directory.
func DefaultPath() string { return envOr(EnvPrefix+"CONFIG", "steeze-host.toml") }
