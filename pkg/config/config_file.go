package config

import (
	"fmt"
	"os"

	toml "github.com/pelletier/go-toml/v2"
)

// FileConfig mirrors Config in TOML sections. Durations are strings and optional
// numbers and booleans are pointers so an absent key never overrides a default.
type FileConfig struct {
	Server struct {
		Host              string `toml:"host"`
		Port              *int   `toml:"port"`
		MaxWorkers        *int   `toml:"max_workers"`
		ShutdownGrace     string `toml:"shutdown_grace"`
		ReadHeaderTimeout string `toml:"read_header_timeout"`
	} `toml:"server"`

	Compiler struct {
		SourcesDir string `toml:"sources_dir"`
		Provider   string `toml:"provider"`
		Mode       string `toml:"mode"`
		GoBin      string `toml:"go_bin"`
		WorkDir    string `toml:"work_dir"`
		OutDir     string `toml:"out_dir"`
		Vet        *bool  `toml:"vet"`
	} `toml:"compiler"`

	Log struct {
		Dir          string   `toml:"dir"`
		Level        string   `toml:"level"`
		Console      *bool    `toml:"console"`
		BodyLogPaths []string `toml:"body_log_paths"`
	} `toml:"log"`

	Metrics struct {
		Listen    string   `toml:"listen"`
		SkipPaths []string `toml:"skip_paths"`
	} `toml:"metrics"`

	Watch struct {
		Enabled  *bool  `toml:"enabled"`
		Debounce string `toml:"debounce"`
	} `toml:"watch"`
}

// LoadFileConfig reads and parses a TOML config file. Unknown keys are an error.
func LoadFileConfig(path string) (FileConfig, error) {
	var fc FileConfig
	f, err := os.Open(path)
	if err != nil {
		return fc, err
	}
	defer f.Close()

	dec := toml.NewDecoder(f).DisallowUnknownFields()
	if err := dec.Decode(&fc); err != nil {
		return fc, fmt.Errorf("%s: %w", path, err)
	}
	return fc, nil
}

// ApplyFileConfig applies configuration from a file to cfg, leaving explicitly set
// flags alone.
func ApplyFileConfig(cfg *Config, fc FileConfig, changed map[string]bool) error {
	s := newConfigSetter(changed)

	s.setString("host", fc.Server.Host, &cfg.Host)
	s.setInt("port", fc.Server.Port, &cfg.Port)
	s.setInt("max-workers", fc.Server.MaxWorkers, &cfg.MaxWorkers)
	if err := s.setDuration("shutdown-grace", fc.Server.ShutdownGrace, &cfg.ShutdownGrace); err != nil {
		return err
	}
	if err := s.setDuration("read-header-timeout", fc.Server.ReadHeaderTimeout, &cfg.ReadHeaderTimeout); err != nil {
		return err
	}

	s.setString("dir", fc.Compiler.SourcesDir, &cfg.SourcesDir)
	s.setString("provider", fc.Compiler.Provider, &cfg.Provider)
	s.setString("mode", fc.Compiler.Mode, &cfg.Mode)
	s.setString("go-bin", fc.Compiler.GoBin, &cfg.GoBin)
	s.setString("work-dir", fc.Compiler.WorkDir, &cfg.WorkDir)
	s.setString("out-dir", fc.Compiler.OutDir, &cfg.OutDir)
	s.setBool("vet", fc.Compiler.Vet, &cfg.Vet)

	s.setString("log-dir", fc.Log.Dir, &cfg.LogDir)
	s.setString("log-level", fc.Log.Level, &cfg.LogLevel)
	s.setBool("log-console", fc.Log.Console, &cfg.LogConsole)
	s.setStrings("body-log-path", fc.Log.BodyLogPaths, &cfg.BodyLogPaths)

	s.setString("metrics-listen", fc.Metrics.Listen, &cfg.MetricsListen)
	s.setStrings("metrics-skip-path", fc.Metrics.SkipPaths, &cfg.MetricsSkipPaths)

	s.setBool("watch", fc.Watch.Enabled, &cfg.Watch)
	return s.setDuration("watch-debounce", fc.Watch.Debounce, &cfg.WatchDebounce)
}

// FileExists checks if a file exists at the given path.
func FileExists(p string) bool {
	_, err := os.Stat(p)
	return err == nil
}
