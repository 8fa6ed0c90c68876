package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"runtime"
	"runtime/debug"
	"strings"

	"github.com/spf13/cobra"
	pflag "github.com/spf13/pflag"
	"go.uber.org/fx"

	"github.com/joeydtaylor/steeze-host/pkg/config"
	"github.com/joeydtaylor/steeze-host/pkg/serverfx"
)

const (
	ExitOK      = 0
	ExitStartup = 1
	ExitHelp    = 2
	ExitCompile = 3
)

const longHelp = `Compile a directory of Go sources into a module and serve its controllers over
HTTP. A request for /Controller/Method runs that method; /Controller runs Index and
/ runs Home/Index. Unknown routes go to the _ controller's HTTP404 method, or get a
bare 404.

Settings come from a TOML file, STEEZE_HOST_* environment variables and flags, in
increasing precedence. The positional arguments win over all three.`

var exampleUsage = strings.TrimSpace(`
  steeze-host 8080 ./app
  steeze-host 8080 ./app --debug --max-workers 64
  steeze-host --config steeze-host.toml --provider static
`)

// exitError carries the process exit code of a failed run.
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string { return e.err.Error() }
func (e *exitError) Unwrap() error { return e.err }

func getVersion() string {
	if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "" {
		return info.Main.Version
	}
	return "dev"
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

// run executes the command line and returns the process exit code.
func run(args []string, stdout, stderr io.Writer) int {
	var helpShown bool
	root := newRootCmd(&helpShown)
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)

	err := root.Execute()
	switch {
	case err == nil && helpShown:
		return ExitHelp
	case err == nil:
		return ExitOK
	}

	fmt.Fprintln(stderr, "error:", err)
	var ee *exitError
	if errors.As(err, &ee) {
		return ee.code
	}
	return ExitStartup
}

func newRootCmd(helpShown *bool) *cobra.Command {
	cfg := config.Default()
	var (
		cfgPath string
		dbg     bool
	)

	root := &cobra.Command{
		Use:           "steeze-host [port] [dir]",
		Short:         "Serve a directory of Go sources as an HTTP application",
		Long:          longHelp,
		Example:       exampleUsage,
		Version:       fmt.Sprintf("%s %s/%s", getVersion(), runtime.GOOS, runtime.GOARCH),
		Args:          cobra.MaximumNArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			changed := map[string]bool{}
			cmd.Flags().Visit(func(f *pflag.Flag) { changed[f.Name] = true })

			if err := applyArgs(&cfg, args, changed); err != nil {
				return err
			}
			if dbg {
				cfg.Mode = "debug"
				changed["mode"] = true
			}
			if err := resolveConfig(&cfg, cfgPath, changed); err != nil {
				return err
			}
			return serve(cmd.Context(), cfg)
		},
	}

	defaultHelp := root.HelpFunc()
	root.SetHelpFunc(func(c *cobra.Command, a []string) {
		*helpShown = true
		defaultHelp(c, a)
	})

	f := root.Flags()
	f.StringVar(&cfgPath, "config", "", "path to config file (default: $STEEZE_HOST_CONFIG or ./steeze-host.toml)")
	f.StringVar(&cfg.Host, "host", cfg.Host, "interface to listen on")
	f.IntVar(&cfg.Port, "port", cfg.Port, "port to listen on (1-65534)")
	f.StringVar(&cfg.SourcesDir, "dir", cfg.SourcesDir, "directory holding the module sources")
	f.StringVar(&cfg.Provider, "provider", cfg.Provider, "compile provider: plugin or static")
	f.StringVar(&cfg.Mode, "mode", cfg.Mode, "compile mode: optimized or debug")
	f.BoolVar(&dbg, "debug", false, "shorthand for --mode debug")
	f.StringVar(&cfg.GoBin, "go-bin", cfg.GoBin, "go toolchain binary used by the plugin provider")
	f.StringVar(&cfg.WorkDir, "work-dir", cfg.WorkDir, "directory the toolchain runs in (default: --dir)")
	f.StringVar(&cfg.OutDir, "out-dir", cfg.OutDir, "directory for compiled artifacts (default: system temp)")
	f.BoolVar(&cfg.Vet, "vet", cfg.Vet, "run go vet in debug mode and report findings as warnings")
	f.IntVar(&cfg.MaxWorkers, "max-workers", cfg.MaxWorkers, "maximum connections served at once (0: unbounded)")
	f.DurationVar(&cfg.ShutdownGrace, "shutdown-grace", cfg.ShutdownGrace, "time in-flight requests get on shutdown (0: close at once)")
	f.DurationVar(&cfg.ReadHeaderTimeout, "read-header-timeout", cfg.ReadHeaderTimeout, "time a client gets to send request headers (0: none)")
	f.StringVar(&cfg.LogDir, "log-dir", cfg.LogDir, "directory for system.log and http-access.log (empty: console only)")
	f.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "system log level")
	f.BoolVar(&cfg.LogConsole, "log-console", cfg.LogConsole, "also log to stdout")
	f.StringSliceVar(&cfg.BodyLogPaths, "body-log-path", cfg.BodyLogPaths, "path whose small JSON request bodies are access-logged (repeatable)")
	f.StringVar(&cfg.MetricsListen, "metrics-listen", cfg.MetricsListen, "address serving /metrics (empty: disabled)")
	f.StringSliceVar(&cfg.MetricsSkipPaths, "metrics-skip-path", cfg.MetricsSkipPaths, "path left out of request metrics (repeatable)")
	f.BoolVar(&cfg.Watch, "watch", cfg.Watch, "report source changes while running")
	f.DurationVar(&cfg.WatchDebounce, "watch-debounce", cfg.WatchDebounce, "quiet period before a batch of source changes is reported")

	return root
}

// applyArgs reads the positional [port] [dir] arguments. They count as explicitly
// set flags.
func applyArgs(cfg *config.Config, args []string, changed map[string]bool) error {
	if len(args) > 0 {
		p, err := config.ParsePort(args[0])
		if err != nil {
			return err
		}
		cfg.Port = p
		changed["port"] = true
	}
	if len(args) > 1 {
		cfg.SourcesDir = args[1]
		changed["dir"] = true
	}
	return nil
}

// resolveConfig layers the config file and environment under the flags, then
// validates. A missing file is only an error when it was asked for.
func resolveConfig(cfg *config.Config, path string, changed map[string]bool) error {
	explicit := path != ""
	if !explicit {
		path = config.DefaultPath()
	}
	switch {
	case config.FileExists(path):
		fc, err := config.LoadFileConfig(path)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		if err := config.ApplyFileConfig(cfg, fc, changed); err != nil {
			return err
		}
	case explicit:
		return fmt.Errorf("config file %s not found", path)
	}

	if err := config.ApplyEnvConfig(cfg, changed); err != nil {
		return err
	}
	return cfg.Validate()
}

func serve(ctx context.Context, cfg config.Config) error {
	app := fx.New(serverfx.Module(cfg))
	if err := app.Err(); err != nil {
		var ce *serverfx.CompileError
		if errors.As(err, &ce) {
			return &exitError{code: ExitCompile, err: ce}
		}
		return err
	}

	startCtx, cancel := context.WithTimeout(ctx, app.StartTimeout())
	defer cancel()
	if err := app.Start(startCtx); err != nil {
		return fmt.Errorf("start: %w", err)
	}

	<-app.Done()

	stopCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownGrace+app.StopTimeout())
	defer cancel()
	if err := app.Stop(stopCtx); err != nil {
		return fmt.Errorf("stop: %w", err)
	}
	return nil
}
