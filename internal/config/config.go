package config

import (
	"context"
	"fmt"
	"net"
	"os"
	"strconv"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/capcom6/live-reload/internal/watcher"
	"github.com/samber/lo"
	"github.com/urfave/cli/v3"
)

const (
	DefaultHost     = "localhost"
	DefaultPort     = 5678
	DefaultStep     = watcher.DefaultStep
	DefaultDebounce = watcher.DefaultDebounce
)

//nolint:gochecknoglobals // defaults
var (
	DefaultPaths    = []string{"./src", "./test", "./assets", "./index.html"}
	DefaultExcludes = []string{
		"**/.git/**",
		"**/node_modules/**",
		"**/__pycache__/**",
		"**/*.swp",
		"**/*.swx",
		"**/*~",
	}
)

type Config struct {
	Paths    []string
	Excludes []string
	Host     string
	Port     int
	Step     time.Duration
	Debounce time.Duration
	Debug    bool
}

func (c *Config) validate() error {
	if len(c.Paths) == 0 {
		return fmt.Errorf("%w: at least one path is required", ErrValidationFailed)
	}

	if c.Host == "" {
		return fmt.Errorf("%w: host is required", ErrValidationFailed)
	}

	if c.Port < 0 || c.Port > 65535 {
		return fmt.Errorf("%w: port %d is out of range", ErrValidationFailed, c.Port)
	}

	if c.Step < 0 || c.Debounce < 0 {
		return fmt.Errorf("%w: step and debounce must not be negative", ErrValidationFailed)
	}

	for _, pattern := range c.Excludes {
		if !doublestar.ValidatePattern(pattern) {
			return fmt.Errorf("%w: invalid exclude pattern %q", ErrValidationFailed, pattern)
		}
	}

	return nil
}

// Parse reads the configuration from command line arguments (without the
// program name) and RELOAD_* environment variables.
func Parse(args []string) (Config, error) {
	var cfg Config
	parsed := false

	cmd := &cli.Command{
		Name:      "live-reload",
		Usage:     "notify browsers over WebSocket when watched files change",
		ArgsUsage: "[path...]",
		Version:   version(),
		Writer:    os.Stdout,
		Flags: []cli.Flag{
			&cli.StringSliceFlag{
				Name:    "path",
				Aliases: []string{"p"},
				Usage:   "file or directory to watch",
				Value:   DefaultPaths,
				Sources: cli.EnvVars("RELOAD_PATHS"),
			},
			&cli.StringSliceFlag{
				Name:    "exclude",
				Aliases: []string{"e"},
				Usage:   "glob of paths to ignore, relative to the watched path",
				Value:   DefaultExcludes,
				Sources: cli.EnvVars("RELOAD_EXCLUDES"),
			},
			&cli.StringFlag{
				Name:    "host",
				Usage:   "listen host",
				Value:   DefaultHost,
				Sources: cli.EnvVars("RELOAD_HOST"),
			},
			&cli.IntFlag{
				Name:    "port",
				Usage:   "listen port",
				Value:   DefaultPort,
				Sources: cli.EnvVars("RELOAD_PORT"),
			},
			&cli.DurationFlag{
				Name:    "step",
				Usage:   "quiet period that closes a batch of changes",
				Value:   DefaultStep,
				Sources: cli.EnvVars("RELOAD_STEP"),
			},
			&cli.DurationFlag{
				Name:    "debounce",
				Usage:   "maximum time changes are collected into one batch",
				Value:   DefaultDebounce,
				Sources: cli.EnvVars("RELOAD_DEBOUNCE"),
			},
			&cli.BoolFlag{
				Name:    "debug",
				Usage:   "debug mode",
				Sources: cli.EnvVars("RELOAD_DEBUG"),
			},
		},
		Action: func(_ context.Context, cmd *cli.Command) error {
			parsed = true

			paths := cmd.StringSlice("path")
			if cmd.NArg() > 0 {
				if cmd.IsSet("path") {
					paths = append(paths, cmd.Args().Slice()...)
				} else {
					paths = cmd.Args().Slice()
				}
			}

			cfg.Paths = lo.Uniq(lo.Compact(paths))
			cfg.Excludes = lo.Uniq(lo.Compact(cmd.StringSlice("exclude")))
			cfg.Host = cmd.String("host")
			cfg.Port = cmd.Int("port")
			cfg.Step = cmd.Duration("step")
			cfg.Debounce = cmd.Duration("debounce")
			cfg.Debug = cmd.Bool("debug")

			return nil
		},
	}

	if err := cmd.Run(context.Background(), append([]string{cmd.Name}, args...)); err != nil {
		return cfg, fmt.Errorf("failed to parse flags: %w", err)
	}

	if !parsed {
		return cfg, ErrHelpShown
	}

	if err := cfg.validate(); err != nil {
		return cfg, err
	}

	return cfg, nil
}

// Addr returns the listen address in host:port form.
func (c Config) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}
