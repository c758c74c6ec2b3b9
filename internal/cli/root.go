// Package cli implements the histories command-line interface.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"slices"

	"github.com/spf13/cobra"

	"github.com/roach88/histories/internal/config"
)

// RootOptions holds global flags shared by all subcommands, and the
// configuration resolved from them before any subcommand runs.
type RootOptions struct {
	Verbose    bool
	Format     string // "text" or "json"
	ConfigFile string

	Config *config.Config
	Logger *slog.Logger
}

// ValidFormats lists the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root histories command with all subcommands.
func NewRootCommand() *cobra.Command {
	return newRootCommand(&RootOptions{})
}

func newRootCommand(opts *RootOptions) *cobra.Command {
	v := config.New()

	cmd := &cobra.Command{
		Use:   "histories",
		Short: "Store and serve a log of recent history records",
		Long: `histories keeps a small log of records (host, topic, message, created_at)
in SQLite or MongoDB and serves the ten most recent over HTTP.

Settings come from flags, HISTORIES_* environment variables, an optional
YAML config file and built-in defaults, in that order of precedence.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !slices.Contains(ValidFormats, opts.Format) {
				return NewExitError(ExitCommandError,
					fmt.Sprintf("invalid format %q: must be one of %v", opts.Format, ValidFormats))
			}

			if err := config.BindFlags(v, cmd.Flags()); err != nil {
				return WrapExitError(ExitCommandError, "failed to bind flags", err)
			}
			cfg, err := config.Load(v, opts.ConfigFile)
			if err != nil {
				return WrapExitError(ExitCommandError, "failed to load config", err)
			}
			opts.Config = cfg

			logger, err := newLogger(cfg.Log, opts.Verbose, cmd.ErrOrStderr())
			if err != nil {
				return WrapExitError(ExitCommandError, "failed to configure logging", err)
			}
			opts.Logger = logger
			if cfg.File != "" {
				logger.Debug("config loaded", "file", cfg.File)
			}
			return nil
		},
	}

	cmd.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return WrapExitError(ExitCommandError, "invalid flags", err)
	})

	pf := cmd.PersistentFlags()
	pf.BoolVarP(&opts.Verbose, "verbose", "v", false, "enable debug logging")
	pf.StringVar(&opts.Format, "format", "text", "output format (text|json)")
	pf.StringVar(&opts.ConfigFile, "config", "", "path to a YAML config file")
	pf.String("backend", "", "storage backend (sqlite|mongo)")
	pf.String("db", "", "path to the SQLite database file")
	pf.String("mongo-uri", "", "MongoDB connection string")
	pf.String("mongo-database", "", "MongoDB database name")
	pf.String("mongo-collection", "", "MongoDB collection name")
	pf.String("log-level", "", "log level (debug|info|warn|error)")
	pf.String("log-format", "", "log format (text|json)")

	cmd.AddCommand(
		NewServeCommand(opts),
		NewListCommand(opts),
		NewAddCommand(opts),
		NewDeleteCommand(opts),
		NewStatsCommand(opts),
		NewExportCommand(opts),
		NewImportCommand(opts),
		NewTestCommand(opts),
	)

	return cmd
}

// formatter returns an OutputFormatter writing to cmd's output streams.
func (o *RootOptions) formatter(cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{
		Format:    o.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   o.Verbose,
	}
}

// exactArgs is cobra.ExactArgs reporting a command error exit code.
func exactArgs(n int) cobra.PositionalArgs {
	return usageArgs(cobra.ExactArgs(n))
}

func maximumArgs(n int) cobra.PositionalArgs {
	return usageArgs(cobra.MaximumNArgs(n))
}

func usageArgs(check cobra.PositionalArgs) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if err := check(cmd, args); err != nil {
			return WrapExitError(ExitCommandError, "invalid arguments", err)
		}
		return nil
	}
}

// Execute runs the root command with args, reports any error in the
// selected output format and returns the process exit code.
func Execute(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	opts := &RootOptions{}
	cmd := newRootCommand(opts)
	cmd.SetArgs(args)
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)

	err := cmd.ExecuteContext(ctx)
	if err == nil {
		return ExitSuccess
	}

	var exitErr *ExitError
	if !errors.As(err, &exitErr) || !exitErr.Reported {
		f := &OutputFormatter{Format: opts.Format, Writer: stdout, ErrWriter: stderr, Verbose: opts.Verbose}
		if f.Format != "json" {
			f.Writer = stderr
		}
		_ = f.Error(errorCode(err), err.Error(), nil)
	}
	return GetExitCode(err)
}
