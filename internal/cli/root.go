package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"time"

	"github.com/spf13/cobra"
	"github.com/velozfibra/portal/internal/app"
	"github.com/velozfibra/portal/internal/config"
	"github.com/velozfibra/portal/internal/logger"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose bool
	Format  string // "text" | "json" | "yaml"

	// Open builds the application for a command run
	Open func(ctx context.Context, opts *RootOptions) (*app.App, error)
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json", "yaml"}

// NewRootCommand creates the root command for the portal CLI.
func NewRootCommand() *cobra.Command {
	return newRootCommand(&RootOptions{Open: openApp})
}

// Execute runs cmd and returns the process exit code. Failures other than
// bad input are logged at error level, and queued Sentry events are flushed
// before the process exits.
func Execute(cmd *cobra.Command, stderr io.Writer) int {
	defer logger.Flush(2 * time.Second)

	err := cmd.Execute()
	if err == nil {
		return ExitSuccess
	}

	fmt.Fprintln(stderr, "Error:", err)
	code := GetExitCode(err)
	if code == ExitFailure {
		slog.Error("command failed", "error", err)
	}
	return code
}

func newRootCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "portal",
		Short: "Veloz Fibra portal - goals and commissions",
		Long: `Track sales goals and the commissions they pay out.

Goals are stored in a single JSON document (file, SQLite or Postgres backed)
and every derived value (progress, commission, overdue) is computed on read.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !slices.Contains(ValidFormats, opts.Format) {
				return NewExitError(ExitCommandError, fmt.Sprintf("invalid format %q: must be one of %v", opts.Format, ValidFormats))
			}
			return nil
		},
	}

	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "debug logging")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (text|json|yaml)")

	cmd.AddCommand(NewGoalsCommand(opts))
	cmd.AddCommand(NewBackupCommand(opts))
	cmd.AddCommand(NewDigestCommand(opts))
	cmd.AddCommand(NewDBCommand(opts))

	return cmd
}

func openApp(ctx context.Context, opts *RootOptions) (*app.App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	level := cfg.LogLevel
	if opts.Verbose {
		level = "debug"
	}
	logger.Init(logger.Options{
		JSON:      cfg.LogJSON,
		Level:     level,
		SentryDSN: cfg.SentryDSN,
	})

	return app.New(ctx, cfg)
}

// withApp opens the application for the duration of fn.
func withApp(opts *RootOptions, cmd *cobra.Command, fn func(ctx context.Context, a *app.App) error) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	a, err := opts.Open(ctx, opts)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to initialize", err)
	}
	defer a.Close()

	return fn(ctx, a)
}
