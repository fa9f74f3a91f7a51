// Package cli provides the command-line interface for logdoc.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/SteelMorgan/logdoc/internal/checkpoint"
	"github.com/SteelMorgan/logdoc/internal/config"
	"github.com/SteelMorgan/logdoc/internal/metrics"
	"github.com/SteelMorgan/logdoc/internal/service"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

// Exit codes
const (
	ExitOK    = 0
	ExitError = 1 // the run failed
	ExitUsage = 2 // invalid arguments or configuration
)

// App carries what the commands need. main builds it once.
type App struct {
	Config      *config.Config
	Logger      zerolog.Logger
	Metrics     *metrics.Metrics
	Checkpoints checkpoint.Store       // nil disables --resume
	Backends    service.BackendFactory // nil connects to the configured backend

	Stdout io.Writer
	Stderr io.Writer

	// SummaryDefault is the default of --summary, usually whether stdout is a terminal
	SummaryDefault bool
}

// usageError marks errors caused by the command line itself
type usageError struct {
	err error
}

func (e *usageError) Error() string { return e.err.Error() }
func (e *usageError) Unwrap() error { return e.err }

// Execute runs the command line args and returns the exit code
func Execute(ctx context.Context, app *App, args []string) int {
	if app.Stdout == nil {
		app.Stdout = os.Stdout
	}
	if app.Stderr == nil {
		app.Stderr = os.Stderr
	}

	rootCmd := NewRootCommand(app)
	rootCmd.SetArgs(args)

	err := rootCmd.ExecuteContext(ctx)
	if err == nil {
		return ExitOK
	}

	_, _ = fmt.Fprintf(app.Stderr, "Error: %v\n", err)

	var uerr *usageError
	if errors.As(err, &uerr) {
		_, _ = fmt.Fprintln(app.Stderr)
		printUsage(app.Stderr)
		return ExitUsage
	}
	if service.IsUsageError(err) {
		return ExitUsage
	}
	return ExitError
}

// NewRootCommand creates the root cobra command. Anything that is not a
// complete save or index invocation prints the usage text.
func NewRootCommand(app *App) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "logdoc [command] [params]",
		Short:         "Split chat logs into conversation documents",
		Args:          cobra.ArbitraryArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			printUsage(cmd.OutOrStdout())
			return nil
		},
	}
	rootCmd.CompletionOptions.DisableDefaultCmd = true
	rootCmd.SetOut(app.Stdout)
	rootCmd.SetErr(app.Stderr)
	rootCmd.SetHelpFunc(func(cmd *cobra.Command, _ []string) {
		printUsage(cmd.OutOrStdout())
	})
	rootCmd.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return &usageError{err: err}
	})

	rootCmd.AddCommand(newSaveCommand(app))
	rootCmd.AddCommand(newIndexCommand(app))

	return rootCmd
}

func newService(app *App) (*service.ExtractService, error) {
	var opts []service.Option
	if app.Metrics != nil {
		opts = append(opts, service.WithMetrics(app.Metrics))
	}
	if app.Checkpoints != nil {
		opts = append(opts, service.WithCheckpoints(app.Checkpoints))
	}
	if app.Backends != nil {
		opts = append(opts, service.WithBackendFactory(app.Backends))
	}
	return service.NewExtractService(app.Config, app.Logger, opts...)
}
