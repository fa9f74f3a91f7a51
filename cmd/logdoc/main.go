// logdoc splits timestamped chat logs into conversation documents and
// saves them to disk or indexes them in a search backend.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/SteelMorgan/logdoc/internal/checkpoint"
	"github.com/SteelMorgan/logdoc/internal/cli"
	"github.com/SteelMorgan/logdoc/internal/config"
	"github.com/SteelMorgan/logdoc/internal/metrics"
	"github.com/SteelMorgan/logdoc/internal/observability"
)

const version = "0.1.0"

func main() {
	os.Exit(run())
}

func run() int {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		return cli.ExitUsage
	}

	logger, logCloser, err := observability.NewLogger(observability.LoggerConfig{
		Level:  cfg.LogLevel,
		File:   cfg.LogFile,
		Format: cfg.LogFormat,
		Out:    os.Stderr,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		return cli.ExitUsage
	}
	defer logCloser.Close()

	logger.Debug().
		Str("version", version).
		Str("index_backend", cfg.IndexBackend).
		Msg("Starting logdoc")

	shutdown, err := observability.InitTracer(observability.TracerConfig{
		ServiceName:    "logdoc",
		ServiceVersion: version,
		Endpoint:       cfg.TracingEndpoint,
		Protocol:       cfg.TracingProtocol,
		Enabled:        cfg.TracingEnabled,
		SampleRatio:    cfg.TraceSampleRatio,
	})
	if err != nil {
		logger.Error().Err(err).Msg("Failed to initialize tracer")
	} else {
		defer func() {
			if err := shutdown(context.Background()); err != nil {
				logger.Warn().Err(err).Msg("Failed to flush traces")
			}
		}()
	}

	// SIGINT/SIGTERM stop the run between documents; pending output is still flushed
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app := &cli.App{
		Config:         cfg,
		Logger:         logger,
		Metrics:        metrics.New(),
		Stdout:         os.Stdout,
		Stderr:         os.Stderr,
		SummaryDefault: observability.IsTerminal(os.Stdout),
	}

	if cfg.CheckpointDB != "" {
		store, err := checkpoint.NewBoltDBStore(cfg.CheckpointDB, logger)
		if err != nil {
			logger.Error().Err(err).Str("path", cfg.CheckpointDB).Msg("Failed to open checkpoint store")
			return cli.ExitError
		}
		defer store.Close()
		app.Checkpoints = store
	}

	return cli.Execute(ctx, app, os.Args[1:])
}
