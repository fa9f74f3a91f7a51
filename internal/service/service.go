package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/SteelMorgan/logdoc/internal/checkpoint"
	"github.com/SteelMorgan/logdoc/internal/config"
	"github.com/SteelMorgan/logdoc/internal/domain"
	"github.com/SteelMorgan/logdoc/internal/extract"
	"github.com/SteelMorgan/logdoc/internal/metrics"
	"github.com/SteelMorgan/logdoc/internal/observability"
	"github.com/SteelMorgan/logdoc/internal/writer"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// Run modes, also used as checkpoint key prefixes
const (
	ModeSave  = "save"
	ModeIndex = "index"
)

// checkpointEvery is how many documents pass between checkpoint updates
const checkpointEvery = 500

// BackendFactory connects to an index backend by name. The returned
// function releases the connection.
type BackendFactory func(ctx context.Context, name string) (writer.Backend, func() error, error)

// RunOptions are shared by save and index runs
type RunOptions struct {
	LogFile       string
	MaxGapMinutes int64
	MaxDocuments  uint64   // 0 is unlimited
	Patterns      []string // overrides the configured timestamp formats
	Resume        bool
	RunID         string // generated when empty
}

// SaveRequest writes every document to its own file
type SaveRequest struct {
	RunOptions
	OutputDir string
	Prefix    string
}

// IndexRequest sends documents to a search backend
type IndexRequest struct {
	RunOptions
	Index   string // INDEX_NAME when empty
	Backend string // INDEX_BACKEND when empty
}

// ExtractService runs save and index jobs
type ExtractService struct {
	cfg         *config.Config
	logger      zerolog.Logger
	metrics     *metrics.Metrics
	checkpoints checkpoint.Store
	backends    BackendFactory
	now         func() time.Time
}

// Option configures an ExtractService
type Option func(*ExtractService)

// WithMetrics records run counters in m
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *ExtractService) {
		s.metrics = m
	}
}

// WithCheckpoints enables --resume and progress checkpoints
func WithCheckpoints(store checkpoint.Store) Option {
	return func(s *ExtractService) {
		s.checkpoints = store
	}
}

// WithBackendFactory replaces the default backend connector
func WithBackendFactory(f BackendFactory) Option {
	return func(s *ExtractService) {
		s.backends = f
	}
}

// NewExtractService creates a new extract service
func NewExtractService(cfg *config.Config, logger zerolog.Logger, opts ...Option) (*ExtractService, error) {
	if cfg == nil {
		return nil, fmt.Errorf("%w: config is required", domain.ErrConfiguration)
	}

	s := &ExtractService{
		cfg:    cfg,
		logger: logger,
		now:    time.Now,
	}
	s.backends = s.connectBackend
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// SaveDocuments segments req.LogFile and stores each document as
// <OutputDir><Prefix><N>
func (s *ExtractService) SaveDocuments(ctx context.Context, req SaveRequest) (*domain.RunStats, error) {
	return s.run(ctx, ModeSave, req.OutputDir, req.RunOptions, func(ctx context.Context, logger zerolog.Logger, skipped int) (writer.DocumentWriter, func() error, error) {
		w, err := writer.NewDiskWriter(req.OutputDir, req.Prefix, logger)
		if err != nil {
			return nil, nil, err
		}
		// resumed runs keep the file names of a complete run
		w.ContinueAfter(skipped)
		return w, nil, nil
	})
}

// IndexDocuments segments req.LogFile and sends the documents to the
// index backend in bulk requests
func (s *ExtractService) IndexDocuments(ctx context.Context, req IndexRequest) (*domain.RunStats, error) {
	backendName := req.Backend
	if backendName == "" {
		backendName = s.cfg.IndexBackend
	}
	batchCfg := s.cfg.BatchConfig(req.Index)

	return s.run(ctx, ModeIndex, batchCfg.Index, req.RunOptions, func(ctx context.Context, logger zerolog.Logger, _ int) (writer.DocumentWriter, func() error, error) {
		backend, release, err := s.backends(ctx, backendName)
		if err != nil {
			return nil, nil, err
		}

		w, err := writer.NewBulkIndexer(backend, batchCfg, s.cfg.RetryConfig(), logger)
		if err != nil {
			if release != nil {
				_ = release()
			}
			return nil, nil, err
		}
		return w, release, nil
	})
}

type sinkFactory func(ctx context.Context, logger zerolog.Logger, skipped int) (writer.DocumentWriter, func() error, error)

func (s *ExtractService) run(ctx context.Context, mode, target string, opts RunOptions, newSink sinkFactory) (stats *domain.RunStats, err error) {
	runID := opts.RunID
	if runID == "" {
		runID = uuid.NewString()
	}

	stats = &domain.RunStats{
		RunID:      runID,
		Mode:       mode,
		SourcePath: opts.LogFile,
		Target:     target,
		StartTime:  s.now(),
	}
	logger := observability.RunLogger(s.logger, runID, mode, stats.StartTime)

	ctx, span := otel.Tracer("logdoc/service").Start(ctx, "logdoc."+mode)
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()
	span.SetAttributes(
		attribute.String("run.id", runID),
		attribute.String("log.file", opts.LogFile),
		attribute.String("run.target", target),
		attribute.Int64("segment.max_gap_minutes", opts.MaxGapMinutes),
	)

	skipBelow, err := s.resumePoint(ctx, mode, opts)
	if err != nil {
		return nil, err
	}

	patterns := opts.Patterns
	if len(patterns) == 0 {
		patterns = s.cfg.TimestampPatterns
	}
	extractOpts := []extract.Option{extract.WithLogger(logger)}
	if len(patterns) > 0 {
		extractOpts = append(extractOpts, extract.WithPatterns(patterns...))
	}

	src, err := extract.Open(opts.LogFile, opts.MaxGapMinutes, extractOpts...)
	if err != nil {
		return nil, err
	}
	defer src.Close()

	sink, release, err := newSink(ctx, logger, skipBelow)
	if err != nil {
		return nil, err
	}
	if release != nil {
		defer func() {
			if rerr := release(); rerr != nil {
				logger.Warn().Err(rerr).Msg("Failed to release index backend")
			}
		}()
	}

	logger.Info().
		Str("log_file", opts.LogFile).
		Int64("max_gap_minutes", opts.MaxGapMinutes).
		Str("target", target).
		Int("skip_below", skipBelow).
		Msg("Run started")

	drainOpts := DrainOptions{
		MaxDocuments: opts.MaxDocuments,
		SkipBelow:    skipBelow,
	}
	if s.checkpoints != nil {
		drainOpts.ProgressEvery = checkpointEvery
		drainOpts.Progress = func(lastID int) {
			s.saveCheckpoint(ctx, logger, mode, opts.LogFile, lastID)
		}
	}

	result := Drain(ctx, src, sink, drainOpts, logger)

	var closeErr error
	if cerr := sink.Close(); cerr != nil {
		closeErr = cerr
	}

	segStats := src.Stats()
	stats.LinesRead = segStats.LinesRead
	stats.LinesAccepted = segStats.LinesAccepted
	stats.LinesDropped = segStats.LinesDropped
	stats.DocumentsProduced = result.Produced
	stats.DocumentsSkipped = result.Skipped
	stats.DocumentsWritten = result.Written
	stats.WriteFailures = result.WriteFailures
	if reporter, ok := sink.(writer.FailureReporter); ok {
		stats.ItemFailures = reporter.ItemFailures()
	}
	stats.EndTime = s.now()

	if s.checkpoints != nil && result.LastID >= 0 {
		s.saveCheckpoint(ctx, logger, mode, opts.LogFile, result.LastID)
	}
	s.recordMetrics(logger, stats)

	span.SetAttributes(
		attribute.Int64("run.documents_written", int64(stats.DocumentsWritten)),
		attribute.Int64("run.lines_dropped", int64(stats.LinesDropped)),
	)

	logger.Info().
		Uint64("lines_read", stats.LinesRead).
		Uint64("lines_dropped", stats.LinesDropped).
		Uint64("documents", stats.DocumentsProduced).
		Uint64("written", stats.DocumentsWritten).
		Uint64("write_failures", stats.WriteFailures).
		Uint64("item_failures", stats.ItemFailures).
		Dur("duration", stats.Duration()).
		Bool("cancelled", result.Cancelled).
		Msg("Run finished")

	if closeErr != nil {
		return stats, fmt.Errorf("%s run finished with pending documents: %w", mode, closeErr)
	}
	return stats, nil
}

func (s *ExtractService) resumePoint(ctx context.Context, mode string, opts RunOptions) (int, error) {
	if !opts.Resume {
		return 0, nil
	}
	if s.checkpoints == nil {
		return 0, fmt.Errorf("%w: resume needs a checkpoint store (set CHECKPOINT_DB)", domain.ErrConfiguration)
	}

	cp, err := s.checkpoints.Get(ctx, mode, opts.LogFile)
	if err != nil {
		return 0, err
	}

	s.logger.Info().
		Str("log_file", opts.LogFile).
		Uint64("documents", cp.Documents).
		Time("updated_at", cp.UpdatedAt).
		Msg("Resuming from checkpoint")
	return int(cp.Documents), nil
}

func (s *ExtractService) saveCheckpoint(ctx context.Context, logger zerolog.Logger, mode, logFile string, lastID int) {
	// the checkpoint outlives a cancelled run
	ctx = context.WithoutCancel(ctx)

	cp := checkpoint.Checkpoint{
		Documents: uint64(lastID) + 1,
		LastID:    lastID,
		UpdatedAt: s.now().UTC(),
	}
	if err := s.checkpoints.Set(ctx, mode, logFile, cp); err != nil {
		logger.Warn().Err(err).Int("last_id", lastID).Msg("Failed to save checkpoint")
	}
}

func (s *ExtractService) recordMetrics(logger zerolog.Logger, stats *domain.RunStats) {
	if s.metrics == nil {
		return
	}
	s.metrics.Observe(stats)

	if s.cfg.MetricsTextfile == "" {
		return
	}
	if err := s.metrics.WriteTextfile(s.cfg.MetricsTextfile); err != nil {
		logger.Warn().Err(err).Msg("Failed to write metrics textfile")
	}
}

// IsUsageError reports whether err comes from invalid user input rather
// than from the environment
func IsUsageError(err error) bool {
	return errors.Is(err, domain.ErrConfiguration)
}
