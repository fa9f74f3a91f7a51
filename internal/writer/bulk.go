package writer

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/SteelMorgan/logdoc/internal/domain"
	"github.com/SteelMorgan/logdoc/internal/retry"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// ErrClosed is returned by Write after Close
var ErrClosed = errors.New("bulk indexer is closed")

// BulkItem is one document ready for a bulk request
type BulkItem struct {
	ID   string
	Doc  domain.WireDocument
	Body []byte // JSON encoding of Doc
}

// ItemFailure describes a document the backend rejected
type ItemFailure struct {
	ID     string
	Status int
	Reason string
}

// BulkResult is the per-item outcome of one bulk request
type BulkResult struct {
	Items    int
	Failures []ItemFailure
}

// Backend performs bulk requests against a search store.
// An error means the whole request failed; rejected items are reported in BulkResult.
type Backend interface {
	Name() string
	Bulk(ctx context.Context, index string, items []BulkItem) (*BulkResult, error)
}

// BulkStats are the counters of a BulkIndexer
type BulkStats struct {
	Added    uint64
	Indexed  uint64
	Failed   uint64
	Requests uint64
}

// BulkIndexer buffers documents and sends them to a Backend in batches
type BulkIndexer struct {
	backend  Backend
	cfg      BatchConfig
	retryCfg retry.Config
	logger   zerolog.Logger
	tracer   trace.Tracer

	mu           sync.Mutex
	pending      []BulkItem
	pendingBytes int64
	closed       bool

	// base context of asynchronous flushes, cancelled when Close gives up
	ctx    context.Context
	cancel context.CancelFunc

	sem      chan struct{}
	inflight sync.WaitGroup

	stopTicker chan struct{}
	tickerDone chan struct{}

	executionID atomic.Int64
	added       atomic.Uint64
	indexed     atomic.Uint64
	failed      atomic.Uint64
	requests    atomic.Uint64
}

// NewBulkIndexer creates a bulk indexer over backend
func NewBulkIndexer(backend Backend, cfg BatchConfig, retryCfg retry.Config, logger zerolog.Logger) (*BulkIndexer, error) {
	if backend == nil {
		return nil, fmt.Errorf("%w: bulk backend is nil", domain.ErrConfiguration)
	}
	if cfg.Index == "" {
		return nil, fmt.Errorf("%w: index name is empty", domain.ErrConfiguration)
	}
	if cfg.MaxActions < 0 || cfg.MaxBytes < 0 || cfg.ConcurrentRequests < 0 || cfg.FlushInterval < 0 {
		return nil, fmt.Errorf("%w: bulk limits must not be negative", domain.ErrConfiguration)
	}
	if cfg.CloseTimeout <= 0 {
		cfg.CloseTimeout = DefaultBatchConfig().CloseTimeout
	}

	ctx, cancel := context.WithCancel(context.Background())
	w := &BulkIndexer{
		backend:  backend,
		cfg:      cfg,
		retryCfg: retryCfg,
		logger:   logger.With().Str("backend", backend.Name()).Str("index", cfg.Index).Logger(),
		tracer:   otel.Tracer("logdoc/writer"),
		ctx:      ctx,
		cancel:   cancel,
	}
	if cfg.ConcurrentRequests > 0 {
		w.sem = make(chan struct{}, cfg.ConcurrentRequests)
	}
	if cfg.FlushInterval > 0 {
		w.stopTicker = make(chan struct{})
		w.tickerDone = make(chan struct{})
		go w.flushPeriodically()
	}

	w.logger.Debug().
		Int("max_actions", cfg.MaxActions).
		Int64("max_bytes", cfg.MaxBytes).
		Int("concurrent_requests", cfg.ConcurrentRequests).
		Dur("flush_interval", cfg.FlushInterval).
		Msg("Bulk indexer initialized")

	return w, nil
}

// Write adds doc to the current batch and triggers a flush when a
// threshold is reached
func (w *BulkIndexer) Write(ctx context.Context, doc *domain.Document) error {
	wire := doc.Wire()
	body, err := wire.Marshal()
	if err != nil {
		w.failed.Add(1)
		return fmt.Errorf("%w: %v", domain.ErrIndexItem, err)
	}

	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return ErrClosed
	}
	w.pending = append(w.pending, BulkItem{ID: wire.ID, Doc: wire, Body: body})
	w.pendingBytes += int64(len(body))
	w.added.Add(1)

	var batch []BulkItem
	if w.thresholdReachedLocked() {
		batch = w.takeLocked()
	}
	w.mu.Unlock()

	// Accepted documents are not tied to the caller's context: only
	// Close may abandon them.
	if batch != nil {
		return w.dispatch(w.ctx, batch)
	}
	return nil
}

// Flush sends the current batch and waits for every request in flight
func (w *BulkIndexer) Flush(ctx context.Context) error {
	w.mu.Lock()
	batch := w.takeLocked()
	w.mu.Unlock()

	if batch != nil {
		if err := w.dispatch(ctx, batch); err != nil {
			return err
		}
	}
	return w.wait(ctx)
}

// Close flushes the remaining documents, waiting at most CloseTimeout.
// On timeout the requests still in flight are cancelled.
func (w *BulkIndexer) Close() error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return nil
	}
	w.closed = true
	w.mu.Unlock()

	if w.stopTicker != nil {
		close(w.stopTicker)
		<-w.tickerDone
	}

	ctx, cancel := context.WithTimeout(context.Background(), w.cfg.CloseTimeout)
	defer cancel()

	err := w.Flush(ctx)
	w.cancel()

	stats := w.Stats()
	if err != nil {
		w.logger.Error().
			Err(err).
			Dur("timeout", w.cfg.CloseTimeout).
			Uint64("indexed", stats.Indexed).
			Uint64("failed", stats.Failed).
			Msg("Bulk requests abandoned on close")
		return fmt.Errorf("failed to close bulk indexer: %w", err)
	}

	w.logger.Info().
		Uint64("added", stats.Added).
		Uint64("indexed", stats.Indexed).
		Uint64("failed", stats.Failed).
		Uint64("requests", stats.Requests).
		Msg("Bulk indexer closed")
	return nil
}

// Stats returns a snapshot of the counters
func (w *BulkIndexer) Stats() BulkStats {
	return BulkStats{
		Added:    w.added.Load(),
		Indexed:  w.indexed.Load(),
		Failed:   w.failed.Load(),
		Requests: w.requests.Load(),
	}
}

// ItemFailures returns the number of documents that were not indexed
func (w *BulkIndexer) ItemFailures() uint64 {
	return w.failed.Load()
}

func (w *BulkIndexer) thresholdReachedLocked() bool {
	if w.cfg.MaxActions > 0 && len(w.pending) >= w.cfg.MaxActions {
		return true
	}
	return w.cfg.MaxBytes > 0 && w.pendingBytes >= w.cfg.MaxBytes
}

// takeLocked detaches the pending batch; nil when empty
func (w *BulkIndexer) takeLocked() []BulkItem {
	if len(w.pending) == 0 {
		return nil
	}
	batch := w.pending
	w.pending = nil
	w.pendingBytes = 0
	return batch
}

// dispatch runs batch on the calling goroutine when ConcurrentRequests
// is 0, otherwise on a new goroutine once a slot is free. ctx bounds the
// wait for a slot and the synchronous request.
func (w *BulkIndexer) dispatch(ctx context.Context, batch []BulkItem) error {
	id := w.executionID.Add(1)

	if w.sem == nil {
		w.execute(ctx, id, batch)
		return nil
	}

	select {
	case w.sem <- struct{}{}:
	case <-ctx.Done():
		w.abandon(id, batch, ctx.Err())
		return ctx.Err()
	case <-w.ctx.Done():
		w.abandon(id, batch, w.ctx.Err())
		return w.ctx.Err()
	}

	w.inflight.Add(1)
	go func() {
		defer func() {
			<-w.sem
			w.inflight.Done()
		}()
		w.execute(w.ctx, id, batch)
	}()
	return nil
}

func (w *BulkIndexer) execute(ctx context.Context, id int64, batch []BulkItem) {
	ctx, span := w.tracer.Start(ctx, "bulk.flush", trace.WithAttributes(
		attribute.Int64("bulk.execution_id", id),
		attribute.Int("bulk.items", len(batch)),
		attribute.String("bulk.backend", w.backend.Name()),
	))
	defer span.End()

	start := time.Now()
	w.requests.Add(1)

	w.logger.Debug().
		Int64("execution_id", id).
		Int("items", len(batch)).
		Msg("Sending bulk request")

	result, err := retry.DoWithResult(ctx, w.retryCfg, w.logger, func() (*BulkResult, error) {
		return w.backend.Bulk(ctx, w.cfg.Index, batch)
	})
	if err != nil {
		w.failed.Add(uint64(len(batch)))
		span.RecordError(err)
		span.SetStatus(codes.Error, "bulk request failed")
		w.logger.Error().
			Err(err).
			Int64("execution_id", id).
			Int("items", len(batch)).
			Msg("Bulk request failed")
		return
	}

	for _, f := range result.Failures {
		w.logger.Error().
			Err(domain.ErrIndexItem).
			Int64("execution_id", id).
			Str("id", f.ID).
			Int("status", f.Status).
			Str("reason", f.Reason).
			Msg("Document rejected by index")
	}

	failed := len(result.Failures)
	if failed > len(batch) {
		failed = len(batch)
	}
	w.failed.Add(uint64(failed))
	w.indexed.Add(uint64(len(batch) - failed))
	span.SetAttributes(attribute.Int("bulk.failed", failed))

	w.logger.Debug().
		Int64("execution_id", id).
		Int("items", len(batch)).
		Int("failed", failed).
		Dur("took", time.Since(start)).
		Msg("Bulk request completed")
}

func (w *BulkIndexer) abandon(id int64, batch []BulkItem, cause error) {
	w.failed.Add(uint64(len(batch)))
	w.logger.Error().
		Err(cause).
		Int64("execution_id", id).
		Int("items", len(batch)).
		Msg("Bulk request abandoned")
}

func (w *BulkIndexer) wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		w.inflight.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("waiting for bulk requests: %w", ctx.Err())
	}
}

func (w *BulkIndexer) flushPeriodically() {
	defer close(w.tickerDone)

	ticker := time.NewTicker(w.cfg.FlushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-w.stopTicker:
			return
		case <-ticker.C:
			w.mu.Lock()
			batch := w.takeLocked()
			w.mu.Unlock()
			if batch != nil {
				_ = w.dispatch(w.ctx, batch)
			}
		}
	}
}
