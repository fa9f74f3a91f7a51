package writer

import (
	"context"
	"time"

	"github.com/SteelMorgan/logdoc/internal/domain"
)

// DocumentWriter delivers extracted documents to a sink
type DocumentWriter interface {
	// Write hands one document to the sink. A returned error concerns
	// this document only; the caller may keep writing.
	Write(ctx context.Context, doc *domain.Document) error

	// Flush forces delivery of everything buffered so far
	Flush(ctx context.Context) error

	// Close flushes pending documents and releases the sink
	Close() error
}

// FailureReporter is implemented by sinks that learn about rejected
// documents after Write has returned
type FailureReporter interface {
	ItemFailures() uint64
}

// BatchConfig configures bulk indexing
type BatchConfig struct {
	Index              string
	MaxActions         int           // flush after this many documents; 0 disables
	MaxBytes           int64         // flush once encoded documents reach this size; 0 disables
	ConcurrentRequests int           // flushes in flight; 0 flushes on the calling goroutine
	FlushInterval      time.Duration // periodic flush; 0 disables
	CloseTimeout       time.Duration // bound on the final flush in Close
}

// DefaultBatchConfig returns the bulk settings of the reference deployment
func DefaultBatchConfig() BatchConfig {
	return BatchConfig{
		Index:              "logindex",
		MaxActions:         1000,
		MaxBytes:           1 << 30,
		ConcurrentRequests: 1,
		CloseTimeout:       10 * time.Second,
	}
}
