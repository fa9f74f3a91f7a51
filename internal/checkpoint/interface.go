package checkpoint

import (
	"context"
	"time"
)

// Checkpoint records how far a previous run got through a log file
type Checkpoint struct {
	Documents uint64    `json:"documents"` // documents handed to the sink, skipped on resume
	LastID    int       `json:"last_id"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Store stores and retrieves run checkpoints.
// Keys combine the run mode with the absolute path of the log file.
type Store interface {
	// Get retrieves the checkpoint; the zero Checkpoint when none is stored
	Get(ctx context.Context, mode, filePath string) (Checkpoint, error)

	// Set stores the checkpoint
	Set(ctx context.Context, mode, filePath string, cp Checkpoint) error

	// Delete removes the checkpoint
	Delete(ctx context.Context, mode, filePath string) error

	// List returns all stored checkpoints by key
	List(ctx context.Context) (map[string]Checkpoint, error)

	// Close closes the store
	Close() error
}
