package writer

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/SteelMorgan/logdoc/internal/domain"
	"github.com/rs/zerolog"
)

// DiskWriter stores every document as its own text file named
// <dir><prefix><N>, N counting attempts from 1
type DiskWriter struct {
	dir    string
	prefix string
	count  int
	logger zerolog.Logger
}

// NewDiskWriter creates the output directory if needed
func NewDiskWriter(outputDir, prefix string, logger zerolog.Logger) (*DiskWriter, error) {
	if outputDir == "" {
		return nil, fmt.Errorf("%w: output directory is empty", domain.ErrConfiguration)
	}

	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return nil, fmt.Errorf("%w: failed to create output directory %s: %v", domain.ErrIO, outputDir, err)
	}

	dir := outputDir
	if !strings.HasSuffix(dir, string(filepath.Separator)) && !strings.HasSuffix(dir, "/") {
		dir += string(filepath.Separator)
	}

	logger.Debug().
		Str("output_dir", dir).
		Str("prefix", prefix).
		Msg("Disk writer initialized")

	return &DiskWriter{
		dir:    dir,
		prefix: prefix,
		logger: logger,
	}, nil
}

// Write stores doc in the next numbered file. The counter advances even
// when the write fails, so a later document never reuses a failed name.
func (w *DiskWriter) Write(ctx context.Context, doc *domain.Document) error {
	w.count++
	filename := w.dir + w.prefix + strconv.Itoa(w.count)

	if err := os.WriteFile(filename, []byte(doc.String()), 0o644); err != nil { // #nosec G306
		return fmt.Errorf("%w: document %d to %s: %v", domain.ErrWrite, doc.ID, filename, err)
	}

	w.logger.Debug().
		Int("doc_id", doc.ID).
		Int("lines", doc.Len()).
		Str("file", filename).
		Msg("Document saved")

	return nil
}

// ContinueAfter makes the next write use number n+1
func (w *DiskWriter) ContinueAfter(n int) {
	if n > w.count {
		w.count = n
	}
}

// Count returns the number of attempted writes
func (w *DiskWriter) Count() int {
	return w.count
}

// Dir returns the output directory with its trailing separator
func (w *DiskWriter) Dir() string {
	return w.dir
}

// Flush is a no-op: every Write goes straight to disk
func (w *DiskWriter) Flush(ctx context.Context) error {
	return nil
}

// Close is a no-op
func (w *DiskWriter) Close() error {
	return nil
}
