package service

import (
	"context"

	"github.com/SteelMorgan/logdoc/internal/extract"
	"github.com/SteelMorgan/logdoc/internal/writer"
	"github.com/rs/zerolog"
)

// DrainOptions bound a pull loop
type DrainOptions struct {
	// MaxDocuments stops the loop after this many delivery attempts; 0 is unlimited
	MaxDocuments uint64

	// SkipBelow drops documents whose ID is lower, without delivering them
	SkipBelow int

	// Progress, when set, is called every ProgressEvery attempted documents
	// with the ID of the last one
	Progress      func(lastID int)
	ProgressEvery uint64
}

// DrainResult counts what a pull loop did
type DrainResult struct {
	Produced      uint64
	Skipped       uint64
	Attempted     uint64
	Written       uint64
	WriteFailures uint64
	LastID        int // ID of the last attempted document, -1 when none
	Cancelled     bool
}

// Drain pulls documents from src and hands them to w until the source is
// exhausted, MaxDocuments is reached or ctx is cancelled. A failed write is
// logged and the loop continues. The caller closes w.
func Drain(ctx context.Context, src extract.Extractor, w writer.DocumentWriter, opts DrainOptions, logger zerolog.Logger) DrainResult {
	result := DrainResult{LastID: -1}

	for src.HasNext() {
		if opts.MaxDocuments > 0 && result.Attempted >= opts.MaxDocuments {
			logger.Info().
				Uint64("max_documents", opts.MaxDocuments).
				Msg("Document limit reached")
			break
		}
		if ctx.Err() != nil {
			result.Cancelled = true
			logger.Warn().
				Err(ctx.Err()).
				Uint64("attempted", result.Attempted).
				Msg("Run cancelled, stopping before the next document")
			break
		}

		doc := src.Current()
		result.Produced++

		if doc.ID < opts.SkipBelow {
			result.Skipped++
			src.Advance()
			continue
		}

		result.Attempted++
		result.LastID = doc.ID
		if err := w.Write(ctx, doc); err != nil {
			result.WriteFailures++
			logger.Error().
				Err(err).
				Int("doc_id", doc.ID).
				Msg("Failed to write document")
		} else {
			result.Written++
		}

		if opts.Progress != nil && opts.ProgressEvery > 0 && result.Attempted%opts.ProgressEvery == 0 {
			opts.Progress(doc.ID)
		}

		src.Advance()
	}

	return result
}
