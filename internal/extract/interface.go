// Package extract turns a stream of timestamped log lines into documents.
package extract

import "github.com/SteelMorgan/logdoc/internal/domain"

// Extractor produces documents one at a time.
//
// Usage: check HasNext, consume Current, call Advance, repeat.
// Implementations are not safe for concurrent use.
type Extractor interface {
	// Advance assembles the next document and makes it current
	Advance() *domain.Document

	// HasNext reports whether the current document holds at least one line
	HasNext() bool

	// Current returns the document assembled by the last Advance
	Current() *domain.Document
}
