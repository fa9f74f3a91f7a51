package extract

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strings"
	"time"

	"github.com/SteelMorgan/logdoc/internal/domain"
	"github.com/SteelMorgan/logdoc/internal/pattern"
	"github.com/rs/zerolog"
)

// Unbounded is the gap threshold that never splits a document
const Unbounded int64 = math.MaxInt64

const millisPerMinute = 60 * 1000

// Stats are the line and document counters of a Segmenter
type Stats struct {
	LinesRead     uint64
	LinesAccepted uint64
	LinesDropped  uint64
	Documents     uint64 // documents holding at least one line
}

// Segmenter groups consecutive lines whose timestamps are at most a given
// gap apart into documents. It reads its source once, front to back.
type Segmenter struct {
	reader   *bufio.Reader
	closer   io.Closer
	patterns *pattern.Registry
	logger   zerolog.Logger

	maxGapMillis int64

	pending    string // timestamp-stripped line that opened the next document
	hasPending bool
	last       time.Time
	hasLast    bool
	eof        bool

	nextID  int
	current *domain.Document
	lineNum int
	stats   Stats
}

type options struct {
	formats []string
	logger  zerolog.Logger
	closer  io.Closer
}

// Option configures a Segmenter
type Option func(*options)

// WithPatterns sets the timestamp formats, in priority order
func WithPatterns(formats ...string) Option {
	return func(o *options) {
		o.formats = formats
	}
}

// WithLogger sets the logger used for per-line diagnostics
func WithLogger(logger zerolog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithCloser hands ownership of the source's underlying resource to the Segmenter
func WithCloser(c io.Closer) Option {
	return func(o *options) {
		o.closer = c
	}
}

// New creates a Segmenter over src and assembles the first document.
// maxGapMinutes must be non-negative; values too large to express in
// milliseconds mean the gap is unbounded.
func New(src io.Reader, maxGapMinutes int64, opts ...Option) (*Segmenter, error) {
	o := options{
		formats: pattern.DefaultFormats,
		logger:  zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(&o)
	}

	if maxGapMinutes < 0 {
		return nil, fmt.Errorf("%w: max gap must be non-negative, got %d minutes", domain.ErrConfiguration, maxGapMinutes)
	}

	registry, err := pattern.NewRegistry(o.logger, o.formats...)
	if err != nil {
		return nil, err
	}

	s := &Segmenter{
		reader:       bufio.NewReaderSize(src, 64*1024),
		closer:       o.closer,
		patterns:     registry,
		logger:       o.logger,
		maxGapMillis: gapMillis(maxGapMinutes),
	}
	s.Advance()

	return s, nil
}

// Open opens path and creates a Segmenter that owns the file handle.
// Close releases it.
func Open(path string, maxGapMinutes int64, opts ...Option) (*Segmenter, error) {
	f, err := os.Open(path) // #nosec G304 -- user-provided paths are expected
	if err != nil {
		return nil, fmt.Errorf("%w: failed to open log file %s: %v", domain.ErrIO, path, err)
	}

	s, err := New(f, maxGapMinutes, append(opts, WithCloser(f))...)
	if err != nil {
		f.Close()
		return nil, err
	}

	return s, nil
}

func gapMillis(maxGapMinutes int64) int64 {
	if maxGapMinutes >= math.MaxInt64/millisPerMinute {
		return Unbounded
	}
	return maxGapMinutes * millisPerMinute
}

// Current returns the document assembled by the last Advance.
// It is empty once the source is exhausted.
func (s *Segmenter) Current() *domain.Document {
	return s.current
}

// HasNext reports whether the current document holds at least one line
func (s *Segmenter) HasNext() bool {
	return s.current != nil && !s.current.IsEmpty()
}

// Advance assembles the next document.
//
// The line that closed the previous document opens this one. Lines are read
// until a timestamp lies more than the gap after its predecessor or the
// source ends. Lines without a recognizable timestamp are dropped.
func (s *Segmenter) Advance() *domain.Document {
	doc := domain.NewDocument(s.nextID)
	s.nextID++

	if s.hasPending {
		doc.AddLine(s.pending)
		s.pending = ""
		s.hasPending = false
	}

	for !s.eof {
		line, ok := s.readLine()
		if !ok {
			break
		}

		content, ts, err := s.patterns.Strip(line)
		if err != nil {
			s.stats.LinesDropped++
			s.logger.Debug().
				Err(err).
				Int("line", s.lineNum).
				Str("text", line).
				Msg("Error parsing line, skipping")
			continue
		}
		s.stats.LinesAccepted++

		aboveMax := s.gapAboveMax(ts)
		s.last = ts
		s.hasLast = true
		if aboveMax {
			s.pending = content
			s.hasPending = true
			break
		}
		doc.AddLine(content)
	}

	if !doc.IsEmpty() {
		s.stats.Documents++
	}
	s.current = doc
	return doc
}

func (s *Segmenter) gapAboveMax(ts time.Time) bool {
	return s.hasLast && ts.UnixMilli()-s.last.UnixMilli() > s.maxGapMillis
}

// readLine returns the next line without its terminator.
// Read errors are logged and end the stream.
func (s *Segmenter) readLine() (string, bool) {
	line, err := s.reader.ReadString('\n')
	if err != nil {
		s.eof = true
		if !errors.Is(err, io.EOF) {
			s.logger.Error().
				Err(err).
				Int("line", s.lineNum).
				Msg("Error while reading log, treating as end of input")
			return "", false
		}
		if line == "" {
			return "", false
		}
	}

	s.lineNum++
	s.stats.LinesRead++
	line = strings.TrimSuffix(line, "\n")
	line = strings.TrimSuffix(line, "\r")
	return line, true
}

// Stats returns the counters accumulated so far
func (s *Segmenter) Stats() Stats {
	return s.stats
}

// Close releases the underlying source, if the Segmenter owns one
func (s *Segmenter) Close() error {
	if s.closer == nil {
		return nil
	}
	err := s.closer.Close()
	s.closer = nil
	return err
}
