package pattern

import (
	"fmt"
	"time"

	"github.com/SteelMorgan/logdoc/internal/domain"
	"github.com/rs/zerolog"
)

// DefaultFormats are the timestamp layouts written by common chat clients.
// Order defines match priority.
var DefaultFormats = []string{
	"[dd.MM.yyyy HH:mm:ss]",
	"[dd/MM/yyyy HH:mm:ss]",
	"dd.MM.yyyy HH:mm:ss",
	"dd/MM/yyyy HH:mm:ss",
}

// Registry is an ordered list of compiled patterns; earlier patterns win
type Registry struct {
	patterns []*Pattern
}

// NewRegistry compiles formats in order. Formats that fail to compile are
// logged and skipped; an error wrapping domain.ErrConfiguration is returned
// only when none of them compile.
func NewRegistry(logger zerolog.Logger, formats ...string) (*Registry, error) {
	r := &Registry{patterns: make([]*Pattern, 0, len(formats))}

	for _, format := range formats {
		p, err := Compile(format)
		if err != nil {
			logger.Error().
				Err(err).
				Str("pattern", format).
				Msg("Invalid date time pattern, skipping")
			continue
		}
		if repeated := p.Repeated(); len(repeated) > 0 {
			logger.Warn().
				Str("pattern", format).
				Strs("fields", repeated).
				Msg("Date time pattern sets a field more than once, the last one wins")
		}
		r.patterns = append(r.patterns, p)
	}

	if len(r.patterns) == 0 {
		return nil, fmt.Errorf("%w: none of the %d timestamp patterns is valid", domain.ErrConfiguration, len(formats))
	}

	return r, nil
}

// Patterns returns the compiled patterns in priority order
func (r *Registry) Patterns() []*Pattern {
	out := make([]*Pattern, len(r.patterns))
	copy(out, r.patterns)
	return out
}

// Strip extracts the leading timestamp of line.
// Patterns longer than the line are skipped. The first pattern that fits
// decides: if its prefix does not parse, the line has no timestamp and
// later patterns are not tried.
func (r *Registry) Strip(line string) (string, time.Time, error) {
	for _, p := range r.patterns {
		if len(line) < p.length {
			continue
		}
		ts, err := p.Parse(line[:p.length])
		if err != nil {
			return "", time.Time{}, err
		}
		return line[p.length:], ts, nil
	}

	return "", time.Time{}, fmt.Errorf("%w: line is shorter than every timestamp pattern", domain.ErrParse)
}
