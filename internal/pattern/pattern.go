// Package pattern compiles fixed-width datetime patterns and matches them
// against the leading characters of log lines.
//
// Patterns use the Joda/Java letter conventions that chat clients print in
// their exported logs, e.g. "[dd.MM.yyyy HH:mm:ss]". Only fixed-width fields
// are accepted so that every pattern consumes an exact number of bytes.
package pattern

import (
	"fmt"
	"strings"
	"time"

	"github.com/SteelMorgan/logdoc/internal/domain"
)

type fieldKind int

const (
	fieldLiteral fieldKind = iota
	fieldYear4
	fieldYear2
	fieldMonth
	fieldMonthName
	fieldDay
	fieldHour24
	fieldHour12
	fieldMinute
	fieldSecond
	fieldFraction
	fieldAmPm
	fieldWeekday
)

// group names the calendar field a token sets. A pattern may set a field
// twice (e.g. "dd.mm.yyyy HH:mm" where minutes were meant to be months);
// the last occurrence wins.
func (k fieldKind) group() string {
	switch k {
	case fieldYear4, fieldYear2:
		return "year"
	case fieldMonth, fieldMonthName:
		return "month"
	case fieldDay:
		return "day"
	case fieldHour24, fieldHour12:
		return "hour"
	case fieldMinute:
		return "minute"
	case fieldSecond:
		return "second"
	case fieldFraction:
		return "fraction"
	case fieldAmPm:
		return "half-day"
	case fieldWeekday:
		return "weekday"
	default:
		return ""
	}
}

type token struct {
	kind  fieldKind
	text  string // literal text
	width int
}

var (
	shortMonths   = []string{"Jan", "Feb", "Mar", "Apr", "May", "Jun", "Jul", "Aug", "Sep", "Oct", "Nov", "Dec"}
	shortWeekdays = []string{"Sun", "Mon", "Tue", "Wed", "Thu", "Fri", "Sat"}
)

// Pattern is a compiled timestamp pattern. It is immutable and safe for concurrent use.
type Pattern struct {
	format   string
	tokens   []token
	length   int
	repeated []string // fields set more than once
}

// Compile parses a Joda-style datetime pattern.
//
// Supported fields: yyyy, yy, MM, MMM, dd, HH, hh, mm, ss, S..S (fraction), a, EEE.
// Text inside single quotes is literal, a doubled quote stands for itself;
// any other non-letter is literal.
func Compile(format string) (*Pattern, error) {
	if format == "" {
		return nil, fmt.Errorf("empty pattern")
	}

	p := &Pattern{format: format}
	seen := make(map[string]bool)
	hasField := false

	for i := 0; i < len(format); {
		c := format[i]
		switch {
		case c == '\'':
			text, next, err := quotedLiteral(format, i)
			if err != nil {
				return nil, err
			}
			p.appendLiteral(text)
			i = next

		case isLetter(c):
			j := i
			for j < len(format) && format[j] == c {
				j++
			}
			tok, err := fieldToken(c, j-i)
			if err != nil {
				return nil, fmt.Errorf("pattern %q: %w", format, err)
			}
			g := tok.kind.group()
			if seen[g] {
				p.repeated = append(p.repeated, g)
			}
			seen[g] = true
			hasField = true
			p.tokens = append(p.tokens, tok)
			p.length += tok.width
			i = j

		default:
			p.appendLiteral(string(c))
			i++
		}
	}

	if !hasField {
		return nil, fmt.Errorf("pattern %q has no date or time fields", format)
	}

	return p, nil
}

// MustCompile is like Compile but panics on error
func MustCompile(format string) *Pattern {
	p, err := Compile(format)
	if err != nil {
		panic(err)
	}
	return p
}

// Format returns the source pattern
func (p *Pattern) Format() string {
	return p.format
}

// Repeated returns the fields the pattern sets more than once.
// Parse keeps the value of the last occurrence.
func (p *Pattern) Repeated() []string {
	return p.repeated
}

// Length returns the exact number of bytes the pattern consumes from a line
func (p *Pattern) Length() int {
	return p.length
}

// Parse parses s, which must be exactly Length() bytes long.
// The resulting instant is in UTC.
func (p *Pattern) Parse(s string) (time.Time, error) {
	if len(s) != p.length {
		return time.Time{}, fmt.Errorf("%w: %q has length %d, pattern %q needs %d",
			domain.ErrParse, s, len(s), p.format, p.length)
	}

	var (
		year                 = 1970
		month                = 1
		day                  = 1
		hour, minute, second int
		nsec                 int
		hour12               = -1
		pm                   bool
		weekday              = -1
	)

	pos := 0
	for _, t := range p.tokens {
		chunk := s[pos : pos+t.width]
		switch t.kind {
		case fieldLiteral:
			if chunk != t.text {
				return time.Time{}, p.errorf(s, "expected %q at offset %d, got %q", t.text, pos, chunk)
			}
		case fieldMonthName:
			idx := indexFold(shortMonths, chunk)
			if idx < 0 {
				return time.Time{}, p.errorf(s, "unknown month name %q", chunk)
			}
			month = idx + 1
		case fieldWeekday:
			weekday = indexFold(shortWeekdays, chunk)
			if weekday < 0 {
				return time.Time{}, p.errorf(s, "unknown weekday %q", chunk)
			}
		case fieldAmPm:
			switch {
			case strings.EqualFold(chunk, "AM"):
				pm = false
			case strings.EqualFold(chunk, "PM"):
				pm = true
			default:
				return time.Time{}, p.errorf(s, "invalid half-day marker %q", chunk)
			}
		default:
			n, ok := atoi(chunk)
			if !ok {
				return time.Time{}, p.errorf(s, "expected digits at offset %d, got %q", pos, chunk)
			}
			switch t.kind {
			case fieldYear4:
				year = n
			case fieldYear2:
				// same pivot as the time package: 69-99 -> 19xx
				if n >= 69 {
					year = 1900 + n
				} else {
					year = 2000 + n
				}
			case fieldMonth:
				month = n
			case fieldDay:
				day = n
			case fieldHour24:
				hour = n
			case fieldHour12:
				hour12 = n
			case fieldMinute:
				minute = n
			case fieldSecond:
				second = n
			case fieldFraction:
				nsec = n
				for w := t.width; w < 9; w++ {
					nsec *= 10
				}
			}
		}
		pos += t.width
	}

	if hour12 >= 0 {
		if hour12 < 1 || hour12 > 12 {
			return time.Time{}, p.errorf(s, "hour %d out of range 1-12", hour12)
		}
		hour = hour12 % 12
		if pm {
			hour += 12
		}
	}

	if month < 1 || month > 12 {
		return time.Time{}, p.errorf(s, "month %d out of range", month)
	}
	if day < 1 || day > daysIn(time.Month(month), year) {
		return time.Time{}, p.errorf(s, "day %d out of range for %04d-%02d", day, year, month)
	}
	if hour > 23 {
		return time.Time{}, p.errorf(s, "hour %d out of range", hour)
	}
	if minute > 59 {
		return time.Time{}, p.errorf(s, "minute %d out of range", minute)
	}
	if second > 59 {
		return time.Time{}, p.errorf(s, "second %d out of range", second)
	}

	ts := time.Date(year, time.Month(month), day, hour, minute, second, nsec, time.UTC)
	if weekday >= 0 && int(ts.Weekday()) != weekday {
		return time.Time{}, p.errorf(s, "%s is not a %s", ts.Format("2006-01-02"), shortWeekdays[weekday])
	}

	return ts, nil
}

func (p *Pattern) errorf(s, format string, args ...interface{}) error {
	return fmt.Errorf("%w: %q does not match %q: %s", domain.ErrParse, s, p.format, fmt.Sprintf(format, args...))
}

func (p *Pattern) appendLiteral(text string) {
	if text == "" {
		return
	}
	// merge adjacent literals so Parse compares them in one go
	if n := len(p.tokens); n > 0 && p.tokens[n-1].kind == fieldLiteral {
		p.tokens[n-1].text += text
		p.tokens[n-1].width += len(text)
	} else {
		p.tokens = append(p.tokens, token{kind: fieldLiteral, text: text, width: len(text)})
	}
	p.length += len(text)
}

// quotedLiteral reads a '...' section starting at format[start]
func quotedLiteral(format string, start int) (string, int, error) {
	j := start + 1
	if j < len(format) && format[j] == '\'' {
		return "'", j + 1, nil
	}

	var b strings.Builder
	for {
		if j >= len(format) {
			return "", 0, fmt.Errorf("pattern %q: unterminated quote at offset %d", format, start)
		}
		if format[j] == '\'' {
			if j+1 < len(format) && format[j+1] == '\'' {
				b.WriteByte('\'')
				j += 2
				continue
			}
			return b.String(), j + 1, nil
		}
		b.WriteByte(format[j])
		j++
	}
}

func fieldToken(c byte, n int) (token, error) {
	switch {
	case c == 'y' && n == 4:
		return token{kind: fieldYear4, width: 4}, nil
	case c == 'y' && n == 2:
		return token{kind: fieldYear2, width: 2}, nil
	case c == 'M' && n == 2:
		return token{kind: fieldMonth, width: 2}, nil
	case c == 'M' && n == 3:
		return token{kind: fieldMonthName, width: 3}, nil
	case c == 'd' && n == 2:
		return token{kind: fieldDay, width: 2}, nil
	case c == 'H' && n == 2:
		return token{kind: fieldHour24, width: 2}, nil
	case c == 'h' && n == 2:
		return token{kind: fieldHour12, width: 2}, nil
	case c == 'm' && n == 2:
		return token{kind: fieldMinute, width: 2}, nil
	case c == 's' && n == 2:
		return token{kind: fieldSecond, width: 2}, nil
	case c == 'S' && n <= 9:
		return token{kind: fieldFraction, width: n}, nil
	case c == 'a' && n == 1:
		return token{kind: fieldAmPm, width: 2}, nil
	case c == 'E' && n == 3:
		return token{kind: fieldWeekday, width: 3}, nil
	default:
		return token{}, fmt.Errorf("unsupported or variable-width field %q", strings.Repeat(string(c), n))
	}
}

func isLetter(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func atoi(s string) (int, bool) {
	n := 0
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c < '0' || c > '9' {
			return 0, false
		}
		n = n*10 + int(c-'0')
	}
	return n, true
}

func indexFold(names []string, s string) int {
	for i, name := range names {
		if strings.EqualFold(name, s) {
			return i
		}
	}
	return -1
}

func daysIn(m time.Month, year int) int {
	return time.Date(year, m+1, 0, 0, 0, 0, 0, time.UTC).Day()
}
