package domain

import (
	"runtime"
	"strconv"
	"strings"
)

// LineSeparator terminates every line when a document is rendered as text
var LineSeparator = lineSeparator()

func lineSeparator() string {
	if runtime.GOOS == "windows" {
		return "\r\n"
	}
	return "\n"
}

// Document is a run of log lines grouped by timestamp proximity.
// Lines keep their original file order.
type Document struct {
	ID    int
	Lines []string
}

// NewDocument creates an empty document with the given identity
func NewDocument(id int) *Document {
	return &Document{ID: id}
}

// AddLine appends a line, stripping every '/' character
func (d *Document) AddLine(line string) {
	d.Lines = append(d.Lines, strings.ReplaceAll(line, "/", ""))
}

// Len returns the number of lines in the document
func (d *Document) Len() int {
	return len(d.Lines)
}

// IsEmpty reports whether the document holds no lines
func (d *Document) IsEmpty() bool {
	return len(d.Lines) == 0
}

// String renders the document with each line followed by LineSeparator
func (d *Document) String() string {
	var b strings.Builder
	for _, line := range d.Lines {
		b.WriteString(line)
		b.WriteString(LineSeparator)
	}
	return b.String()
}

// Wire converts the document to its search-index representation
func (d *Document) Wire() WireDocument {
	var text []string
	if len(d.Lines) > 0 {
		text = make([]string, len(d.Lines))
		copy(text, d.Lines)
	}
	return WireDocument{
		ID:   strconv.Itoa(d.ID),
		Text: text,
	}
}
