package domain

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDocument_AddLineStripsSlashes(t *testing.T) {
	doc := NewDocument(3)
	doc.AddLine("2017/01/01 12:00 a/b")
	doc.AddLine("///")

	assert.Equal(t, []string{"20170101 12:00 ab", ""}, doc.Lines)
	assert.Equal(t, 2, doc.Len())
	assert.False(t, doc.IsEmpty())
}

func TestDocument_String(t *testing.T) {
	doc := NewDocument(0)
	assert.Equal(t, "", doc.String())

	doc.AddLine("first")
	doc.AddLine("second")
	assert.Equal(t, "first"+LineSeparator+"second"+LineSeparator, doc.String())
	assert.Equal(t, 2, strings.Count(doc.String(), LineSeparator))
}

func TestDocument_Wire(t *testing.T) {
	doc := NewDocument(42)
	doc.AddLine("a")
	doc.AddLine("b")

	w := doc.Wire()
	assert.Equal(t, "42", w.ID)
	assert.Equal(t, []string{"a", "b"}, w.Text)

	// the wire form owns its lines
	w.Text[0] = "changed"
	assert.Equal(t, "a", doc.Lines[0])
}

func TestDocument_WireEmpty(t *testing.T) {
	w := NewDocument(0).Wire()
	assert.Equal(t, "0", w.ID)
	assert.Nil(t, w.Text)

	data, err := w.Marshal()
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":"0"}`, string(data))
}

func TestWireDocument_RoundTrip(t *testing.T) {
	doc := NewDocument(7)
	doc.AddLine("2017-01-01 12:00:00 started")
	doc.AddLine("  at line two")

	data, err := doc.Wire().Marshal()
	require.NoError(t, err)

	w, err := UnmarshalWire(data)
	require.NoError(t, err)

	back, err := w.Document()
	require.NoError(t, err)
	assert.Equal(t, doc, back)
}

func TestUnmarshalWire_IgnoresUnknownFields(t *testing.T) {
	w, err := UnmarshalWire([]byte(`{"id":"5","text":["x"],"score":1.5,"_meta":{"a":1}}`))
	require.NoError(t, err)
	assert.Equal(t, WireDocument{ID: "5", Text: []string{"x"}}, w)
}

func TestUnmarshalWire_Invalid(t *testing.T) {
	_, err := UnmarshalWire([]byte(`{"id":`))
	assert.Error(t, err)
}

func TestWireDocument_InvalidID(t *testing.T) {
	_, err := WireDocument{ID: "abc"}.Document()
	assert.Error(t, err)

	_, err = WireDocument{}.Document()
	assert.Error(t, err)
}

func TestRunStats_Throughput(t *testing.T) {
	start := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	stats := &RunStats{
		StartTime:        start,
		EndTime:          start.Add(4 * time.Second),
		DocumentsWritten: 10,
	}

	assert.Equal(t, 4*time.Second, stats.Duration())
	assert.InDelta(t, 2.5, stats.DocumentsPerSecond(), 1e-9)

	stats.EndTime = start
	assert.Zero(t, stats.DocumentsPerSecond())
}
