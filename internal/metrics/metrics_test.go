package metrics

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/SteelMorgan/logdoc/internal/domain"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleStats() *domain.RunStats {
	start := time.Date(2015, 3, 12, 10, 0, 0, 0, time.UTC)
	return &domain.RunStats{
		Mode:              "index",
		LinesRead:         10,
		LinesDropped:      3,
		DocumentsProduced: 4,
		DocumentsWritten:  4,
		ItemFailures:      1,
		StartTime:         start,
		EndTime:           start.Add(2 * time.Second),
	}
}

func TestMetrics_Observe(t *testing.T) {
	m := New()
	m.Observe(sampleStats())
	m.Observe(sampleStats())

	assert.Equal(t, 20.0, testutil.ToFloat64(m.LinesRead.WithLabelValues("index")))
	assert.Equal(t, 6.0, testutil.ToFloat64(m.LinesDropped.WithLabelValues("index")))
	assert.Equal(t, 8.0, testutil.ToFloat64(m.DocumentsWritten.WithLabelValues("index")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.ItemFailures.WithLabelValues("index")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.RunDuration.WithLabelValues("index")))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.LinesRead.WithLabelValues("save")))
}

func TestMetrics_WriteTextfile(t *testing.T) {
	m := New()
	m.Observe(sampleStats())

	path := filepath.Join(t.TempDir(), "logdoc.prom")
	require.NoError(t, m.WriteTextfile(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `logdoc_lines_read_total{mode="index"} 10`)
	assert.Contains(t, string(data), `logdoc_index_item_failures_total{mode="index"} 1`)
}

func TestMetrics_WriteTextfileError(t *testing.T) {
	m := New()
	err := m.WriteTextfile(filepath.Join(t.TempDir(), "missing", "logdoc.prom"))
	assert.Error(t, err)
}
