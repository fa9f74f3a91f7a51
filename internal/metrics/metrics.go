package metrics

import (
	"fmt"

	"github.com/SteelMorgan/logdoc/internal/domain"
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "logdoc"

// Metrics are the run counters of the extractor, kept on a private registry
type Metrics struct {
	registry *prometheus.Registry

	LinesRead         *prometheus.CounterVec
	LinesDropped      *prometheus.CounterVec
	DocumentsProduced *prometheus.CounterVec
	DocumentsSkipped  *prometheus.CounterVec
	DocumentsWritten  *prometheus.CounterVec
	WriteFailures     *prometheus.CounterVec
	ItemFailures      *prometheus.CounterVec
	RunDuration       *prometheus.GaugeVec
	LastRunTimestamp  *prometheus.GaugeVec
}

// New creates the metrics and registers them
func New() *Metrics {
	counter := func(name, help string) *prometheus.CounterVec {
		return prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      name,
			Help:      help,
		}, []string{"mode"})
	}
	gauge := func(name, help string) *prometheus.GaugeVec {
		return prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      name,
			Help:      help,
		}, []string{"mode"})
	}

	m := &Metrics{
		registry:          prometheus.NewRegistry(),
		LinesRead:         counter("lines_read_total", "Lines read from the log file"),
		LinesDropped:      counter("lines_dropped_total", "Lines without a recognizable timestamp"),
		DocumentsProduced: counter("documents_produced_total", "Documents produced by the segmenter"),
		DocumentsSkipped:  counter("documents_skipped_total", "Documents skipped on resume"),
		DocumentsWritten:  counter("documents_written_total", "Documents handed to the sink"),
		WriteFailures:     counter("write_failures_total", "Documents the sink refused"),
		ItemFailures:      counter("index_item_failures_total", "Documents rejected by the index backend"),
		RunDuration:       gauge("run_duration_seconds", "Wall time of the last run"),
		LastRunTimestamp:  gauge("last_run_timestamp_seconds", "End time of the last run"),
	}

	m.registry.MustRegister(
		m.LinesRead,
		m.LinesDropped,
		m.DocumentsProduced,
		m.DocumentsSkipped,
		m.DocumentsWritten,
		m.WriteFailures,
		m.ItemFailures,
		m.RunDuration,
		m.LastRunTimestamp,
	)

	return m
}

// Registry returns the underlying Prometheus registry
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Observe adds the counters of a finished run
func (m *Metrics) Observe(stats *domain.RunStats) {
	mode := stats.Mode
	m.LinesRead.WithLabelValues(mode).Add(float64(stats.LinesRead))
	m.LinesDropped.WithLabelValues(mode).Add(float64(stats.LinesDropped))
	m.DocumentsProduced.WithLabelValues(mode).Add(float64(stats.DocumentsProduced))
	m.DocumentsSkipped.WithLabelValues(mode).Add(float64(stats.DocumentsSkipped))
	m.DocumentsWritten.WithLabelValues(mode).Add(float64(stats.DocumentsWritten))
	m.WriteFailures.WithLabelValues(mode).Add(float64(stats.WriteFailures))
	m.ItemFailures.WithLabelValues(mode).Add(float64(stats.ItemFailures))
	m.RunDuration.WithLabelValues(mode).Set(stats.Duration().Seconds())
	if !stats.EndTime.IsZero() {
		m.LastRunTimestamp.WithLabelValues(mode).Set(float64(stats.EndTime.Unix()))
	}
}

// WriteTextfile writes the registry in the Prometheus text format,
// for the node_exporter textfile collector
func (m *Metrics) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, m.registry); err != nil {
		return fmt.Errorf("failed to write metrics to %s: %w", path, err)
	}
	return nil
}
