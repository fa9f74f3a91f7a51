// Package format renders run summaries for the terminal.
package format

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/SteelMorgan/logdoc/internal/domain"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
)

// WriteSummary writes the run summary to w in the requested format
func WriteSummary(w io.Writer, stats *domain.RunStats, format string) error {
	switch strings.ToLower(format) {
	case "", "table":
		return writeSummaryTable(w, stats)
	case "json":
		return writeSummaryJSON(w, stats)
	default:
		return fmt.Errorf("unsupported format: %s", format)
	}
}

func writeSummaryTable(w io.Writer, stats *domain.RunStats) error {
	tw := table.NewWriter()
	tw.SetOutputMirror(w)
	tw.SetStyle(table.StyleRounded)
	tw.Style().Options.SeparateHeader = true
	tw.Style().Options.DrawBorder = true
	tw.SetTitle("logdoc %s", stats.Mode)

	tw.SetColumnConfigs([]table.ColumnConfig{
		{Number: 1, Align: text.AlignLeft, AlignHeader: text.AlignCenter},
		{Number: 2, Align: text.AlignRight, AlignHeader: text.AlignCenter, WidthMax: 60},
	})

	tw.AppendHeader(table.Row{"Metric", "Value"})
	tw.AppendRows([]table.Row{
		{"Run ID", stats.RunID},
		{"Source", stats.SourcePath},
		{"Target", stats.Target},
	})
	tw.AppendSeparator()
	tw.AppendRows([]table.Row{
		{"Lines read", stats.LinesRead},
		{"Lines accepted", stats.LinesAccepted},
		{"Lines dropped", stats.LinesDropped},
	})
	tw.AppendSeparator()
	tw.AppendRows([]table.Row{
		{"Documents produced", stats.DocumentsProduced},
		{"Documents skipped", stats.DocumentsSkipped},
		{"Documents written", stats.DocumentsWritten},
		{"Write failures", stats.WriteFailures},
		{"Index item failures", stats.ItemFailures},
	})
	tw.AppendSeparator()
	tw.AppendRows([]table.Row{
		{"Duration", formatDuration(stats.Duration())},
		{"Documents/s", fmt.Sprintf("%.1f", stats.DocumentsPerSecond())},
	})

	_ = tw.Render()
	return nil
}

type summaryJSON struct {
	RunID              string  `json:"run_id"`
	Mode               string  `json:"mode"`
	Source             string  `json:"source"`
	Target             string  `json:"target"`
	LinesRead          uint64  `json:"lines_read"`
	LinesAccepted      uint64  `json:"lines_accepted"`
	LinesDropped       uint64  `json:"lines_dropped"`
	DocumentsProduced  uint64  `json:"documents_produced"`
	DocumentsSkipped   uint64  `json:"documents_skipped"`
	DocumentsWritten   uint64  `json:"documents_written"`
	WriteFailures      uint64  `json:"write_failures"`
	ItemFailures       uint64  `json:"item_failures"`
	StartedAt          string  `json:"started_at"`
	DurationSeconds    float64 `json:"duration_seconds"`
	DocumentsPerSecond float64 `json:"documents_per_second"`
}

func writeSummaryJSON(w io.Writer, stats *domain.RunStats) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(summaryJSON{
		RunID:              stats.RunID,
		Mode:               stats.Mode,
		Source:             stats.SourcePath,
		Target:             stats.Target,
		LinesRead:          stats.LinesRead,
		LinesAccepted:      stats.LinesAccepted,
		LinesDropped:       stats.LinesDropped,
		DocumentsProduced:  stats.DocumentsProduced,
		DocumentsSkipped:   stats.DocumentsSkipped,
		DocumentsWritten:   stats.DocumentsWritten,
		WriteFailures:      stats.WriteFailures,
		ItemFailures:       stats.ItemFailures,
		StartedAt:          stats.StartTime.UTC().Format(time.RFC3339),
		DurationSeconds:    stats.Duration().Seconds(),
		DocumentsPerSecond: stats.DocumentsPerSecond(),
	})
}

func formatDuration(d time.Duration) string {
	if d <= 0 {
		return "00:00:00.000"
	}
	ms := d.Milliseconds()
	h := ms / 3600000
	m := (ms % 3600000) / 60000
	s := (ms % 60000) / 1000
	return fmt.Sprintf("%02d:%02d:%02d.%03d", h, m, s, ms%1000)
}
