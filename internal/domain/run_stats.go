package domain

import "time"

// RunStats summarizes one save or index run
type RunStats struct {
	RunID      string
	Mode       string // "save" or "index"
	SourcePath string
	Target     string // output directory or index name

	LinesRead     uint64
	LinesAccepted uint64
	LinesDropped  uint64 // lines without a recognizable timestamp

	DocumentsProduced uint64
	DocumentsSkipped  uint64 // already delivered by a previous run (resume)
	DocumentsWritten  uint64
	WriteFailures     uint64
	ItemFailures      uint64 // bulk items rejected by the index backend

	StartTime time.Time
	EndTime   time.Time
}

// Duration returns the wall time of the run
func (s *RunStats) Duration() time.Duration {
	if s.EndTime.IsZero() {
		return time.Since(s.StartTime)
	}
	return s.EndTime.Sub(s.StartTime)
}

// DocumentsPerSecond returns the delivery throughput of the run
func (s *RunStats) DocumentsPerSecond() float64 {
	secs := s.Duration().Seconds()
	if secs <= 0 {
		return 0
	}
	return float64(s.DocumentsWritten) / secs
}
