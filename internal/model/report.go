package model

import "time"

// RunReport summarizes an enrichment run
type RunReport struct {
	RunID      string        `json:"run_id,omitempty"`
	Input      string        `json:"input"`
	Output     string        `json:"output"`
	StartedAt  time.Time     `json:"started_at"`
	FinishedAt time.Time     `json:"finished_at"`
	Entities   int           `json:"entities"`          // Entities found in the local graph
	Skipped    int           `json:"skipped,omitempty"` // Entities already journaled by an earlier run
	Batches    []BatchReport `json:"batches"`
}

// BatchReport describes one flushed segment
type BatchReport struct {
	Index      int           `json:"index"`      // 1-based
	Entities   int           `json:"entities"`   // Entities dispatched in this batch
	Statements int           `json:"statements"` // Statements in the merged batch graph
	Failed     []string      `json:"failed,omitempty"`
	Bytes      int64         `json:"bytes"`
	Duration   time.Duration `json:"duration"`
}

// Statements returns the number of statements written across batches.
// Cross-batch duplicates are counted once per segment.
func (r *RunReport) Statements() int {
	total := 0
	for _, b := range r.Batches {
		total += b.Statements
	}
	return total
}

// Failures returns the names of entities whose lookup failed
func (r *RunReport) Failures() []string {
	var failed []string
	for _, b := range r.Batches {
		failed = append(failed, b.Failed...)
	}
	return failed
}

// Processed returns the number of entities dispatched
func (r *RunReport) Processed() int {
	total := 0
	for _, b := range r.Batches {
		total += b.Entities
	}
	return total
}

// Duration returns the wall time of the run
func (r *RunReport) Duration() time.Duration {
	if r.FinishedAt.IsZero() {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}
