package ingest

import (
	"fmt"
	"time"
)

// RowError describes one skipped row. Row numbers are 1-based data rows
// (the header is row 0). Every RowError appears in the report even when
// ingestion as a whole succeeds.
type RowError struct {
	Source string `json:"source"`
	Row    int    `json:"row"`
	Column string `json:"column,omitempty"`
	Value  string `json:"value,omitempty"`
	Reason string `json:"reason"`
}

// Error renders the row error for logs.
func (e RowError) Error() string {
	if e.Column == "" {
		return fmt.Sprintf("%s row %d: %s", e.Source, e.Row, e.Reason)
	}
	return fmt.Sprintf("%s row %d column %q: %s", e.Source, e.Row, e.Column, e.Reason)
}

// SourceReport summarizes ingestion of one CSV source. Fatal carries the
// schema or zero-row error that aborted the source, if any; row errors are
// recoverable and only skip their row.
type SourceReport struct {
	Name         string     `json:"name"`
	RowsTotal    int        `json:"rows_total"`
	RowsIngested int        `json:"rows_ingested"`
	RowsSkipped  int        `json:"rows_skipped"`
	Fatal        string     `json:"fatal,omitempty"`
	RowErrors    []RowError `json:"row_errors,omitempty"`
}

// Report is the ingestion report returned by the reload operation.
type Report struct {
	GenerationID string         `json:"generation_id,omitempty"`
	SourceKey    string         `json:"source_key,omitempty"`
	StartedAt    time.Time      `json:"started_at"`
	Duration     time.Duration  `json:"duration_ns"`
	Sources      []SourceReport `json:"sources"`
	RowsIngested int            `json:"rows_ingested"`
	RowsSkipped  int            `json:"rows_skipped"`
	FromSnapshot bool           `json:"from_snapshot,omitempty"`
}

// totals folds per-source counts into the report totals.
func (r *Report) totals() {
	r.RowsIngested = 0
	r.RowsSkipped = 0
	for _, s := range r.Sources {
		r.RowsIngested += s.RowsIngested
		r.RowsSkipped += s.RowsSkipped
	}
}
