package ingest

import "errors"

// Sentinel kinds for ingestion errors. Row-level failures are carried as
// RowError values in the report; these sentinels classify their causes and
// the fatal whole-ingestion outcomes.
var (
	ErrNoSources         = errors.New("no sources to ingest")
	ErrNoRows            = errors.New("zero usable rows")
	ErrEmptyCell         = errors.New("empty cell")
	ErrUnparsableNumber  = errors.New("unparsable numeric cell")
	ErrMalformedInterval = errors.New("malformed interval: low exceeds high")
	ErrMissingName       = errors.New("missing name identifier")
	ErrDuplicateName     = errors.New("duplicate name within source")
	ErrUnknownPosition   = errors.New("unknown position tag")
	ErrColumnCount       = errors.New("column count differs from header")
)
