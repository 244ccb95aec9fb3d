package schema

import "errors"

// Sentinel kinds for schema errors. All of them are fatal to ingestion of
// the source that triggered them.
var (
	ErrDuplicateColumn   = errors.New("duplicate column in header")
	ErrMissingNameColumn = errors.New("header declares no name column")
	ErrKindConflict      = errors.New("attribute kind conflicts with prior declaration")
	ErrNotAnAttribute    = errors.New("kind is not an attribute kind")
)
