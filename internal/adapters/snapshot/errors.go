package snapshot

import "errors"

// ErrSnapshotMiss means no usable snapshot exists for the source key;
// callers fall back to a full ingestion.
var ErrSnapshotMiss = errors.New("snapshot miss")
