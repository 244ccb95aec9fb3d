// Package snapshot persists assembled catalog generations in a local
// SQLite file, keyed by the content hash of their CSV sources. A restart
// with unchanged sources restores the catalog without re-parsing.
package snapshot

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/okian/hoopdex/internal/adapters/repository"
	"github.com/okian/hoopdex/pkg/metrics"
)

// schemaVersion invalidates stored payloads when the export format
// changes. Bump it whenever GenerationExport gains or loses fields.
const schemaVersion = 1

const createTable = `
CREATE TABLE IF NOT EXISTS generations (
	source_key   TEXT    PRIMARY KEY,
	payload      BLOB    NOT NULL,
	version      INTEGER NOT NULL,
	created_unix INTEGER NOT NULL
);`

// Store is a content-addressed generation cache backed by SQLite.
type Store struct {
	db *sql.DB
}

// Open creates or opens the snapshot database at path.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open snapshot db %q: %w", path, err)
	}
	// The store is written by one process; a single connection avoids
	// SQLITE_BUSY on concurrent reload and prune.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(createTable); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init snapshot schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// Get restores the generation stored under sourceKey. A missing key or a
// payload written by an older schema version both report ErrSnapshotMiss.
func (s *Store) Get(ctx context.Context, sourceKey string) (*repository.Generation, error) {
	var (
		payload []byte
		version int
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT payload, version FROM generations WHERE source_key = ?`,
		sourceKey,
	).Scan(&payload, &version)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		metrics.RecordSnapshotMiss()
		return nil, fmt.Errorf("source key %s: %w", sourceKey, ErrSnapshotMiss)
	case err != nil:
		return nil, fmt.Errorf("read snapshot: %w", err)
	}

	if version != schemaVersion {
		metrics.RecordSnapshotMiss()
		return nil, fmt.Errorf("snapshot version %d, want %d: %w", version, schemaVersion, ErrSnapshotMiss)
	}

	var export repository.GenerationExport
	if err := json.Unmarshal(payload, &export); err != nil {
		metrics.RecordSnapshotMiss()
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}

	metrics.RecordSnapshotHit()
	return repository.FromExport(export), nil
}

// Put stores the generation under its own source key, replacing any
// previous payload for those sources.
func (s *Store) Put(ctx context.Context, gen *repository.Generation) error {
	payload, err := json.Marshal(gen.Export())
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO generations (source_key, payload, version, created_unix)
		 VALUES (?, ?, ?, ?)`,
		gen.SourceKey(), payload, schemaVersion, time.Now().Unix(),
	)
	if err != nil {
		return fmt.Errorf("write snapshot: %w", err)
	}

	metrics.RecordSnapshotWrite()
	return nil
}

// Prune drops snapshots older than maxAge so edited-and-reverted source
// sets do not accumulate forever. Returns the number of rows removed.
func (s *Store) Prune(ctx context.Context, maxAge time.Duration) (int64, error) {
	cutoff := time.Now().Add(-maxAge).Unix()
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM generations WHERE created_unix < ?`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("prune snapshots: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("prune snapshots: %w", err)
	}
	return n, nil
}
