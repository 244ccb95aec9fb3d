// Package service provides the core query facade that implements
// the dependencies required by the HTTP API.
package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/okian/hoopdex/internal/adapters/repository"
	"github.com/okian/hoopdex/internal/adapters/snapshot"
	"github.com/okian/hoopdex/internal/domain/query"
	"github.com/okian/hoopdex/internal/domain/similarity"
	"github.com/okian/hoopdex/internal/ingest"
	"github.com/okian/hoopdex/pkg/logger"
	"github.com/okian/hoopdex/pkg/metrics"
)

// Default query configuration.
const (
	defaultQueryTimeout   = 2 * time.Second
	defaultPageSize       = 20
	defaultMaxPageSize    = 100
	defaultMaxSimilar     = 50
	defaultSimilarK       = 10
	defaultSnapshotMaxAge = 30 * 24 * time.Hour
)

// SnapshotStore is the slice of the snapshot package the service needs;
// tests substitute it freely.
type SnapshotStore interface {
	Get(ctx context.Context, sourceKey string) (*repository.Generation, error)
	Put(ctx context.Context, gen *repository.Generation) error
	Prune(ctx context.Context, maxAge time.Duration) (int64, error)
	Close() error
}

// SourceLister produces the current source set; reloads call it again so
// added and removed CSV files are picked up.
type SourceLister func() ([]ingest.Source, error)

// Service owns the catalog lifecycle and answers every query against a
// pinned generation.
type Service struct {
	catalog  *repository.Catalog
	ingester *ingest.Ingester
	sources  SourceLister

	snapshots      SnapshotStore
	snapshotMaxAge time.Duration

	queryTimeout    time.Duration
	minShared       int
	thresholds      similarity.Thresholds
	defaultPageSize int
	maxPageSize     int
	maxSimilar      int

	reloadMu   sync.Mutex
	lastReport atomic.Pointer[ingest.Report]

	started   bool
	startedAt time.Time

	logger logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithSourceDir ingests every CSV file found in dir.
func WithSourceDir(dir string) Option {
	return func(s *Service) {
		s.sources = func() ([]ingest.Source, error) {
			return ingest.DirSources(dir)
		}
	}
}

// WithSources sets an explicit source lister; used by tests and embedders.
func WithSources(lister SourceLister) Option {
	return func(s *Service) {
		if lister != nil {
			s.sources = lister
		}
	}
}

// WithIngester substitutes a configured ingester.
func WithIngester(ing *ingest.Ingester) Option {
	return func(s *Service) {
		if ing != nil {
			s.ingester = ing
		}
	}
}

// WithSnapshots enables the generation cache.
func WithSnapshots(store SnapshotStore, maxAge time.Duration) Option {
	return func(s *Service) {
		s.snapshots = store
		if maxAge > 0 {
			s.snapshotMaxAge = maxAge
		}
	}
}

// WithQueryTimeout caps every query call.
func WithQueryTimeout(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.queryTimeout = d
		}
	}
}

// WithMinSharedDims sets the similarity shared-dimension floor.
func WithMinSharedDims(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.minShared = n
		}
	}
}

// WithDeltaThresholds sets the comparison bucket cut points.
func WithDeltaThresholds(t similarity.Thresholds) Option {
	return func(s *Service) {
		if t.Negligible >= 0 && t.Minor > t.Negligible {
			s.thresholds = t
		}
	}
}

// WithPageLimits bounds search pagination.
func WithPageLimits(def, max int) Option {
	return func(s *Service) {
		if def > 0 && max >= def {
			s.defaultPageSize = def
			s.maxPageSize = max
		}
	}
}

// WithMaxSimilar caps the neighbor count per similarity query.
func WithMaxSimilar(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.maxSimilar = n
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// New constructs a Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		catalog:         repository.NewCatalog(),
		queryTimeout:    defaultQueryTimeout,
		minShared:       similarity.DefaultMinShared,
		thresholds:      similarity.DefaultThresholds(),
		defaultPageSize: defaultPageSize,
		maxPageSize:     defaultMaxPageSize,
		maxSimilar:      defaultMaxSimilar,
		snapshotMaxAge:  defaultSnapshotMaxAge,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = logger.Get().Named("service")
	}
	if s.ingester == nil {
		s.ingester = ingest.New(ingest.WithLogger(s.logger.Named("ingest")))
	}
	return s
}

// Start publishes the first generation: from the snapshot cache when the
// source bytes are unchanged, otherwise through a full ingestion.
func (s *Service) Start(ctx context.Context) error {
	if s.started {
		return ErrAlreadyStarted
	}
	if s.sources == nil {
		return fmt.Errorf("start: no source lister configured")
	}

	if s.snapshots != nil {
		if n, err := s.snapshots.Prune(ctx, s.snapshotMaxAge); err != nil {
			s.logger.Warn(ctx, "snapshot prune failed", logger.Error(err))
		} else if n > 0 {
			s.logger.Info(ctx, "pruned stale snapshots", logger.Int("removed", int(n)))
		}

		sources, err := s.sources()
		if err != nil {
			return fmt.Errorf("list sources: %w", err)
		}
		key, err := ingest.SourceKey(sources)
		if err == nil {
			if gen, err := s.snapshots.Get(ctx, key); err == nil {
				s.catalog.Publish(gen)
				s.lastReport.Store(&ingest.Report{
					GenerationID: gen.ID(),
					SourceKey:    gen.SourceKey(),
					StartedAt:    time.Now().UTC(),
					FromSnapshot: true,
				})
				s.started = true
				s.startedAt = time.Now()
				s.logger.Info(ctx, "catalog restored from snapshot",
					logger.String("generation", gen.ID()),
					logger.Int("builds", gen.Count()),
				)
				return nil
			} else if !errors.Is(err, snapshot.ErrSnapshotMiss) {
				s.logger.Warn(ctx, "snapshot lookup failed", logger.Error(err))
			}
		}
	}

	if _, err := s.rebuild(ctx); err != nil {
		return err
	}
	s.started = true
	s.startedAt = time.Now()
	return nil
}

// Stop releases held resources. The published generation stays readable
// until the process exits.
func (s *Service) Stop(ctx context.Context) error {
	if s.snapshots != nil {
		if err := s.snapshots.Close(); err != nil {
			return fmt.Errorf("close snapshots: %w", err)
		}
	}
	s.logger.Info(ctx, "service stopped")
	return nil
}

// Reload rebuilds the catalog from the current sources and returns the
// ingestion report, including skipped rows and their reasons. Only one
// reload runs at a time; a concurrent call fails fast with
// ErrReloadInProgress while queries keep answering from the old generation.
func (s *Service) Reload(ctx context.Context) (*ingest.Report, error) {
	if !s.reloadMu.TryLock() {
		metrics.RecordReloadRejected()
		return nil, ErrReloadInProgress
	}
	defer s.reloadMu.Unlock()

	return s.rebuild(ctx)
}

// rebuild ingests sources and publishes the result atomically. Callers
// serialize through Reload; Start runs before any concurrency exists.
func (s *Service) rebuild(ctx context.Context) (*ingest.Report, error) {
	started := time.Now()

	sources, err := s.sources()
	if err != nil {
		return nil, fmt.Errorf("list sources: %w", err)
	}

	gen, report, err := s.ingester.Ingest(ctx, sources)
	if report != nil {
		s.lastReport.Store(report)
	}
	if err != nil {
		return report, fmt.Errorf("rebuild catalog: %w", err)
	}

	s.catalog.Publish(gen)
	metrics.RecordReload()
	metrics.RecordReloadDuration(float64(time.Since(started).Milliseconds()))

	if s.snapshots != nil {
		if err := s.snapshots.Put(ctx, gen); err != nil {
			// Cache write failure never fails the reload.
			s.logger.Warn(ctx, "snapshot write failed", logger.Error(err))
		}
	}
	return report, nil
}

// generation pins the current catalog generation for one query.
func (s *Service) generation() (*repository.Generation, error) {
	gen, err := s.catalog.Current()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrNotStarted, err)
	}
	return gen, nil
}

// run applies the query budget and maps a deadline hit to ErrTimeout.
func (s *Service) run(ctx context.Context, op string, fn func(ctx context.Context) error) error {
	ctx, cancel := context.WithTimeout(ctx, s.queryTimeout)
	defer cancel()

	err := fn(ctx)
	if err != nil && errors.Is(err, context.DeadlineExceeded) {
		metrics.RecordQueryTimeout()
		return fmt.Errorf("%s exceeded %s: %w", op, s.queryTimeout, ErrTimeout)
	}
	return err
}

// SearchResult is one page of filter matches, pinned to a generation.
// Pages are 1-based.
type SearchResult struct {
	GenerationID string
	Total        int
	Page         int
	PageSize     int
	Entries      []repository.Entry
}

// Search evaluates a conjunctive predicate against the current generation
// and returns one page of matches, strongest first. A non-positive page
// means the first page; a non-positive pageSize means the default.
func (s *Service) Search(ctx context.Context, pred *query.Predicate, page, pageSize int) (*SearchResult, error) {
	gen, err := s.generation()
	if err != nil {
		return nil, err
	}
	if page <= 0 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = s.defaultPageSize
	}
	if pageSize > s.maxPageSize {
		pageSize = s.maxPageSize
	}

	started := time.Now()
	var result *SearchResult
	err = s.run(ctx, "search", func(ctx context.Context) error {
		matches, err := query.Evaluate(ctx, gen, pred)
		if err != nil {
			return err
		}
		result = &SearchResult{
			GenerationID: gen.ID(),
			Total:        len(matches),
			Page:         page,
			PageSize:     pageSize,
			Entries:      query.Paginate(matches, (page-1)*pageSize, pageSize),
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	metrics.RecordSearchLatency(float64(time.Since(started).Milliseconds()))
	return result, nil
}

// RecommendResult ranks the neighbors of one anchor build.
type RecommendResult struct {
	GenerationID string
	AnchorID     string
	Neighbors    []similarity.Neighbor
}

// Recommend returns the k builds most similar to the anchor.
func (s *Service) Recommend(ctx context.Context, id string, k int) (*RecommendResult, error) {
	gen, err := s.generation()
	if err != nil {
		return nil, err
	}
	if k <= 0 {
		k = defaultSimilarK
	}
	if k > s.maxSimilar {
		k = s.maxSimilar
	}

	started := time.Now()
	var result *RecommendResult
	err = s.run(ctx, "similarity", func(ctx context.Context) error {
		neighbors, err := similarity.Nearest(ctx, gen, id, k, s.minShared)
		if err != nil {
			return err
		}
		result = &RecommendResult{
			GenerationID: gen.ID(),
			AnchorID:     id,
			Neighbors:    neighbors,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	metrics.RecordSimilarityLatency(float64(time.Since(started).Milliseconds()))
	return result, nil
}

// CompareResult is the attribute-level report between two builds.
type CompareResult struct {
	GenerationID string
	Comparison   *similarity.Comparison
}

// Compare produces the pairwise attribute report for two builds.
func (s *Service) Compare(ctx context.Context, aID, bID string) (*CompareResult, error) {
	gen, err := s.generation()
	if err != nil {
		return nil, err
	}

	started := time.Now()
	var result *CompareResult
	err = s.run(ctx, "compare", func(ctx context.Context) error {
		cmp, err := similarity.Compare(ctx, gen, aID, bID, s.thresholds)
		if err != nil {
			return err
		}
		result = &CompareResult{GenerationID: gen.ID(), Comparison: cmp}
		return nil
	})
	if err != nil {
		return nil, err
	}
	metrics.RecordCompareLatency(float64(time.Since(started).Milliseconds()))
	return result, nil
}

// GetBuild fetches one build by id from the current generation.
func (s *Service) GetBuild(ctx context.Context, id string) (repository.Entry, string, error) {
	gen, err := s.generation()
	if err != nil {
		return repository.Entry{}, "", err
	}
	e, err := gen.GetByID(ctx, id)
	if err != nil {
		return repository.Entry{}, "", err
	}
	return e, gen.ID(), nil
}

// Stats summarizes the published generation and the last ingestion run.
type Stats struct {
	GenerationID  string         `json:"generation_id"`
	GenerationAge time.Duration  `json:"generation_age"`
	Builds        int            `json:"builds"`
	Dimensions    int            `json:"dimensions"`
	Sources       []string       `json:"sources"`
	Uptime        time.Duration  `json:"uptime"`
	LastIngestion *ingest.Report `json:"last_ingestion,omitempty"`
}

// GetStats reports catalog and ingestion statistics.
func (s *Service) GetStats(ctx context.Context) (*Stats, error) {
	gen, err := s.generation()
	if err != nil {
		return nil, err
	}
	st := &Stats{
		GenerationID:  gen.ID(),
		GenerationAge: time.Since(gen.CreatedAt()),
		Builds:        gen.Count(),
		Dimensions:    gen.DimensionCount(),
		Sources:       gen.Sources(),
		Uptime:        time.Since(s.startedAt),
		LastIngestion: s.lastReport.Load(),
	}
	return st, nil
}
