// Package repository owns immutable catalog generations and their
// atomic publication.
package repository

import (
	"context"
	"fmt"
	"iter"
	"sort"
	"sync/atomic"
	"time"

	"github.com/okian/hoopdex/internal/domain/feature"
	"github.com/okian/hoopdex/internal/domain/model"
	"github.com/okian/hoopdex/internal/domain/vector"
	"github.com/okian/hoopdex/pkg/metrics"
)

// Bounds is the raw-scale (min, max) observed for one attribute across a
// generation. Exposed so downstream tools can display non-normalized scales.
type Bounds struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// Entry bundles one build record with everything derived from it at
// ingestion time.
type Entry struct {
	Record   model.BuildRecord
	Vector   vector.NormalizedVector
	Features feature.Set

	// Strength counts the record's attributes that exceed the 75th
	// percentile of their dimension; it drives the search result order.
	Strength int
}

// Generation is one immutable ingested snapshot of the catalog. It is never
// mutated after construction; reload builds a new Generation and swaps the
// catalog pointer, so concurrent readers always see a consistent state.
type Generation struct {
	id        string
	createdAt time.Time
	sourceKey string
	sources   []string
	entries   []Entry
	byID      map[string]int
	bounds    map[string]Bounds
	p75       map[string]float64
}

// NewGeneration assembles a generation from ingestion output. Entries are
// sorted by record id so iteration order is deterministic. A zero createdAt
// means "now".
func NewGeneration(id, sourceKey string, sources []string, createdAt time.Time, entries []Entry, bounds map[string]Bounds, p75 map[string]float64) *Generation {
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	sorted := make([]Entry, len(entries))
	copy(sorted, entries)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Record.ID < sorted[j].Record.ID })

	byID := make(map[string]int, len(sorted))
	for i, e := range sorted {
		byID[e.Record.ID] = i
	}

	return &Generation{
		id:        id,
		createdAt: createdAt,
		sourceKey: sourceKey,
		sources:   append([]string(nil), sources...),
		entries:   sorted,
		byID:      byID,
		bounds:    bounds,
		p75:       p75,
	}
}

// ID returns the generation identifier.
func (g *Generation) ID() string { return g.id }

// CreatedAt returns the publication timestamp.
func (g *Generation) CreatedAt() time.Time { return g.createdAt }

// SourceKey returns the content hash of the generation's source inputs.
func (g *Generation) SourceKey() string { return g.sourceKey }

// Sources returns the names of the CSV sources that produced the generation.
func (g *Generation) Sources() []string { return append([]string(nil), g.sources...) }

// Count returns the number of build records.
func (g *Generation) Count() int { return len(g.entries) }

// DimensionCount returns the number of distinct attribute dimensions.
func (g *Generation) DimensionCount() int { return len(g.bounds) }

// GetByID returns the entry for a build id.
func (g *Generation) GetByID(_ context.Context, id string) (Entry, error) {
	i, ok := g.byID[id]
	if !ok {
		return Entry{}, fmt.Errorf("build %q: %w", id, ErrNotFound)
	}
	return g.entries[i], nil
}

// All returns a finite, restartable sequence over the generation's entries
// in ascending id order. Re-iterating yields the same records again.
func (g *Generation) All() iter.Seq[Entry] {
	return func(yield func(Entry) bool) {
		for _, e := range g.entries {
			if !yield(e) {
				return
			}
		}
	}
}

// Bounds returns the raw (min, max) observed for a canonical attribute name.
func (g *Generation) Bounds(name string) (Bounds, error) {
	b, ok := g.bounds[name]
	if !ok {
		return Bounds{}, fmt.Errorf("attribute %q: %w", name, ErrNotFound)
	}
	return b, nil
}

// AllBounds returns a copy of every dimension's raw bounds.
func (g *Generation) AllBounds() map[string]Bounds {
	out := make(map[string]Bounds, len(g.bounds))
	for k, v := range g.bounds {
		out[k] = v
	}
	return out
}

// Percentile75 returns the 75th percentile of a dimension's raw midpoints.
func (g *Generation) Percentile75(name string) (float64, bool) {
	v, ok := g.p75[name]
	return v, ok
}

// Catalog publishes generations by pointer swap. The only writer is the
// reload path; readers pin a generation once per call and never block.
type Catalog struct {
	current atomic.Pointer[Generation]
}

// NewCatalog creates an empty catalog with no published generation.
func NewCatalog() *Catalog {
	return &Catalog{}
}

// Publish atomically swaps in a new generation.
func (c *Catalog) Publish(g *Generation) {
	c.current.Store(g)

	metrics.UpdateCatalogBuilds(g.Count())
	metrics.UpdateCatalogDimensions(g.DimensionCount())
	metrics.UpdateCatalogSources(len(g.sources))
	metrics.UpdateGenerationPublished(g.createdAt.Unix())
}

// Current returns the published generation, or ErrNoGeneration before the
// first successful ingestion.
func (c *Catalog) Current() (*Generation, error) {
	g := c.current.Load()
	if g == nil {
		return nil, ErrNoGeneration
	}
	return g, nil
}
