// Package ingest parses CSV build sources into immutable catalog
// generations: typed records, catalog-wide bounds and normalized vectors.
package ingest

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/csv"
	"encoding/hex"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/okian/hoopdex/internal/adapters/repository"
	"github.com/okian/hoopdex/internal/domain/feature"
	"github.com/okian/hoopdex/internal/domain/model"
	"github.com/okian/hoopdex/internal/domain/schema"
	"github.com/okian/hoopdex/internal/domain/vector"
	"github.com/okian/hoopdex/pkg/logger"
	"github.com/okian/hoopdex/pkg/metrics"
)

// Default ingester configuration constants.
const (
	defaultWorkers = 4
)

// Source is one CSV input. Open returns a fresh reader each call so the
// source can be hashed and parsed independently.
type Source struct {
	Name string
	Open func() (io.ReadCloser, error)
}

// FileSource wraps a CSV file on disk.
func FileSource(path string) Source {
	return Source{
		Name: filepath.Base(path),
		Open: func() (io.ReadCloser, error) {
			return os.Open(path)
		},
	}
}

// StringSource wraps in-memory CSV data; used by tests and fixtures.
func StringSource(name, data string) Source {
	return Source{
		Name: name,
		Open: func() (io.ReadCloser, error) {
			return io.NopCloser(strings.NewReader(data)), nil
		},
	}
}

// DirSources lists every .csv file in dir as a source, sorted by name.
func DirSources(dir string) ([]Source, error) {
	paths, err := filepath.Glob(filepath.Join(dir, "*.csv"))
	if err != nil {
		return nil, fmt.Errorf("list sources in %q: %w", dir, err)
	}
	sort.Strings(paths)
	sources := make([]Source, 0, len(paths))
	for _, p := range paths {
		sources = append(sources, FileSource(p))
	}
	return sources, nil
}

// SourceKey computes the content-addressed key of a source set: a hash over
// every source's name and bytes. The same inputs always produce the same
// key, which lets the snapshot store skip re-parsing on restart.
func SourceKey(sources []Source) (string, error) {
	sorted := append([]Source(nil), sources...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Name < sorted[j].Name })

	h := sha256.New()
	for _, src := range sorted {
		rc, err := src.Open()
		if err != nil {
			return "", fmt.Errorf("open %q: %w", src.Name, err)
		}
		data, err := io.ReadAll(rc)
		_ = rc.Close()
		if err != nil {
			return "", fmt.Errorf("read %q: %w", src.Name, err)
		}
		sum := sha256.Sum256(data)
		fmt.Fprintf(h, "%s:%s\n", src.Name, hex.EncodeToString(sum[:]))
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// Option applies a configuration option to the Ingester.
type Option func(*Ingester)

// WithWorkers bounds the number of sources parsed concurrently.
func WithWorkers(n int) Option {
	return func(ing *Ingester) {
		if n > 0 {
			ing.workers = n
		}
	}
}

// WithLogger sets a custom logger for the ingester.
func WithLogger(l logger.Logger) Option {
	return func(ing *Ingester) {
		if l != nil {
			ing.logger = l
		}
	}
}

// Ingester parses sources into generations. Safe for reuse; every Ingest
// call starts from a fresh schema registry so a reload re-reconciles the
// full source set.
type Ingester struct {
	workers int
	logger  logger.Logger
}

// New creates an Ingester with default configuration.
func New(opts ...Option) *Ingester {
	ing := &Ingester{
		workers: defaultWorkers,
	}
	for _, opt := range opts {
		opt(ing)
	}
	if ing.logger == nil {
		ing.logger = logger.Get().Named("ingest")
	}
	return ing
}

// parsedSource is the per-source output of the parse phase.
type parsedSource struct {
	report  SourceReport
	records []model.BuildRecord
	hash    string
}

// Ingest parses all sources and assembles a new catalog generation. Row
// errors skip their row and land in the report; a source aborts only on a
// schema error or zero valid rows; the whole ingestion fails only when no
// records survive at all. The returned generation is not yet published —
// the caller owns the catalog swap.
func (ing *Ingester) Ingest(ctx context.Context, sources []Source) (*repository.Generation, *Report, error) {
	started := time.Now()
	report := &Report{StartedAt: started.UTC()}

	if len(sources) == 0 {
		return nil, report, ErrNoSources
	}

	sorted := append([]Source(nil), sources...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Name < sorted[j].Name })

	registry := schema.NewRegistry()
	parsed := ing.parseAll(ctx, registry, sorted)

	if err := ctx.Err(); err != nil {
		return nil, report, fmt.Errorf("ingest canceled: %w", err)
	}

	// Assemble the combined content key and the surviving record set.
	keyHash := sha256.New()
	names := make([]string, 0, len(sorted))
	records := make([]model.BuildRecord, 0)
	for _, p := range parsed {
		fmt.Fprintf(keyHash, "%s:%s\n", p.report.Name, p.hash)
		names = append(names, p.report.Name)
		report.Sources = append(report.Sources, p.report)
		records = append(records, p.records...)

		metrics.RecordRowsIngested(p.report.RowsIngested)
		metrics.RecordRowsSkipped(p.report.RowsSkipped)
		if p.report.Fatal != "" {
			metrics.RecordSourceError()
		}
	}
	report.totals()
	report.Duration = time.Since(started)

	if len(records) == 0 {
		return nil, report, fmt.Errorf("%d sources: %w", len(sorted), ErrNoRows)
	}

	bounds, p75 := computeBounds(records)
	entries := deriveEntries(records, bounds, p75)

	gen := repository.NewGeneration(
		uuid.NewString(),
		hex.EncodeToString(keyHash.Sum(nil)),
		names,
		time.Time{},
		entries,
		bounds,
		p75,
	)

	report.GenerationID = gen.ID()
	report.SourceKey = gen.SourceKey()
	report.Duration = time.Since(started)

	ing.logger.Info(ctx, "ingestion complete",
		logger.String("generation", gen.ID()),
		logger.Int("builds", gen.Count()),
		logger.Int("dimensions", gen.DimensionCount()),
		logger.Int("skipped", report.RowsSkipped),
		logger.Duration("took", report.Duration),
	)
	return gen, report, nil
}

// parseAll fans sources out to a bounded worker pool and returns results in
// source order.
func (ing *Ingester) parseAll(ctx context.Context, registry *schema.Registry, sources []Source) []parsedSource {
	results := make([]parsedSource, len(sources))

	type job struct {
		idx int
		src Source
	}
	jobs := make(chan job)

	workers := ing.workers
	if workers > len(sources) {
		workers = len(sources)
	}

	var wg sync.WaitGroup
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := range jobs {
				results[j.idx] = ing.parseSource(ctx, registry, j.src)
			}
		}()
	}

	for i, src := range sources {
		select {
		case <-ctx.Done():
		case jobs <- job{idx: i, src: src}:
			continue
		}
		break
	}
	close(jobs)
	wg.Wait()

	return results
}

// parseSource reads, hashes and parses one CSV source.
func (ing *Ingester) parseSource(ctx context.Context, registry *schema.Registry, src Source) parsedSource {
	out := parsedSource{report: SourceReport{Name: src.Name}}

	rc, err := src.Open()
	if err != nil {
		out.report.Fatal = fmt.Sprintf("open: %v", err)
		return out
	}
	data, err := io.ReadAll(rc)
	_ = rc.Close()
	if err != nil {
		out.report.Fatal = fmt.Sprintf("read: %v", err)
		return out
	}
	sum := sha256.Sum256(data)
	out.hash = hex.EncodeToString(sum[:])

	r := csv.NewReader(bytes.NewReader(data))
	r.FieldsPerRecord = -1 // row width is validated per row
	r.TrimLeadingSpace = true

	header, err := r.Read()
	if err != nil {
		out.report.Fatal = fmt.Sprintf("header: %v", err)
		return out
	}
	cols, err := registry.Classify(src.Name, header)
	if err != nil {
		out.report.Fatal = err.Error()
		return out
	}

	intervalSeen := make(map[string]bool)
	namesSeen := make(map[string]bool)

	for rowNum := 1; ; rowNum++ {
		if err := ctx.Err(); err != nil {
			out.report.Fatal = fmt.Sprintf("canceled: %v", err)
			out.records = nil
			return out
		}

		fields, err := r.Read()
		if err == io.EOF {
			break
		}
		out.report.RowsTotal++
		if err != nil {
			out.rowError(RowError{Source: src.Name, Row: rowNum, Reason: err.Error()})
			continue
		}

		rec, rowErr := parseRow(src.Name, rowNum, cols, fields, namesSeen, intervalSeen)
		if rowErr != nil {
			out.rowError(*rowErr)
			continue
		}
		out.records = append(out.records, rec)
		out.report.RowsIngested++
	}

	// Declare observed attribute kinds; a cross-source conflict is a schema
	// error that aborts this source.
	for _, col := range cols {
		if col.Kind != schema.KindNumericAttribute {
			continue
		}
		kind := schema.KindNumericAttribute
		if intervalSeen[col.Canonical] {
			kind = schema.KindRangeAttribute
		}
		if err := registry.DeclareAttribute(src.Name, col.Canonical, kind); err != nil {
			out.report.Fatal = err.Error()
			out.report.RowsIngested = 0
			out.records = nil
			return out
		}
	}

	if len(out.records) == 0 && out.report.Fatal == "" {
		out.report.Fatal = fmt.Sprintf("%s: %v", src.Name, ErrNoRows)
	}
	return out
}

func (p *parsedSource) rowError(e RowError) {
	p.report.RowsSkipped++
	p.report.RowErrors = append(p.report.RowErrors, e)
}

// parseRow converts one CSV data row into a BuildRecord. Any failure
// returns a RowError; the row is skipped and the rest of the source
// continues.
func parseRow(source string, rowNum int, cols []schema.Column, fields []string, namesSeen, intervalSeen map[string]bool) (model.BuildRecord, *RowError) {
	if len(fields) != len(cols) {
		return model.BuildRecord{}, &RowError{
			Source: source, Row: rowNum,
			Reason: fmt.Sprintf("%v: got %d fields, want %d", ErrColumnCount, len(fields), len(cols)),
		}
	}

	rec := model.BuildRecord{Source: source}
	for i, col := range cols {
		value := strings.TrimSpace(fields[i])

		switch col.Kind {
		case schema.KindIgnored:
			continue

		case schema.KindName:
			if value == "" {
				return model.BuildRecord{}, &RowError{
					Source: source, Row: rowNum, Column: col.Raw,
					Reason: ErrMissingName.Error(),
				}
			}
			rec.Name = value

		case schema.KindPosition:
			if value == "" {
				continue
			}
			pos, ok := model.ParsePosition(value)
			if !ok {
				return model.BuildRecord{}, &RowError{
					Source: source, Row: rowNum, Column: col.Raw, Value: value,
					Reason: ErrUnknownPosition.Error(),
				}
			}
			rec.Position = pos

		case schema.KindHeight:
			if value == "" {
				continue
			}
			cell, err := ParseHeight(value)
			if err != nil {
				return model.BuildRecord{}, &RowError{
					Source: source, Row: rowNum, Column: col.Raw, Value: value,
					Reason: err.Error(),
				}
			}
			rec.Height = cell

		case schema.KindWeight:
			if value == "" {
				continue
			}
			cell, err := ParseWeight(value)
			if err != nil {
				return model.BuildRecord{}, &RowError{
					Source: source, Row: rowNum, Column: col.Raw, Value: value,
					Reason: err.Error(),
				}
			}
			rec.Weight = cell

		case schema.KindTags:
			rec.Tags = append(rec.Tags, ParseTags(value)...)

		default: // attribute column
			if value == "" {
				continue // missing dimension, never imputed
			}
			cell, err := ParseCell(value)
			if err != nil {
				return model.BuildRecord{}, &RowError{
					Source: source, Row: rowNum, Column: col.Raw, Value: value,
					Reason: err.Error(),
				}
			}
			if cell.Kind == model.IntervalCell {
				intervalSeen[col.Canonical] = true
			}
			rec.Attrs = append(rec.Attrs, model.Attribute{Name: col.Canonical, Cell: cell})
		}
	}

	// (name, source) pairs must be unique; a repeat skips the later row.
	nameKey := strings.ToLower(rec.Name)
	if namesSeen[nameKey] {
		return model.BuildRecord{}, &RowError{
			Source: source, Row: rowNum, Value: rec.Name,
			Reason: ErrDuplicateName.Error(),
		}
	}
	namesSeen[nameKey] = true

	rec.ID = model.BuildID(source, rowNum, rec.Name)
	return rec, nil
}

// computeBounds derives per-attribute raw bounds and 75th percentiles from
// record midpoints across the full record set.
func computeBounds(records []model.BuildRecord) (map[string]repository.Bounds, map[string]float64) {
	mids := make(map[string][]float64)
	for _, rec := range records {
		for _, a := range rec.Attrs {
			mids[a.Name] = append(mids[a.Name], a.Cell.Midpoint())
		}
	}

	bounds := make(map[string]repository.Bounds, len(mids))
	p75 := make(map[string]float64, len(mids))
	for name, vals := range mids {
		sort.Float64s(vals)
		bounds[name] = repository.Bounds{Min: vals[0], Max: vals[len(vals)-1]}
		p75[name] = percentile75(vals)
	}
	return bounds, p75
}

// percentile75 is the nearest-rank 75th percentile of sorted values.
func percentile75(sorted []float64) float64 {
	idx := int(math.Ceil(0.75*float64(len(sorted)))) - 1
	if idx < 0 {
		idx = 0
	}
	return sorted[idx]
}

// deriveEntries computes the normalized vector, composite features and
// strength score of every record against the generation-wide bounds.
func deriveEntries(records []model.BuildRecord, bounds map[string]repository.Bounds, p75 map[string]float64) []repository.Entry {
	entries := make([]repository.Entry, 0, len(records))
	for _, rec := range records {
		lookup := func(name string) (float64, bool) {
			c, ok := rec.Attr(name)
			if !ok {
				return 0, false
			}
			return c.Midpoint(), true
		}
		feats := feature.Compute(lookup)
		if feats.PrimaryRole != "" && !rec.HasTag(feats.PrimaryRole) {
			rec.Tags = append(rec.Tags, feats.PrimaryRole)
		}

		dims := make([]vector.Dim, 0, len(rec.Attrs))
		strength := 0
		for _, a := range rec.Attrs {
			mid := a.Cell.Midpoint()
			b := bounds[a.Name]
			dims = append(dims, vector.Dim{Name: a.Name, Value: vector.Normalize(mid, b.Min, b.Max)})
			if mid > p75[a.Name] {
				strength++
			}
		}

		entries = append(entries, repository.Entry{
			Record:   rec,
			Vector:   vector.New(dims),
			Features: feats,
			Strength: strength,
		})
	}
	return entries
}
