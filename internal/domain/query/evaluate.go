package query

import (
	"context"
	"fmt"
	"sort"

	"github.com/okian/hoopdex/internal/adapters/repository"
	"github.com/okian/hoopdex/internal/domain/model"
)

// Evaluate scans the generation and returns every entry satisfying the
// predicate, strongest first. Results are ordered by strength score
// descending with the build id as the deterministic tie-break.
func Evaluate(ctx context.Context, gen *repository.Generation, p *Predicate) ([]repository.Entry, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}

	var position model.Position
	if p.Position != "" {
		position, _ = model.ParsePosition(p.Position)
	}

	var matches []repository.Entry
	for e := range gen.All() {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("search canceled: %w", err)
		}
		if matchEntry(&e, p, position) {
			matches = append(matches, e)
		}
	}

	sort.SliceStable(matches, func(i, j int) bool {
		if matches[i].Strength != matches[j].Strength {
			return matches[i].Strength > matches[j].Strength
		}
		return matches[i].Record.ID < matches[j].Record.ID
	})
	return matches, nil
}

// matchEntry applies every clause of the conjunction; the first miss
// rejects the entry.
func matchEntry(e *repository.Entry, p *Predicate, position model.Position) bool {
	rec := &e.Record

	if p.Position != "" && rec.Position != position {
		return false
	}
	// Interval measurements match on overlap: a 75-80 height build
	// satisfies a max-78 clause because part of its range qualifies.
	if p.Height != nil && !cellInRange(rec.Height, p.Height) {
		return false
	}
	if p.Weight != nil && !cellInRange(rec.Weight, p.Weight) {
		return false
	}
	for _, token := range p.Tags {
		if !rec.HasTag(token) {
			return false
		}
	}
	for _, a := range p.Attrs {
		cell, ok := rec.Attr(a.Name)
		if !ok {
			return false
		}
		if !matchThreshold(cell, a.Op, a.Value) {
			return false
		}
	}
	return true
}

func cellInRange(c model.Cell, r *Range) bool {
	if c == (model.Cell{}) {
		return false // measurement absent from the source row
	}
	return c.Intersects(r.low(), r.high())
}

// matchThreshold compares a raw cell against an operator. An interval
// satisfies "at least v" when any part of it reaches v, mirroring the
// overlap semantics of range clauses.
func matchThreshold(c model.Cell, op Op, v float64) bool {
	switch op {
	case OpAtLeast:
		return c.High >= v
	case OpAtMost:
		return c.Low <= v
	case OpEquals:
		return c.Intersects(v, v)
	default:
		return false
	}
}

// Paginate slices a result set. Offsets past the end yield an empty page;
// a non-positive limit means no cap.
func Paginate(entries []repository.Entry, offset, limit int) []repository.Entry {
	if offset < 0 {
		offset = 0
	}
	if offset >= len(entries) {
		return nil
	}
	entries = entries[offset:]
	if limit > 0 && limit < len(entries) {
		entries = entries[:limit]
	}
	return entries
}
