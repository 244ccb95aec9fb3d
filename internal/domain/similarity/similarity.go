// Package similarity ranks catalog builds by cosine similarity over the
// dimensions two builds share, and produces attribute-level comparisons.
package similarity

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/okian/hoopdex/internal/adapters/repository"
	"github.com/okian/hoopdex/internal/domain/vector"
)

// DefaultMinShared is the minimum number of shared dimensions two builds
// need before their similarity score is considered meaningful.
const DefaultMinShared = 3

// Neighbor is one ranked similarity result.
type Neighbor struct {
	Entry      repository.Entry
	Score      float64
	SharedDims int
}

// Nearest returns the k builds most similar to the anchor, best first,
// never including the anchor itself. Candidates sharing fewer than
// minShared dimensions with the anchor are skipped; when the anchor fails
// that floor against every candidate the call fails with
// vector.ErrInsufficientDimensions rather than returning an empty result,
// so callers can tell "nothing comparable" from "nothing in the catalog".
// Ties break by build id ascending.
func Nearest(ctx context.Context, gen *repository.Generation, id string, k, minShared int) ([]Neighbor, error) {
	if k <= 0 {
		return nil, fmt.Errorf("k=%d: %w", k, ErrInvalidLimit)
	}
	if minShared <= 0 {
		minShared = DefaultMinShared
	}

	anchor, err := gen.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	var neighbors []Neighbor
	underFloor := 0
	for e := range gen.All() {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("similarity scan canceled: %w", err)
		}
		if e.Record.ID == anchor.Record.ID {
			continue
		}
		score, shared, err := vector.Cosine(anchor.Vector, e.Vector, minShared)
		if err != nil {
			if errors.Is(err, vector.ErrInsufficientDimensions) {
				underFloor++
				continue
			}
			return nil, err
		}
		neighbors = append(neighbors, Neighbor{Entry: e, Score: score, SharedDims: shared})
	}
	if len(neighbors) == 0 && underFloor > 0 {
		return nil, fmt.Errorf("no candidate shares %d dimensions with %q: %w",
			minShared, id, vector.ErrInsufficientDimensions)
	}

	sort.SliceStable(neighbors, func(i, j int) bool {
		if neighbors[i].Score != neighbors[j].Score {
			return neighbors[i].Score > neighbors[j].Score
		}
		return neighbors[i].Entry.Record.ID < neighbors[j].Entry.Record.ID
	})
	if k < len(neighbors) {
		neighbors = neighbors[:k]
	}
	return neighbors, nil
}

// Similarity computes the pairwise score between two builds directly,
// enforcing the shared-dimension floor.
func Similarity(ctx context.Context, gen *repository.Generation, aID, bID string, minShared int) (float64, int, error) {
	if minShared <= 0 {
		minShared = DefaultMinShared
	}
	a, err := gen.GetByID(ctx, aID)
	if err != nil {
		return 0, 0, err
	}
	b, err := gen.GetByID(ctx, bID)
	if err != nil {
		return 0, 0, err
	}
	return vector.Cosine(a.Vector, b.Vector, minShared)
}

// Bucket classifies the magnitude of one attribute delta.
type Bucket string

// Delta magnitude buckets, smallest to largest.
const (
	BucketNegligible Bucket = "negligible"
	BucketMinor      Bucket = "minor"
	BucketMajor      Bucket = "major"
)

// Thresholds are the normalized-delta cut points between buckets.
type Thresholds struct {
	Negligible float64 `json:"negligible" koanf:"negligible"`
	Minor      float64 `json:"minor" koanf:"minor"`
}

// DefaultThresholds returns the standard 0.05 / 0.20 cut points.
func DefaultThresholds() Thresholds {
	return Thresholds{Negligible: 0.05, Minor: 0.2}
}

func (t Thresholds) bucket(normDelta float64) Bucket {
	switch {
	case normDelta < t.Negligible:
		return BucketNegligible
	case normDelta < t.Minor:
		return BucketMinor
	default:
		return BucketMajor
	}
}

// Delta is one shared attribute's difference between the two builds.
// Raw values keep their cell form; MidpointDelta is signed A minus B.
type Delta struct {
	Attribute       string  `json:"attribute"`
	RawA            string  `json:"raw_a"`
	RawB            string  `json:"raw_b"`
	MidpointDelta   float64 `json:"midpoint_delta"`
	NormalizedDelta float64 `json:"normalized_delta"`
	Bucket          Bucket  `json:"bucket"`
}

// Comparison is the full pairwise report between two builds.
type Comparison struct {
	A            repository.Entry
	B            repository.Entry
	Score        float64
	SharedDims   int
	Deltas       []Delta
	ExclusiveToA []string
	ExclusiveToB []string
}

// Compare builds the attribute-by-attribute report for two builds. Deltas
// cover only shared dimensions and are ordered by normalized magnitude
// descending, attribute name as the tie-break; exclusive dimensions are
// listed separately rather than faked with zeros. The similarity score
// carries no shared-dimension floor here: with fewer shared dimensions
// than floor, callers still get the deltas and a best-effort score.
func Compare(ctx context.Context, gen *repository.Generation, aID, bID string, th Thresholds) (*Comparison, error) {
	a, err := gen.GetByID(ctx, aID)
	if err != nil {
		return nil, err
	}
	b, err := gen.GetByID(ctx, bID)
	if err != nil {
		return nil, err
	}

	score, shared, err := vector.Cosine(a.Vector, b.Vector, 1)
	if err != nil && !errors.Is(err, vector.ErrInsufficientDimensions) {
		return nil, err
	}

	cmp := &Comparison{
		A:            a,
		B:            b,
		Score:        score,
		SharedDims:   shared,
		ExclusiveToA: vector.ExclusiveDims(a.Vector, b.Vector),
		ExclusiveToB: vector.ExclusiveDims(b.Vector, a.Vector),
	}

	for _, name := range vector.SharedDims(a.Vector, b.Vector) {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("compare canceled: %w", err)
		}
		cellA, _ := a.Record.Attr(name)
		cellB, _ := b.Record.Attr(name)
		normA, _ := a.Vector.Value(name)
		normB, _ := b.Vector.Value(name)
		normDelta := math.Abs(normA - normB)

		cmp.Deltas = append(cmp.Deltas, Delta{
			Attribute:       name,
			RawA:            cellA.String(),
			RawB:            cellB.String(),
			MidpointDelta:   cellA.Midpoint() - cellB.Midpoint(),
			NormalizedDelta: normDelta,
			Bucket:          th.bucket(normDelta),
		})
	}

	sort.SliceStable(cmp.Deltas, func(i, j int) bool {
		if cmp.Deltas[i].NormalizedDelta != cmp.Deltas[j].NormalizedDelta {
			return cmp.Deltas[i].NormalizedDelta > cmp.Deltas[j].NormalizedDelta
		}
		return cmp.Deltas[i].Attribute < cmp.Deltas[j].Attribute
	})
	return cmp, nil
}
