// Package vector holds normalized attribute vectors and the distance math
// used by the similarity engine.
package vector

import (
	"fmt"
	"math"
)

// Dim is one named dimension with a value normalized into [0,1].
type Dim struct {
	Name  string  `json:"name"`
	Value float64 `json:"value"`
}

// NormalizedVector is the derived, immutable attribute vector of one build.
// Dimension order follows the record's attribute order. Dimensions a record
// does not define are simply absent; they are never imputed to zero, so a
// missing attribute cannot bias similarity toward "low".
type NormalizedVector struct {
	dims  []Dim
	index map[string]int
}

// New builds a vector from dimensions. The slice is copied; the vector does
// not alias caller memory.
func New(dims []Dim) NormalizedVector {
	v := NormalizedVector{
		dims:  make([]Dim, len(dims)),
		index: make(map[string]int, len(dims)),
	}
	copy(v.dims, dims)
	for i, d := range v.dims {
		v.index[d.Name] = i
	}
	return v
}

// Dims returns a copy of the dimensions in order.
func (v NormalizedVector) Dims() []Dim {
	out := make([]Dim, len(v.dims))
	copy(out, v.dims)
	return out
}

// Value returns the normalized value of a named dimension.
func (v NormalizedVector) Value(name string) (float64, bool) {
	i, ok := v.index[name]
	if !ok {
		return 0, false
	}
	return v.dims[i].Value, true
}

// Has reports whether the vector defines the named dimension.
func (v NormalizedVector) Has(name string) bool {
	_, ok := v.index[name]
	return ok
}

// Len returns the number of defined dimensions.
func (v NormalizedVector) Len() int {
	return len(v.dims)
}

// Cosine computes cosine similarity over the intersection of dimensions both
// vectors define. Dimensions missing in either vector are excluded from both
// sides, not zero-filled. Fails when fewer than minShared dimensions overlap,
// which prevents spurious high similarity from tiny overlaps. The score is
// in [-1, 1]; if either projected vector has zero magnitude the score is 0.
func Cosine(a, b NormalizedVector, minShared int) (float64, int, error) {
	var dot, normA, normB float64
	shared := 0

	for _, d := range a.dims {
		bv, ok := b.Value(d.Name)
		if !ok {
			continue
		}
		shared++
		dot += d.Value * bv
		normA += d.Value * d.Value
		normB += bv * bv
	}

	if shared < minShared {
		return 0, shared, fmt.Errorf("%d shared of %d required: %w", shared, minShared, ErrInsufficientDimensions)
	}
	if normA == 0 || normB == 0 {
		return 0, shared, nil
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB)), shared, nil
}

// SharedDims returns the names of dimensions both vectors define, in a's
// dimension order.
func SharedDims(a, b NormalizedVector) []string {
	out := make([]string, 0, len(a.dims))
	for _, d := range a.dims {
		if b.Has(d.Name) {
			out = append(out, d.Name)
		}
	}
	return out
}

// ExclusiveDims returns the names a defines that b does not, in a's order.
func ExclusiveDims(a, b NormalizedVector) []string {
	out := make([]string, 0)
	for _, d := range a.dims {
		if !b.Has(d.Name) {
			out = append(out, d.Name)
		}
	}
	return out
}

// Normalize min-max scales a raw value into [0,1] against catalog bounds.
// A degenerate bound (min == max) normalizes to 0.5: neutral in similarity
// and safe from division by zero.
func Normalize(raw, min, max float64) float64 {
	if min == max {
		return 0.5
	}
	return (raw - min) / (max - min)
}
