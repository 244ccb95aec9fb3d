// Package feature computes composite ratings and the primary role of a
// build from its raw attribute midpoints.
package feature

import (
	"sort"
	"strings"
)

// Spec defines one composite: the attribute dimensions it draws on and
// their weights. Missing inputs are ignored and the remaining weights are
// re-normalized proportionally.
type Spec struct {
	Inputs  []string
	Weights []float64
}

// Order fixes the composite evaluation order; primary-role ties resolve to
// the earlier composite.
var Order = []string{"finishing", "shooting", "playmaking", "defense", "athleticism"}

// Specs maps composite names to their attribute groups.
var Specs = map[string]Spec{
	"finishing": {
		Inputs:  []string{"close_shot", "driving_layup", "driving_dunk", "standing_dunk", "post_control"},
		Weights: []float64{0.22, 0.18, 0.25, 0.15, 0.20},
	},
	"shooting": {
		Inputs:  []string{"midrange_shot", "three_point_shot", "free_throw"},
		Weights: []float64{0.4, 0.45, 0.15},
	},
	"playmaking": {
		Inputs:  []string{"pass_accuracy", "ball_handle", "speed_with_ball"},
		Weights: []float64{0.4, 0.35, 0.25},
	},
	"defense": {
		Inputs:  []string{"interior_defense", "perimeter_defense", "steal", "block", "defensive_rebound"},
		Weights: []float64{0.25, 0.25, 0.15, 0.15, 0.20},
	},
	"athleticism": {
		Inputs:  []string{"speed", "agility", "strength", "vertical"},
		Weights: []float64{0.25, 0.25, 0.2, 0.3},
	},
}

// Set carries the computed composites of one build.
type Set struct {
	Scores       map[string]float64 `json:"scores"`
	PrimaryRole  string             `json:"primary_role"`
	PrimaryScore float64            `json:"primary_role_score"`
}

// Lookup resolves a canonical attribute name to its raw midpoint value.
type Lookup func(name string) (float64, bool)

// Compute derives all composites for one build. Composites whose inputs are
// entirely missing are omitted from the set; the primary role is the highest
// composite, ties resolved by Order.
func Compute(attr Lookup) Set {
	set := Set{Scores: make(map[string]float64, len(Order))}

	for _, name := range Order {
		spec := Specs[name]
		vals := make([]float64, 0, len(spec.Inputs))
		weights := make([]float64, 0, len(spec.Inputs))
		for i, input := range spec.Inputs {
			v, ok := attr(input)
			if !ok {
				continue
			}
			vals = append(vals, v)
			weights = append(weights, spec.Weights[i])
		}
		score, ok := weightedMedian(vals, weights)
		if !ok {
			continue
		}
		set.Scores[name] = score
	}

	for _, name := range Order {
		score, ok := set.Scores[name]
		if !ok {
			continue
		}
		if set.PrimaryRole == "" || score > set.PrimaryScore {
			set.PrimaryRole = roleName(name)
			set.PrimaryScore = score
		}
	}
	return set
}

// roleName renders a composite name as a display role, e.g. "Finishing".
func roleName(composite string) string {
	if composite == "" {
		return ""
	}
	return strings.ToUpper(composite[:1]) + composite[1:]
}

// weightedMedian returns the weighted median of vals: the first value whose
// cumulative normalized weight reaches 0.5 when sorted ascending. Reports
// false when no values are present.
func weightedMedian(vals, weights []float64) (float64, bool) {
	if len(vals) == 0 {
		return 0, false
	}

	type pair struct {
		v, w float64
	}
	pairs := make([]pair, 0, len(vals))
	var total float64
	for i, v := range vals {
		if weights[i] <= 0 {
			continue
		}
		pairs = append(pairs, pair{v: v, w: weights[i]})
		total += weights[i]
	}
	if len(pairs) == 0 || total <= 0 {
		// equal weights fallback
		sorted := append([]float64(nil), vals...)
		sort.Float64s(sorted)
		return sorted[len(sorted)/2], true
	}

	sort.Slice(pairs, func(i, j int) bool { return pairs[i].v < pairs[j].v })
	cum := 0.0
	for _, p := range pairs {
		cum += p.w / total
		if cum >= 0.5 {
			return p.v, true
		}
	}
	return pairs[len(pairs)-1].v, true
}
