// Package query implements the conjunctive filter engine over a published
// catalog generation. A predicate is a flat AND of clauses; there is no OR
// and no negation.
package query

import (
	"fmt"
	"math"

	"github.com/okian/hoopdex/internal/domain/model"
)

// Op compares a build's raw attribute cell against a threshold.
type Op string

// Supported threshold operators.
const (
	OpAtLeast Op = "gte"
	OpAtMost  Op = "lte"
	OpEquals  Op = "eq"
)

// Range constrains a physical measurement. Either end may be open.
type Range struct {
	Min *float64 `json:"min,omitempty"`
	Max *float64 `json:"max,omitempty"`
}

func (r *Range) low() float64 {
	if r.Min == nil {
		return math.Inf(-1)
	}
	return *r.Min
}

func (r *Range) high() float64 {
	if r.Max == nil {
		return math.Inf(1)
	}
	return *r.Max
}

// AttributeFilter is one threshold clause against a named attribute.
// Records missing the attribute never match; absence is not zero.
type AttributeFilter struct {
	Name  string  `json:"name"`
	Op    Op      `json:"op"`
	Value float64 `json:"value"`
}

// Predicate is the full conjunction. Zero-value fields contribute no
// clause, so the empty predicate matches every build.
type Predicate struct {
	Position string            `json:"position,omitempty"`
	Height   *Range            `json:"height,omitempty"`
	Weight   *Range            `json:"weight,omitempty"`
	Tags     []string          `json:"tags,omitempty"`
	Attrs    []AttributeFilter `json:"attributes,omitempty"`
}

// Validate rejects malformed predicates before evaluation so a bad request
// never scans the catalog.
func (p *Predicate) Validate() error {
	if p.Position != "" {
		if _, ok := model.ParsePosition(p.Position); !ok {
			return fmt.Errorf("position %q: %w", p.Position, ErrUnknownPosition)
		}
	}
	if err := validateRange("height", p.Height); err != nil {
		return err
	}
	if err := validateRange("weight", p.Weight); err != nil {
		return err
	}
	for _, a := range p.Attrs {
		if a.Name == "" {
			return ErrEmptyAttributeName
		}
		switch a.Op {
		case OpAtLeast, OpAtMost, OpEquals:
		default:
			return fmt.Errorf("attribute %q op %q: %w", a.Name, a.Op, ErrUnknownOp)
		}
	}
	return nil
}

func validateRange(field string, r *Range) error {
	if r == nil {
		return nil
	}
	if r.Min != nil && r.Max != nil && *r.Min > *r.Max {
		return fmt.Errorf("%s range [%v, %v]: %w", field, *r.Min, *r.Max, ErrInvalidRange)
	}
	return nil
}
