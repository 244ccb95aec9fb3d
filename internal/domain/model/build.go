// Package model contains domain models passed between layers.
package model

import (
	"fmt"
	"regexp"
	"strings"
)

// Position is one tag from the closed set of playing positions.
type Position string

// Closed position set. Sources may spell these out ("Point Guard") or
// abbreviate them ("PG"); ParsePosition folds both into one tag.
const (
	PointGuard    Position = "PG"
	ShootingGuard Position = "SG"
	SmallForward  Position = "SF"
	PowerForward  Position = "PF"
	Center        Position = "C"
)

// Family groups positions into Guard/Forward/Center.
type Family string

// Position families.
const (
	GuardFamily   Family = "Guard"
	ForwardFamily Family = "Forward"
	CenterFamily  Family = "Center"
)

// positionAliases maps folded source spellings to canonical tags.
var positionAliases = map[string]Position{
	"pg":             PointGuard,
	"point guard":    PointGuard,
	"sg":             ShootingGuard,
	"shooting guard": ShootingGuard,
	"sf":             SmallForward,
	"small forward":  SmallForward,
	"pf":             PowerForward,
	"power forward":  PowerForward,
	"c":              Center,
	"center":         Center,
}

// ParsePosition resolves a raw cell value to a canonical position tag.
// Returns false when the value is outside the closed set.
func ParsePosition(raw string) (Position, bool) {
	folded := strings.ToLower(strings.Join(strings.Fields(raw), " "))
	p, ok := positionAliases[folded]
	return p, ok
}

// Family returns the Guard/Forward/Center family of the position.
func (p Position) Family() Family {
	switch p {
	case PointGuard, ShootingGuard:
		return GuardFamily
	case SmallForward, PowerForward:
		return ForwardFamily
	default:
		return CenterFamily
	}
}

// CellKind discriminates the two shapes a numeric CSV cell can take.
type CellKind int

// Cell kinds.
const (
	ScalarCell CellKind = iota
	IntervalCell
)

// Cell is a tagged variant over a scalar value or a closed interval.
// The variant is carried through normalization and never collapsed to a
// single number prematurely; Midpoint is the representative scalar.
type Cell struct {
	Kind CellKind `json:"kind"`
	Low  float64  `json:"low"`
	High float64  `json:"high"`
}

// Scalar builds a scalar cell.
func Scalar(v float64) Cell {
	return Cell{Kind: ScalarCell, Low: v, High: v}
}

// Interval builds a closed-interval cell. Callers must ensure low <= high.
func Interval(low, high float64) Cell {
	return Cell{Kind: IntervalCell, Low: low, High: high}
}

// Midpoint returns the representative scalar for the cell.
func (c Cell) Midpoint() float64 {
	if c.Kind == ScalarCell {
		return c.Low
	}
	return (c.Low + c.High) / 2
}

// Intersects reports whether the cell's value range overlaps [low, high].
// A scalar cell intersects iff its value falls inside the range.
func (c Cell) Intersects(low, high float64) bool {
	return c.High >= low && c.Low <= high
}

// String renders the cell the way it appears in a CSV ("82" or "75-99").
func (c Cell) String() string {
	if c.Kind == ScalarCell {
		return trimFloat(c.Low)
	}
	return trimFloat(c.Low) + "-" + trimFloat(c.High)
}

func trimFloat(v float64) string {
	s := fmt.Sprintf("%.2f", v)
	s = strings.TrimRight(s, "0")
	return strings.TrimRight(s, ".")
}

// Attribute is one named numeric skill dimension with its raw cell value.
type Attribute struct {
	Name string `json:"name"`
	Cell Cell   `json:"cell"`
}

// BuildRecord is one archetype definition parsed from a CSV source.
// Attributes preserve source column order; lookup goes through Attr.
type BuildRecord struct {
	ID       string      `json:"id"`
	Name     string      `json:"name"`
	Source   string      `json:"source"`
	Position Position    `json:"position"`
	Height   Cell        `json:"height"`
	Weight   Cell        `json:"weight"`
	Tags     []string    `json:"tags,omitempty"`
	Attrs    []Attribute `json:"attributes"`
}

// Attr returns the raw cell for a canonical attribute name.
func (b *BuildRecord) Attr(name string) (Cell, bool) {
	for _, a := range b.Attrs {
		if a.Name == name {
			return a.Cell, true
		}
	}
	return Cell{}, false
}

// HasTag reports whether any playstyle tag contains the folded token.
func (b *BuildRecord) HasTag(token string) bool {
	folded := strings.ToLower(strings.TrimSpace(token))
	if folded == "" {
		return false
	}
	for _, t := range b.Tags {
		if strings.Contains(strings.ToLower(t), folded) {
			return true
		}
	}
	return false
}

var idUnsafe = regexp.MustCompile(`[^a-z0-9]+`)

// BuildID derives the stable record identifier from the source file, the
// zero-based row position and the display name. Identifiers are immutable
// once assigned: the same source row always maps to the same id, and ids
// sort by source then row position, which keeps tie-breaking deterministic.
func BuildID(source string, row int, name string) string {
	stem := strings.TrimSuffix(source, ".csv")
	slug := strings.Trim(idUnsafe.ReplaceAllString(strings.ToLower(name), "-"), "-")
	if slug == "" {
		slug = "build"
	}
	return fmt.Sprintf("%s-%04d-%s", stem, row, slug)
}
