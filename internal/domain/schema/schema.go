// Package schema classifies CSV source columns and reconciles attribute
// names across heterogeneous sources.
package schema

import (
	"fmt"
	"regexp"
	"strings"
	"sync"
)

// ColumnKind classifies one source column.
type ColumnKind int

// Column kinds. Name, Position, Height, Weight and Tags are the identifier
// columns; everything else in a header defaults to a numeric attribute and
// is promoted to a range attribute when interval cells are observed.
const (
	KindIgnored ColumnKind = iota
	KindName
	KindPosition
	KindHeight
	KindWeight
	KindTags
	KindNumericAttribute
	KindRangeAttribute
)

// String names the kind for logs and error messages.
func (k ColumnKind) String() string {
	switch k {
	case KindName:
		return "name"
	case KindPosition:
		return "position"
	case KindHeight:
		return "height"
	case KindWeight:
		return "weight"
	case KindTags:
		return "tags"
	case KindNumericAttribute:
		return "numeric"
	case KindRangeAttribute:
		return "range"
	default:
		return "ignored"
	}
}

// IsAttribute reports whether the kind denotes a skill dimension.
func (k ColumnKind) IsAttribute() bool {
	return k == KindNumericAttribute || k == KindRangeAttribute
}

// Column is one classified header cell.
type Column struct {
	Raw       string
	Canonical string
	Kind      ColumnKind
}

var (
	nonWord    = regexp.MustCompile(`[^\w\s]`)
	whitespace = regexp.MustCompile(`\s+`)
)

// CanonicalName folds a raw header into its canonical snake_case form.
// Folding is case/whitespace/punctuation only; no semantic merging.
func CanonicalName(raw string) string {
	s := strings.TrimSpace(raw)
	s = strings.ReplaceAll(s, "&", "and")
	s = nonWord.ReplaceAllString(s, " ")
	s = whitespace.ReplaceAllString(strings.TrimSpace(s), "_")
	return strings.Trim(strings.ToLower(s), "_")
}

// identifierColumns maps canonical names to their identifier kind.
var identifierColumns = map[string]ColumnKind{
	"name":       KindName,
	"build_name": KindName,
	"build":      KindName,
	"position":   KindPosition,
	"pos":        KindPosition,
	"height":     KindHeight,
	"weight":     KindWeight,
	"tags":       KindTags,
	"playstyle":  KindTags,
}

// ignoredColumns are bookkeeping columns some exports carry.
var ignoredColumns = map[string]bool{
	"source_file": true,
	"notes":       true,
	"":            true,
}

// Registry reconciles attribute declarations across sources. A canonical
// attribute name keeps the kind declared by the first source that used it;
// a later source declaring an incompatible kind is a schema error that must
// surface rather than be coerced.
type Registry struct {
	mu    sync.Mutex
	attrs map[string]declaration
}

type declaration struct {
	kind   ColumnKind
	source string
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{attrs: make(map[string]declaration)}
}

// Classify maps a source header row onto classified columns. Identifier
// columns are matched by canonical name; the remainder start as numeric
// attributes until DeclareAttribute promotes them. Duplicate canonical
// names within one header are a schema error.
func (r *Registry) Classify(source string, header []string) ([]Column, error) {
	cols := make([]Column, 0, len(header))
	seen := make(map[string]bool, len(header))
	hasName := false

	for _, raw := range header {
		canonical := CanonicalName(raw)
		col := Column{Raw: raw, Canonical: canonical}

		switch {
		case ignoredColumns[canonical]:
			col.Kind = KindIgnored
		case identifierColumns[canonical] != KindIgnored:
			col.Kind = identifierColumns[canonical]
		default:
			col.Kind = KindNumericAttribute
		}

		if col.Kind != KindIgnored {
			if seen[canonical] {
				return nil, fmt.Errorf("%s: column %q: %w", source, raw, ErrDuplicateColumn)
			}
			seen[canonical] = true
		}
		if col.Kind == KindName {
			hasName = true
		}
		cols = append(cols, col)
	}

	if !hasName {
		return nil, fmt.Errorf("%s: %w", source, ErrMissingNameColumn)
	}
	return cols, nil
}

// DeclareAttribute registers the observed kind for a canonical attribute
// name. The first declaration wins; re-declaring the same kind is a no-op,
// and a conflicting kind from another source fails with ErrKindConflict.
func (r *Registry) DeclareAttribute(source, canonical string, kind ColumnKind) error {
	if !kind.IsAttribute() {
		return fmt.Errorf("%s: attribute %q declared as %s: %w", source, canonical, kind, ErrNotAnAttribute)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	existing, ok := r.attrs[canonical]
	if !ok {
		r.attrs[canonical] = declaration{kind: kind, source: source}
		return nil
	}
	if existing.kind != kind {
		return fmt.Errorf("attribute %q is %s in %s but %s in %s: %w",
			canonical, existing.kind, existing.source, kind, source, ErrKindConflict)
	}
	return nil
}

// Kind returns the registered kind for a canonical attribute name.
func (r *Registry) Kind(canonical string) (ColumnKind, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	d, ok := r.attrs[canonical]
	return d.kind, ok
}

// AttributeNames returns every declared canonical attribute name.
func (r *Registry) AttributeNames() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	names := make([]string, 0, len(r.attrs))
	for name := range r.attrs {
		names = append(names, name)
	}
	return names
}
