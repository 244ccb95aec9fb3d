package repository

import (
	"time"

	"github.com/okian/hoopdex/internal/domain/feature"
	"github.com/okian/hoopdex/internal/domain/model"
	"github.com/okian/hoopdex/internal/domain/vector"
)

// EntryExport is the serializable form of an Entry.
type EntryExport struct {
	Record   model.BuildRecord `json:"record"`
	Dims     []vector.Dim      `json:"dims"`
	Features feature.Set       `json:"features"`
	Strength int               `json:"strength"`
}

// GenerationExport is the serializable form of a Generation, used by the
// snapshot store to persist and restore generations without re-parsing.
type GenerationExport struct {
	ID        string             `json:"id"`
	CreatedAt time.Time          `json:"created_at"`
	SourceKey string             `json:"source_key"`
	Sources   []string           `json:"sources"`
	Entries   []EntryExport      `json:"entries"`
	Bounds    map[string]Bounds  `json:"bounds"`
	P75       map[string]float64 `json:"p75"`
}

// Export converts the generation to its serializable form.
func (g *Generation) Export() GenerationExport {
	entries := make([]EntryExport, len(g.entries))
	for i, e := range g.entries {
		entries[i] = EntryExport{
			Record:   e.Record,
			Dims:     e.Vector.Dims(),
			Features: e.Features,
			Strength: e.Strength,
		}
	}
	return GenerationExport{
		ID:        g.id,
		CreatedAt: g.createdAt,
		SourceKey: g.sourceKey,
		Sources:   g.Sources(),
		Entries:   entries,
		Bounds:    g.AllBounds(),
		P75:       g.p75,
	}
}

// FromExport rebuilds a generation from its serialized form.
func FromExport(x GenerationExport) *Generation {
	entries := make([]Entry, len(x.Entries))
	for i, e := range x.Entries {
		entries[i] = Entry{
			Record:   e.Record,
			Vector:   vector.New(e.Dims),
			Features: e.Features,
			Strength: e.Strength,
		}
	}
	return NewGeneration(x.ID, x.SourceKey, x.Sources, x.CreatedAt, entries, x.Bounds, x.P75)
}
