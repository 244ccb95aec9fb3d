package repository_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/okian/hoopdex/internal/adapters/repository"
	"github.com/okian/hoopdex/internal/domain/model"
	"github.com/okian/hoopdex/internal/domain/vector"
	. "github.com/smartystreets/goconvey/convey"
)

func testGeneration() *repository.Generation {
	entries := []repository.Entry{
		{
			Record: model.BuildRecord{ID: "guards-0002-playmaker", Name: "Playmaker", Position: model.PointGuard},
			Vector: vector.New([]vector.Dim{{Name: "speed", Value: 1}}),
		},
		{
			Record: model.BuildRecord{ID: "guards-0001-slasher", Name: "Slasher", Position: model.ShootingGuard},
			Vector: vector.New([]vector.Dim{{Name: "speed", Value: 0}}),
		},
	}
	bounds := map[string]repository.Bounds{"speed": {Min: 60, Max: 90}}
	p75 := map[string]float64{"speed": 85}
	return repository.NewGeneration("gen-1", "abc123", []string{"guards.csv"}, time.Now(), entries, bounds, p75)
}

func TestGeneration(t *testing.T) {
	Convey("Given a published generation", t, func() {
		gen := testGeneration()
		ctx := context.Background()

		Convey("Then GetByID finds records and reports unknown ids", func() {
			e, err := gen.GetByID(ctx, "guards-0001-slasher")
			So(err, ShouldBeNil)
			So(e.Record.Name, ShouldEqual, "Slasher")

			_, err = gen.GetByID(ctx, "missing")
			So(errors.Is(err, repository.ErrNotFound), ShouldBeTrue)
		})

		Convey("Then All iterates in ascending id order and is restartable", func() {
			first := make([]string, 0, 2)
			for e := range gen.All() {
				first = append(first, e.Record.ID)
			}
			So(first, ShouldResemble, []string{"guards-0001-slasher", "guards-0002-playmaker"})

			second := make([]string, 0, 2)
			for e := range gen.All() {
				second = append(second, e.Record.ID)
			}
			So(second, ShouldResemble, first)
		})

		Convey("Then All supports early termination", func() {
			count := 0
			for range gen.All() {
				count++
				break
			}
			So(count, ShouldEqual, 1)
		})

		Convey("Then Bounds exposes raw scales", func() {
			b, err := gen.Bounds("speed")
			So(err, ShouldBeNil)
			So(b, ShouldResemble, repository.Bounds{Min: 60, Max: 90})

			_, err = gen.Bounds("vertical")
			So(errors.Is(err, repository.ErrNotFound), ShouldBeTrue)
		})

		Convey("Then counters match the ingested shape", func() {
			So(gen.Count(), ShouldEqual, 2)
			So(gen.DimensionCount(), ShouldEqual, 1)
			p, ok := gen.Percentile75("speed")
			So(ok, ShouldBeTrue)
			So(p, ShouldEqual, 85)
		})
	})
}

func TestCatalogPublish(t *testing.T) {
	Convey("Given an empty catalog", t, func() {
		cat := repository.NewCatalog()

		Convey("Then Current fails before the first publish", func() {
			_, err := cat.Current()
			So(errors.Is(err, repository.ErrNoGeneration), ShouldBeTrue)
		})

		Convey("When a generation is published", func() {
			gen := testGeneration()
			cat.Publish(gen)

			Convey("Then readers observe exactly that generation", func() {
				got, err := cat.Current()
				So(err, ShouldBeNil)
				So(got.ID(), ShouldEqual, "gen-1")
			})

			Convey("Then a later publish swaps atomically without touching the old one", func() {
				pinned, _ := cat.Current()

				next := repository.NewGeneration("gen-2", "def456", []string{"guards.csv"}, time.Now(), nil, nil, nil)
				cat.Publish(next)

				So(pinned.ID(), ShouldEqual, "gen-1")
				So(pinned.Count(), ShouldEqual, 2)

				got, err := cat.Current()
				So(err, ShouldBeNil)
				So(got.ID(), ShouldEqual, "gen-2")
			})
		})
	})
}

func TestExportRoundTrip(t *testing.T) {
	Convey("Given a generation", t, func() {
		gen := testGeneration()

		Convey("When it is exported and restored", func() {
			restored := repository.FromExport(gen.Export())

			Convey("Then identity and shape survive", func() {
				So(restored.ID(), ShouldEqual, gen.ID())
				So(restored.SourceKey(), ShouldEqual, gen.SourceKey())
				So(restored.Count(), ShouldEqual, gen.Count())
				So(restored.Sources(), ShouldResemble, gen.Sources())
			})

			Convey("Then records and vectors survive", func() {
				e, err := restored.GetByID(context.Background(), "guards-0002-playmaker")
				So(err, ShouldBeNil)
				So(e.Record.Position, ShouldEqual, model.PointGuard)
				v, ok := e.Vector.Value("speed")
				So(ok, ShouldBeTrue)
				So(v, ShouldEqual, 1)
			})
		})
	})
}
