package ingest

import (
	"context"
	"errors"
	"testing"

	"github.com/okian/hoopdex/internal/domain/model"
	"github.com/okian/hoopdex/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func init() {
	// Initialize logging for tests
	if err := logger.Init(); err != nil {
		panic(err)
	}
}

const centersCSV = "name,position,speed,vertical\n" +
	"Rim Runner,C,70-80,90\n" +
	"Stretch Five,C,60,40-60\n"

func TestIngestBoundsOverMidpoints(t *testing.T) {
	Convey("Given a source mixing scalar and interval cells", t, func() {
		ing := New(WithWorkers(1))
		gen, report, err := ing.Ingest(context.Background(),
			[]Source{StringSource("centers.csv", centersCSV)})
		So(err, ShouldBeNil)
		So(gen.Count(), ShouldEqual, 2)
		So(report.RowsIngested, ShouldEqual, 2)
		So(report.RowsSkipped, ShouldEqual, 0)

		Convey("Bounds come from cell midpoints, not interval endpoints", func() {
			b, err := gen.Bounds("speed")
			So(err, ShouldBeNil)
			So(b.Min, ShouldEqual, 60)
			So(b.Max, ShouldEqual, 75)

			b, err = gen.Bounds("vertical")
			So(err, ShouldBeNil)
			So(b.Min, ShouldEqual, 50)
			So(b.Max, ShouldEqual, 90)
		})

		Convey("Normalized vectors reflect the midpoint bounds", func() {
			e, err := gen.GetByID(context.Background(), "centers-0001-rim-runner")
			So(err, ShouldBeNil)
			v, ok := e.Vector.Value("speed")
			So(ok, ShouldBeTrue)
			So(v, ShouldEqual, 1.0)

			e, err = gen.GetByID(context.Background(), "centers-0002-stretch-five")
			So(err, ShouldBeNil)
			v, _ = e.Vector.Value("speed")
			So(v, ShouldEqual, 0.0)
		})

		Convey("Raw cells survive normalization untouched", func() {
			e, err := gen.GetByID(context.Background(), "centers-0001-rim-runner")
			So(err, ShouldBeNil)
			c, ok := e.Record.Attr("speed")
			So(ok, ShouldBeTrue)
			So(c.Kind, ShouldEqual, model.IntervalCell)
			So(c.String(), ShouldEqual, "70-80")
		})
	})
}

func TestIngestRowErrors(t *testing.T) {
	Convey("Given a source with one malformed row", t, func() {
		csv := "name,position,speed\n" +
			"Good Guard,PG,80\n" +
			"Broken Build,SG,90-70\n" +
			"Other Guard,SG,70\n"
		ing := New(WithWorkers(1))
		gen, report, err := ing.Ingest(context.Background(),
			[]Source{StringSource("guards.csv", csv)})
		So(err, ShouldBeNil)

		Convey("Only the malformed row is skipped", func() {
			So(gen.Count(), ShouldEqual, 2)
			So(report.RowsIngested, ShouldEqual, 2)
			So(report.RowsSkipped, ShouldEqual, 1)
			So(report.Sources, ShouldHaveLength, 1)
			So(report.Sources[0].RowErrors, ShouldHaveLength, 1)
			So(report.Sources[0].RowErrors[0].Row, ShouldEqual, 2)
			So(report.Sources[0].RowErrors[0].Value, ShouldEqual, "90-70")
		})
	})

	Convey("Given rows with structural problems", t, func() {
		csv := "name,position,speed\n" +
			",PG,80\n" +
			"Solid Build,XX,70\n" +
			"Wide Row,PG,70,extra\n" +
			"Solid Build 2,PG,70\n" +
			"Solid Build 2,PG,75\n"
		ing := New(WithWorkers(1))
		gen, report, err := ing.Ingest(context.Background(),
			[]Source{StringSource("guards.csv", csv)})
		So(err, ShouldBeNil)
		So(gen.Count(), ShouldEqual, 1)

		Convey("Each failure mode is reported against its row", func() {
			So(report.RowsSkipped, ShouldEqual, 4)
			reasons := make([]string, 0, 4)
			for _, re := range report.Sources[0].RowErrors {
				reasons = append(reasons, re.Reason)
			}
			So(reasons, ShouldContain, ErrMissingName.Error())
			So(reasons, ShouldContain, ErrUnknownPosition.Error())
			So(reasons, ShouldContain, ErrDuplicateName.Error())
		})
	})
}

func TestIngestDegenerateDimension(t *testing.T) {
	Convey("Given an attribute where every build has the same value", t, func() {
		csv := "name,position,steal\n" +
			"One,PG,55\n" +
			"Two,SG,55\n"
		ing := New()
		gen, _, err := ing.Ingest(context.Background(),
			[]Source{StringSource("guards.csv", csv)})
		So(err, ShouldBeNil)

		Convey("The dimension normalizes to the neutral midpoint", func() {
			for e := range gen.All() {
				v, ok := e.Vector.Value("steal")
				So(ok, ShouldBeTrue)
				So(v, ShouldEqual, 0.5)
			}
		})
	})
}

func TestIngestMissingDimensions(t *testing.T) {
	Convey("Given a build with an empty attribute cell", t, func() {
		csv := "name,position,speed,block\n" +
			"Guard,PG,90,\n" +
			"Center,C,60,85\n"
		ing := New()
		gen, _, err := ing.Ingest(context.Background(),
			[]Source{StringSource("mixed.csv", csv)})
		So(err, ShouldBeNil)

		Convey("The dimension is absent from the vector, not imputed", func() {
			e, err := gen.GetByID(context.Background(), "mixed-0001-guard")
			So(err, ShouldBeNil)
			_, ok := e.Vector.Value("block")
			So(ok, ShouldBeFalse)
			So(e.Vector.Len(), ShouldEqual, 1)
		})
	})
}

func TestIngestMultipleSources(t *testing.T) {
	Convey("Given two sources with overlapping attribute columns", t, func() {
		guards := "name,position,speed\nQuick Guard,PG,95\n"
		centers := "name,position,speed\nSlow Center,C,55\n"
		ing := New(WithWorkers(2))
		gen, report, err := ing.Ingest(context.Background(), []Source{
			StringSource("guards.csv", guards),
			StringSource("centers.csv", centers),
		})
		So(err, ShouldBeNil)

		Convey("Bounds span all sources", func() {
			So(gen.Count(), ShouldEqual, 2)
			b, err := gen.Bounds("speed")
			So(err, ShouldBeNil)
			So(b.Min, ShouldEqual, 55)
			So(b.Max, ShouldEqual, 95)
		})

		Convey("Sources are recorded in sorted order", func() {
			So(gen.Sources(), ShouldResemble, []string{"centers.csv", "guards.csv"})
			So(report.Sources, ShouldHaveLength, 2)
		})
	})
}

func TestIngestFatalSources(t *testing.T) {
	Convey("With no sources the ingestion fails immediately", t, func() {
		ing := New()
		_, _, err := ing.Ingest(context.Background(), nil)
		So(errors.Is(err, ErrNoSources), ShouldBeTrue)
	})

	Convey("A source whose rows all fail is fatal but does not sink others", t, func() {
		bad := "name,position,speed\n,PG,80\n"
		good := "name,position,speed\nKeeper,PG,70\n"
		ing := New(WithWorkers(1))
		gen, report, err := ing.Ingest(context.Background(), []Source{
			StringSource("bad.csv", bad),
			StringSource("good.csv", good),
		})
		So(err, ShouldBeNil)
		So(gen.Count(), ShouldEqual, 1)
		So(report.Sources[0].Fatal, ShouldNotBeEmpty)
		So(report.Sources[1].Fatal, ShouldBeEmpty)
	})

	Convey("When every source is fatal the ingestion fails", t, func() {
		ing := New()
		_, _, err := ing.Ingest(context.Background(), []Source{
			StringSource("empty.csv", "name,position,speed\n"),
		})
		So(errors.Is(err, ErrNoRows), ShouldBeTrue)
	})
}

func TestIngestStrengthAndRole(t *testing.T) {
	Convey("Given a catalog with a clear standout build", t, func() {
		csv := "name,position,three_point_shot,midrange_shot,free_throw\n" +
			"Sniper,SG,99,95,90\n" +
			"Average A,SG,70,70,70\n" +
			"Average B,SG,72,71,74\n" +
			"Average C,SG,68,69,73\n"
		ing := New()
		gen, _, err := ing.Ingest(context.Background(),
			[]Source{StringSource("guards.csv", csv)})
		So(err, ShouldBeNil)

		Convey("The standout counts every dimension above the 75th percentile", func() {
			e, err := gen.GetByID(context.Background(), "guards-0001-sniper")
			So(err, ShouldBeNil)
			So(e.Strength, ShouldEqual, 3)
		})

		Convey("The derived primary role lands in the tags", func() {
			e, err := gen.GetByID(context.Background(), "guards-0001-sniper")
			So(err, ShouldBeNil)
			So(e.Record.HasTag("Shooting"), ShouldBeTrue)
		})
	})
}

func TestSourceKey(t *testing.T) {
	Convey("Given the same source content", t, func() {
		a := []Source{
			StringSource("a.csv", "name,speed\nX,80\n"),
			StringSource("b.csv", "name,speed\nY,70\n"),
		}
		b := []Source{
			StringSource("b.csv", "name,speed\nY,70\n"),
			StringSource("a.csv", "name,speed\nX,80\n"),
		}

		Convey("The key is deterministic and order-independent", func() {
			ka, err := SourceKey(a)
			So(err, ShouldBeNil)
			kb, err := SourceKey(b)
			So(err, ShouldBeNil)
			So(ka, ShouldEqual, kb)
		})

		Convey("Changed content changes the key", func() {
			ka, err := SourceKey(a)
			So(err, ShouldBeNil)
			c := []Source{
				StringSource("a.csv", "name,speed\nX,81\n"),
				StringSource("b.csv", "name,speed\nY,70\n"),
			}
			kc, err := SourceKey(c)
			So(err, ShouldBeNil)
			So(kc, ShouldNotEqual, ka)
		})
	})
}
