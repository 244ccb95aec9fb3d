package vector_test

import (
	"errors"
	"testing"

	"github.com/okian/hoopdex/internal/domain/vector"
	. "github.com/smartystreets/goconvey/convey"
)

func TestNormalize(t *testing.T) {
	Convey("Given catalog bounds for a dimension", t, func() {
		Convey("Then values min-max scale into [0,1]", func() {
			So(vector.Normalize(75, 60, 90), ShouldAlmostEqual, 0.5)
			So(vector.Normalize(60, 60, 90), ShouldEqual, 0)
			So(vector.Normalize(90, 60, 90), ShouldEqual, 1)
		})

		Convey("Then a degenerate bound normalizes to the neutral 0.5", func() {
			So(vector.Normalize(70, 70, 70), ShouldEqual, 0.5)
		})

		Convey("Then normalization is deterministic", func() {
			So(vector.Normalize(72.5, 60, 90), ShouldEqual, vector.Normalize(72.5, 60, 90))
		})
	})
}

func TestVectorAccess(t *testing.T) {
	Convey("Given a normalized vector", t, func() {
		dims := []vector.Dim{
			{Name: "speed", Value: 0.8},
			{Name: "vertical", Value: 0.4},
		}
		v := vector.New(dims)

		Convey("Then values are reachable by name", func() {
			val, ok := v.Value("speed")
			So(ok, ShouldBeTrue)
			So(val, ShouldEqual, 0.8)

			_, ok = v.Value("block")
			So(ok, ShouldBeFalse)
		})

		Convey("Then the vector does not alias caller memory", func() {
			dims[0].Value = 0
			val, _ := v.Value("speed")
			So(val, ShouldEqual, 0.8)
		})

		Convey("Then Dims returns an ordered copy", func() {
			out := v.Dims()
			So(out, ShouldHaveLength, 2)
			So(out[0].Name, ShouldEqual, "speed")
			out[0].Value = 99
			val, _ := v.Value("speed")
			So(val, ShouldEqual, 0.8)
		})
	})
}

func TestCosine(t *testing.T) {
	Convey("Given vectors with fully shared dimensions", t, func() {
		a := vector.New([]vector.Dim{{Name: "a", Value: 0.5}, {Name: "b", Value: 0.5}, {Name: "c", Value: 0.5}})
		b := vector.New([]vector.Dim{{Name: "a", Value: 1}, {Name: "b", Value: 1}, {Name: "c", Value: 1}})

		Convey("Then parallel vectors score 1", func() {
			score, shared, err := vector.Cosine(a, b, 3)
			So(err, ShouldBeNil)
			So(shared, ShouldEqual, 3)
			So(score, ShouldAlmostEqual, 1.0, 1e-12)
		})
	})

	Convey("Given vectors with partially overlapping dimensions", t, func() {
		a := vector.New([]vector.Dim{
			{Name: "speed", Value: 0.9},
			{Name: "vertical", Value: 0.2},
			{Name: "steal", Value: 0.5},
			{Name: "post_control", Value: 0.7},
		})
		b := vector.New([]vector.Dim{
			{Name: "speed", Value: 0.9},
			{Name: "vertical", Value: 0.2},
			{Name: "steal", Value: 0.5},
			{Name: "block", Value: 0.1},
		})

		Convey("Then only the intersection contributes", func() {
			score, shared, err := vector.Cosine(a, b, 3)
			So(err, ShouldBeNil)
			So(shared, ShouldEqual, 3)
			// a and b agree exactly on the three shared dims.
			So(score, ShouldAlmostEqual, 1.0, 1e-12)
		})

		Convey("Then exclusive dimensions are enumerable", func() {
			So(vector.ExclusiveDims(a, b), ShouldResemble, []string{"post_control"})
			So(vector.ExclusiveDims(b, a), ShouldResemble, []string{"block"})
			So(vector.SharedDims(a, b), ShouldResemble, []string{"speed", "vertical", "steal"})
		})
	})

	Convey("Given vectors with too small an overlap", t, func() {
		a := vector.New([]vector.Dim{{Name: "speed", Value: 1}, {Name: "x", Value: 1}})
		b := vector.New([]vector.Dim{{Name: "speed", Value: 1}, {Name: "y", Value: 1}})

		Convey("Then Cosine fails with InsufficientDimensions", func() {
			_, shared, err := vector.Cosine(a, b, 3)
			So(errors.Is(err, vector.ErrInsufficientDimensions), ShouldBeTrue)
			So(shared, ShouldEqual, 1)
		})
	})

	Convey("Given a zero-magnitude projection", t, func() {
		a := vector.New([]vector.Dim{{Name: "a", Value: 0}, {Name: "b", Value: 0}, {Name: "c", Value: 0}})
		b := vector.New([]vector.Dim{{Name: "a", Value: 1}, {Name: "b", Value: 1}, {Name: "c", Value: 1}})

		Convey("Then the score is 0 rather than NaN", func() {
			score, _, err := vector.Cosine(a, b, 3)
			So(err, ShouldBeNil)
			So(score, ShouldEqual, 0)
		})
	})
}
