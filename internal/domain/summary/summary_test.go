package summary_test

import (
	"math"
	"testing"

	"github.com/okian/dengue/internal/domain/summary"
	. "github.com/smartystreets/goconvey/convey"
)

func TestAnnualCases(t *testing.T) {
	Convey("Given a two-and-a-bit year series", t, func() {
		series := make([][]int, 1+365*2+10)
		for d := range series {
			series[d] = []int{1, 0, 2, 0}
		}

		Convey("Then days should be grouped by run year with row 0 ignored", func() {
			So(summary.AnnualCases(series, 0), ShouldResemble, []int{365 * 3, 365 * 3, 10 * 3})
		})

		Convey("Then leading years can be discarded", func() {
			So(summary.AnnualCases(series, 2), ShouldResemble, []int{30})
			So(summary.AnnualCases(series, 3), ShouldBeNil)
		})
	})
}

func TestPerCapita(t *testing.T) {
	Convey("Given yearly counts", t, func() {
		cases := []int{50, 0, 200}

		Convey("Then they should scale to cases per 100,000", func() {
			So(summary.PerCapita(cases, 10000, 2), ShouldResemble, []float64{250, 0, 1000})
		})

		Convey("Then a degenerate population should yield zeros", func() {
			So(summary.PerCapita(cases, 0, 1), ShouldResemble, []float64{0, 0, 0})
		})
	})
}

func TestSeroprevalence(t *testing.T) {
	Convey("Given an immunity snapshot", t, func() {
		parity := []int{0, 2, 1, 0}

		So(summary.Seroprevalence(parity, nil), ShouldEqual, 0.5)
		So(summary.Seroprevalence(parity, []int{1, 2, 99}), ShouldEqual, 1.0)
		So(summary.Seroprevalence(nil, nil), ShouldEqual, 0.0)
	})
}

func TestCompute(t *testing.T) {
	Convey("Given an alternating series", t, func() {
		y := []float64{1, 5, 1, 5, 1, 5}
		m := summary.Compute(y, 0.3)

		Convey("Then location and spread should match", func() {
			So(m.Mean, ShouldEqual, 3.0)
			So(m.Median, ShouldEqual, 3.0)
			So(m.Max, ShouldEqual, 5.0)
			So(m.StdDev, ShouldAlmostEqual, math.Sqrt(24.0/5.0), 1e-9)
			So(m.Seroprevalence, ShouldEqual, 0.3)
		})

		Convey("Then every consecutive pair should cross the median", func() {
			So(m.MedianCrossings, ShouldEqual, 1.0)
		})
	})

	Convey("Given a monotone series", t, func() {
		m := summary.Compute([]float64{1, 2, 3, 4, 5}, 0)
		So(m.Median, ShouldEqual, 3.0)
		So(m.MedianCrossings, ShouldEqual, 0.25)
		So(m.Skewness, ShouldAlmostEqual, 0, 1e-12)
	})

	Convey("Given a series touching its median", t, func() {
		m := summary.Compute([]float64{1, 3, 5, 3, 1}, 0)
		So(m.Median, ShouldEqual, 3.0)

		Convey("Then two crossings over four pairs should be reported", func() {
			So(m.MedianCrossings, ShouldEqual, 0.5)
		})
	})

	Convey("Given a single value", t, func() {
		m := summary.Compute([]float64{7}, 0)
		So(m.Mean, ShouldEqual, 7.0)
		So(m.StdDev, ShouldEqual, 0.0)
		So(m.MedianCrossings, ShouldEqual, 0.0)
	})

	Convey("Given non-finite statistics", t, func() {
		m := summary.Metrics{Mean: math.NaN(), Max: math.Inf(1), Skewness: -2}
		So(m.Vector(), ShouldResemble, []float64{0, 0, 0, 0, -2, 0, 0})
		So(summary.Names, ShouldHaveLength, len(m.Vector()))
	})
}
