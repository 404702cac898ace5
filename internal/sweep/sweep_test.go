package sweep_test

import (
	"errors"
	"math"
	"testing"

	"github.com/okian/dengue/internal/domain/model"
	"github.com/okian/dengue/internal/domain/params"
	"github.com/okian/dengue/internal/domain/summary"
	"github.com/okian/dengue/internal/sweep"
	. "github.com/smartystreets/goconvey/convey"
)

func TestGenerate(t *testing.T) {
	Convey("Given a sweep over transmission and introductions", t, func() {
		base := params.Default()
		base.RandomSeed = 100
		cfg := sweep.Config{
			Particles: 20,
			Seed:      3,
			Priors: []sweep.Prior{
				{Name: "beta", Min: 0.1, Max: 0.4},
				{Name: "annual_introductions_coef", Min: -2, Max: 0, Log10: true},
				{Name: "default_mosquito_capacity", Min: 10, Max: 80},
			},
		}

		Convey("When drawing particles", func() {
			ps, err := sweep.Generate(base, cfg)

			Convey("Then every draw should respect its prior", func() {
				So(err, ShouldBeNil)
				So(ps, ShouldHaveLength, 20)
				for i, p := range ps {
					So(p.Index, ShouldEqual, i)
					So(p.Params.RandomSeed, ShouldEqual, uint64(100+i))
					So(p.Params.BetaMP, ShouldEqual, p.Params.BetaPM)
					So(p.Params.BetaMP, ShouldBeBetweenOrEqual, 0.1, 0.4)
					So(p.Values[1], ShouldBeBetweenOrEqual, -2, 0)
					So(p.Params.AnnualIntroductionsCoef, ShouldAlmostEqual, math.Pow(10, p.Values[1]), 1e-12)
					So(p.Params.DefaultMosquitoCapacity, ShouldBeBetweenOrEqual, 10, 80)
				}
			})

			Convey("Then the base bundle should be untouched", func() {
				So(base.BetaMP, ShouldEqual, params.Default().BetaMP)
			})

			Convey("Then the same seed should draw the same particles", func() {
				again, err := sweep.Generate(base, cfg)
				So(err, ShouldBeNil)
				for i := range ps {
					So(again[i].Values, ShouldResemble, ps[i].Values)
				}
			})
		})

		Convey("When a prior names an unknown parameter", func() {
			cfg.Priors = append(cfg.Priors, sweep.Prior{Name: "wing_span", Min: 0, Max: 1})
			_, err := sweep.Generate(base, cfg)
			So(errors.Is(err, sweep.ErrUnknownParameter), ShouldBeTrue)
		})

		Convey("When a prior is inverted", func() {
			cfg.Priors[0] = sweep.Prior{Name: "beta", Min: 0.5, Max: 0.1}
			_, err := sweep.Generate(base, cfg)
			So(errors.Is(err, sweep.ErrInvalidPrior), ShouldBeTrue)
		})

		Convey("When a prior leaves the valid parameter range", func() {
			cfg.Priors[0] = sweep.Prior{Name: "beta", Min: 1.5, Max: 2}
			_, err := sweep.Generate(base, cfg)
			So(errors.Is(err, params.ErrInvalidParameters), ShouldBeTrue)
		})
	})
}

func TestRank(t *testing.T) {
	Convey("Given runs with different metrics", t, func() {
		target := map[string]float64{"mean": 100, "seroprevalence": 0.5}
		results := []model.RunResult{
			{RunID: "far", Metrics: summary.Metrics{Mean: 300, Seroprevalence: 0.9}},
			{RunID: "close", Metrics: summary.Metrics{Mean: 110, Seroprevalence: 0.5}},
			{RunID: "exact", Metrics: summary.Metrics{Mean: 100, Seroprevalence: 0.5}},
			{RunID: "nan", Metrics: summary.Metrics{Mean: math.NaN(), Seroprevalence: 0.5}},
		}

		Convey("When ranking all of them", func() {
			ranked, err := sweep.Rank(results, target, 0)

			Convey("Then they should be ordered by distance", func() {
				So(err, ShouldBeNil)
				So(ranked, ShouldHaveLength, 4)
				So(ranked[0].RunID, ShouldEqual, "exact")
				So(ranked[0].Distance, ShouldEqual, 0)
				So(ranked[1].RunID, ShouldEqual, "close")
				So(ranked[1].Distance, ShouldAlmostEqual, 0.1, 1e-12)
				So(ranked[2].RunID, ShouldEqual, "nan")
				So(ranked[2].Distance, ShouldEqual, 1)
				So(ranked[3].RunID, ShouldEqual, "far")
			})
		})

		Convey("When keeping the best two", func() {
			ranked, err := sweep.Rank(results, target, 2)
			So(err, ShouldBeNil)
			So(ranked, ShouldHaveLength, 2)
		})

		Convey("When the target names an unknown metric", func() {
			_, err := sweep.Rank(results, map[string]float64{"peak_week": 3}, 0)
			So(errors.Is(err, sweep.ErrUnknownMetric), ShouldBeTrue)
		})
	})
}
