package params_test

import (
	"errors"
	"testing"

	"github.com/okian/dengue/internal/domain/params"
	. "github.com/smartystreets/goconvey/convey"
)

func TestDefault(t *testing.T) {
	Convey("Given the default parameters", t, func() {
		p := params.Default()

		Convey("Then they should validate", func() {
			So(p.Validate(), ShouldBeNil)
		})

		Convey("Then the EIP location should reproduce the expected mean", func() {
			// E[lognormal] = exp(mu + sigma^2/2)
			So(p.EIPMu()+params.EIPSigma*params.EIPSigma/2, ShouldAlmostEqual, 1.9459101, 1e-6)
		})
	})
}

func TestValidate(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(p *params.Parameters)
	}{
		{"run length", func(p *params.Parameters) { p.RunLength = 0 }},
		{"beta out of range", func(p *params.Parameters) { p.BetaMP = 1.5 }},
		{"short VES table", func(p *params.Parameters) { p.VESNaive = []float64{0.5} }},
		{"multipliers not a year", func(p *params.Parameters) {
			p.MosquitoMultipliers = []params.MultiplierPeriod{{Days: 100, Value: 1}}
		}},
		{"incubation not ending at one", func(p *params.Parameters) { p.IncubationCDF = []float64{0, 0.5} }},
		{"incubation not monotone", func(p *params.Parameters) { p.IncubationCDF = []float64{0.6, 0.5, 1} }},
		{"unknown move model", func(p *params.Parameters) { p.MosquitoMoveModel = "swim" }},
		{"unknown distribution", func(p *params.Parameters) { p.MosquitoDistribution = "gamma" }},
		{"mortality without table", func(p *params.Parameters) { p.AgingModel = params.AgingMortality }},
		{"zero EIP", func(p *params.Parameters) { p.ExpectedEIP = 0 }},
		{"parity above serotypes", func(p *params.Parameters) { p.MaxInfectionParity = 5 }},
	}

	Convey("Given inconsistent parameter bundles", t, func() {
		for _, tc := range cases {
			p := params.Default()
			tc.mutate(&p)
			err := p.Validate()

			Convey("Then validation should fail for "+tc.name, func() {
				So(err, ShouldNotBeNil)
				So(errors.Is(err, params.ErrInvalidParameters), ShouldBeTrue)
			})
		}
	})
}

func TestMultiplierForDay(t *testing.T) {
	Convey("Given a two-period seasonal schedule", t, func() {
		p := params.Default()
		p.MosquitoMultipliers = []params.MultiplierPeriod{
			{Days: 100, Value: 0.5},
			{Days: 265, Value: 2.0},
		}

		Convey("Then each day of year should resolve to its period", func() {
			So(p.MultiplierForDay(0), ShouldEqual, 0.5)
			So(p.MultiplierForDay(99), ShouldEqual, 0.5)
			So(p.MultiplierForDay(100), ShouldEqual, 2.0)
			So(p.MultiplierForDay(364), ShouldEqual, 2.0)
			So(p.MultiplierForDay(365), ShouldEqual, 0.5)
		})
	})

	Convey("Given no schedule", t, func() {
		p := params.Default()
		p.MosquitoMultipliers = nil
		So(p.MultiplierForDay(42), ShouldEqual, 1.0)
	})
}

func TestClone(t *testing.T) {
	Convey("Given a cloned bundle", t, func() {
		p := params.Default()
		c := p.Clone()
		c.VESNaive[0] = 0.99
		c.MosquitoMultipliers[0].Value = 3

		Convey("Then the original should be untouched", func() {
			So(p.VESNaive[0], ShouldEqual, 0.35)
			So(p.MosquitoMultipliers[0].Value, ShouldEqual, 1.0)
		})
	})
}

func TestIntroductionScale(t *testing.T) {
	Convey("Given per-year introduction coefficients", t, func() {
		p := params.Default()
		p.AnnualIntroductionsCoef = 2
		p.AnnualIntroductions = []float64{1, 0.5}

		So(p.IntroductionScale(0), ShouldEqual, 2)
		So(p.IntroductionScale(params.DaysPerYear), ShouldEqual, 1)
		So(p.IntroductionScale(3*params.DaysPerYear), ShouldEqual, 2)
	})
}
