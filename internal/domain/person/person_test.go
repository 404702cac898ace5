package person_test

import (
	"testing"

	"github.com/okian/dengue/internal/domain/params"
	"github.com/okian/dengue/internal/domain/person"
	"github.com/okian/dengue/internal/domain/rng"
	. "github.com/smartystreets/goconvey/convey"
)

func TestPerson_Infection(t *testing.T) {
	Convey("Given a naive person", t, func() {
		par := params.Default()
		r := rng.New(3)
		p := person.New(0, 20, 0, 0, -1, 10, par.NumSerotypes)

		Convey("Then they should be fully susceptible", func() {
			for s := 0; s < par.NumSerotypes; s++ {
				So(p.Susceptibility(s, 0, &par), ShouldEqual, 1.0)
				So(p.ImmuneState(s, 0), ShouldEqual, person.Naive)
			}
			So(p.Parity(), ShouldEqual, 0)
		})

		Convey("When infected with serotype 1 on day 10 with a 4 day incubation", func() {
			inf := p.Infect(1, 10, 4, 7, -1, 3, r, &par)

			Convey("Then the episode should follow the recorded days", func() {
				So(inf.InfectiousDay, ShouldEqual, 14)
				So(inf.RecoveryDay, ShouldEqual, 14+par.InfectiousPeriod)
				So(inf.InfectedBy, ShouldEqual, 7)
				So(inf.PlaceID, ShouldEqual, 3)
				So(p.IsInfected(10), ShouldBeTrue)
				So(p.IsViremic(13), ShouldBeFalse)
				So(p.IsViremic(14), ShouldBeTrue)
				So(p.IsInfected(inf.RecoveryDay), ShouldBeFalse)
				So(p.ImmuneState(1, 11), ShouldEqual, person.Infected)
				So(p.ImmuneState(1, inf.RecoveryDay), ShouldEqual, person.Immune)
				So(p.Parity(), ShouldEqual, 1)
			})

			Convey("Then they should not be susceptible while infected", func() {
				So(p.Susceptibility(2, 12, &par), ShouldEqual, 0)
			})

			Convey("Then homotypic immunity should be permanent", func() {
				So(p.Susceptibility(1, 10_000, &par), ShouldEqual, 0)
			})

			Convey("Then heterotypic protection should last DaysImmune after recovery", func() {
				rec := inf.RecoveryDay
				So(p.Susceptibility(2, rec+par.DaysImmune-1, &par), ShouldEqual, 0)
				So(p.Susceptibility(2, rec+par.DaysImmune, &par), ShouldEqual, 1)
			})

			Convey("Then waning cross-protection should rise linearly", func() {
				par.CrossProtectionWaning = true
				half := inf.RecoveryDay + par.DaysImmune/2
				So(p.Susceptibility(2, half, &par), ShouldAlmostEqual, float64(par.DaysImmune/2)/float64(par.DaysImmune))
			})
		})
	})

	Convey("Given a person at the parity cap", t, func() {
		par := params.Default()
		par.MaxInfectionParity = 2
		p := person.New(0, 40, 1, 0, -1, 0, par.NumSerotypes)
		p.SetImmunity(0, -1000)
		p.SetImmunity(1, -2000)

		Convey("Then every remaining serotype should be blocked", func() {
			So(p.Parity(), ShouldEqual, 2)
			So(p.Susceptibility(2, 0, &par), ShouldEqual, 0)
			So(p.Susceptibility(3, 0, &par), ShouldEqual, 0)
		})
	})
}

func TestPerson_Pathogenicity(t *testing.T) {
	Convey("Given fully pathogenic serotypes", t, func() {
		par := params.Default()
		par.PrimaryPathogenicity = []float64{1, 1, 1, 1}
		par.SecondaryScaling = []float64{0, 0, 0, 0}
		par.SevereFraction = []float64{1}
		r := rng.New(11)
		p := person.New(0, 20, 0, 0, -1, 0, par.NumSerotypes)

		Convey("Then a primary infection should be symptomatic and severe", func() {
			inf := p.Infect(0, 0, 1, -1, -1, -1, r, &par)
			So(inf.Symptomatic, ShouldBeTrue)
			So(inf.Severe, ShouldBeTrue)

			Convey("And a secondary infection should use the scaled pathogenicity", func() {
				inf2 := p.Infect(1, 1000, 1, -1, -1, -1, r, &par)
				So(inf2.Symptomatic, ShouldBeFalse)
				So(inf2.Severe, ShouldBeFalse)
				So(len(p.Infections()), ShouldEqual, 2)
			})
		})
	})
}

func TestPerson_Vaccination(t *testing.T) {
	Convey("Given a leaky two-dose vaccine", t, func() {
		par := params.Default()
		par.VaccineDoses = 2
		par.VaccineDoseInterval = 180
		par.VESNaive = []float64{0.5, 0.5, 0.5, 0.5}
		par.VESSeropositive = []float64{0.8, 0.8, 0.8, 0.8}
		r := rng.New(5)
		p := person.New(0, 9, 0, 0, -1, 0, par.NumSerotypes)

		Convey("When the first dose is given", func() {
			next := p.Vaccinate(100, r, &par)

			Convey("Then the second dose should be due after the interval", func() {
				So(next, ShouldEqual, 180)
				So(p.Vaccine().Protects(150, &par), ShouldBeFalse)
				So(p.Susceptibility(0, 150, &par), ShouldEqual, 1)
			})

			Convey("When the schedule completes", func() {
				So(p.Vaccinate(280, r, &par), ShouldEqual, 0)

				Convey("Then the naive efficacy table should apply", func() {
					So(p.Vaccine().NaiveAtFirstDose, ShouldBeTrue)
					So(p.Susceptibility(0, 300, &par), ShouldAlmostEqual, 0.5)
				})

				Convey("Then a retroactively mature vaccine should switch tables after infection", func() {
					par.RetroactiveMatureVaccine = true
					p.SetImmunity(3, 0)
					So(p.Susceptibility(0, 1000, &par), ShouldAlmostEqual, 0.2)
				})

				Convey("Then protection should end after the protection window", func() {
					par.VaccineProtectionDays = 365
					So(p.Susceptibility(0, 280+364, &par), ShouldAlmostEqual, 0.5)
					So(p.Susceptibility(0, 280+365, &par), ShouldEqual, 1)
				})
			})
		})
	})

	Convey("Given a perfect all-or-nothing vaccine with boosting", t, func() {
		par := params.Default()
		par.VaccineLeaky = false
		par.VESNaive = []float64{1, 1, 1, 1}
		par.VaccineBoosting = true
		par.VaccineBoostInterval = 365
		r := rng.New(5)
		p := person.New(0, 9, 0, 0, -1, 0, par.NumSerotypes)

		next := p.Vaccinate(0, r, &par)

		Convey("Then every serotype should be blocked and a booster scheduled", func() {
			So(next, ShouldEqual, 365)
			for s := 0; s < par.NumSerotypes; s++ {
				So(p.Vaccine().Takes(s), ShouldBeTrue)
				So(p.Susceptibility(s, 10, &par), ShouldEqual, 0)
			}
		})
	})
}

func TestPerson_Profiles(t *testing.T) {
	Convey("Given two people with different histories", t, func() {
		par := params.Default()
		r := rng.New(1)
		a := person.New(0, 30, 0, 0, -1, 0, par.NumSerotypes)
		b := person.New(1, 29, 0, 0, -1, 0, par.NumSerotypes)
		a.Infect(2, 0, 1, -1, -1, -1, r, &par)
		b.Vaccinate(0, r, &par)

		Convey("When they swap profiles", func() {
			a.SwapProfile(b)

			Convey("Then histories and vaccine records should move, ids and ages should not", func() {
				So(a.ID, ShouldEqual, 0)
				So(a.Age, ShouldEqual, 30)
				So(a.Parity(), ShouldEqual, 0)
				So(a.Vaccine().Vaccinated, ShouldBeTrue)
				So(b.IsImmune(2), ShouldBeTrue)
				So(b.Vaccine().Vaccinated, ShouldBeFalse)
			})
		})

		Convey("When one is reset after a swap", func() {
			a.SwapProfile(b)
			b.ResetImmunity()

			Convey("Then the other should keep the swapped history", func() {
				So(a.IsImmune(2), ShouldBeFalse)
				So(a.Vaccine().Vaccinated, ShouldBeTrue)
				So(b.IsImmune(2), ShouldBeFalse)
				So(b.Infections(), ShouldBeEmpty)
			})
		})
	})
}
