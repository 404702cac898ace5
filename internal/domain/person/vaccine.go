package person

import (
	"github.com/okian/dengue/internal/domain/params"
	"github.com/okian/dengue/internal/domain/rng"
)

// Vaccination is a person's vaccine record.
type Vaccination struct {
	Vaccinated   bool
	Doses        int
	FirstDoseDay int
	LastDoseDay  int
	// NaiveAtFirstDose selects the efficacy table for the recipient.
	NaiveAtFirstDose bool

	takes []bool // all-or-nothing outcome per serotype
}

// Takes reports whether the all-or-nothing vaccine took against serotype s.
func (v Vaccination) Takes(s int) bool { return s < len(v.takes) && v.takes[s] }

// Protects reports whether the schedule is complete and still within its
// protection window on day.
func (v Vaccination) Protects(day int, par *params.Parameters) bool {
	if !v.Vaccinated || v.Doses < par.VaccineDoses {
		return false
	}
	return par.VaccineProtectionDays == 0 || day-v.LastDoseDay < par.VaccineProtectionDays
}

// efficacy returns the efficacy table entry for serotype s. A naive recipient
// infected since vaccination switches to the seropositive table when the
// vaccine is retroactively mature.
func (v Vaccination) efficacy(s int, seropositive bool, par *params.Parameters) float64 {
	if v.NaiveAtFirstDose && !(par.RetroactiveMatureVaccine && seropositive) {
		return par.VESNaive[s]
	}
	return par.VESSeropositive[s]
}

// Vaccinate gives one dose on day and returns the delay until the next dose or
// booster is due, 0 when nothing further is scheduled.
func (p *Person) Vaccinate(day int, r *rng.Stream, par *params.Parameters) int {
	v := &p.vaccine
	if !v.Vaccinated {
		v.Vaccinated = true
		v.FirstDoseDay = day
		v.NaiveAtFirstDose = p.Parity() == 0
	}
	v.Doses++
	v.LastDoseDay = day

	if !par.VaccineLeaky {
		seropositive := p.Parity() > 0
		for s := range v.takes {
			if !v.takes[s] {
				v.takes[s] = r.Bernoulli(v.efficacy(s, seropositive, par))
			}
		}
	}
	return p.NextVaccinationDue(par)
}

// NextDoseDay returns the day the next dose or booster of the record is due.
// The schedule travels with the profile, so it survives immunity swaps.
func (p *Person) NextDoseDay(par *params.Parameters) (int, bool) {
	next := p.NextVaccinationDue(par)
	if next == 0 {
		return 0, false
	}
	return p.vaccine.LastDoseDay + next, true
}

// DoseDue reports whether a dose or booster is due on or before day.
func (p *Person) DoseDue(day int, par *params.Parameters) bool {
	due, ok := p.NextDoseDay(par)
	return ok && due <= day
}

// NextVaccinationDue returns the interval from the last dose to the next
// scheduled one, 0 for none.
func (p *Person) NextVaccinationDue(par *params.Parameters) int {
	switch {
	case !p.vaccine.Vaccinated:
		return 0
	case p.vaccine.Doses < par.VaccineDoses:
		return par.VaccineDoseInterval
	case par.VaccineBoosting:
		return par.VaccineBoostInterval
	default:
		return 0
	}
}
