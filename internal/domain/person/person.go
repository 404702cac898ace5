// Package person implements the human agent: infection history, per-serotype
// immunity and vaccination record. All state is derived from recorded days,
// so a Person answers questions about any day without a separate status field.
package person

import (
	"math"

	"github.com/okian/dengue/internal/domain/params"
	"github.com/okian/dengue/internal/domain/rng"
)

// NotRecovered marks a serotype the person has never been infected with.
const NotRecovered = math.MaxInt

// ImmuneState is the per-serotype state of a person on a given day.
type ImmuneState int

const (
	Naive ImmuneState = iota
	Infected
	Immune
)

func (s ImmuneState) String() string {
	switch s {
	case Infected:
		return "infected"
	case Immune:
		return "immune"
	default:
		return "naive"
	}
}

// Visit is a location a person spends part of the day in, with its share of bites.
type Visit struct {
	LocationID int
	Weight     float64
}

// Infection is one episode in a person's history.
type Infection struct {
	Serotype      int
	InfectedDay   int
	InfectiousDay int
	RecoveryDay   int
	Symptomatic   bool
	Severe        bool
	Vaccinated    bool // vaccinated when infected
	InfectedBy    int  // mosquito id, -1 when introduced
	SourcePerson  int  // person that infected the mosquito, -1 when unknown
	PlaceID       int  // location of the infecting bite, -1 when introduced
}

// Person is a human agent. ID equals the storage index in the community.
type Person struct {
	ID          int
	Age         int
	Sex         int
	HomeID      int
	DayID       int
	BirthdayDOY int
	Visits      []Visit

	profile
}

// profile is the part of a person exchanged by immunity swaps.
type profile struct {
	recovered  []int // recovery day per serotype, NotRecovered if never
	infections []Infection
	vaccine    Vaccination
}

// New creates a naive, unvaccinated person.
func New(id, age, sex, home, day, birthday, serotypes int) *Person {
	p := &Person{
		ID:          id,
		Age:         age,
		Sex:         sex,
		HomeID:      home,
		DayID:       day,
		BirthdayDOY: birthday,
	}
	p.recovered = make([]int, serotypes)
	p.ResetImmunity()
	return p
}

// Infections returns the infection history, oldest first.
func (p *Person) Infections() []Infection { return p.infections }

// Vaccine returns the vaccination record.
func (p *Person) Vaccine() Vaccination { return p.vaccine }

// Latest returns the most recent infection, or nil.
func (p *Person) Latest() *Infection {
	if len(p.infections) == 0 {
		return nil
	}
	return &p.infections[len(p.infections)-1]
}

// Parity counts serotypes the person has been infected with.
func (p *Person) Parity() int {
	n := 0
	for _, r := range p.recovered {
		if r != NotRecovered {
			n++
		}
	}
	return n
}

// IsImmune reports lifelong homotypic immunity to serotype s.
func (p *Person) IsImmune(s int) bool { return p.recovered[s] != NotRecovered }

// ImmuneState returns the state of serotype s on day.
func (p *Person) ImmuneState(s, day int) ImmuneState {
	if inf := p.Latest(); inf != nil && inf.Serotype == s && inf.InfectedDay <= day && day < inf.RecoveryDay {
		return Infected
	}
	if p.IsImmune(s) {
		return Immune
	}
	return Naive
}

// IsInfected reports an exposed or viremic episode covering day.
func (p *Person) IsInfected(day int) bool {
	inf := p.Latest()
	return inf != nil && inf.InfectedDay <= day && day < inf.RecoveryDay
}

// IsViremic reports whether the person can infect mosquitoes on day.
func (p *Person) IsViremic(day int) bool {
	inf := p.Latest()
	return inf != nil && inf.InfectiousDay <= day && day < inf.RecoveryDay
}

// IsSymptomatic reports a symptomatic viremic episode covering day.
func (p *Person) IsSymptomatic(day int) bool {
	return p.IsViremic(day) && p.Latest().Symptomatic
}

// lastRecovery returns the most recent recovery day, NotRecovered if naive.
func (p *Person) lastRecovery() int {
	last, seen := 0, false
	for _, r := range p.recovered {
		if r == NotRecovered {
			continue
		}
		if !seen || r > last {
			last, seen = r, true
		}
	}
	if !seen {
		return NotRecovered
	}
	return last
}

// Susceptibility returns the relative probability that an infectious bite with
// serotype s on day succeeds, in [0, 1].
func (p *Person) Susceptibility(s, day int, par *params.Parameters) float64 {
	if p.IsImmune(s) || p.IsInfected(day) || p.Parity() >= par.MaxInfectionParity {
		return 0
	}
	factor := 1.0
	if r := p.lastRecovery(); r != NotRecovered && day-r < par.DaysImmune {
		if !par.CrossProtectionWaning {
			return 0
		}
		factor = float64(day-r) / float64(par.DaysImmune)
	}
	if p.vaccine.Protects(day, par) {
		if !par.VaccineLeaky {
			if p.vaccine.Takes(s) {
				return 0
			}
		} else {
			factor *= 1 - p.vaccine.efficacy(s, p.Parity() > 0, par)
		}
	}
	return factor
}

// Infect records an infection of serotype s acquired on day that becomes
// infectious after incubation days. The caller has already checked eligibility.
func (p *Person) Infect(s, day, incubation, mosquito, source, place int, r *rng.Stream, par *params.Parameters) *Infection {
	prior := p.Parity()

	pathogenicity := par.PrimaryPathogenicity[s]
	if prior > 0 {
		pathogenicity *= par.SecondaryScaling[s]
	}
	symptomatic := r.Bernoulli(pathogenicity)
	severe := false
	if symptomatic {
		idx := prior
		if idx >= len(par.SevereFraction) {
			idx = len(par.SevereFraction) - 1
		}
		severe = r.Bernoulli(par.SevereFraction[idx])
	}

	inf := Infection{
		Serotype:      s,
		InfectedDay:   day,
		InfectiousDay: day + incubation,
		RecoveryDay:   day + incubation + par.InfectiousPeriod,
		Symptomatic:   symptomatic,
		Severe:        severe,
		Vaccinated:    p.vaccine.Vaccinated,
		InfectedBy:    mosquito,
		SourcePerson:  source,
		PlaceID:       place,
	}
	p.infections = append(p.infections, inf)
	p.recovered[s] = inf.RecoveryDay
	return p.Latest()
}

// SetImmunity marks serotype s as recovered on recoveryDay (pre-loaded history).
func (p *Person) SetImmunity(s, recoveryDay int) {
	p.recovered[s] = recoveryDay
}

// ResetImmunity returns the person to a naive, unvaccinated newborn profile.
func (p *Person) ResetImmunity() {
	for s := range p.recovered {
		p.recovered[s] = NotRecovered
	}
	p.infections = nil
	p.vaccine = Vaccination{takes: make([]bool, len(p.recovered))}
}

// SwapProfile exchanges immune histories and vaccination records with other.
func (p *Person) SwapProfile(other *Person) {
	p.profile, other.profile = other.profile, p.profile
}
