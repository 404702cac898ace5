// Package mosquito implements the infected vector agent. Susceptible mosquitoes
// are not agents: locations hold them as counts until one is infected.
package mosquito

import (
	"github.com/okian/dengue/internal/domain/params"
	"github.com/okian/dengue/internal/domain/rng"
)

// State is the infection state of a mosquito.
type State int

const (
	Susceptible State = iota
	Exposed
	Infectious
	Dead
)

func (s State) String() string {
	switch s {
	case Exposed:
		return "exposed"
	case Infectious:
		return "infectious"
	case Dead:
		return "dead"
	default:
		return "susceptible"
	}
}

// Mosquito is an infected vector.
type Mosquito struct {
	ID         int
	LocationID int
	State      State
	Serotype   int
	InfectedBy int // person id
	InfectedOn int
	// EIP is the drawn extrinsic incubation in whole days.
	EIP int
	// Lifespan is the number of days left to live when infected.
	Lifespan int
}

// New infects a susceptible mosquito at loc on day, drawing its remaining life
// and extrinsic incubation from r. Draw order is fixed: lifespan, then EIP.
func New(id, loc, serotype, infectedBy, day int, r *rng.Stream, par *params.Parameters) *Mosquito {
	life := r.Geometric(1 / par.MosquitoLifespan)
	eip := par.ExpectedEIP
	if !par.SimpleEIP {
		eip = r.LogNormal(par.EIPMu(), params.EIPSigma)
	}
	return &Mosquito{
		ID:         id,
		LocationID: loc,
		State:      Exposed,
		Serotype:   serotype,
		InfectedBy: infectedBy,
		InfectedOn: day,
		EIP:        int(eip + 0.5),
		Lifespan:   life,
	}
}

// SurvivesIncubation reports whether the mosquito lives past its EIP.
func (m *Mosquito) SurvivesIncubation() bool { return m.Lifespan > m.EIP }

// InfectiousDays returns the days it will spend infectious.
func (m *Mosquito) InfectiousDays() int {
	if !m.SurvivesIncubation() {
		return 0
	}
	return m.Lifespan - m.EIP
}
