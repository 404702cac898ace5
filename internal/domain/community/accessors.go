package community

import (
	"github.com/okian/dengue/internal/domain/model"
	"github.com/okian/dengue/internal/domain/mosquito"
	"github.com/okian/dengue/internal/domain/person"
)

// Read accessors return copies and never mutate the community, so calling one
// twice without an intervening Tick yields identical results.

// Day returns the last simulated day; 0 before the first Tick.
func (c *Community) Day() int { return c.day }

// Multiplier returns the current mosquito capacity multiplier.
func (c *Community) Multiplier() float64 { return c.multiplier }

// Population returns the number of people.
func (c *Community) Population() int { return len(c.people) }

// NumLocations returns the number of locations.
func (c *Community) NumLocations() int { return len(c.locations) }

// NewlyInfected returns new infections by transmission, [day][serotype].
func (c *Community) NewlyInfected() [][]int { return copySeries(c.stats.newlyInfected, c.day) }

// NewlySymptomatic returns symptom onsets, [day][serotype].
func (c *Community) NewlySymptomatic() [][]int { return copySeries(c.stats.newlySymptomatic, c.day) }

// SevereCases returns severe onsets, [day][serotype].
func (c *Community) SevereCases() [][]int { return copySeries(c.stats.severe, c.day) }

// VaccinatedCases returns symptomatic onsets in vaccinated people, [day][serotype].
func (c *Community) VaccinatedCases() [][]int { return copySeries(c.stats.vaccinated, c.day) }

// Introductions returns forced infections by the day they were recorded for, [day][serotype].
func (c *Community) Introductions() [][]int { return copySeries(c.stats.introductions, len(c.stats.introductions)-1) }

// Series bundles all daily arrays.
func (c *Community) Series() model.DailySeries {
	return model.DailySeries{
		NewlyInfected:    c.NewlyInfected(),
		NewlySymptomatic: c.NewlySymptomatic(),
		SevereCases:      c.SevereCases(),
		VaccinatedCases:  c.VaccinatedCases(),
		Introductions:    c.Introductions(),
	}
}

// NumInfected counts people exposed or viremic on day.
func (c *Community) NumInfected(day int) int {
	n := 0
	for _, p := range c.people {
		if p.IsInfected(day) {
			n++
		}
	}
	return n
}

// NumSymptomatic counts symptomatic viremic people on day.
func (c *Community) NumSymptomatic(day int) int {
	n := 0
	for _, p := range c.people {
		if p.IsSymptomatic(day) {
			n++
		}
	}
	return n
}

// NumSusceptible counts, per serotype, people neither immune nor at the parity cap.
func (c *Community) NumSusceptible() []int {
	out := make([]int, c.par.NumSerotypes)
	for _, p := range c.people {
		if p.Parity() >= c.par.MaxInfectionParity {
			continue
		}
		for s := range out {
			if p.ImmuneState(s, c.day) == person.Naive {
				out[s]++
			}
		}
	}
	return out
}

// NumExposedMosquitoes returns mosquitoes in extrinsic incubation.
func (c *Community) NumExposedMosquitoes() int { return c.exposedQ.Len() }

// NumInfectiousMosquitoes returns infectious mosquitoes.
func (c *Community) NumInfectiousMosquitoes() int { return c.infectiousQ.Len() }

// NumSusceptibleMosquitoes returns the summed susceptible pools.
func (c *Community) NumSusceptibleMosquitoes() int {
	n := 0
	for _, loc := range c.locations {
		n += loc.Susceptible
	}
	return n
}

// NumMosquitoes returns every living mosquito.
func (c *Community) NumMosquitoes() int {
	return c.NumSusceptibleMosquitoes() + c.exposedQ.Len() + c.infectiousQ.Len()
}

// NumExposedHumans returns people waiting to become infectious.
func (c *Community) NumExposedHumans() int { return c.humanQ.Len() }

// MosquitoSnapshot lists infected mosquitoes, exposed first, each queue in
// ascending days left.
func (c *Community) MosquitoSnapshot() []model.MosquitoRecord {
	out := make([]model.MosquitoRecord, 0, c.exposedQ.Len()+c.infectiousQ.Len())
	add := func(d int, m *mosquito.Mosquito) {
		rec := model.MosquitoRecord{
			ID:         m.ID,
			LocationID: m.LocationID,
			State:      m.State.String(),
			Serotype:   m.Serotype,
			InfectedBy: m.InfectedBy,
			DaysLeft:   d,
		}
		if m.State == mosquito.Exposed {
			rec.InfectiousDays = m.InfectiousDays()
		}
		out = append(out, rec)
	}
	c.exposedQ.Each(add)
	c.infectiousQ.Each(add)
	return out
}

// LocationSnapshot reports mosquito occupancy per location.
func (c *Community) LocationSnapshot() []model.LocationState {
	out := make([]model.LocationState, len(c.locations))
	for i, loc := range c.locations {
		out[i] = model.LocationState{
			ID:            loc.ID,
			Type:          string(loc.Type),
			BaseCapacity:  loc.BaseCapacity,
			Target:        loc.Target(c.multiplier, c.day, c.par.VectorControlEfficacy),
			Susceptible:   loc.Susceptible,
			Infected:      loc.Infected,
			VectorControl: loc.VectorControlled(c.day),
			Multiplier:    c.multiplier,
		}
	}
	return out
}

// ImmunitySnapshot reports the immune profile of every person.
func (c *Community) ImmunitySnapshot() []model.ImmunityState {
	out := make([]model.ImmunityState, len(c.people))
	for i, p := range c.people {
		imm := make([]int, c.par.NumSerotypes)
		for s := range imm {
			if p.IsImmune(s) {
				imm[s] = 1
			}
		}
		v := p.Vaccine()
		out[i] = model.ImmunityState{
			ID:         p.ID,
			Age:        p.Age,
			Immune:     imm,
			Parity:     p.Parity(),
			Vaccinated: v.Vaccinated,
			Doses:      v.Doses,
		}
	}
	return out
}

// TallyInfectionsByLocationType counts transmitted infections by the type of
// the location the infecting bite happened in.
func (c *Community) TallyInfectionsByLocationType() map[string]int {
	out := make(map[string]int, len(c.stats.byPlace))
	for typ, n := range c.stats.byPlace {
		out[string(typ)] = n
	}
	return out
}

// AgeIntervalSize counts people aged min..max inclusive, the same bounds a
// catch-up event with MinAge and MaxAge covers.
func (c *Community) AgeIntervalSize(minAge, maxAge int) int {
	n := 0
	for age := minAge; age <= maxAge && age < len(c.cohorts); age++ {
		if age >= 0 {
			n += len(c.cohorts[age])
		}
	}
	return n
}

// Infections returns a copy of one person's infection history.
func (c *Community) Infections(id int) ([]person.Infection, error) {
	if id < 0 || id >= len(c.people) {
		return nil, ErrUnknownPerson
	}
	return append([]person.Infection(nil), c.people[id].Infections()...), nil
}
