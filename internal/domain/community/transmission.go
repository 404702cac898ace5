package community

import (
	"fmt"
	"math"
	"sort"

	"github.com/okian/dengue/internal/domain/mosquito"
	"github.com/okian/dengue/internal/domain/person"
	"github.com/okian/dengue/pkg/metrics"
)

// Infect force-infects person id with serotype, recording the infection for
// day. It bypasses cross-protection and vaccine protection but never
// re-infects an immune serotype, a currently infected person or one at the
// parity cap. Failures return false with a sentinel and change nothing.
// Forced infections are tallied as introductions, not as transmission.
func (c *Community) Infect(id, serotype, day int) (bool, error) {
	if id < 0 || id >= len(c.people) {
		return false, fmt.Errorf("%w: %d", ErrUnknownPerson, id)
	}
	if serotype < 0 || serotype >= c.par.NumSerotypes {
		return false, fmt.Errorf("%w: %d", ErrUnknownSerotype, serotype)
	}
	if day < 0 {
		return false, fmt.Errorf("%w: %d", ErrInvalidDay, day)
	}
	p := c.people[id]
	switch {
	case p.IsImmune(serotype):
		return false, fmt.Errorf("%w: person %d serotype %d", ErrAlreadyImmune, id, serotype)
	case p.IsInfected(c.day) || p.IsInfected(day):
		return false, fmt.Errorf("%w: person %d is infected", ErrNotSusceptible, id)
	case p.Parity() >= c.par.MaxInfectionParity:
		return false, fmt.Errorf("%w: person %d reached parity %d", ErrNotSusceptible, id, p.Parity())
	}

	incubation := c.drawIncubation()
	// The onset must land on a day that has not been simulated yet.
	if day+incubation <= c.day {
		incubation = c.day + 1 - day
	}
	if err := c.infect(p, serotype, day, incubation, -1, -1, -1); err != nil {
		return false, err
	}
	c.stats.ensureDay(day)
	c.stats.introductions[day][serotype]++
	if c.metrics {
		metrics.RecordIntroduction(serotype)
	}
	return true, nil
}

// infect records an infection and queues its onset.
func (c *Community) infect(p *person.Person, s, day, incubation, mosquitoID, source, place int) error {
	if err := c.humanQ.Push(day+incubation-c.day, p.ID); err != nil {
		return fmt.Errorf("person %d: %w", p.ID, err)
	}
	p.Infect(s, day, incubation, mosquitoID, source, place, c.rng, &c.par)
	return nil
}

// drawIncubation samples the intrinsic incubation in days from the CDF table.
func (c *Community) drawIncubation() int {
	u := c.rng.Float64()
	cdf := c.par.IncubationCDF
	for d, p := range cdf {
		if u < p {
			return d
		}
	}
	return len(cdf) - 1
}

// mosquitoToHuman is stage 3. Infectious mosquitoes bite in canonical queue
// order; each bite picks a visitor by weight.
func (c *Community) mosquitoToHuman() error {
	var err error
	c.infectiousQ.Each(func(_ int, m *mosquito.Mosquito) {
		if err != nil {
			return
		}
		loc := c.locations[m.LocationID]
		rate := c.par.BitingRate * loc.BitingMultiplier
		bites := int(rate)
		if c.rng.Bernoulli(rate - float64(bites)) {
			bites++
		}
		for b := 0; b < bites; b++ {
			id := loc.PickVisitor(c.rng)
			if id < 0 {
				return
			}
			p := c.people[id]
			if c.par.NoSecondaryTransmission && p.Parity() > 0 {
				continue
			}
			prob := c.par.BetaMP * p.Susceptibility(m.Serotype, c.day, &c.par)
			if !c.rng.Bernoulli(prob) {
				continue
			}
			if err = c.infect(p, m.Serotype, c.day, c.drawIncubation(), m.ID, m.InfectedBy, loc.ID); err != nil {
				return
			}
			c.stats.newlyInfected[c.day][m.Serotype]++
			c.stats.byPlace[loc.Type]++
		}
	})
	return err
}

// humanToMosquito is stage 4. Each hot location, in ascending id, infects a
// binomial number of its susceptible mosquitoes with the probability that a
// mosquito biting there today takes at least one infectious blood meal.
func (c *Community) humanToMosquito() error {
	hot := c.hot[c.day]
	if len(hot) == 0 || c.par.BetaPM <= 0 {
		return nil
	}
	ids := make([]int, 0, len(hot))
	for id := range hot {
		ids = append(ids, id)
	}
	sort.Ints(ids)

	var cum []float64
	var who []int
	for _, lid := range ids {
		loc := c.locations[lid]
		total := loc.TotalWeight()
		if loc.Susceptible == 0 || total <= 0 {
			continue
		}
		cum, who = cum[:0], who[:0]
		sum := 0.0
		for i, pid := range loc.Visitors() {
			p := c.people[pid]
			if !p.IsViremic(c.day) {
				continue
			}
			w := loc.VisitWeight(i)
			if !p.Latest().Symptomatic {
				w *= c.par.AsymptomaticInfectiousness
			}
			if w <= 0 {
				continue
			}
			sum += w
			cum = append(cum, sum)
			who = append(who, pid)
		}
		if sum <= 0 {
			continue
		}

		f := math.Min(1, sum/total)
		q := 1 - math.Pow(1-c.par.BetaPM*f, c.par.BitingRate*loc.BitingMultiplier)
		n := c.rng.Binomial(loc.Susceptible, q)
		for k := 0; k < n; k++ {
			src := who[c.rng.Weighted(cum)]
			s := c.people[src].Latest().Serotype
			if _, err := c.AttemptToAddMosquito(lid, s, src); err != nil {
				return err
			}
		}
	}
	return nil
}
