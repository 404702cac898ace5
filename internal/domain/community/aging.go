package community

import (
	"sort"

	"github.com/okian/dengue/internal/domain/params"
	"github.com/okian/dengue/internal/domain/person"
)

// agePopulation is stage 5. Deferred exchanges due today resolve first, lowest
// (person, donor) pair first; then today's birthdays run oldest first, ties by id.
func (c *Community) agePopulation() error {
	if pairs := c.pendingSwaps[c.day]; len(pairs) > 0 {
		delete(c.pendingSwaps, c.day)
		sort.Slice(pairs, func(i, j int) bool {
			if pairs[i].person != pairs[j].person {
				return pairs[i].person < pairs[j].person
			}
			return pairs[i].donor < pairs[j].donor
		})
		for _, pr := range pairs {
			if err := c.trySwap(pr); err != nil {
				return err
			}
		}
	}

	ids := append([]int(nil), c.birthdays[c.par.DayOfYear(c.day)]...)
	sort.Slice(ids, func(i, j int) bool {
		a, b := c.people[ids[i]], c.people[ids[j]]
		if a.Age != b.Age {
			return a.Age > b.Age
		}
		return a.ID < b.ID
	})
	c.birthdaysToday = ids

	for _, id := range ids {
		p := c.people[id]
		if c.par.AgingModel == params.AgingMortality {
			c.ageWithMortality(p)
		} else if err := c.ageBySwap(p); err != nil {
			return err
		}
	}
	return nil
}

// ageBySwap keeps ages fixed and instead exchanges immune profiles with a
// random person one year younger, so histories drift up the age pyramid.
// Age-0 birthdays start a fresh newborn profile.
func (c *Community) ageBySwap(p *person.Person) error {
	if p.Age == 0 {
		if !p.IsInfected(c.day) {
			p.ResetImmunity()
		}
		return nil
	}
	if !c.rng.Bernoulli(c.swapProbability(p.Age)) {
		return nil
	}
	if p.Age-1 >= len(c.cohorts) {
		return nil
	}
	cohort := c.cohorts[p.Age-1]
	if len(cohort) == 0 {
		return nil
	}
	return c.trySwap(swapPair{person: p.ID, donor: cohort[c.rng.IntN(len(cohort))]})
}

// trySwap exchanges profiles now, or defers the pair to the day after both
// current infections have resolved. Pending doses follow the profiles.
func (c *Community) trySwap(pr swapPair) error {
	a, b := c.people[pr.person], c.people[pr.donor]
	when := c.day
	for _, p := range []*person.Person{a, b} {
		if p.IsInfected(c.day) {
			when = max(when, p.Latest().RecoveryDay)
		}
	}
	if when > c.day {
		c.pendingSwaps[when] = append(c.pendingSwaps[when], pr)
		return nil
	}
	a.SwapProfile(b)
	if err := c.followSchedule(a); err != nil {
		return err
	}
	return c.followSchedule(b)
}

func (c *Community) swapProbability(age int) float64 {
	probs := c.records.SwapProbabilities
	if len(probs) == 0 {
		return 1
	}
	return probs[min(age, len(probs)-1)]
}

// ageWithMortality increments age and replaces the dead with newborns. People
// infected today survive their birthday so queued onsets stay valid.
func (c *Community) ageWithMortality(p *person.Person) {
	c.removeFromCohort(p)
	p.Age++
	mortality := c.par.AnnualMortality[min(p.Age, len(c.par.AnnualMortality)-1)]
	dies := p.Age > c.par.MaxAge || c.rng.Bernoulli(mortality)
	if dies && !p.IsInfected(c.day) {
		p.Age = 0
		p.ResetImmunity()
	}
	c.addToCohort(p)
}
