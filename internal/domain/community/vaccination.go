package community

import (
	"context"
	"fmt"
	"sort"

	"github.com/okian/dengue/internal/domain/params"
	"github.com/okian/dengue/internal/domain/person"
	"github.com/okian/dengue/pkg/logger"
	"github.com/okian/dengue/pkg/metrics"
)

// vaccinationBookkeeping is stage 6: scheduled catch-up campaigns, routine
// vaccination on the target birthday, then follow-up doses and boosters that
// came due today, each in ascending id. A queued id whose current profile is
// not due (reset, swapped away or already dosed today) is skipped.
func (c *Community) vaccinationBookkeeping() error {
	if events := c.catchups[c.day]; len(events) > 0 {
		delete(c.catchups, c.day)
		for _, ev := range events {
			if _, err := c.Vaccinate(ev); err != nil {
				return err
			}
		}
	}

	if c.par.VaccineTargetAge >= 0 && c.par.VaccineCoverage > 0 {
		ids := append([]int(nil), c.birthdaysToday...)
		sort.Ints(ids)
		for _, id := range ids {
			p := c.people[id]
			if p.Age != c.par.VaccineTargetAge || p.Vaccine().Vaccinated {
				continue
			}
			if c.rng.Bernoulli(c.par.VaccineCoverage) {
				if err := c.vaccinate(p); err != nil {
					return err
				}
			}
		}
	}

	due := c.dosesDue
	c.dosesDue = nil
	sort.Ints(due)
	for _, id := range due {
		p := c.people[id]
		if !p.DoseDue(c.day, &c.par) {
			continue
		}
		if err := c.vaccinate(p); err != nil {
			return err
		}
	}
	return nil
}

func (c *Community) vaccinate(p *person.Person) error {
	if next := p.Vaccinate(c.day, c.rng, &c.par); next > 0 {
		if err := c.doseQ.Push(next, p.ID); err != nil {
			return fmt.Errorf("person %d: %w", p.ID, err)
		}
	}
	if c.metrics {
		metrics.RecordVaccinations(1)
	}
	return nil
}

// followSchedule queues the pending dose of the profile p now holds. Stale
// entries left under other ids fail the due check of stage 6.
func (c *Community) followSchedule(p *person.Person) error {
	due, ok := p.NextDoseDay(&c.par)
	if !ok {
		return nil
	}
	if due <= c.day {
		c.dosesDue = append(c.dosesDue, p.ID)
		return nil
	}
	if err := c.doseQ.Push(due-c.day, p.ID); err != nil {
		return fmt.Errorf("person %d: %w", p.ID, err)
	}
	return nil
}

// Vaccinate applies a catch-up event now: each unvaccinated person aged
// MinAge..MaxAge receives a first dose with probability Coverage. It returns
// the number vaccinated.
func (c *Community) Vaccinate(ev params.CatchupEvent) (int, error) {
	if err := validEvent(ev); err != nil {
		return 0, err
	}
	n := 0
	for _, p := range c.people {
		if p.Age < ev.MinAge || p.Age > ev.MaxAge || p.Vaccine().Vaccinated {
			continue
		}
		if !c.rng.Bernoulli(ev.Coverage) {
			continue
		}
		if err := c.vaccinate(p); err != nil {
			return n, err
		}
		n++
	}
	c.log.Info(context.Background(), "catch-up vaccination",
		logger.Int("day", c.day), logger.Int("min_age", ev.MinAge), logger.Int("max_age", ev.MaxAge),
		logger.Float64("coverage", ev.Coverage), logger.Int("vaccinated", n))
	return n, nil
}

// ScheduleCatchup registers an event for stage 6 of its day. Events for a day
// already simulated run immediately.
func (c *Community) ScheduleCatchup(ev params.CatchupEvent) error {
	if err := validEvent(ev); err != nil {
		return err
	}
	if ev.Day <= c.day {
		_, err := c.Vaccinate(ev)
		return err
	}
	c.catchups[ev.Day] = append(c.catchups[ev.Day], ev)
	return nil
}

func validEvent(ev params.CatchupEvent) error {
	switch {
	case ev.Coverage < 0 || ev.Coverage > 1:
		return fmt.Errorf("%w: coverage %v", ErrInvalidEvent, ev.Coverage)
	case ev.MinAge < 0 || ev.MinAge > ev.MaxAge:
		return fmt.Errorf("%w: ages %d..%d", ErrInvalidEvent, ev.MinAge, ev.MaxAge)
	case ev.Day < 0:
		return fmt.Errorf("%w: day %d", ErrInvalidEvent, ev.Day)
	}
	return nil
}
