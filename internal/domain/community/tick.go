package community

import (
	"context"
	"fmt"
	"time"

	"github.com/okian/dengue/internal/domain/mosquito"
	"github.com/okian/dengue/pkg/logger"
	"github.com/okian/dengue/pkg/metrics"
)

// Tick advances the simulation by one day. Stages run in a fixed order, each
// consuming state produced by the previous one:
//
//  1. timers: rotate every delay queue and apply the transitions that come due
//  2. mosquito dynamics: survival, movement, top-up to target
//  3. mosquito-to-human transmission
//  4. human-to-mosquito transmission
//  5. birthdays and immunity swaps
//  6. vaccination bookkeeping
//  7. statistics
//
// An error is a configuration failure (a delay beyond the queue horizon) and
// leaves the run unusable.
func (c *Community) Tick() error {
	start := time.Now()
	c.day++
	c.stats.ensureDay(c.day)

	if err := c.advanceTimers(); err != nil {
		return c.fail("timers", err)
	}
	c.mosquitoDynamics()
	if err := c.mosquitoToHuman(); err != nil {
		return c.fail("mosquito-to-human", err)
	}
	c.onsets(c.humanQ.Drain())
	if err := c.humanToMosquito(); err != nil {
		return c.fail("human-to-mosquito", err)
	}
	if err := c.convertExposed(c.exposedQ.Drain()); err != nil {
		return c.fail("human-to-mosquito", err)
	}
	if err := c.agePopulation(); err != nil {
		return c.fail("aging", err)
	}
	if err := c.vaccinationBookkeeping(); err != nil {
		return c.fail("vaccination", err)
	}
	c.aggregate(time.Since(start))
	return nil
}

func (c *Community) fail(stage string, err error) error {
	c.log.Error(context.Background(), "day advance failed",
		logger.Int("day", c.day), logger.String("stage", stage), logger.Error(err))
	return fmt.Errorf("day %d %s: %w", c.day, stage, err)
}

// advanceTimers is stage 1. Deaths are applied before conversions so a
// mosquito turning infectious today is never counted dead today.
func (c *Community) advanceTimers() error {
	for _, m := range c.infectiousQ.Advance() {
		m.State = mosquito.Dead
		c.locations[m.LocationID].Infected--
	}
	if err := c.convertExposed(c.exposedQ.Advance()); err != nil {
		return err
	}
	c.onsets(c.humanQ.Advance())
	c.dosesDue = append(c.dosesDue, c.doseQ.Advance()...)
	return nil
}

// convertExposed moves mosquitoes at the end of their EIP to the infectious queue.
func (c *Community) convertExposed(due []*mosquito.Mosquito) error {
	for _, m := range due {
		m.State = mosquito.Infectious
		if err := c.infectiousQ.Push(m.InfectiousDays(), m); err != nil {
			return fmt.Errorf("mosquito %d: %w", m.ID, err)
		}
	}
	return nil
}

// onsets handles people becoming infectious today: symptomatic, severe and
// breakthrough tallies, and the locations they make hot while viremic.
func (c *Community) onsets(ids []int) {
	for _, id := range ids {
		p := c.people[id]
		inf := p.Latest()
		if inf == nil || inf.InfectiousDay != c.day {
			continue // profile replaced since the infection was queued
		}
		s := inf.Serotype
		if inf.Symptomatic {
			c.stats.newlySymptomatic[c.day][s]++
			if inf.Severe {
				c.stats.severe[c.day][s]++
			}
			if inf.Vaccinated {
				c.stats.vaccinated[c.day][s]++
			}
		}
		for d := inf.InfectiousDay; d < inf.RecoveryDay; d++ {
			set := c.hot[d]
			if set == nil {
				set = make(map[int]struct{})
				c.hot[d] = set
			}
			for _, v := range p.Visits {
				set[v.LocationID] = struct{}{}
			}
		}
	}
}

// aggregate is stage 7: today's tallies are final, report them.
func (c *Community) aggregate(elapsed time.Duration) {
	delete(c.hot, c.day)

	if c.metrics {
		metrics.RecordSimulatedDay(float64(elapsed.Microseconds()) / 1000)
		for s := 0; s < c.par.NumSerotypes; s++ {
			metrics.RecordInfections(s, c.stats.newlyInfected[c.day][s])
			metrics.RecordSymptomatic(s, c.stats.newlySymptomatic[c.day][s])
			metrics.RecordSevere(s, c.stats.severe[c.day][s])
		}
		metrics.UpdateMosquitoGauges(c.exposedQ.Len(), c.infectiousQ.Len(), c.humanQ.Len())
	}

	c.log.Debug(context.Background(), "day complete",
		logger.Int("day", c.day),
		logger.Any("infected", c.stats.newlyInfected[c.day]),
		logger.Any("symptomatic", c.stats.newlySymptomatic[c.day]),
		logger.Int("exposed_humans", c.humanQ.Len()),
		logger.Int("exposed_mosquitoes", c.exposedQ.Len()),
		logger.Int("infectious_mosquitoes", c.infectiousQ.Len()),
	)
}
