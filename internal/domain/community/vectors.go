package community

import (
	"context"
	"fmt"
	"sort"

	"github.com/okian/dengue/internal/domain/location"
	"github.com/okian/dengue/internal/domain/model"
	"github.com/okian/dengue/internal/domain/mosquito"
	"github.com/okian/dengue/pkg/logger"
	"github.com/okian/dengue/pkg/metrics"
)

// mosquitoDynamics is stage 2.
func (c *Community) mosquitoDynamics() {
	for _, loc := range c.locations {
		loc.Susceptible = c.rng.Binomial(loc.Susceptible, c.par.MosquitoDailySurvival)
	}
	c.moveMosquitoes()

	var starting []*location.Location
	for _, loc := range c.locations {
		if start, ok := loc.VectorControlStart(); ok && start == c.day {
			starting = append(starting, loc)
		}
	}
	if len(starting) > 0 {
		c.cull(starting)
	}

	for _, loc := range c.locations {
		target := c.target(loc)
		switch free := target - loc.Total(); {
		case free > 0:
			loc.Susceptible += free
		case free < 0:
			loc.Susceptible = max(0, target-loc.Infected)
		}
	}
}

func (c *Community) target(loc *location.Location) int {
	return loc.Target(c.multiplier, c.day, c.par.VectorControlEfficacy)
}

// moveMosquitoes relocates infected mosquitoes in canonical queue order.
func (c *Community) moveMosquitoes() {
	if c.par.MosquitoMove <= 0 || len(c.locations) < 2 {
		return
	}
	move := func(_ int, m *mosquito.Mosquito) {
		if !c.rng.Bernoulli(c.par.MosquitoMove) {
			return
		}
		from := c.locations[m.LocationID]
		mover := c.moveModel
		if c.rng.Bernoulli(c.par.MosquitoTeleport) {
			mover = location.Teleport()
		}
		to := mover.Destination(c.rng, from, c.locations)
		if to == from.ID {
			return
		}
		from.Infected--
		c.locations[to].Infected++
		m.LocationID = to
	}
	c.exposedQ.Each(move)
	c.infectiousQ.Each(move)
}

// AttemptToAddMosquito infects one susceptible mosquito at loc with serotype,
// drawing its lifespan and EIP. It reports false when the location has no
// susceptible mosquito left. A mosquito that would die before its EIP ends is
// consumed without being queued.
func (c *Community) AttemptToAddMosquito(locID, serotype, infectedBy int) (bool, error) {
	if !c.validLocation(locID) {
		return false, fmt.Errorf("%w: %d", ErrUnknownLocation, locID)
	}
	if serotype < 0 || serotype >= c.par.NumSerotypes {
		return false, fmt.Errorf("%w: %d", ErrUnknownSerotype, serotype)
	}
	loc := c.locations[locID]
	if loc.Susceptible <= 0 {
		return false, nil
	}

	m := mosquito.New(c.nextMosquito, locID, serotype, infectedBy, c.day, c.rng, &c.par)
	if m.SurvivesIncubation() {
		if err := c.exposedQ.Push(m.EIP, m); err != nil {
			return false, fmt.Errorf("mosquito %d: %w", m.ID, err)
		}
		loc.Infected++
	}
	c.nextMosquito++
	loc.Susceptible--
	if c.metrics {
		metrics.RecordMosquitoInfected()
	}
	return true, nil
}

// RestoreMosquitoes queues infected mosquitoes from a snapshot: exposed ones
// turn infectious after DaysLeft days, infectious ones die after DaysLeft
// days. Each restored agent takes the place of a susceptible mosquito at its
// location when one is left. Every record is checked before any is applied,
// so a bad record leaves the community untouched.
func (c *Community) RestoreMosquitoes(records []model.MosquitoRecord) error {
	if len(records) == 0 {
		return nil
	}
	seen := make(map[int]struct{}, len(records)+c.exposedQ.Len()+c.infectiousQ.Len())
	mark := func(_ int, m *mosquito.Mosquito) { seen[m.ID] = struct{}{} }
	c.exposedQ.Each(mark)
	c.infectiousQ.Each(mark)

	for i, rec := range records {
		if !c.validLocation(rec.LocationID) {
			return fmt.Errorf("mosquito record %d: %w: %d", i, ErrUnknownLocation, rec.LocationID)
		}
		if rec.Serotype < 0 || rec.Serotype >= c.par.NumSerotypes {
			return fmt.Errorf("mosquito record %d: %w: %d", i, ErrUnknownSerotype, rec.Serotype)
		}
		if rec.State != mosquito.Exposed.String() && rec.State != mosquito.Infectious.String() {
			return fmt.Errorf("mosquito record %d: %w: state %q", i, ErrInvalidMosquito, rec.State)
		}
		if rec.DaysLeft < 0 || rec.DaysLeft > c.par.MaxQueueHorizon ||
			rec.InfectiousDays < 0 || rec.InfectiousDays > c.par.MaxQueueHorizon {
			return fmt.Errorf("mosquito record %d: %w: days left %d, infectious %d",
				i, ErrInvalidMosquito, rec.DaysLeft, rec.InfectiousDays)
		}
		if _, dup := seen[rec.ID]; dup || rec.ID < 0 {
			return fmt.Errorf("mosquito record %d: %w: id %d", i, ErrInvalidMosquito, rec.ID)
		}
		seen[rec.ID] = struct{}{}
	}

	for _, rec := range records {
		m := &mosquito.Mosquito{
			ID:         rec.ID,
			LocationID: rec.LocationID,
			Serotype:   rec.Serotype,
			InfectedBy: rec.InfectedBy,
			InfectedOn: c.day,
		}
		q := c.infectiousQ
		if rec.State == mosquito.Exposed.String() {
			rest := rec.InfectiousDays
			if rest == 0 {
				rest = c.rng.Geometric(1 / c.par.MosquitoLifespan)
			}
			m.State, m.EIP, m.Lifespan = mosquito.Exposed, rec.DaysLeft, rec.DaysLeft+rest
			q = c.exposedQ
		} else {
			m.State, m.Lifespan = mosquito.Infectious, rec.DaysLeft
		}
		if err := q.Push(rec.DaysLeft, m); err != nil {
			return fmt.Errorf("mosquito %d: %w", m.ID, err)
		}
		loc := c.locations[rec.LocationID]
		loc.Infected++
		if loc.Susceptible > 0 {
			loc.Susceptible--
		}
		c.nextMosquito = max(c.nextMosquito, rec.ID+1)
	}
	c.log.Debug(context.Background(), "mosquitoes restored",
		logger.Int("day", c.day), logger.Int("count", len(records)))
	return nil
}

// SetMosquitoMultiplier changes the capacity multiplier used by future top-ups
// without culling.
func (c *Community) SetMosquitoMultiplier(f float64) {
	if f < 0 {
		f = 0
	}
	c.multiplier = f
	if c.metrics {
		metrics.UpdateMosquitoMultiplier(f)
	}
}

// ApplyMosquitoMultiplier sets the multiplier and immediately culls every
// location down to min(count, new target). It returns the number culled.
func (c *Community) ApplyMosquitoMultiplier(f float64) int {
	prev := c.multiplier
	c.SetMosquitoMultiplier(f)
	if c.multiplier >= prev {
		return 0
	}
	n := c.cull(c.locations)
	if n > 0 {
		c.log.Info(context.Background(), "mosquito multiplier reduced",
			logger.Int("day", c.day), logger.Float64("from", prev), logger.Float64("to", c.multiplier),
			logger.Int("culled", n))
	}
	return n
}

// ApplyVectorControl suppresses a location from start for duration days. A
// window already open culls immediately; a future one culls on its first day.
func (c *Community) ApplyVectorControl(locID, start, duration int) error {
	if !c.validLocation(locID) {
		return fmt.Errorf("%w: %d", ErrUnknownLocation, locID)
	}
	if duration <= 0 {
		duration = c.par.VectorControlDuration
	}
	loc := c.locations[locID]
	loc.SetVectorControl(start, duration)
	culled := 0
	if loc.VectorControlled(c.day) {
		culled = c.cull([]*location.Location{loc})
	}
	c.log.Debug(context.Background(), "vector control applied",
		logger.Int("location", locID), logger.Int("start", start), logger.Int("duration", duration),
		logger.Int("culled", culled))
	return nil
}

// RemoveVectorControl lifts suppression at a location.
func (c *Community) RemoveVectorControl(locID int) error {
	if !c.validLocation(locID) {
		return fmt.Errorf("%w: %d", ErrUnknownLocation, locID)
	}
	c.locations[locID].ClearVectorControl()
	return nil
}

// cull brings each location down to its current target. Susceptible
// mosquitoes go first, then infectious, then exposed agents, lowest id first.
func (c *Community) cull(locs []*location.Location) int {
	quota := make(map[int]int)
	culled := 0
	for _, loc := range locs {
		excess := loc.Total() - c.target(loc)
		if excess <= 0 {
			continue
		}
		r := min(excess, loc.Susceptible)
		loc.Susceptible -= r
		culled += r
		if excess -= r; excess > 0 {
			quota[loc.ID] = excess
		}
	}
	if len(quota) > 0 {
		culled += c.cullAgents(c.infectiousQ.Each, c.infectiousQ.Remove, quota)
	}
	if len(quota) > 0 {
		culled += c.cullAgents(c.exposedQ.Each, c.exposedQ.Remove, quota)
	}
	if c.metrics {
		metrics.RecordMosquitoesCulled(culled)
	}
	return culled
}

type eachFunc func(func(int, *mosquito.Mosquito))
type removeFunc func(func(int, *mosquito.Mosquito) bool) int

// cullAgents removes up to quota[loc] agents per location from one queue and
// decrements the quotas it satisfied.
func (c *Community) cullAgents(each eachFunc, remove removeFunc, quota map[int]int) int {
	byLoc := make(map[int][]int)
	each(func(_ int, m *mosquito.Mosquito) {
		if quota[m.LocationID] > 0 {
			byLoc[m.LocationID] = append(byLoc[m.LocationID], m.ID)
		}
	})
	doomed := make(map[int]struct{})
	for locID, ids := range byLoc {
		sort.Ints(ids)
		n := min(quota[locID], len(ids))
		for _, id := range ids[:n] {
			doomed[id] = struct{}{}
		}
		if quota[locID] -= n; quota[locID] == 0 {
			delete(quota, locID)
		}
	}
	if len(doomed) == 0 {
		return 0
	}
	return remove(func(_ int, m *mosquito.Mosquito) bool {
		if _, ok := doomed[m.ID]; !ok {
			return false
		}
		m.State = mosquito.Dead
		c.locations[m.LocationID].Infected--
		return true
	})
}
