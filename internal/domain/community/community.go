// Package community implements the simulation orchestrator: it owns the
// population, the locations and the infected mosquitoes of one run and
// advances them one day at a time.
//
// Conventions:
//   - A Community is single-threaded; independent runs each own one.
//   - Every random draw goes through the injected rng.Stream in a fixed order.
//   - Data errors (unknown ids, immune targets) return a sentinel and leave
//     state untouched; configuration errors abort construction or Tick.
package community

import (
	"context"
	"fmt"

	"github.com/okian/dengue/internal/domain/delayq"
	"github.com/okian/dengue/internal/domain/location"
	"github.com/okian/dengue/internal/domain/model"
	"github.com/okian/dengue/internal/domain/mosquito"
	"github.com/okian/dengue/internal/domain/params"
	"github.com/okian/dengue/internal/domain/person"
	"github.com/okian/dengue/internal/domain/rng"
	"github.com/okian/dengue/pkg/logger"
)

// swapPair is a deferred immunity exchange between a person and a donor.
type swapPair struct {
	person int
	donor  int
}

// Community is the aggregate root of one simulation run.
type Community struct {
	par     params.Parameters
	rng     *rng.Stream
	log     logger.Logger
	metrics bool
	records model.Population

	people     []*person.Person
	birthdayOf []int
	cohorts    [][]int                 // person ids by age, ascending id
	birthdays  [params.DaysPerYear][]int // person ids by birthday day-of-year

	locations    []*location.Location
	moveModel    location.MoveModel
	capacityDist location.CapacityDistribution

	humanQ      *delayq.Queue[int]                // days until infectious
	exposedQ    *delayq.Queue[*mosquito.Mosquito] // days until infectious
	infectiousQ *delayq.Queue[*mosquito.Mosquito] // days until death
	doseQ       *delayq.Queue[int]                // days until next dose or booster

	day          int
	multiplier   float64
	nextMosquito int

	hot            map[int]map[int]struct{} // day -> locations with a viremic visitor
	pendingSwaps   map[int][]swapPair       // trigger day -> deferred exchanges
	catchups       map[int][]params.CatchupEvent
	birthdaysToday []int
	dosesDue       []int

	stats stats
}

// New builds a community from pre-loaded records. The parameter bundle is
// validated and copied; r is owned by the community for the rest of the run.
func New(par params.Parameters, records model.Population, r *rng.Stream, opts ...Option) (*Community, error) {
	if err := par.Validate(); err != nil {
		return nil, err
	}
	if r == nil {
		r = rng.New(par.RandomSeed)
	}
	c := &Community{
		par:        par.Clone(),
		rng:        r,
		log:        logger.Nop(),
		metrics:    true,
		records:    records,
		multiplier: 1,
	}
	for _, opt := range opts {
		opt(c)
	}
	if err := c.checkHorizons(); err != nil {
		return nil, err
	}

	var err error
	if c.moveModel, err = location.NewMoveModel(c.par.MosquitoMoveModel); err != nil {
		return nil, fmt.Errorf("%w: %w", params.ErrInvalidParameters, err)
	}
	if c.capacityDist, err = location.NewCapacityDistribution(c.par.MosquitoDistribution); err != nil {
		return nil, fmt.Errorf("%w: %w", params.ErrInvalidParameters, err)
	}
	if err := c.buildLocations(); err != nil {
		return nil, err
	}
	if err := c.buildPeople(); err != nil {
		return nil, err
	}

	c.humanQ = delayq.New[int](len(c.par.IncubationCDF), c.par.MaxQueueHorizon)
	c.exposedQ = delayq.New[*mosquito.Mosquito](int(3*c.par.ExpectedEIP)+1, c.par.MaxQueueHorizon)
	c.infectiousQ = delayq.New[*mosquito.Mosquito](int(4*c.par.MosquitoLifespan)+1, c.par.MaxQueueHorizon)
	c.doseQ = delayq.New[int](1, c.par.MaxQueueHorizon)

	c.populate()
	if err := c.RestoreMosquitoes(c.records.Mosquitoes); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidPopulation, err)
	}

	c.log.Info(context.Background(), "community built",
		logger.Int("people", len(c.people)),
		logger.Int("locations", len(c.locations)),
		logger.Int("mosquitoes", c.NumSusceptibleMosquitoes()),
		logger.Int("restored_mosquitoes", len(c.records.Mosquitoes)),
		logger.Uint64("seed", c.rng.Seed()),
	)
	return c, nil
}

// checkHorizons rejects delays the queues could never hold.
func (c *Community) checkHorizons() error {
	horizon := c.par.MaxQueueHorizon
	switch {
	case len(c.par.IncubationCDF)-1 > horizon:
		return fmt.Errorf("%w: incubation_cdf spans %d days, max_queue_horizon is %d",
			params.ErrInvalidParameters, len(c.par.IncubationCDF)-1, horizon)
	case c.par.VaccineDoses > 1 && c.par.VaccineDoseInterval > horizon:
		return fmt.Errorf("%w: vaccine_dose_interval %d exceeds max_queue_horizon %d",
			params.ErrInvalidParameters, c.par.VaccineDoseInterval, horizon)
	case c.par.VaccineBoosting && c.par.VaccineBoostInterval > horizon:
		return fmt.Errorf("%w: vaccine_boost_interval %d exceeds max_queue_horizon %d",
			params.ErrInvalidParameters, c.par.VaccineBoostInterval, horizon)
	}
	return nil
}

func (c *Community) buildLocations() error {
	c.locations = make([]*location.Location, len(c.records.Locations))
	for i, rec := range c.records.Locations {
		if rec.ID != i {
			return fmt.Errorf("%w: location %d stored at index %d", ErrInvalidPopulation, rec.ID, i)
		}
		typ, err := location.ParseType(rec.Type)
		if err != nil {
			return fmt.Errorf("%w: location %d: %w", ErrInvalidPopulation, rec.ID, err)
		}
		c.locations[i] = location.New(rec.ID, typ, c.capacityDist.Capacity(c.rng, c.par.DefaultMosquitoCapacity))
	}
	for _, e := range c.records.Edges {
		if !c.validLocation(e.From) || !c.validLocation(e.To) {
			return fmt.Errorf("%w: edge %d-%d", ErrInvalidPopulation, e.From, e.To)
		}
		if e.From == e.To {
			continue
		}
		c.locations[e.From].Neighbours = append(c.locations[e.From].Neighbours, e.To)
		c.locations[e.To].Neighbours = append(c.locations[e.To].Neighbours, e.From)
	}
	return nil
}

// buildPeople validates person records, draws birthdays and registers visits.
// Visits are static for the run and survive Reset.
func (c *Community) buildPeople() error {
	pdf := c.par.BitingPDF
	c.birthdayOf = make([]int, len(c.records.People))
	for i, rec := range c.records.People {
		if rec.ID != i {
			return fmt.Errorf("%w: person %d stored at index %d", ErrInvalidPopulation, rec.ID, i)
		}
		if !c.validLocation(rec.HomeID) {
			return fmt.Errorf("%w: person %d has unknown home %d", ErrInvalidPopulation, rec.ID, rec.HomeID)
		}
		if rec.DayLocationID != model.NoLocation && !c.validLocation(rec.DayLocationID) {
			return fmt.Errorf("%w: person %d has unknown day location %d", ErrInvalidPopulation, rec.ID, rec.DayLocationID)
		}
		if rec.Age < 0 {
			return fmt.Errorf("%w: person %d has negative age", ErrInvalidPopulation, rec.ID)
		}
		c.birthdayOf[i] = c.rng.IntN(params.DaysPerYear)

		home := c.locations[rec.HomeID]
		if rec.DayLocationID == model.NoLocation || rec.DayLocationID == rec.HomeID {
			home.AddVisitor(rec.ID, 1)
			continue
		}
		home.AddVisitor(rec.ID, pdf[0]+pdf[2])
		c.locations[rec.DayLocationID].AddVisitor(rec.ID, pdf[1])
	}
	for _, imm := range c.records.Immunity {
		if imm.ID < 0 || imm.ID >= len(c.records.People) {
			return fmt.Errorf("%w: immunity for unknown person %d", ErrInvalidPopulation, imm.ID)
		}
		if len(imm.YearsSinceLast) != c.par.NumSerotypes {
			return fmt.Errorf("%w: immunity for person %d has %d serotypes", ErrInvalidPopulation, imm.ID, len(imm.YearsSinceLast))
		}
	}
	return nil
}

// populate (re)creates every mutable part of the run from the records.
func (c *Community) populate() {
	pdf := c.par.BitingPDF
	c.people = make([]*person.Person, len(c.records.People))
	c.cohorts = nil
	for i := range c.birthdays {
		c.birthdays[i] = nil
	}
	for i, rec := range c.records.People {
		p := person.New(rec.ID, rec.Age, rec.Sex, rec.HomeID, rec.DayLocationID, c.birthdayOf[i], c.par.NumSerotypes)
		if rec.DayLocationID == model.NoLocation || rec.DayLocationID == rec.HomeID {
			p.Visits = []person.Visit{{LocationID: rec.HomeID, Weight: 1}}
		} else {
			p.Visits = []person.Visit{
				{LocationID: rec.HomeID, Weight: pdf[0] + pdf[2]},
				{LocationID: rec.DayLocationID, Weight: pdf[1]},
			}
		}
		c.people[i] = p
		c.addToCohort(p)
		c.birthdays[p.BirthdayDOY] = append(c.birthdays[p.BirthdayDOY], p.ID)
	}
	for _, imm := range c.records.Immunity {
		p := c.people[imm.ID]
		for s, years := range imm.YearsSinceLast {
			if years > 0 {
				p.SetImmunity(s, -years*params.DaysPerYear)
			}
		}
	}

	c.humanQ.Reset()
	c.exposedQ.Reset()
	c.infectiousQ.Reset()
	c.doseQ.Reset()

	c.day = 0
	c.nextMosquito = 0
	c.hot = make(map[int]map[int]struct{})
	c.pendingSwaps = make(map[int][]swapPair)
	c.catchups = make(map[int][]params.CatchupEvent)
	c.birthdaysToday = nil
	c.dosesDue = nil
	c.stats = newStats(c.par.RunLength, c.par.NumSerotypes)

	for _, loc := range c.locations {
		loc.ClearVectorControl()
		loc.Infected = 0
		loc.Susceptible = loc.Target(c.multiplier, c.day, c.par.VectorControlEfficacy)
	}
}

// Reset returns the community to its post-construction state: same records,
// capacities and birthdays, restored mosquitoes and empty statistics. The
// random stream is not rewound; callers wanting a replay reset it themselves.
func (c *Community) Reset() {
	c.multiplier = 1
	c.populate()
	if err := c.RestoreMosquitoes(c.records.Mosquitoes); err != nil {
		c.log.Error(context.Background(), "restore mosquitoes on reset", logger.Error(err))
	}
}

func (c *Community) validLocation(id int) bool {
	return id >= 0 && id < len(c.locations)
}

func (c *Community) addToCohort(p *person.Person) {
	for len(c.cohorts) <= p.Age {
		c.cohorts = append(c.cohorts, nil)
	}
	c.cohorts[p.Age] = insertSorted(c.cohorts[p.Age], p.ID)
}

func (c *Community) removeFromCohort(p *person.Person) {
	ids := c.cohorts[p.Age]
	for i, id := range ids {
		if id == p.ID {
			c.cohorts[p.Age] = append(ids[:i], ids[i+1:]...)
			return
		}
	}
}

func insertSorted(ids []int, id int) []int {
	i := len(ids)
	for i > 0 && ids[i-1] > id {
		i--
	}
	ids = append(ids, 0)
	copy(ids[i+1:], ids[i:])
	ids[i] = id
	return ids
}

// Parameters returns a copy of the run's parameter bundle.
func (c *Community) Parameters() params.Parameters { return c.par.Clone() }

// SetNoSecondaryTransmission stops mosquitoes from infecting anyone with a
// prior infection for the rest of the run.
func (c *Community) SetNoSecondaryTransmission() { c.par.NoSecondaryTransmission = true }

// SetExpectedEIP changes the mean extrinsic incubation period for mosquitoes
// infected from now on. Already exposed mosquitoes keep their EIP.
func (c *Community) SetExpectedEIP(days float64) error {
	if days <= 0 {
		return fmt.Errorf("%w: expected_eip must be positive, got %v", params.ErrInvalidParameters, days)
	}
	c.par.ExpectedEIP = days
	return nil
}
