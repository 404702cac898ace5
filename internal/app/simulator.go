// Package service drives simulation runs: a Simulator executes one scenario
// and the batch Service fans independent runs out over a worker pool.
package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/okian/dengue/internal/adapters/loader"
	"github.com/okian/dengue/internal/domain/community"
	"github.com/okian/dengue/internal/domain/model"
	"github.com/okian/dengue/internal/domain/params"
	"github.com/okian/dengue/internal/domain/rng"
	"github.com/okian/dengue/internal/domain/summary"
	"github.com/okian/dengue/pkg/logger"
)

// ObserverFunc inspects a community after its last day, e.g. to write
// snapshots. An error fails the run.
type ObserverFunc func(ctx context.Context, runID string, c *community.Community) error

// Simulator runs one scenario per call. It holds only read-only inputs, so a
// single Simulator may serve many concurrent runs.
type Simulator struct {
	pop      model.Population
	scenario loader.Scenario
	discard  int
	metrics  bool
	observe  ObserverFunc
	logger   logger.Logger
}

// SimulatorOption applies a configuration option to the Simulator.
type SimulatorOption func(*Simulator)

// WithScenario sets the catch-up vaccinations and vector-control campaigns
// applied to every run.
func WithScenario(sc loader.Scenario) SimulatorOption {
	return func(s *Simulator) {
		s.scenario = sc
	}
}

// WithDiscardYears drops burn-in years before computing calibration metrics.
func WithDiscardYears(years int) SimulatorOption {
	return func(s *Simulator) {
		if years >= 0 {
			s.discard = years
		}
	}
}

// WithObserver registers a hook called once a run has finished its last day.
func WithObserver(fn ObserverFunc) SimulatorOption {
	return func(s *Simulator) {
		s.observe = fn
	}
}

// WithCommunityMetrics toggles per-day Prometheus reporting from the community.
func WithCommunityMetrics(enabled bool) SimulatorOption {
	return func(s *Simulator) {
		s.metrics = enabled
	}
}

// WithSimulatorLogger sets the logger for run lifecycle messages.
func WithSimulatorLogger(l logger.Logger) SimulatorOption {
	return func(s *Simulator) {
		if l != nil {
			s.logger = l
		}
	}
}

// NewSimulator creates a Simulator over a loaded population.
func NewSimulator(pop model.Population, opts ...SimulatorOption) *Simulator {
	s := &Simulator{
		pop:     pop,
		metrics: true,
		logger:  logger.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Simulate executes req.Params.RunLength days. Each day the seasonal
// multiplier is applied, the community ticks, then external introductions are
// seeded. Cancellation is checked between days.
func (s *Simulator) Simulate(ctx context.Context, req model.RunRequest) (model.RunResult, error) {
	par := req.Params
	runID := req.ID
	if runID == "" {
		runID = uuid.NewString()
	}
	started := time.Now().UTC()
	log := s.logger.With(logger.String("run_id", runID), logger.Uint64("seed", par.RandomSeed))

	stream := rng.New(par.RandomSeed)
	c, err := community.New(par, s.pop, stream,
		community.WithLogger(log.Named("community")),
		community.WithMetrics(s.metrics),
	)
	if err != nil {
		return model.RunResult{}, fmt.Errorf("build community: %w", err)
	}
	if err := s.schedule(c, stream); err != nil {
		return model.RunResult{}, err
	}

	log.Info(ctx, "run started", logger.Int("days", par.RunLength), logger.Int("people", c.Population()))
	for day := 1; day <= par.RunLength; day++ {
		if err := ctx.Err(); err != nil {
			return model.RunResult{}, fmt.Errorf("%w at day %d: %w", ErrCancelled, day, err)
		}
		c.ApplyMosquitoMultiplier(par.MultiplierForDay(par.DayOfYear(day)))
		if err := c.Tick(); err != nil {
			return model.RunResult{}, err
		}
		if _, err := introduce(c, stream, &par); err != nil {
			return model.RunResult{}, err
		}
	}

	if s.observe != nil {
		if err := s.observe(ctx, runID, c); err != nil {
			return model.RunResult{}, fmt.Errorf("observe %s: %w", runID, err)
		}
	}

	res := model.RunResult{
		RunID:       runID,
		Fingerprint: req.Fingerprint,
		Seed:        par.RandomSeed,
		Days:        c.Day(),
		Population:  c.Population(),
		StartedAt:   started,
		Series:      c.Series(),
	}
	res.AnnualCases = summary.AnnualCases(res.Series.NewlySymptomatic, s.discard)
	res.Metrics = summary.Compute(
		summary.PerCapita(res.AnnualCases, res.Population, par.ExpansionFactor),
		summary.Seroprevalence(parities(c.ImmunitySnapshot()), nil),
	)
	res.FinishedAt = time.Now().UTC()

	log.Info(ctx, "run finished",
		logger.Int("days", res.Days),
		logger.Float64("seroprevalence", res.Metrics.Seroprevalence),
		logger.Duration("elapsed", res.Duration()),
	)
	return res, nil
}

// schedule registers catch-up vaccinations and vector-control campaigns.
// Campaign locations are drawn from the run's stream.
func (s *Simulator) schedule(c *community.Community, stream *rng.Stream) error {
	for _, ev := range s.scenario.Catchups {
		if err := c.ScheduleCatchup(ev); err != nil {
			return fmt.Errorf("schedule catch-up on day %d: %w", ev.Day, err)
		}
	}
	for _, vc := range s.scenario.VectorControl {
		for _, id := range pickLocations(s.pop.Locations, vc, stream) {
			if err := c.ApplyVectorControl(id, vc.Day, vc.Duration); err != nil {
				return fmt.Errorf("schedule vector control on day %d: %w", vc.Day, err)
			}
		}
	}
	return nil
}

// pickLocations selects round(Fraction*n) of the n locations of the
// campaign's type, uniformly without replacement.
func pickLocations(locs []model.LocationRecord, vc params.VectorControlCampaign, stream *rng.Stream) []int {
	var ids []int
	for _, l := range locs {
		if l.Type == vc.LocationType {
			ids = append(ids, l.ID)
		}
	}
	k := int(math.Round(vc.Fraction * float64(len(ids))))
	if k >= len(ids) {
		return ids
	}
	stream.Shuffle(len(ids), func(i, j int) { ids[i], ids[j] = ids[j], ids[i] })
	return ids[:k]
}

// introduce seeds today's external infections: a Poisson count per serotype,
// each landing on a uniformly drawn person. Draws that hit an immune or
// infected person are lost. It returns the number of new infections.
func introduce(c *community.Community, stream *rng.Stream, par *params.Parameters) (int, error) {
	day := c.Day()
	n := c.Population()
	if n == 0 {
		return 0, nil
	}
	scale := par.IntroductionScale(day)
	seeded := 0
	for s, rate := range par.DailyExposed {
		lambda := rate * scale
		if lambda <= 0 {
			continue
		}
		for range stream.Poisson(lambda) {
			ok, err := c.Infect(stream.IntN(n), s, day)
			switch {
			case ok:
				seeded++
			case errors.Is(err, community.ErrAlreadyImmune), errors.Is(err, community.ErrNotSusceptible):
			default:
				return seeded, fmt.Errorf("introduction on day %d: %w", day, err)
			}
		}
	}
	return seeded, nil
}

func parities(states []model.ImmunityState) []int {
	out := make([]int, len(states))
	for _, st := range states {
		out[st.ID] = st.Parity
	}
	return out
}
