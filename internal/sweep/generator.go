package sweep

import (
	"fmt"
	"math"

	"github.com/okian/dengue/internal/domain/params"
	"github.com/okian/dengue/internal/domain/rng"
)

// Particle is one drawn parameter bundle.
type Particle struct {
	Index  int
	Values []float64 // in prior order, before any Log10 transform
	Params params.Parameters
}

// setters maps sweepable names onto the parameter bundle. "beta" sets both
// transmission probabilities, which are not separately identifiable.
var setters = map[string]func(p *params.Parameters, v float64){ //nolint:gochecknoglobals // static lookup table
	"beta":                      func(p *params.Parameters, v float64) { p.BetaMP, p.BetaPM = v, v },
	"beta_mp":                   func(p *params.Parameters, v float64) { p.BetaMP = v },
	"beta_pm":                   func(p *params.Parameters, v float64) { p.BetaPM = v },
	"biting_rate":               func(p *params.Parameters, v float64) { p.BitingRate = v },
	"expected_eip":              func(p *params.Parameters, v float64) { p.ExpectedEIP = v },
	"expansion_factor":          func(p *params.Parameters, v float64) { p.ExpansionFactor = v },
	"mosquito_move":             func(p *params.Parameters, v float64) { p.MosquitoMove = v },
	"mosquito_daily_survival":   func(p *params.Parameters, v float64) { p.MosquitoDailySurvival = v },
	"mosquito_lifespan":         func(p *params.Parameters, v float64) { p.MosquitoLifespan = v },
	"annual_introductions_coef": func(p *params.Parameters, v float64) { p.AnnualIntroductionsCoef = v },
	"default_mosquito_capacity": func(p *params.Parameters, v float64) { p.DefaultMosquitoCapacity = int(v) },
}

// Validate checks every prior against the known parameter names.
func (c Config) Validate() error {
	if c.Particles < 0 {
		return fmt.Errorf("%w: particles must be non-negative, got %d", ErrInvalidPrior, c.Particles)
	}
	if c.Particles > 0 && len(c.Priors) == 0 {
		return fmt.Errorf("%w: a sweep needs at least one prior", ErrInvalidPrior)
	}
	for _, pr := range c.Priors {
		if _, ok := setters[pr.Name]; !ok {
			return fmt.Errorf("%w: %q", ErrUnknownParameter, pr.Name)
		}
		if math.IsNaN(pr.Min) || math.IsNaN(pr.Max) || pr.Min > pr.Max {
			return fmt.Errorf("%w: %s range [%v, %v]", ErrInvalidPrior, pr.Name, pr.Min, pr.Max)
		}
	}
	for name := range c.Target {
		if metricIndex(name) < 0 {
			return fmt.Errorf("%w: %q", ErrUnknownMetric, name)
		}
	}
	return nil
}

// Generate draws c.Particles bundles from base. Particle i runs with seed
// base.RandomSeed+i. Draws are reproducible for a given c.Seed. A particle
// whose bundle fails validation is an error.
func Generate(base params.Parameters, c Config) ([]Particle, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	stream := rng.New(c.Seed)
	out := make([]Particle, 0, c.Particles)
	for i := range c.Particles {
		par := base.Clone()
		par.RandomSeed = base.RandomSeed + uint64(i)
		values := make([]float64, len(c.Priors))
		for j, pr := range c.Priors {
			v := pr.Min + stream.Float64()*(pr.Max-pr.Min)
			values[j] = v
			if pr.Log10 {
				v = math.Pow(10, v)
			}
			setters[pr.Name](&par, v)
		}
		if err := par.Validate(); err != nil {
			return nil, fmt.Errorf("particle %d: %w", i, err)
		}
		out = append(out, Particle{Index: i, Values: values, Params: par})
	}
	return out, nil
}
