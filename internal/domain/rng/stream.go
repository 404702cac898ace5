// Package rng provides the single seeded random stream owned by a simulation run.
//
// Every stochastic draw of a run goes through one Stream so that two runs built
// from the same parameters and seed consume identical sequences.
package rng

import (
	"math"
	"math/rand/v2"
	"sort"

	"gonum.org/v1/gonum/stat/distuv"
)

// Fixed increment for the PCG state; the seed selects the sequence.
const pcgIncrement = 0x9e3779b97f4a7c15

// source adapts a PCG generator to the Source contract expected by gonum's
// distributions (Uint64 plus a single-argument Seed).
type source struct {
	pcg *rand.PCG
}

func (s *source) Uint64() uint64 { return s.pcg.Uint64() }

func (s *source) Seed(seed uint64) { s.pcg.Seed(seed, seed^pcgIncrement) }

// Stream is a deterministic pseudorandom stream. It is not safe for concurrent use;
// each run owns its own Stream.
type Stream struct {
	seed uint64
	src  *source
	r    *rand.Rand
}

// New creates a stream seeded with seed.
func New(seed uint64) *Stream {
	src := &source{pcg: rand.NewPCG(seed, seed^pcgIncrement)}
	return &Stream{seed: seed, src: src, r: rand.New(src)}
}

// Seed returns the seed the stream was created or last reset with.
func (s *Stream) Seed() uint64 { return s.seed }

// Reset rewinds the stream to the start of the sequence for seed.
func (s *Stream) Reset(seed uint64) {
	s.seed = seed
	s.src.Seed(seed)
}

// Float64 returns a uniform draw in [0, 1).
func (s *Stream) Float64() float64 { return s.r.Float64() }

// IntN returns a uniform integer in [0, n). n must be positive.
func (s *Stream) IntN(n int) int { return s.r.IntN(n) }

// Bernoulli reports success with probability p.
func (s *Stream) Bernoulli(p float64) bool {
	if p <= 0 {
		return false
	}
	if p >= 1 {
		return true
	}
	return s.r.Float64() < p
}

// LogNormal draws exp(N(mu, sigma)).
func (s *Stream) LogNormal(mu, sigma float64) float64 {
	return distuv.LogNormal{Mu: mu, Sigma: sigma, Src: s.src}.Rand()
}

// Exponential draws from an exponential distribution with the given mean.
func (s *Stream) Exponential(mean float64) float64 {
	if mean <= 0 {
		return 0
	}
	return distuv.Exponential{Rate: 1 / mean, Src: s.src}.Rand()
}

// Poisson draws a count with mean lambda.
func (s *Stream) Poisson(lambda float64) int {
	if lambda <= 0 {
		return 0
	}
	return int(distuv.Poisson{Lambda: lambda, Src: s.src}.Rand())
}

// Binomial draws the number of successes in n trials of probability p.
func (s *Stream) Binomial(n int, p float64) int {
	switch {
	case n <= 0 || p <= 0:
		return 0
	case p >= 1:
		return n
	}
	k := int(distuv.Binomial{N: float64(n), P: p, Src: s.src}.Rand())
	if k > n {
		k = n
	}
	return k
}

// Geometric draws the number of days until the first event of daily
// probability p, always at least 1.
func (s *Stream) Geometric(p float64) int {
	if p >= 1 {
		return 1
	}
	if p <= 0 {
		return math.MaxInt32
	}
	u := 1 - s.r.Float64() // (0, 1]
	k := int(math.Ceil(math.Log(u) / math.Log1p(-p)))
	if k < 1 {
		k = 1
	}
	return k
}

// Weighted picks an index from a cumulative weight table (non-decreasing, last
// element is the total). Returns -1 when the total weight is not positive.
func (s *Stream) Weighted(cumulative []float64) int {
	n := len(cumulative)
	if n == 0 || cumulative[n-1] <= 0 {
		return -1
	}
	r := s.r.Float64() * cumulative[n-1]
	i := sort.Search(n, func(i int) bool { return cumulative[i] > r })
	if i >= n {
		i = n - 1
	}
	return i
}

// Shuffle permutes n elements in place through swap.
func (s *Stream) Shuffle(n int, swap func(i, j int)) { s.r.Shuffle(n, swap) }
