// Package summary turns the daily case series of a finished run into the
// calibration statistics used to compare runs against surveillance data.
package summary

import (
	"math"
	"sort"

	"github.com/okian/dengue/internal/domain/params"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// casesPer is the population base of PerCapita.
const casesPer = 1e5

// Metrics are the calibration statistics of one run.
type Metrics struct {
	Mean            float64 `json:"mean"`
	Median          float64 `json:"median"`
	StdDev          float64 `json:"stddev"`
	Max             float64 `json:"max"`
	Skewness        float64 `json:"skewness"`
	MedianCrossings float64 `json:"median_crossings"`
	Seroprevalence  float64 `json:"seroprevalence"`
}

// Names lists the metric names in Vector order.
var Names = []string{"mean", "median", "stddev", "max", "skewness", "median_crossings", "seroprevalence"}

// Vector returns the metrics in Names order with non-finite values set to 0.
func (m Metrics) Vector() []float64 {
	return []float64{
		Sanitize(m.Mean),
		Sanitize(m.Median),
		Sanitize(m.StdDev),
		Sanitize(m.Max),
		Sanitize(m.Skewness),
		Sanitize(m.MedianCrossings),
		Sanitize(m.Seroprevalence),
	}
}

// Sanitize maps NaN and infinities to 0.
func Sanitize(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}

// AnnualCases sums a [day][serotype] series into calendar years of the run.
// Row 0 holds nothing simulated and is skipped; day d falls in year
// (d-1)/365. The first discard years are dropped, and a trailing partial
// year is kept.
func AnnualCases(series [][]int, discard int) []int {
	var years []int
	for d := 1; d < len(series); d++ {
		y := (d - 1) / params.DaysPerYear
		for len(years) <= y {
			years = append(years, 0)
		}
		for _, n := range series[d] {
			years[y] += n
		}
	}
	if discard >= len(years) {
		return nil
	}
	if discard > 0 {
		years = years[discard:]
	}
	return years
}

// PerCapita converts counts to cases per 100,000 people, correcting for
// under-reporting with the expansion factor.
func PerCapita(cases []int, population int, expansion float64) []float64 {
	out := make([]float64, len(cases))
	if population <= 0 || expansion <= 0 {
		return out
	}
	for i, c := range cases {
		out[i] = casesPer * float64(c) / (expansion * float64(population))
	}
	return out
}

// Seroprevalence returns the fraction of the given people with at least one
// past infection, from per-person infection parities indexed by id. An empty
// ids slice means everyone.
func Seroprevalence(parity []int, ids []int) float64 {
	if len(ids) == 0 {
		ids = make([]int, len(parity))
		for i := range ids {
			ids[i] = i
		}
	}
	n, pos := 0, 0
	for _, id := range ids {
		if id < 0 || id >= len(parity) {
			continue
		}
		n++
		if parity[id] > 0 {
			pos++
		}
	}
	if n == 0 {
		return 0
	}
	return float64(pos) / float64(n)
}

// Compute derives the statistics of y. Fewer than two values leave the
// spread and shape statistics at 0.
func Compute(y []float64, seroprevalence float64) Metrics {
	m := Metrics{Seroprevalence: seroprevalence}
	if len(y) == 0 {
		return m
	}
	sorted := append([]float64(nil), y...)
	sort.Float64s(sorted)

	m.Mean = stat.Mean(y, nil)
	m.Median = median(sorted)
	m.Max = floats.Max(y)
	if len(y) > 1 {
		m.StdDev = stat.StdDev(y, nil)
		m.Skewness = stat.Skew(y, nil)
		m.MedianCrossings = medianCrossings(y, m.Median)
	}
	return m
}

// median of sorted values, averaging the middle pair for even lengths.
func median(sorted []float64) float64 {
	n := len(sorted)
	if n%2 == 1 {
		return sorted[n/2]
	}
	return (sorted[n/2-1] + sorted[n/2]) / 2
}

// medianCrossings is the fraction of consecutive pairs that lie on opposite
// sides of the median. Values equal to the median take the side of the
// previous value.
func medianCrossings(y []float64, median float64) float64 {
	side := 0
	crossings := 0
	for _, v := range y {
		s := 0
		switch {
		case v > median:
			s = 1
		case v < median:
			s = -1
		}
		if s == 0 {
			continue
		}
		if side != 0 && s != side {
			crossings++
		}
		side = s
	}
	return float64(crossings) / float64(len(y)-1)
}
