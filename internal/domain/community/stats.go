package community

import (
	"github.com/okian/dengue/internal/domain/location"
)

// stats holds the per-day, per-serotype aggregates of a run.
type stats struct {
	serotypes        int
	newlyInfected    [][]int
	newlySymptomatic [][]int
	severe           [][]int
	vaccinated       [][]int
	introductions    [][]int
	byPlace          map[location.Type]int
}

func newStats(days, serotypes int) stats {
	s := stats{serotypes: serotypes, byPlace: make(map[location.Type]int)}
	s.ensureDay(days)
	return s
}

// ensureDay grows every series so that index day exists.
func (s *stats) ensureDay(day int) {
	for _, series := range []*[][]int{&s.newlyInfected, &s.newlySymptomatic, &s.severe, &s.vaccinated, &s.introductions} {
		for len(*series) <= day {
			*series = append(*series, make([]int, s.serotypes))
		}
	}
}

// copySeries returns rows 0..upto inclusive as an independent copy.
func copySeries(series [][]int, upto int) [][]int {
	if upto >= len(series) {
		upto = len(series) - 1
	}
	out := make([][]int, upto+1)
	for d := range out {
		out[d] = append([]int(nil), series[d]...)
	}
	return out
}
