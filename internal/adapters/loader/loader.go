// Package loader reads the whitespace-separated input tables of a run
// (population, locations, network, immunity, swap probabilities), an optional
// mosquito snapshot and the YAML scenario schedule.
//
// Records are validated for shape here; cross-references between tables are
// checked when the community is built.
package loader

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/okian/dengue/internal/adapters/export"
	"github.com/okian/dengue/internal/domain/model"
)

// Files names the input tables of a run. Population and Locations are
// required; the rest are optional.
type Files struct {
	Population string `koanf:"population"`
	Locations  string `koanf:"locations"`
	Network    string `koanf:"network"`
	Immunity   string `koanf:"immunity"`
	Swap       string `koanf:"swap"`
	// Mosquitoes is a zstd JSON-lines snapshot of infected mosquitoes.
	Mosquitoes string `koanf:"mosquitoes"`
}

// Load reads every configured table.
func Load(files Files, serotypes int) (model.Population, error) {
	var pop model.Population
	if files.Population == "" || files.Locations == "" {
		return pop, fmt.Errorf("%w: population and locations are required", ErrMissingFile)
	}

	if err := readFile(files.Locations, func(r io.Reader) (err error) {
		pop.Locations, err = ReadLocations(r)
		return err
	}); err != nil {
		return pop, err
	}
	if err := readFile(files.Population, func(r io.Reader) (err error) {
		pop.People, err = ReadPopulation(r)
		return err
	}); err != nil {
		return pop, err
	}
	if files.Network != "" {
		if err := readFile(files.Network, func(r io.Reader) (err error) {
			pop.Edges, err = ReadNetwork(r)
			return err
		}); err != nil {
			return pop, err
		}
	}
	if files.Immunity != "" {
		if err := readFile(files.Immunity, func(r io.Reader) (err error) {
			pop.Immunity, err = ReadImmunity(r, serotypes)
			return err
		}); err != nil {
			return pop, err
		}
	}
	if files.Swap != "" {
		if err := readFile(files.Swap, func(r io.Reader) (err error) {
			pop.SwapProbabilities, err = ReadSwapProbabilities(r)
			return err
		}); err != nil {
			return pop, err
		}
	}
	if files.Mosquitoes != "" {
		mos, err := export.Read[model.MosquitoRecord](files.Mosquitoes)
		if err != nil {
			return pop, err
		}
		pop.Mosquitoes = mos
	}
	return pop, nil
}

func readFile(path string, fn func(io.Reader) error) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()
	if err := fn(f); err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	return nil
}

// ReadPopulation parses `id home_id sex age day_loc_id` rows. A day location
// of -1 means the person stays home. Rows are returned sorted by id.
func ReadPopulation(r io.Reader) ([]model.PersonRecord, error) {
	var people []model.PersonRecord
	err := scanTable(r, "population", func(line int, f []string) error {
		rw := newRow("population", line, f, 5)
		p := model.PersonRecord{
			ID:            rw.int(0),
			HomeID:        rw.int(1),
			Sex:           rw.sex(2),
			Age:           rw.int(3),
			DayLocationID: rw.int(4),
		}
		if rw.err != nil {
			return rw.err
		}
		if p.DayLocationID < 0 {
			p.DayLocationID = model.NoLocation
		}
		people = append(people, p)
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.SliceStable(people, func(i, j int) bool { return people[i].ID < people[j].ID })
	return people, nil
}

// ReadLocations parses `id type` rows, sorted by id. Types are lower-cased.
func ReadLocations(r io.Reader) ([]model.LocationRecord, error) {
	var locs []model.LocationRecord
	err := scanTable(r, "locations", func(line int, f []string) error {
		rw := newRow("locations", line, f, 2)
		l := model.LocationRecord{ID: rw.int(0), Type: strings.ToLower(rw.str(1))}
		if rw.err != nil {
			return rw.err
		}
		locs = append(locs, l)
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.SliceStable(locs, func(i, j int) bool { return locs[i].ID < locs[j].ID })
	return locs, nil
}

// ReadNetwork parses `loc_a loc_b` rows.
func ReadNetwork(r io.Reader) ([]model.Edge, error) {
	var edges []model.Edge
	err := scanTable(r, "network", func(line int, f []string) error {
		rw := newRow("network", line, f, 2)
		e := model.Edge{From: rw.int(0), To: rw.int(1)}
		if rw.err != nil {
			return rw.err
		}
		edges = append(edges, e)
		return nil
	})
	return edges, err
}

// ReadImmunity parses `id y0 ... y(S-1)` rows, years since the last
// infection by each serotype, 0 meaning never.
func ReadImmunity(r io.Reader, serotypes int) ([]model.ImmunityRecord, error) {
	var out []model.ImmunityRecord
	err := scanTable(r, "immunity", func(line int, f []string) error {
		rw := newRow("immunity", line, f, 1+serotypes)
		rec := model.ImmunityRecord{ID: rw.int(0), YearsSinceLast: make([]int, serotypes)}
		for s := range rec.YearsSinceLast {
			rec.YearsSinceLast[s] = rw.int(1 + s)
		}
		if rw.err != nil {
			return rw.err
		}
		for s, y := range rec.YearsSinceLast {
			if y < 0 {
				return fmt.Errorf("%w: immunity line %d: negative years for serotype %d", ErrMalformedRecord, line, s)
			}
		}
		out = append(out, rec)
		return nil
	})
	return out, err
}

// ReadSwapProbabilities parses `age prob` rows into a table indexed by age.
// Ages between listed rows take the value of the nearest younger listed age;
// ages below the first listed age take the first value.
func ReadSwapProbabilities(r io.Reader) ([]float64, error) {
	type entry struct {
		age  int
		prob float64
	}
	var entries []entry
	err := scanTable(r, "swap probabilities", func(line int, f []string) error {
		rw := newRow("swap probabilities", line, f, 2)
		e := entry{age: rw.int(0), prob: rw.float(1)}
		if rw.err != nil {
			return rw.err
		}
		if e.age < 0 || e.prob < 0 || e.prob > 1 {
			return fmt.Errorf("%w: swap probabilities line %d: age %d prob %v", ErrMalformedRecord, line, e.age, e.prob)
		}
		entries = append(entries, e)
		return nil
	})
	if err != nil || len(entries) == 0 {
		return nil, err
	}
	sort.SliceStable(entries, func(i, j int) bool { return entries[i].age < entries[j].age })

	out := make([]float64, entries[len(entries)-1].age+1)
	next := 0
	current := entries[0].prob
	for age := range out {
		for next < len(entries) && entries[next].age == age {
			current = entries[next].prob
			next++
		}
		out[age] = current
	}
	return out, nil
}
