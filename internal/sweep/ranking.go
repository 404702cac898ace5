package sweep

import (
	"fmt"
	"math"
	"sort"

	"github.com/okian/dengue/internal/domain/model"
	"github.com/okian/dengue/internal/domain/summary"
)

// Ranked is a run with its distance to the target.
type Ranked struct {
	RunID    string  `json:"run_id"`
	Seed     uint64  `json:"seed"`
	Distance float64 `json:"distance"`
}

func metricIndex(name string) int {
	for i, n := range summary.Names {
		if n == name {
			return i
		}
	}
	return -1
}

// Distance is the Euclidean distance between the sanitized metrics and the
// target, each term scaled by the target value when it is non-zero.
func Distance(m summary.Metrics, target map[string]float64) (float64, error) {
	vec := m.Vector()
	total := 0.0
	for name, want := range target {
		i := metricIndex(name)
		if i < 0 {
			return 0, fmt.Errorf("%w: %q", ErrUnknownMetric, name)
		}
		d := vec[i] - want
		if want != 0 {
			d /= math.Abs(want)
		}
		total += d * d
	}
	return math.Sqrt(total), nil
}

// Rank orders results from closest to farthest, ties by run id, keeping at
// most keep entries when keep > 0.
func Rank(results []model.RunResult, target map[string]float64, keep int) ([]Ranked, error) {
	out := make([]Ranked, 0, len(results))
	for _, res := range results {
		d, err := Distance(res.Metrics, target)
		if err != nil {
			return nil, err
		}
		out = append(out, Ranked{RunID: res.RunID, Seed: res.Seed, Distance: d})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Distance != out[j].Distance {
			return out[i].Distance < out[j].Distance
		}
		return out[i].RunID < out[j].RunID
	})
	if keep > 0 && keep < len(out) {
		out = out[:keep]
	}
	return out, nil
}
