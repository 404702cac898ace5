package loader

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/okian/dengue/internal/domain/params"
	"gopkg.in/yaml.v3"
)

// Scenario is the intervention schedule of a run.
type Scenario struct {
	Catchups      []params.CatchupEvent          `yaml:"catchups"`
	VectorControl []params.VectorControlCampaign `yaml:"vector_control"`
}

// ReadScenario decodes a YAML scenario. Unknown keys are rejected.
func ReadScenario(r io.Reader) (Scenario, error) {
	var sc Scenario
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&sc); err != nil {
		if errors.Is(err, io.EOF) {
			return Scenario{}, nil
		}
		return Scenario{}, fmt.Errorf("%w: scenario: %w", ErrMalformedRecord, err)
	}
	for i, ev := range sc.Catchups {
		if ev.Day < 0 || ev.MinAge < 0 || ev.MaxAge < ev.MinAge || ev.Coverage < 0 || ev.Coverage > 1 {
			return Scenario{}, fmt.Errorf("%w: scenario catchup %d", ErrMalformedRecord, i)
		}
	}
	for i, vc := range sc.VectorControl {
		if vc.Day < 0 || vc.Duration < 0 || vc.Fraction < 0 || vc.Fraction > 1 {
			return Scenario{}, fmt.Errorf("%w: scenario vector control %d", ErrMalformedRecord, i)
		}
	}
	return sc, nil
}

// ReadScenarioFile decodes the scenario at path.
func ReadScenarioFile(path string) (Scenario, error) {
	f, err := os.Open(path)
	if err != nil {
		return Scenario{}, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()
	return ReadScenario(f)
}
