// Package sweep draws parameter particles from uniform priors and ranks
// finished runs by their distance to target calibration metrics.
package sweep

// Prior is a uniform prior over one parameter. With Log10 the draw is an
// exponent: the parameter receives 10^x.
type Prior struct {
	Name  string  `koanf:"name" yaml:"name"`
	Min   float64 `koanf:"min" yaml:"min"`
	Max   float64 `koanf:"max" yaml:"max"`
	Log10 bool    `koanf:"log10" yaml:"log10"`
}

// Config describes one sweep.
type Config struct {
	// Particles is the number of parameter bundles to draw; 0 disables the sweep.
	Particles int `koanf:"particles"`

	// Seed drives the prior draws, independently of the simulation seeds.
	Seed uint64 `koanf:"seed"`

	Priors []Prior `koanf:"priors"`

	// Target holds observed metric values by summary name.
	Target map[string]float64 `koanf:"target"`

	// Keep is how many of the closest runs a ranking reports; 0 means all.
	Keep int `koanf:"keep"`
}

// Enabled reports whether the sweep should replace plain seed batches.
func (c Config) Enabled() bool { return c.Particles > 0 }
