// Package config defines process configuration and its loading.
//
// Conventions:
//   - New() returns the defaults; Load(ctx) layers a YAML file and DENGUE_*
//     environment variables on top and validates the result.
//   - Errors wrap this package's sentinels so callers can use errors.Is.
package config

import (
	"runtime"

	"github.com/okian/dengue/internal/domain/params"
	"github.com/okian/dengue/internal/sweep"
)

// DataFiles names the input tables of a run.
type DataFiles struct {
	Population string `koanf:"population"`
	Locations  string `koanf:"locations"`
	Network    string `koanf:"network"`
	Immunity   string `koanf:"immunity"`
	Swap       string `koanf:"swap"`
	Mosquitoes string `koanf:"mosquitoes"`
}

// OutputConfig controls what a finished run writes besides the results store.
type OutputConfig struct {
	// Dir receives snapshot files; empty disables snapshots.
	Dir string `koanf:"dir"`

	Immunity   bool `koanf:"immunity"`
	Mosquitoes bool `koanf:"mosquitoes"`
	Locations  bool `koanf:"locations"`
}

// BatchConfig describes a batch of independent runs.
type BatchConfig struct {
	Runs     int    `koanf:"runs"`
	BaseSeed uint64 `koanf:"base_seed"`
}

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// LogFormat is text or json.
	LogFormat string `koanf:"log_format"`

	// MetricsAddr serves Prometheus metrics when non-empty, e.g. ":9090".
	MetricsAddr string `koanf:"metrics_addr"`

	// DatabasePath is the SQLite results store; empty disables persistence.
	DatabasePath string `koanf:"database_path"`

	// QueueSize bounds pending run requests in batch mode.
	QueueSize int `koanf:"queue_size"`

	// WorkerCount sets the number of concurrent runs.
	WorkerCount int `koanf:"worker_count"`

	// DedupeSize bounds the remembered run fingerprints.
	DedupeSize int `koanf:"dedupe_size"`

	// DiscardYears drops burn-in years from the calibration metrics.
	DiscardYears int `koanf:"discard_years"`

	// Scenario is an optional YAML intervention schedule, merged with the
	// inline Catchups and VectorControl lists.
	Scenario string `koanf:"scenario"`

	Data          DataFiles                      `koanf:"data"`
	Output        OutputConfig                   `koanf:"output"`
	Batch         BatchConfig                    `koanf:"batch"`
	Catchups      []params.CatchupEvent          `koanf:"catchups"`
	VectorControl []params.VectorControlCampaign `koanf:"vector_control"`

	// Sweep replaces the plain seed batch with particles drawn from priors.
	Sweep sweep.Config `koanf:"sweep"`

	// Sim is the simulation parameter bundle.
	Sim params.Parameters `koanf:"sim"`
}

// New creates a Config with defaults.
func New() *Config {
	return &Config{
		LogLevel:     "info",
		LogFormat:    "text",
		QueueSize:    1024,
		WorkerCount:  runtime.NumCPU(),
		DedupeSize:   50_000,
		DiscardYears: 0,
		Batch:        BatchConfig{Runs: 1, BaseSeed: 1},
		Sim:          params.Default(),
	}
}
