package config

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/go-viper/mapstructure/v2"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Environment variable names.
const (
	EnvPrefix = "DENGUE_"
	EnvConfig = "DENGUE_CONFIG"
)

// Load builds a Config by layering defaults, an optional file, and env vars.
// Order of precedence (low -> high):
//  1. defaults (New())
//  2. file (YAML) if DENGUE_CONFIG is set
//  3. env (prefix DENGUE_, "__" separates nesting levels)
//
// For example DENGUE_SIM__BETA_MP=0.3 sets sim.beta_mp and
// DENGUE_SIM__INCUBATION_CDF=0,0.5,1 replaces the whole table.
func Load(_ context.Context) (*Config, error) {
	return LoadFile(os.Getenv(EnvConfig))
}

// LoadFile is Load with an explicit file path; empty skips the file layer.
func LoadFile(path string) (*Config, error) {
	k := koanf.New(".")

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrLoadConfig, path, err)
		}
	}

	envProvider := env.Provider(EnvPrefix, ".", func(s string) string {
		s = strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
		return strings.ReplaceAll(s, "__", ".")
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("%w: env: %w", ErrLoadConfig, err)
	}
	k.Delete("config") // DENGUE_CONFIG names the file, it is not a setting

	cfg := New()
	// ZeroFields makes a configured list replace the default list instead of
	// overwriting its leading elements.
	dc := &mapstructure.DecoderConfig{
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		),
		WeaklyTypedInput: true,
		ZeroFields:       true,
		Result:           cfg,
	}
	if err := k.UnmarshalWithConf("", cfg, koanf.UnmarshalConf{Tag: "koanf", DecoderConfig: dc}); err != nil {
		return nil, fmt.Errorf("%w: decode: %w", ErrLoadConfig, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks process settings and the simulation parameters.
func (c *Config) Validate() error {
	switch {
	case c.QueueSize <= 0:
		return fmt.Errorf("%w: queue_size must be positive", ErrInvalidConfig)
	case c.WorkerCount <= 0:
		return fmt.Errorf("%w: worker_count must be positive", ErrInvalidConfig)
	case c.Batch.Runs <= 0:
		return fmt.Errorf("%w: batch.runs must be positive", ErrInvalidConfig)
	case c.DiscardYears < 0:
		return fmt.Errorf("%w: discard_years must be non-negative", ErrInvalidConfig)
	case c.LogFormat != "text" && c.LogFormat != "json":
		return fmt.Errorf("%w: log_format must be text or json, got %q", ErrInvalidConfig, c.LogFormat)
	}
	for i, vc := range c.VectorControl {
		if vc.Fraction < 0 || vc.Fraction > 1 || vc.Day < 0 {
			return fmt.Errorf("%w: vector_control[%d]", ErrInvalidConfig, i)
		}
	}
	if err := c.Sweep.Validate(); err != nil {
		return fmt.Errorf("%w: sweep: %w", ErrInvalidConfig, err)
	}
	if err := c.Sim.Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	return nil
}
