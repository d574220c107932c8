package main

import (
	"fmt"
	"os"
	"runtime"

	"gopkg.in/yaml.v3"
)

// GridConfig describes a log-spaced value grid: Steps increments with a
// constant ratio covering [Min, Max].
type GridConfig struct {
	Min   float64 `yaml:"min"`
	Max   float64 `yaml:"max"`
	Steps int     `yaml:"steps"`
}

// CIConfig holds the confidence-interval search ranges and the
// confidence level the likelihood-ratio threshold is derived from.
type CIConfig struct {
	Omega      GridConfig `yaml:"omega"`
	Sigma      GridConfig `yaml:"sigma"`
	Confidence float64    `yaml:"confidence"`
}

// SimplexConfig holds the downhill simplex tunables.
type SimplexConfig struct {
	// Tolerance is the stopping standard deviation of the vertex
	// likelihoods.
	Tolerance float64 `yaml:"tolerance"`
	// MaxEvaluations caps the simulator calls per optimization.
	MaxEvaluations int `yaml:"maxEvaluations"`
	// Delta holds the initial simplex steps (log rate, npop).
	Delta []float64 `yaml:"delta"`
}

// Config holds the tunables of one inference run. Command-line flags
// override the corresponding fields.
type Config struct {
	Nrep      int `yaml:"nrep"`
	Criterion int `yaml:"criterion"`
	Workers   int `yaml:"workers"`

	Scan    GridConfig    `yaml:"scan"`
	CI      CIConfig      `yaml:"ci"`
	Simplex SimplexConfig `yaml:"simplex"`
}

// DefaultConfig returns the built-in configuration.
func DefaultConfig() *Config {
	c := &Config{
		Nrep:      10000,
		Criterion: 3,
		Workers:   runtime.GOMAXPROCS(0),
		Scan:      GridConfig{Min: 1e-3, Max: 100, Steps: 20},
		Simplex:   SimplexConfig{Tolerance: 1e-4, MaxEvaluations: 1000, Delta: []float64{0.5, 1}},
	}
	c.CI = CIConfig{
		Omega:      GridConfig{Min: 1e-7, Max: 100, Steps: 100},
		Sigma:      GridConfig{Min: 1e-7, Max: 100, Steps: 100},
		Confidence: 0.95,
	}
	return c
}

// ReadConfig loads a yaml configuration file on top of the defaults. An
// empty file name returns the defaults unchanged.
func ReadConfig(fn string) (*Config, error) {
	c := DefaultConfig()
	if fn == "" {
		return c, nil
	}
	b, err := os.ReadFile(fn)
	if err != nil {
		return nil, err
	}
	if err := yaml.Unmarshal(b, c); err != nil {
		return nil, fmt.Errorf("config %s: %v", fn, err)
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("config %s: %v", fn, err)
	}
	return c, nil
}

// Validate rejects configurations the searches cannot run with.
func (c *Config) Validate() error {
	for _, gc := range []struct {
		name string
		grid GridConfig
	}{
		{"scan", c.Scan},
		{"ci.omega", c.CI.Omega},
		{"ci.sigma", c.CI.Sigma},
	} {
		if gc.grid.Min <= 0 || gc.grid.Max <= gc.grid.Min {
			return fmt.Errorf("%s: need 0 < min < max", gc.name)
		}
		if gc.grid.Steps < 1 {
			return fmt.Errorf("%s: need at least one step", gc.name)
		}
	}
	if c.CI.Confidence <= 0 || c.CI.Confidence >= 1 {
		return fmt.Errorf("confidence must be in (0, 1)")
	}
	if c.Simplex.MaxEvaluations < 1 {
		return fmt.Errorf("maxEvaluations must be positive")
	}
	return nil
}
