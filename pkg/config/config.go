// Package config holds the runtime configuration for the vibewatch
// commands, loaded from an optional YAML file with flag overrides on top.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config collects every tunable of the scoring service.
type Config struct {
	// Transport.
	Broker string `yaml:"broker"`
	Topic  string `yaml:"topic"`

	// Signal shape.
	SampleRate float64 `yaml:"sample_rate"`
	ChunkSize  int     `yaml:"chunk_size"`

	// Scoring engine.
	ShingleSize  int     `yaml:"shingle_size"`
	NumTrees     int     `yaml:"num_trees"`
	TreeCapacity int     `yaml:"tree_capacity"`
	Alpha        float64 `yaml:"alpha"`
	Seed         int64   `yaml:"seed"`
	Parallel     bool    `yaml:"parallel"`

	// Alerting.
	Warmup     int     `yaml:"warmup"`
	Sigmas     float64 `yaml:"sigmas"`
	WindowSize int     `yaml:"window_size"`

	// Serving.
	HTTPAddr  string `yaml:"http_addr"`
	RedisAddr string `yaml:"redis_addr"`
}

// Default returns the configuration for a 25 kHz sensor publishing 0.1 s
// chunks.
func Default() Config {
	return Config{
		Broker:       "tcp://localhost:1883",
		Topic:        "vibration/data",
		SampleRate:   25000,
		ChunkSize:    2500,
		ShingleSize:  10,
		NumTrees:     50,
		TreeCapacity: 256,
		Alpha:        0.01,
		Seed:         42,
		Parallel:     true,
		Warmup:       300,
		Sigmas:       3.0,
		WindowSize:   600,
		HTTPAddr:     ":8080",
	}
}

// Load reads a YAML file over the defaults. Fields absent from the file
// keep their default values.
func Load(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Validate rejects configurations the pipeline cannot run with.
func (c Config) Validate() error {
	if c.SampleRate <= 0 {
		return fmt.Errorf("sample_rate must be positive, got %g", c.SampleRate)
	}
	if c.ChunkSize < 1 {
		return fmt.Errorf("chunk_size must be positive, got %d", c.ChunkSize)
	}
	if c.ShingleSize < 1 {
		return fmt.Errorf("shingle_size must be positive, got %d", c.ShingleSize)
	}
	if c.NumTrees < 1 {
		return fmt.Errorf("num_trees must be positive, got %d", c.NumTrees)
	}
	if c.TreeCapacity < 2 {
		return fmt.Errorf("tree_capacity must be at least 2, got %d", c.TreeCapacity)
	}
	if c.Alpha <= 0 || c.Alpha > 1 {
		return fmt.Errorf("alpha must be in (0, 1], got %g", c.Alpha)
	}
	return nil
}
