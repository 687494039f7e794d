package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	assert.NoError(t, cfg.Validate())
	assert.Equal(t, 2500, cfg.ChunkSize)
	assert.Equal(t, 10, cfg.ShingleSize)
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "vibewatch.yaml")
	require.NoError(t, os.WriteFile(path, []byte(
		"broker: tcp://sensor-gw:1883\nnum_trees: 25\nparallel: false\n"), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "tcp://sensor-gw:1883", cfg.Broker)
	assert.Equal(t, 25, cfg.NumTrees)
	assert.False(t, cfg.Parallel)
	// Untouched fields keep their defaults.
	assert.Equal(t, "vibration/data", cfg.Topic)
	assert.Equal(t, 256, cfg.TreeCapacity)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{name: "zero sample rate", mutate: func(c *Config) { c.SampleRate = 0 }},
		{name: "zero chunk size", mutate: func(c *Config) { c.ChunkSize = 0 }},
		{name: "zero shingle size", mutate: func(c *Config) { c.ShingleSize = 0 }},
		{name: "no trees", mutate: func(c *Config) { c.NumTrees = 0 }},
		{name: "capacity too small", mutate: func(c *Config) { c.TreeCapacity = 1 }},
		{name: "alpha above one", mutate: func(c *Config) { c.Alpha = 1.5 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}
