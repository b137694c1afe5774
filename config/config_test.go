package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/commonpool/core"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "commonpool.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestDefault_IsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 5, cfg.Simulation.Participants)
	assert.Equal(t, 0.7, cfg.Model.Temperature)
	assert.Equal(t, int64(150), cfg.Model.MaxTokens)
	assert.Equal(t, 60*time.Second, cfg.Capability.Timeout)
	assert.Equal(t, "simulation_logs", cfg.Output.Dir)
}

func TestLoad_OverlaysDefaults(t *testing.T) {
	path := writeConfig(t, `
simulation:
  id: nightly
  seed: 42
  participants: 3
model:
  provider: mock
capability:
  timeout: 5s
  max_calls: 20
output:
  dir: /tmp/runs
  compress: true
  s3:
    bucket: sims
    path_style: true
logging:
  level: debug
  format: json
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "nightly", cfg.Simulation.ID)
	assert.Equal(t, int64(42), cfg.Simulation.Seed)
	assert.Equal(t, 3, cfg.Simulation.Participants)
	assert.Equal(t, 5, cfg.Simulation.MinExchanges, "default kept")
	assert.Len(t, cfg.Simulation.Resources, 3, "default kept")
	assert.Equal(t, "mock", cfg.Model.Provider)
	assert.Equal(t, 5*time.Second, cfg.Capability.Timeout)
	assert.Equal(t, 20, cfg.Capability.MaxCalls)
	assert.True(t, cfg.Output.Compress)
	assert.Equal(t, "sims", cfg.Output.S3.Bucket)
	assert.True(t, cfg.Output.S3.PathStyle)
	assert.Equal(t, "json", cfg.Logging.Format)
}

func TestLoad_Errors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorIs(t, err, os.ErrNotExist)

	_, err = Load(writeConfig(t, "simulation: [unclosed"))
	assert.Error(t, err)

	_, err = Load(writeConfig(t, "model:\n  provider: carrier-pigeon\n"))
	assert.ErrorIs(t, err, ErrInvalid)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *Config)
	}{
		{"bad id", func(c *Config) { c.Simulation.ID = "a/b" }},
		{"one participant", func(c *Config) { c.Simulation.Participants = 1 }},
		{"inverted exchanges", func(c *Config) { c.Simulation.MinExchanges, c.Simulation.MaxExchanges = 4, 2 }},
		{"no personalities", func(c *Config) { c.Simulation.Personalities = nil }},
		{"no resources", func(c *Config) { c.Simulation.Resources = nil }},
		{"duplicate resource", func(c *Config) {
			c.Simulation.Resources = append(c.Simulation.Resources, ResourceRange{Name: "books", Max: 1})
		}},
		{"bad range", func(c *Config) { c.Simulation.Resources[0].Min = 3 }},
		{"probability", func(c *Config) { c.Simulation.HoldProbability = 1.5 }},
		{"too many needs", func(c *Config) { c.Simulation.NeedsPerParticipant = 4 }},
		{"resolver", func(c *Config) { c.Simulation.Resolver = "coin" }},
		{"temperature", func(c *Config) { c.Model.Temperature = -1 }},
		{"max tokens", func(c *Config) { c.Model.MaxTokens = 0 }},
		{"timeout", func(c *Config) { c.Capability.Timeout = -time.Second }},
		{"output dir", func(c *Config) { c.Output.Dir = "" }},
		{"log format", func(c *Config) { c.Logging.Format = "xml" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			cfg.Simulation.Resources = append([]ResourceRange{}, cfg.Simulation.Resources...)
			tt.mutate(&cfg)
			assert.ErrorIs(t, cfg.Validate(), ErrInvalid)
		})
	}
}

func TestSimulation_Validate(t *testing.T) {
	sim := Default().Simulation
	require.NoError(t, sim.Validate())

	sim.ID = "v1..2"
	assert.ErrorIs(t, sim.Validate(), ErrInvalid)

	sim = Default().Simulation
	sim.NeedsPerParticipant = len(sim.Resources) + 1
	err := sim.Validate()
	assert.ErrorIs(t, err, ErrInvalid)
	assert.Contains(t, err.Error(), "needs_per_participant")
}

func TestSimulation_Catalog(t *testing.T) {
	c := Default().Simulation.Catalog()
	assert.Equal(t, []core.Resource{"books", "skills", "tools"}, c.Kinds())
	assert.False(t, c.Contains("gold"))
}
