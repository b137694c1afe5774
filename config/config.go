// Package config loads the simulator's YAML configuration.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/hupe1980/commonpool/core"
)

// Config is the complete runtime configuration. Every component receives
// its section explicitly; nothing is read from process globals.
type Config struct {
	Simulation Simulation `yaml:"simulation"`
	Model      Model      `yaml:"model"`
	Capability Capability `yaml:"capability"`
	Output     Output     `yaml:"output"`
	Logging    Logging    `yaml:"logging"`
	Viewer     Viewer     `yaml:"viewer"`
	Metrics    Metrics    `yaml:"metrics"`
}

// Simulation configures the randomized driver.
type Simulation struct {
	ID                  string          `yaml:"id"`
	Seed                int64           `yaml:"seed"`
	Participants        int             `yaml:"participants"`
	MinExchanges        int             `yaml:"min_exchanges"`
	MaxExchanges        int             `yaml:"max_exchanges"`
	Personalities       []string        `yaml:"personalities"`
	Resources           []ResourceRange `yaml:"resources"`
	HoldProbability     float64         `yaml:"hold_probability"`
	NeedsPerParticipant int             `yaml:"needs_per_participant"`
	// Resolver is "keyword" (default) or "none" (outcomes stay pending).
	Resolver string `yaml:"resolver"`
	// Settle applies successful trades to holdings.
	Settle bool `yaml:"settle"`
}

// ResourceRange is the inclusive range initial holdings are drawn from.
type ResourceRange struct {
	Name string `yaml:"name"`
	Min  int    `yaml:"min"`
	Max  int    `yaml:"max"`
}

// Model selects and tunes the language model backend.
type Model struct {
	// Provider is one of anthropic, bedrock, openai or mock.
	Provider    string  `yaml:"provider"`
	Name        string  `yaml:"name"`
	Temperature float64 `yaml:"temperature"`
	MaxTokens   int64   `yaml:"max_tokens"`
	// APIKeyEnv names the environment variable holding the API key.
	APIKeyEnv string `yaml:"api_key_env"`
	AWSRegion string `yaml:"aws_region"`
}

// Capability bounds every language model call.
type Capability struct {
	Timeout  time.Duration `yaml:"timeout"`
	MaxCalls int           `yaml:"max_calls"`
}

// Output configures persistence of finished records.
type Output struct {
	Dir       string `yaml:"dir"`
	Compress  bool   `yaml:"compress"`
	Validate  bool   `yaml:"validate"`
	IndexPath string `yaml:"index_path"`
	S3        S3     `yaml:"s3"`
}

// S3 configures the optional object store mirror. An empty bucket disables it.
type S3 struct {
	Bucket    string `yaml:"bucket"`
	Region    string `yaml:"region"`
	Endpoint  string `yaml:"endpoint"`
	Prefix    string `yaml:"prefix"`
	PathStyle bool   `yaml:"path_style"`
}

// Logging configures the process logger.
type Logging struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Viewer configures the log viewer HTTP server.
type Viewer struct {
	Addr string `yaml:"addr"`
}

// Metrics configures the standalone metrics listener of the run command.
// An empty address disables it.
type Metrics struct {
	Addr string `yaml:"addr"`
}

// Default returns the configuration reproducing the reference run: five
// participants, five to seven exchanges, books/tools/skills.
func Default() Config {
	return Config{
		Simulation: Simulation{
			ID:           "market_sim_001",
			Participants: 5,
			MinExchanges: 5,
			MaxExchanges: 7,
			Personalities: []string{
				"generous",
				"cautious",
				"strategic",
			},
			Resources: []ResourceRange{
				{Name: string(core.ResourceBooks), Min: 1, Max: 2},
				{Name: string(core.ResourceTools), Min: 0, Max: 2},
				{Name: string(core.ResourceSkills), Min: 0, Max: 2},
			},
			HoldProbability:     0.6,
			NeedsPerParticipant: 1,
			Resolver:            "keyword",
			Settle:              true,
		},
		Model: Model{
			Provider:    "anthropic",
			Temperature: 0.7,
			MaxTokens:   150,
			APIKeyEnv:   "ANTHROPIC_API_KEY",
			AWSRegion:   "us-east-1",
		},
		Capability: Capability{Timeout: 60 * time.Second},
		Output: Output{
			Dir:      "simulation_logs",
			Validate: true,
		},
		Logging: Logging{Level: "info", Format: "text"},
		Viewer:  Viewer{Addr: ":5000"},
	}
}

// Load reads path over Default and validates the result.
func Load(path string) (Config, error) {
	cfg := Default()
	raw, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return cfg, fmt.Errorf("%s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// ErrInvalid is wrapped by every validation failure.
var ErrInvalid = errors.New("invalid configuration")

// Validate reports the first inconsistency found.
func (c Config) Validate() error {
	if err := c.Simulation.Validate(); err != nil {
		return err
	}

	switch c.Model.Provider {
	case "anthropic", "bedrock", "openai", "mock":
	default:
		return fmt.Errorf("%w: model.provider %q", ErrInvalid, c.Model.Provider)
	}
	if c.Model.Temperature < 0 || c.Model.Temperature > 2 {
		return fmt.Errorf("%w: model.temperature %v", ErrInvalid, c.Model.Temperature)
	}
	if c.Model.MaxTokens <= 0 {
		return fmt.Errorf("%w: model.max_tokens must be positive", ErrInvalid)
	}
	if c.Capability.Timeout < 0 || c.Capability.MaxCalls < 0 {
		return fmt.Errorf("%w: capability limits must not be negative", ErrInvalid)
	}
	if c.Output.Dir == "" {
		return fmt.Errorf("%w: output.dir is empty", ErrInvalid)
	}
	switch c.Logging.Format {
	case "", "text", "json":
	default:
		return fmt.Errorf("%w: logging.format %q", ErrInvalid, c.Logging.Format)
	}
	return nil
}

// Validate checks the simulation section on its own. The runner calls it
// before drawing participants.
func (s Simulation) Validate() error {
	if s.ID != "" {
		if err := core.ValidateSimulationID(s.ID); err != nil {
			return fmt.Errorf("%w: simulation.id: %v", ErrInvalid, err)
		}
	}
	if s.Participants < 2 {
		return fmt.Errorf("%w: simulation.participants must be at least 2", ErrInvalid)
	}
	if s.MinExchanges < 0 || s.MaxExchanges < s.MinExchanges {
		return fmt.Errorf("%w: simulation exchanges range [%d,%d]", ErrInvalid, s.MinExchanges, s.MaxExchanges)
	}
	if len(s.Personalities) == 0 {
		return fmt.Errorf("%w: simulation.personalities is empty", ErrInvalid)
	}
	if len(s.Resources) == 0 {
		return fmt.Errorf("%w: simulation.resources is empty", ErrInvalid)
	}
	seen := map[string]bool{}
	for _, r := range s.Resources {
		if r.Name == "" {
			return fmt.Errorf("%w: resource without name", ErrInvalid)
		}
		if seen[r.Name] {
			return fmt.Errorf("%w: resource %q listed twice", ErrInvalid, r.Name)
		}
		seen[r.Name] = true
		if r.Min < 0 || r.Max < r.Min {
			return fmt.Errorf("%w: resource %q range [%d,%d]", ErrInvalid, r.Name, r.Min, r.Max)
		}
	}
	if s.HoldProbability < 0 || s.HoldProbability > 1 {
		return fmt.Errorf("%w: simulation.hold_probability %v outside [0,1]", ErrInvalid, s.HoldProbability)
	}
	if s.NeedsPerParticipant < 0 || s.NeedsPerParticipant > len(s.Resources) {
		return fmt.Errorf("%w: simulation.needs_per_participant %d", ErrInvalid, s.NeedsPerParticipant)
	}
	switch s.Resolver {
	case "", "keyword", "none":
	default:
		return fmt.Errorf("%w: simulation.resolver %q", ErrInvalid, s.Resolver)
	}
	return nil
}

// Catalog returns the resource catalog described by the simulation section.
func (s Simulation) Catalog() *core.Catalog {
	kinds := make([]core.Resource, 0, len(s.Resources))
	for _, r := range s.Resources {
		kinds = append(kinds, core.Resource(r.Name))
	}
	return core.NewCatalog(kinds...)
}
