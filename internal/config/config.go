// Package config provides configuration management for tesim.
//
// A config file describes the simulated loop (timing, plant, controller),
// the impairment channel on each side of the loop, where runs are stored,
// and the Monte Carlo sweep.
//
// Config file locations (priority order):
//  1. $TESIM_CONFIG
//  2. ./tesim.yaml
//  3. ~/.config/tesim/config.yaml
//  4. /etc/tesim/config.yaml
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"tesim/internal/domain"
)

// ErrInvalid is returned when a config fails validation
var ErrInvalid = errors.New("invalid config")

var validate *validator.Validate

func init() {
	validate = validator.New(validator.WithRequiredStructEnabled())
	_ = validate.RegisterValidation("pq", validatePQ)
}

// validatePQ accepts "loss:recover" strings with both values in [0,1]
func validatePQ(fl validator.FieldLevel) bool {
	_, err := domain.ParseErrorRate(fl.Field().String())
	return err == nil
}

// Load finds and loads the config file, or returns defaults if none found
func Load() (*Config, string, error) {
	path := FindConfigPath()

	if path == "" {
		// No config found - return defaults
		return DefaultConfig(), "", nil
	}

	return LoadFromPath(path)
}

// LoadFromPath loads config from a specific path
func LoadFromPath(path string) (*Config, string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, path, fmt.Errorf("read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, path, fmt.Errorf("parse config: %w", err)
	}

	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, path, err
	}

	return &cfg, path, nil
}

// Save writes config to the specified path
func (c *Config) Save(path string) error {
	if err := EnsureConfigDir(path); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	return os.WriteFile(path, data, 0644)
}

// DefaultConfig returns the settings of the reference experiment:
// 32s of simulated time scanned every 500us, lossless channels.
func DefaultConfig() *Config {
	return &Config{
		Version: 1,
		Seed:    1,
		Simulation: SimulationConfig{
			Duration:  Duration(32 * time.Second),
			Step:      Duration(500 * time.Microsecond),
			Scan:      Duration(500 * time.Microsecond),
			SaveEvery: 20,
			Buffer:    256,
		},
		Channels: ChannelsConfig{
			XMEAS: ChannelConfig{PQ: domain.NoLoss.String(), Enabled: boolPtr(true)},
			XMV:   ChannelConfig{PQ: domain.NoLoss.String(), Enabled: boolPtr(true)},
		},
		Plant: PlantConfig{
			Lanes:        4,
			TimeConstant: Duration(500 * time.Millisecond),
			Gain:         2,
			Setpoint:     1,
			Kp:           1,
			Ki:           2,
			Disturbance:  0.2,
			Period:       Duration(4 * time.Second),
		},
		Database: DatabaseConfig{Path: "./tesim.db"},
		MonteCarlo: MonteCarloConfig{
			Runs:    100,
			Loss:    Range{Min: 0.6, Max: 1.0},
			Recover: Range{Min: 0.05, Max: 0.5},
			Seed:    5489,
			Workers: 4,
		},
	}
}

// applyDefaults fills in missing values with defaults
func (c *Config) applyDefaults() {
	def := DefaultConfig()

	if c.Version == 0 {
		c.Version = def.Version
	}
	if c.Simulation.Duration == 0 {
		c.Simulation.Duration = def.Simulation.Duration
	}
	if c.Simulation.Step == 0 {
		c.Simulation.Step = def.Simulation.Step
	}
	if c.Simulation.Scan == 0 {
		c.Simulation.Scan = c.Simulation.Step
	}
	if c.Simulation.SaveEvery == 0 {
		c.Simulation.SaveEvery = def.Simulation.SaveEvery
	}
	if c.Simulation.Buffer == 0 {
		c.Simulation.Buffer = def.Simulation.Buffer
	}
	if c.Channels.XMEAS.PQ == "" {
		c.Channels.XMEAS.PQ = def.Channels.XMEAS.PQ
	}
	if c.Channels.XMV.PQ == "" {
		c.Channels.XMV.PQ = def.Channels.XMV.PQ
	}
	if c.Channels.XMEAS.Enabled == nil {
		c.Channels.XMEAS.Enabled = boolPtr(true)
	}
	if c.Channels.XMV.Enabled == nil {
		c.Channels.XMV.Enabled = boolPtr(true)
	}
	if c.Plant.Lanes == 0 {
		c.Plant.Lanes = def.Plant.Lanes
	}
	if c.Plant.TimeConstant == 0 {
		c.Plant.TimeConstant = def.Plant.TimeConstant
	}
	if c.Database.Path == "" {
		c.Database.Path = def.Database.Path
	}
	if c.MonteCarlo.Runs == 0 {
		c.MonteCarlo.Runs = def.MonteCarlo.Runs
	}
	if c.MonteCarlo.Loss == (Range{}) {
		c.MonteCarlo.Loss = def.MonteCarlo.Loss
	}
	if c.MonteCarlo.Recover == (Range{}) {
		c.MonteCarlo.Recover = def.MonteCarlo.Recover
	}
	if c.MonteCarlo.Workers == 0 {
		c.MonteCarlo.Workers = def.MonteCarlo.Workers
	}
}

// Validate checks field constraints
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	return nil
}

// Rate returns the channel's error rate; a disabled channel never loses samples
func (cc ChannelConfig) Rate() (domain.ErrorRate, error) {
	if !cc.IsEnabled() {
		return domain.NoLoss, nil
	}
	return domain.ParseErrorRate(cc.PQ)
}

// IsEnabled reports whether the channel impairs samples; unset means enabled
func (cc ChannelConfig) IsEnabled() bool {
	return cc.Enabled == nil || *cc.Enabled
}

func boolPtr(b bool) *bool {
	return &b
}

// Substeps returns the number of plant integration steps per scan tick
func (s SimulationConfig) Substeps() int {
	if s.Step <= 0 {
		return 1
	}
	n := int(s.Scan / s.Step)
	if n < 1 {
		return 1
	}
	return n
}

// Summary returns a human-readable config summary
func (c *Config) Summary() string {
	summary := fmt.Sprintf("Simulation: %s every %s (step %s, save every %d)\n",
		c.Simulation.Duration.Duration(), c.Simulation.Scan.Duration(),
		c.Simulation.Step.Duration(), c.Simulation.SaveEvery)
	summary += fmt.Sprintf("Channels: xmeas %s (enabled=%v), xmv %s (enabled=%v)\n",
		c.Channels.XMEAS.PQ, c.Channels.XMEAS.IsEnabled(), c.Channels.XMV.PQ, c.Channels.XMV.IsEnabled())
	summary += fmt.Sprintf("Plant: %d lanes, tau %s, setpoint %g", c.Plant.Lanes,
		c.Plant.TimeConstant.Duration(), c.Plant.Setpoint)

	return summary
}
