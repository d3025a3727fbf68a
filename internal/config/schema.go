package config

import (
	"time"
)

// Config is the root configuration structure
type Config struct {
	Version    int              `yaml:"version"`
	Seed       int64            `yaml:"seed"`
	Simulation SimulationConfig `yaml:"simulation"`
	Channels   ChannelsConfig   `yaml:"channels"`
	Plant      PlantConfig      `yaml:"plant"`
	Database   DatabaseConfig   `yaml:"database"`
	Server     ServerConfig     `yaml:"server"`
	MonteCarlo MonteCarloConfig `yaml:"montecarlo"`
}

// SimulationConfig holds the timing of a single run
type SimulationConfig struct {
	Duration  Duration `yaml:"duration" validate:"gt=0"`                    // simulated time per run
	Step      Duration `yaml:"step" validate:"gt=0"`                        // plant integration step
	Scan      Duration `yaml:"scan" validate:"gt=0,gtefield=Step"`          // controller scan period
	SaveEvery int      `yaml:"save_every" validate:"min=1"`                 // persist every n-th scan
	Realtime  bool     `yaml:"realtime"`                                    // pace scans at wall clock rate
	Buffer    int      `yaml:"buffer,omitempty" validate:"omitempty,min=1"` // ticks per repository flush
}

// ChannelsConfig holds one impairment channel per loop direction
type ChannelsConfig struct {
	XMEAS ChannelConfig `yaml:"xmeas"`
	XMV   ChannelConfig `yaml:"xmv"`
}

// ChannelConfig configures one impairment channel.
// A channel without an enabled key is enabled.
type ChannelConfig struct {
	PQ      string `yaml:"pq" validate:"pq"` // "loss:recover"
	Enabled *bool  `yaml:"enabled,omitempty"`
}

// PlantConfig describes the simulated process and its controller
type PlantConfig struct {
	Lanes        int      `yaml:"lanes" validate:"min=1"`
	TimeConstant Duration `yaml:"time_constant" validate:"gt=0"`
	Gain         float64  `yaml:"gain"`
	Setpoint     float64  `yaml:"setpoint"`
	Kp           float64  `yaml:"kp"`
	Ki           float64  `yaml:"ki"`
	Disturbance  float64  `yaml:"disturbance"`
	Period       Duration `yaml:"period" validate:"min=0"`
}

// DatabaseConfig holds database settings
type DatabaseConfig struct {
	Path string `yaml:"path" validate:"required"`
}

// ServerConfig holds the monitoring API settings
type ServerConfig struct {
	Addr string `yaml:"addr,omitempty"` // empty disables the API
}

// MonteCarloConfig holds the randomized error rate sweep
type MonteCarloConfig struct {
	Runs    int   `yaml:"runs" validate:"min=1"`
	Loss    Range `yaml:"loss"`
	Recover Range `yaml:"recover"`
	Seed    int64 `yaml:"seed"`
	Workers int   `yaml:"workers" validate:"min=1"`
}

// Range is a closed probability interval
type Range struct {
	Min float64 `yaml:"min" validate:"min=0,max=1"`
	Max float64 `yaml:"max" validate:"min=0,max=1,gtefield=Min"`
}

// Duration wraps time.Duration for YAML unmarshaling
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler
func (d *Duration) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var s string
	if err := unmarshal(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	*d = Duration(parsed)
	return nil
}

// MarshalYAML implements yaml.Marshaler
func (d Duration) MarshalYAML() (interface{}, error) {
	return time.Duration(d).String(), nil
}

// Duration returns the underlying time.Duration
func (d Duration) Duration() time.Duration {
	return time.Duration(d)
}

// Seconds returns the duration as floating point seconds
func (d Duration) Seconds() float64 {
	return time.Duration(d).Seconds()
}
