package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"tesim/internal/domain"
)

func TestDefaultConfigValid(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("DefaultConfig() does not validate: %v", err)
	}
	if cfg.Simulation.Substeps() != 1 {
		t.Errorf("Substeps() = %d, want 1", cfg.Simulation.Substeps())
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"bad pq syntax", func(c *Config) { c.Channels.XMEAS.PQ = "0.5" }},
		{"pq out of range", func(c *Config) { c.Channels.XMV.PQ = "0.5:1.5" }},
		{"zero lanes", func(c *Config) { c.Plant.Lanes = 0 }},
		{"scan shorter than step", func(c *Config) { c.Simulation.Scan = Duration(time.Microsecond) }},
		{"save every zero", func(c *Config) { c.Simulation.SaveEvery = 0 }},
		{"inverted range", func(c *Config) { c.MonteCarlo.Loss = Range{Min: 0.9, Max: 0.1} }},
		{"range above one", func(c *Config) { c.MonteCarlo.Recover = Range{Min: 0.1, Max: 1.1} }},
		{"no database", func(c *Config) { c.Database.Path = "" }},
		{"no workers", func(c *Config) { c.MonteCarlo.Workers = 0 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			if err := cfg.Validate(); !errors.Is(err, ErrInvalid) {
				t.Errorf("Validate() = %v, want ErrInvalid", err)
			}
		})
	}
}

func TestChannelRate(t *testing.T) {
	tests := []struct {
		cc   ChannelConfig
		want domain.ErrorRate
	}{
		{ChannelConfig{PQ: "0.8:0.25", Enabled: boolPtr(true)}, domain.ErrorRate{Loss: 0.8, Recover: 0.25}},
		{ChannelConfig{PQ: "0.8:0.25", Enabled: boolPtr(false)}, domain.NoLoss},
		{ChannelConfig{PQ: "0.8:0.25"}, domain.ErrorRate{Loss: 0.8, Recover: 0.25}},
	}

	for _, tt := range tests {
		got, err := tt.cc.Rate()
		if err != nil {
			t.Fatalf("Rate() error: %v", err)
		}
		if got != tt.want {
			t.Errorf("Rate() = %+v, want %+v", got, tt.want)
		}
	}
}

func TestSubsteps(t *testing.T) {
	tests := []struct {
		step, scan time.Duration
		want       int
	}{
		{500 * time.Microsecond, 500 * time.Microsecond, 1},
		{100 * time.Microsecond, 500 * time.Microsecond, 5},
		{0, time.Millisecond, 1},
	}

	for _, tt := range tests {
		s := SimulationConfig{Step: Duration(tt.step), Scan: Duration(tt.scan)}
		if got := s.Substeps(); got != tt.want {
			t.Errorf("Substeps(step=%s, scan=%s) = %d, want %d", tt.step, tt.scan, got, tt.want)
		}
	}
}

func TestLoadFromPathAppliesDefaults(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "partial.yaml")

	content := `
seed: 42
simulation:
  duration: 2s
  scan: 1ms
  step: 250us
channels:
  xmeas:
    pq: "0.7:0.2"
    enabled: true
`
	if err := os.WriteFile(configPath, []byte(content), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, path, err := LoadFromPath(configPath)
	if err != nil {
		t.Fatalf("LoadFromPath() error: %v", err)
	}
	if path != configPath {
		t.Errorf("path = %s, want %s", path, configPath)
	}
	if cfg.Seed != 42 {
		t.Errorf("Seed = %d, want 42", cfg.Seed)
	}
	if cfg.Simulation.Duration.Duration() != 2*time.Second {
		t.Errorf("Duration = %s, want 2s", cfg.Simulation.Duration.Duration())
	}
	if cfg.Simulation.Substeps() != 4 {
		t.Errorf("Substeps() = %d, want 4", cfg.Simulation.Substeps())
	}
	if cfg.Simulation.SaveEvery != 20 {
		t.Errorf("SaveEvery = %d, want default 20", cfg.Simulation.SaveEvery)
	}
	if cfg.Channels.XMV.PQ != "0:1" {
		t.Errorf("XMV.PQ = %q, want default 0:1", cfg.Channels.XMV.PQ)
	}
	if cfg.Plant.Lanes != 4 {
		t.Errorf("Plant.Lanes = %d, want default 4", cfg.Plant.Lanes)
	}

	rate, err := cfg.Channels.XMEAS.Rate()
	if err != nil {
		t.Fatalf("Rate() error: %v", err)
	}
	if rate != (domain.ErrorRate{Loss: 0.7, Recover: 0.2}) {
		t.Errorf("XMEAS rate = %+v", rate)
	}
}

func TestLoadFromPathChannelEnabledByDefault(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "channels.yaml")

	content := `
channels:
  xmeas:
    pq: "0.8:0.25"
  xmv:
    pq: "0.5:0.5"
    enabled: false
`
	if err := os.WriteFile(configPath, []byte(content), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, _, err := LoadFromPath(configPath)
	if err != nil {
		t.Fatalf("LoadFromPath() error: %v", err)
	}
	if !cfg.Channels.XMEAS.IsEnabled() {
		t.Error("xmeas channel without enabled key should be enabled")
	}
	rate, err := cfg.Channels.XMEAS.Rate()
	if err != nil {
		t.Fatalf("Rate() error: %v", err)
	}
	if rate != (domain.ErrorRate{Loss: 0.8, Recover: 0.25}) {
		t.Errorf("XMEAS rate = %+v, want 0.8:0.25", rate)
	}

	rate, err = cfg.Channels.XMV.Rate()
	if err != nil {
		t.Fatalf("Rate() error: %v", err)
	}
	if rate != domain.NoLoss {
		t.Errorf("disabled XMV rate = %+v, want %+v", rate, domain.NoLoss)
	}
}

func TestLoadFromPathRejectsInvalid(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "bad.yaml")
	if err := os.WriteFile(configPath, []byte("channels:\n  xmeas:\n    pq: \"2:0\"\n"), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	if _, _, err := LoadFromPath(configPath); !errors.Is(err, ErrInvalid) {
		t.Errorf("LoadFromPath() = %v, want ErrInvalid", err)
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "sub", "config.yaml")

	cfg := DefaultConfig()
	cfg.Channels.XMEAS = ChannelConfig{PQ: "0.9:0.1", Enabled: boolPtr(true)}
	cfg.Simulation.Realtime = true

	if err := cfg.Save(configPath); err != nil {
		t.Fatalf("Save() error: %v", err)
	}

	loaded, _, err := LoadFromPath(configPath)
	if err != nil {
		t.Fatalf("LoadFromPath() error: %v", err)
	}
	if loaded.Channels.XMEAS.PQ != "0.9:0.1" || !loaded.Channels.XMEAS.IsEnabled() {
		t.Errorf("XMEAS = %q enabled=%v, want \"0.9:0.1\" enabled", loaded.Channels.XMEAS.PQ, loaded.Channels.XMEAS.IsEnabled())
	}
	if !loaded.Simulation.Realtime {
		t.Error("Realtime should survive the round trip")
	}
	if loaded.Plant.TimeConstant != cfg.Plant.TimeConstant {
		t.Errorf("TimeConstant = %s, want %s", loaded.Plant.TimeConstant.Duration(), cfg.Plant.TimeConstant.Duration())
	}
}

func TestFindConfigPath(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "explicit.yaml")
	if err := DefaultConfig().Save(configPath); err != nil {
		t.Fatalf("Save() error: %v", err)
	}

	t.Setenv(EnvConfigPath, configPath)
	if found := FindConfigPath(); found != configPath {
		t.Errorf("FindConfigPath() = %q, want %q", found, configPath)
	}

	t.Setenv(EnvConfigPath, filepath.Join(tmpDir, "missing.yaml"))
	t.Setenv("XDG_CONFIG_HOME", tmpDir)
	t.Setenv("HOME", tmpDir)
	xdgPath := filepath.Join(tmpDir, ConfigDirName, "config.yaml")
	if err := DefaultConfig().Save(xdgPath); err != nil {
		t.Fatalf("Save() error: %v", err)
	}

	oldWd, _ := os.Getwd()
	os.Chdir(t.TempDir())
	defer os.Chdir(oldWd)

	if found := FindConfigPath(); found != xdgPath {
		t.Errorf("FindConfigPath() = %q, want fallback %q", found, xdgPath)
	}
}

func TestResolvePath(t *testing.T) {
	tests := []struct {
		configPath, path, want string
	}{
		{"/etc/tesim/config.yaml", "runs.db", "/etc/tesim/runs.db"},
		{"/etc/tesim/config.yaml", "/var/lib/tesim.db", "/var/lib/tesim.db"},
		{"/etc/tesim/config.yaml", ":memory:", ":memory:"},
		{"", "runs.db", "runs.db"},
	}

	for _, tt := range tests {
		if got := ResolvePath(tt.configPath, tt.path); got != tt.want {
			t.Errorf("ResolvePath(%q, %q) = %q, want %q", tt.configPath, tt.path, got, tt.want)
		}
	}
}

func TestDuration(t *testing.T) {
	d := Duration(5 * time.Minute)

	if d.Duration() != 5*time.Minute {
		t.Errorf("Duration() = %s, want 5m", d.Duration())
	}
	if d.Seconds() != 300 {
		t.Errorf("Seconds() = %v, want 300", d.Seconds())
	}

	marshaled, err := d.MarshalYAML()
	if err != nil {
		t.Fatalf("MarshalYAML() error: %v", err)
	}
	if marshaled != "5m0s" {
		t.Errorf("MarshalYAML() = %v, want 5m0s", marshaled)
	}
}
