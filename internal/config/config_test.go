package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestDefaultIsValid(t *testing.T) {
	c := Default()
	if err := c.Validate(); err != nil {
		t.Fatalf("default config rejected: %v", err)
	}
	if c.Simulation.AirplaneDeadlineMs != 20 || c.Simulation.TrafficDeadlineMs != 5 {
		t.Errorf("got deadlines %d/%d, expected periods", c.Simulation.AirplaneDeadlineMs, c.Simulation.TrafficDeadlineMs)
	}
	if c.Simulation.Dt != 0.02 {
		t.Errorf("got dt %v, expected 0.02", c.Simulation.Dt)
	}
}

func TestLoadOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	data := `
[server]
port = 9090

[simulation]
pool_size = 12
runways = 1
scheduling = "fifo"

[simulation.inbound_area]
x = 10.0
width = 5.0
`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}

	c, used, err := LoadWithFallback(path)
	if err != nil {
		t.Fatal(err)
	}
	if used != path {
		t.Errorf("got path %q, expected %q", used, path)
	}
	if err := c.Validate(); err != nil {
		t.Fatal(err)
	}

	if c.Server.Port != 9090 || c.Simulation.PoolSize != 12 || c.Simulation.Runways != 1 {
		t.Errorf("file values not applied: %+v", c.Simulation)
	}
	if c.Simulation.InboundArea.X != 10 || c.Simulation.InboundArea.Width != 5 || c.Simulation.InboundArea.Height != 350 {
		t.Errorf("got inbound area %+v", c.Simulation.InboundArea)
	}
	if c.Simulation.TrafficPeriodMs != 5 || c.Display.TrailLength != 50 {
		t.Errorf("defaults lost for unset keys")
	}
}

func TestLoadWithFallbackMissingExplicitFile(t *testing.T) {
	if _, _, err := LoadWithFallback(filepath.Join(t.TempDir(), "nope.toml")); err == nil {
		t.Errorf("missing explicit file accepted")
	}
}

func TestValidateRejects(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"port", func(c *Config) { c.Server.Port = 0 }, "server port"},
		{"duplicate port", func(c *Config) { c.Server.AdditionalPorts = []int{8080} }, "duplicate port"},
		{"runways", func(c *Config) { c.Simulation.Runways = 3 }, "runways"},
		{"pool", func(c *Config) { c.Simulation.PoolSize = 0 }, "pool_size"},
		{"policy", func(c *Config) { c.Simulation.Scheduling = "rr" }, "scheduling policy"},
		{"priority", func(c *Config) { c.Simulation.BasePriority = 1 }, "base_priority"},
		{"period", func(c *Config) { c.Simulation.TrafficPeriodMs = -5 }, "periods"},
		{"chance", func(c *Config) { c.Simulation.AutoSpawnChance = 2 }, "auto_spawn_chance"},
		{"log level", func(c *Config) { c.Logging.Level = "loud" }, "log level"},
		{"storage", func(c *Config) { c.Storage.Enabled = true; c.Storage.SQLitePath = "" }, "sqlite_path"},
	}
	for _, tc := range tests {
		c := Default()
		tc.mutate(c)
		err := c.Validate()
		if err == nil || !strings.Contains(err.Error(), tc.want) {
			t.Errorf("%s: got %v, expected error containing %q", tc.name, err, tc.want)
		}
	}
}
