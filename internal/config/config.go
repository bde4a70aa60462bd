// Package config holds the run configuration loaded from YAML and the
// environment. Environment variables win over file values.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the top-level run configuration.
type Config struct {
	Target Target `yaml:"target"`
	Run    Run    `yaml:"run"`
	Status Status `yaml:"status"`
	Report Report `yaml:"report"`
	Log    Log    `yaml:"log"`
}

// Target describes the system under test.
type Target struct {
	BaseURL     string            `yaml:"base_url"`
	StepTimeout time.Duration     `yaml:"step_timeout"`
	Headers     map[string]string `yaml:"headers"`
}

// Run selects the profile and shapes the schedule.
type Run struct {
	Name         string        `yaml:"name"`
	Profile      string        `yaml:"profile"`
	GracefulStop time.Duration `yaml:"graceful_stop"`
	Tick         time.Duration `yaml:"tick"`
	NoThink      bool          `yaml:"no_think"`
	MaxRPS       float64       `yaml:"max_rps"`
	Seed         int64         `yaml:"seed"`
}

// Status configures the in-run observation endpoint.
type Status struct {
	Addr    string `yaml:"addr"`
	Enabled bool   `yaml:"enabled"`
}

// Report configures where run summaries land.
type Report struct {
	Dir  string `yaml:"dir"`
	JSON bool   `yaml:"json"`
	HTML bool   `yaml:"html"`
	Gzip bool   `yaml:"gzip"`
}

// Log configures the run logger.
type Log struct {
	Level string `yaml:"level"`
}

// Default returns a config usable against a local target.
func Default() *Config {
	return &Config{
		Target: Target{
			BaseURL:     "http://localhost:8080",
			StepTimeout: 30 * time.Second,
		},
		Run: Run{
			Name:         "loadbench",
			Profile:      "smoke",
			GracefulStop: 30 * time.Second,
			Tick:         time.Second,
		},
		Status: Status{
			Addr:    ":9090",
			Enabled: true,
		},
		Report: Report{
			Dir:  "reports",
			JSON: true,
			HTML: true,
		},
		Log: Log{Level: "info"},
	}
}

// Load reads the YAML file at path over the defaults, then applies
// environment overrides. An empty path skips the file.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("config: read %s: %w", path, err)
		}
		if err := yaml.Unmarshal(raw, cfg); err != nil {
			return nil, fmt.Errorf("config: parse %s: %w", path, err)
		}
	}

	LoadFromEnv(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects configs the harness cannot run with.
func (c *Config) Validate() error {
	if c.Target.BaseURL == "" {
		return fmt.Errorf("config: target.base_url is required")
	}
	if c.Run.Profile == "" {
		return fmt.Errorf("config: run.profile is required")
	}
	if c.Target.StepTimeout <= 0 {
		return fmt.Errorf("config: target.step_timeout must be positive")
	}
	if c.Run.MaxRPS < 0 {
		return fmt.Errorf("config: run.max_rps must not be negative")
	}
	return nil
}
