package config

import (
	"os"
	"strconv"
	"time"
)

// LoadFromEnv applies LOADBENCH_* environment overrides to cfg.
func LoadFromEnv(cfg *Config) {
	if v := os.Getenv("LOADBENCH_BASE_URL"); v != "" {
		cfg.Target.BaseURL = v
	}
	if v := os.Getenv("LOADBENCH_PROFILE"); v != "" {
		cfg.Run.Profile = v
	}
	if v := os.Getenv("LOADBENCH_STEP_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Target.StepTimeout = d
		}
	}
	if v := os.Getenv("LOADBENCH_GRACEFUL_STOP"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Run.GracefulStop = d
		}
	}
	if v := os.Getenv("LOADBENCH_MAX_RPS"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Run.MaxRPS = f
		}
	}
	if v := os.Getenv("LOADBENCH_SEED"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			cfg.Run.Seed = n
		}
	}
	cfg.Status.Addr = GetEnvOrDefault("LOADBENCH_STATUS_ADDR", cfg.Status.Addr)
	cfg.Report.Dir = GetEnvOrDefault("LOADBENCH_REPORT_DIR", cfg.Report.Dir)
	cfg.Log.Level = GetEnvOrDefault("LOADBENCH_LOG_LEVEL", cfg.Log.Level)
}

// GetEnvOrDefault returns the environment variable or the fallback.
func GetEnvOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
