// Package config loads the environment configuration recognized by every
// riskbatch process (spec §6 "Environment configuration"). It follows the
// teacher's two-layer pattern: an optional local .env file loaded with
// joho/godotenv for development (blackhole_test.go, pkg/contractclient's
// test setup), with os.Getenv as the source of truth and optional YAML
// static defaults (configs/config.go's yaml.Unmarshal) layered underneath.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds every environment option recognized by riskbatch services
// and workers. Not every field is used by every process.
type Config struct {
	DatabaseURL           string `yaml:"database_url"`
	WorkerID              string `yaml:"worker_id"`
	WorkerLeaseSeconds    int    `yaml:"worker_lease_seconds"`
	RunTaskHashMod        int    `yaml:"run_task_hash_mod"`
	PositionsSnapshotPath string `yaml:"positions_snapshot_path"`
	HTTPAddr              string `yaml:"http_addr"`
	MetricsAddr           string `yaml:"metrics_addr"`
	LogLevel              string `yaml:"log_level"`
	WorkerPollIntervalMS  int    `yaml:"worker_poll_interval_ms"`
}

// Defaults returns the spec's documented default values (§6).
func Defaults() Config {
	return Config{
		WorkerID:              "worker-1",
		WorkerLeaseSeconds:    60,
		RunTaskHashMod:        1,
		PositionsSnapshotPath: "demo/positions.json",
		HTTPAddr:              ":8080",
		MetricsAddr:           ":8080",
		LogLevel:              "info",
		WorkerPollIntervalMS:  500,
	}
}

// Load builds a Config starting from Defaults, optionally overlaying a YAML
// file at yamlPath (if non-empty and present), loading a local .env file
// (if present — errors are ignored, exactly like teacher's optional
// godotenv.Load calls in test setup) and finally overlaying process
// environment variables, which always win.
func Load(yamlPath string) (Config, error) {
	cfg := Defaults()

	if yamlPath != "" {
		if data, err := os.ReadFile(yamlPath); err == nil {
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return Config{}, fmt.Errorf("config: parse yaml %s: %w", yamlPath, err)
			}
		}
	}

	_ = godotenv.Load() // best-effort; absence of .env is not an error

	overlayString(&cfg.DatabaseURL, "DATABASE_URL")
	overlayString(&cfg.WorkerID, "WORKER_ID")
	overlayInt(&cfg.WorkerLeaseSeconds, "WORKER_LEASE_SECONDS")
	overlayInt(&cfg.RunTaskHashMod, "RUN_TASK_HASH_MOD")
	overlayString(&cfg.PositionsSnapshotPath, "POSITIONS_SNAPSHOT_PATH")
	overlayString(&cfg.HTTPAddr, "HTTP_ADDR")
	overlayString(&cfg.MetricsAddr, "METRICS_ADDR")
	overlayString(&cfg.LogLevel, "LOG_LEVEL")
	overlayInt(&cfg.WorkerPollIntervalMS, "WORKER_POLL_INTERVAL_MS")

	if cfg.DatabaseURL == "" {
		return Config{}, fmt.Errorf("config: DATABASE_URL is required")
	}
	return cfg, nil
}

func overlayString(dst *string, env string) {
	if v := os.Getenv(env); v != "" {
		*dst = v
	}
}

func overlayInt(dst *int, env string) {
	if v := os.Getenv(env); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

// LeaseDuration is WorkerLeaseSeconds as a time.Duration convenience.
func (c Config) LeaseDuration() time.Duration {
	return time.Duration(c.WorkerLeaseSeconds) * time.Second
}

// PollInterval is WorkerPollIntervalMS as a time.Duration convenience.
func (c Config) PollInterval() time.Duration {
	return time.Duration(c.WorkerPollIntervalMS) * time.Millisecond
}
