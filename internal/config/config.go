// Package config provides runtime configuration for KAM Sentinel.
// It uses Viper to load settings from files and environment variables.
package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Config holds all runtime configuration for KAM Sentinel.
type Config struct {
	// ── Server ───────────────────────────────────────────────────────────────
	ListenHost string `mapstructure:"listen_host"`
	ListenPort int    `mapstructure:"listen_port"`

	// ── Sampling ─────────────────────────────────────────────────────────────
	// PollIntervalSec: sampler cadence. The sustained-usage window capacity
	// is derived from this, so it is fixed for the process lifetime.
	PollIntervalSec int `mapstructure:"poll_interval_seconds"`
	// HistorySamples: bounded in-memory history served to the dashboard charts.
	HistorySamples int `mapstructure:"history_samples"`

	// ── Storage ──────────────────────────────────────────────────────────────
	// ProfileDir holds thresholds.json (user-customized warning thresholds).
	ProfileDir string `mapstructure:"profile_dir"`
	DBPath     string `mapstructure:"db_path"`
	// LogBatchSize: samples are written to the DB in batches of this many
	// so disk I/O does not happen on every poll tick.
	LogBatchSize int `mapstructure:"log_batch_size"`
	// MetricRetention / EventRetention: newest-N rows kept per table.
	MetricRetention int `mapstructure:"metric_retention"`
	EventRetention  int `mapstructure:"event_retention"`

	// ── Security ─────────────────────────────────────────────────────────────
	// JWTSecret: HS256 signing key for dashboard tokens. Change in production.
	JWTSecret string `mapstructure:"jwt_secret"`
	// AdminUser / AdminPass: credentials for /api/login, guarding the
	// threshold-mutation endpoints.
	AdminUser string `mapstructure:"admin_user"`
	AdminPass string `mapstructure:"admin_pass"`

	// ── Logging ──────────────────────────────────────────────────────────────
	LogLevel string `mapstructure:"log_level"`
}

// Load reads config from file (./config.yaml or ~/.kam-sentinel/config.yaml)
// and falls back to smart defaults. Environment variables with prefix KAM_
// override file values.
func Load() (*Config, error) {
	v := viper.New()

	// --- Smart Defaults ---
	v.SetDefault("listen_host", "127.0.0.1")
	v.SetDefault("listen_port", 5000)

	v.SetDefault("poll_interval_seconds", 5)
	v.SetDefault("history_samples", 60)

	v.SetDefault("profile_dir", "profiles")
	v.SetDefault("db_path", "sentinel.db")
	v.SetDefault("log_batch_size", 10)
	v.SetDefault("metric_retention", 5000)
	v.SetDefault("event_retention", 2000)

	// Security defaults — MUST be overridden in production via config.yaml or env vars.
	v.SetDefault("jwt_secret", "KmS#9qT!wR4@xZ7&vB2^nD6*hJ1%gY")
	v.SetDefault("admin_user", "admin")
	v.SetDefault("admin_pass", "admin")

	v.SetDefault("log_level", "info")

	// --- Config file ---
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("$HOME/.kam-sentinel")
	if err := v.ReadInConfig(); err != nil {
		// config file is optional; ignore "not found" errors
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	}

	// --- Environment Variables ---
	v.SetEnvPrefix("KAM")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	if cfg.PollIntervalSec < 1 {
		return nil, fmt.Errorf("poll_interval_seconds must be >= 1, got %d", cfg.PollIntervalSec)
	}
	if cfg.HistorySamples < 1 {
		return nil, fmt.Errorf("history_samples must be >= 1, got %d", cfg.HistorySamples)
	}
	return &cfg, nil
}
