package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"loggedin/internal/detect"
	"loggedin/internal/types"
)

// Environment overrides, applied after the YAML file
const (
	EnvSplunkToken    = "LOGGEDIN_SPLUNK_TOKEN"
	EnvDiscordWebhook = "LOGGEDIN_DISCORD_WEBHOOK"
	EnvDBPath         = "LOGGEDIN_DB_PATH"
)

// LoadEnv reads a .env file into the process environment. Variables that are
// already set win, and a missing file is not an error.
func LoadEnv(path string) error {
	if path == "" {
		path = ".env"
	}
	if err := godotenv.Load(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to load env file: %w", err)
	}
	return nil
}

// LoadConfig reads the configuration from the given path. A missing file
// yields the defaults.
func LoadConfig(path string) (*types.Config, error) {
	var cfg types.Config

	if path != "" {
		f, err := os.Open(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return nil, fmt.Errorf("failed to open config file: %w", err)
		default:
			defer f.Close()
			decoder := yaml.NewDecoder(f)
			decoder.KnownFields(true)
			if err := decoder.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
				return nil, fmt.Errorf("failed to decode config: %w", err)
			}
		}
	}

	applyEnv(&cfg)
	validateConfig(&cfg)
	return &cfg, nil
}

func applyEnv(cfg *types.Config) {
	if v := os.Getenv(EnvSplunkToken); v != "" {
		cfg.Notification.Splunk.Token = v
	}
	if v := os.Getenv(EnvDiscordWebhook); v != "" {
		cfg.Notification.DiscordWebhook = v
	}
	if v := os.Getenv(EnvDBPath); v != "" {
		cfg.Output.DBPath = v
	}
}

// validateConfig applies defaults. Detection thresholds are left at zero so
// the classifier applies its own defaults and range checks.
func validateConfig(cfg *types.Config) {
	if cfg.Input.Format == "" {
		cfg.Input.Format = "kv"
	}
	if cfg.Detection.LocalLLMUrl == "" {
		cfg.Detection.LocalLLMUrl = "http://localhost:11434/api/generate"
	}
	if cfg.Detection.LocalLLMModel == "" {
		cfg.Detection.LocalLLMModel = "tinyllama"
	}
	if cfg.Notification.MinRisk == "" {
		cfg.Notification.MinRisk = types.RiskMedium
	}
	if cfg.Dashboard.Port == "" {
		cfg.Dashboard.Port = "8080"
	}
	if cfg.Output.AuditLogPath == "" {
		cfg.Output.AuditLogPath = "loggedin-audit.jsonl"
	}
	if cfg.Output.DBPath == "" {
		cfg.Output.DBPath = "loggedin.db"
	}
	if cfg.Output.ReportType == "" {
		cfg.Output.ReportType = "security"
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "console"
	}
}

// DetectConfig maps the detection section onto the classifier configuration.
func DetectConfig(cfg *types.Config) (detect.Config, error) {
	d := cfg.Detection
	out := detect.Config{
		OffHours:            d.OffHours,
		BadPatterns:         d.BadPatterns,
		PrivilegedPatterns:  d.PrivilegedPatterns,
		Allowlist:           d.Allowlist,
	}
	// An explicit threshold must be positive; only an absent one takes the default.
	if d.BruteForceThreshold != nil {
		if *d.BruteForceThreshold < 1 {
			return detect.Config{}, fmt.Errorf("%w: brute_force_threshold must be >= 1, got %d", detect.ErrInvalidConfiguration, *d.BruteForceThreshold)
		}
		out.BruteForceThreshold = *d.BruteForceThreshold
	}
	if d.MultiHostThreshold != nil {
		if *d.MultiHostThreshold < 1 {
			return detect.Config{}, fmt.Errorf("%w: multi_host_threshold must be >= 1, got %d", detect.ErrInvalidConfiguration, *d.MultiHostThreshold)
		}
		out.MultiHostThreshold = *d.MultiHostThreshold
	}
	if w := strings.TrimSpace(d.BruteForceWindow); w != "" {
		window, err := time.ParseDuration(w)
		if err != nil {
			return detect.Config{}, fmt.Errorf("%w: brute_force_window %q: %v", detect.ErrInvalidConfiguration, w, err)
		}
		out.BruteForceWindow = window
	}
	return out, nil
}
