package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/BTreeMap/MissionLink/internal/util"
)

// Environment variables that override individual content settings.
const (
	EnvCountdown    = "MISSIONLINK_COUNTDOWN"
	EnvTypingSpeed  = "MISSIONLINK_TYPING_SPEED"
	EnvPollInterval = "MISSIONLINK_POLL_INTERVAL"
)

// Load returns a Mission using the hierarchy: defaults < YAML < ENV.
// The YAML file is optional; an empty path or missing file is not an error.
func Load(yamlPath string) (*Mission, error) {
	cfg := Default()

	if err := loadYAML(&cfg, yamlPath); err != nil {
		return nil, fmt.Errorf("config yaml: %w", err)
	}

	loadEnv(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validate: %w", err)
	}

	return &cfg, nil
}

// loadYAML reads the YAML file and unmarshals it over cfg.
// Returns nil if the file does not exist.
func loadYAML(cfg *Mission, path string) error {
	if path == "" {
		return nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			slog.Debug("config.loadYAML: content file not found, using defaults", "path", path)
			return nil
		}
		return fmt.Errorf("read %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}

	slog.Debug("config.loadYAML: content file applied", "path", path)
	return nil
}

// loadEnv overlays environment variables onto cfg.
// Only non-empty env values override the current config.
func loadEnv(cfg *Mission) {
	cfg.SelfDestructCountdown = util.ParseIntEnv(EnvCountdown, cfg.SelfDestructCountdown)
	cfg.TypingSpeed = util.ParseDurationEnv(EnvTypingSpeed, cfg.TypingSpeed)
	cfg.PollInterval = util.ParseDurationEnv(EnvPollInterval, cfg.PollInterval)
}
