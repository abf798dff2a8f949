package app

import (
	"errors"
	"time"
)

// Config holds all the necessary configuration for an App instance to run.
type Config struct {
	ConfigPath string // .hcl or .yaml file, or a directory of them

	LogFormat string
	LogLevel  string

	// Reference overrides the run reference time when not zero.
	Reference time.Time
	// EnvFile is loaded into the process environment before the
	// configuration is read.
	EnvFile string
	// SnapshotPath overrides the CSV snapshot destination.
	SnapshotPath string
	// Progress shows per-stage progress bars.
	Progress bool
}

func NewConfig(cfg Config) (*Config, error) {
	if cfg.ConfigPath == "" {
		return nil, errors.New("ConfigPath is a required configuration field and cannot be empty")
	}
	return &cfg, nil
}
