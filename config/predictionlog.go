package config

import (
	"fmt"
)

// Prediction log backends.
const (
	LogBackendNone     = "none"
	LogBackendJSONL    = "jsonl"
	LogBackendSQLite   = "sqlite"
	LogBackendPostgres = "postgres"
)

// PredictionLogConfig defines settings for the prediction audit log.
type PredictionLogConfig struct {
	// Backend selects the store type: "none", "jsonl", "sqlite" or "postgres".
	Backend string `json:"backend" yaml:"backend"`
	// Path is the file location of the store, or the DSN for postgres.
	Path string `json:"path" yaml:"path"`
	// Driver selects the postgres driver: "postgres" (lib/pq) or "pgx".
	Driver string `json:"driver" yaml:"driver"`
	// MaxSizeMB triggers rotation when the file exceeds this size in megabytes.
	MaxSizeMB int `json:"max_size_mb" yaml:"max_size_mb"`
	// MaxBackups limits the number of rotated files to keep.
	MaxBackups int `json:"max_backups" yaml:"max_backups"`
	// MaxAgeDays removes rotated files older than this number of days.
	MaxAgeDays int `json:"max_age_days" yaml:"max_age_days"`
}

// SetDefaults applies sane defaults.
func (c *PredictionLogConfig) SetDefaults() {
	if c.Backend == "" {
		c.Backend = LogBackendNone
	}
	if c.Path == "" {
		switch c.Backend {
		case LogBackendJSONL:
			c.Path = "predictions.jsonl"
		case LogBackendSQLite:
			c.Path = "predictions.db"
		}
	}
	if c.Backend == LogBackendPostgres && c.Driver == "" {
		c.Driver = "postgres"
	}
}

// Validate checks mandatory fields.
func (c PredictionLogConfig) Validate() error {
	switch c.Backend {
	case LogBackendNone:
		return nil
	case LogBackendJSONL, LogBackendSQLite, LogBackendPostgres:
	default:
		return fmt.Errorf("unknown backend %s", c.Backend)
	}
	if c.Path == "" {
		return fmt.Errorf("path is required")
	}
	if c.Backend == LogBackendPostgres && c.Driver != "postgres" && c.Driver != "pgx" {
		return fmt.Errorf("unknown driver %s", c.Driver)
	}
	return nil
}
