package predictionlog

import (
	"fmt"

	"github.com/kilianp07/eta/config"
)

// Open builds the store selected by cfg. It returns a nil Store when the
// backend is "none".
func Open(cfg config.PredictionLogConfig) (Store, error) {
	switch cfg.Backend {
	case "", config.LogBackendNone:
		return nil, nil
	case config.LogBackendJSONL:
		return NewJSONLStore(cfg.Path, cfg.MaxSizeMB, cfg.MaxBackups, cfg.MaxAgeDays)
	case config.LogBackendSQLite:
		return NewSQLiteStore(cfg.Path)
	case config.LogBackendPostgres:
		return NewPostgresStore(cfg.Driver, cfg.Path)
	default:
		return nil, fmt.Errorf("unknown prediction log backend %q", cfg.Backend)
	}
}
