// Package config loads the service configuration from a YAML or JSON file,
// an optional .env file and K_-prefixed environment overrides.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"

	"github.com/drone/envsubst"
	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"
	"github.com/subosito/gotenv"

	"github.com/kilianp07/eta/core/metrics"
)

// EnvFile is read from the working directory before the config file. It is
// optional.
const EnvFile = ".env"

type Config struct {
	Server        ServerConfig        `json:"server" yaml:"server"`
	Model         ModelConfig         `json:"model" yaml:"model"`
	Dataset       DatasetConfig       `json:"dataset" yaml:"dataset"`
	Training      TrainingConfig      `json:"training" yaml:"training"`
	Metrics       metrics.Config      `json:"metrics" yaml:"metrics"`
	PredictionLog PredictionLogConfig `json:"prediction_log" yaml:"prediction_log"`
	API           APIConfig           `json:"api" yaml:"api"`
	MQTT          MQTTConfig          `json:"mqtt" yaml:"mqtt"`
	AMQP          AMQPConfig          `json:"amqp" yaml:"amqp"`
	Sentry        SentryConfig        `json:"sentry" yaml:"sentry"`
}

// Default returns a configuration with every default applied.
func Default() *Config {
	var cfg Config
	cfg.SetDefaults()
	return &cfg
}

// SetDefaults fills every unset field.
func (c *Config) SetDefaults() {
	c.Server.SetDefaults()
	c.Model.SetDefaults()
	c.Dataset.SetDefaults()
	c.Training.SetDefaults()
	c.PredictionLog.SetDefaults()
	c.API.SetDefaults()
	c.MQTT.SetDefaults()
	c.AMQP.SetDefaults()
}

// Validate checks every section and reports all failures.
func (c *Config) Validate() error {
	sections := []struct {
		name string
		v    interface{ Validate() error }
	}{
		{"server", c.Server},
		{"model", c.Model},
		{"dataset", c.Dataset},
		{"training", c.Training},
		{"prediction_log", c.PredictionLog},
		{"api", c.API},
		{"mqtt", c.MQTT},
		{"amqp", c.AMQP},
		{"sentry", c.Sentry},
	}
	var errs []error
	for _, s := range sections {
		if err := s.v.Validate(); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", s.name, err))
		}
	}
	return errors.Join(errs...)
}

// Load reads path, expands ${VAR} references, applies environment overrides
// and defaults, and validates the result. An empty path loads defaults and
// environment only.
func Load(path string) (*Config, error) {
	if err := gotenv.Load(EnvFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load %s: %w", EnvFile, err)
	}

	k := koanf.New(".")
	if path != "" {
		parser, err := parserFor(path)
		if err != nil {
			return nil, err
		}
		raw, err := file.Provider(path).ReadBytes()
		if err != nil {
			return nil, err
		}
		expanded, err := envsubst.EvalEnv(string(raw))
		if err != nil {
			return nil, fmt.Errorf("expand %s: %w", path, err)
		}
		if err := k.Load(rawbytes.Provider([]byte(expanded)), parser); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	}
	// Optional environment overrides: K_SERVER__ADDRESS sets server.address.
	if err := k.Load(env.Provider("K_", ".", func(s string) string {
		s = strings.TrimPrefix(strings.ToLower(s), "k_")
		return strings.ReplaceAll(s, "__", ".")
	}), nil); err != nil {
		return nil, err
	}
	var cfg Config
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "json"}); err != nil {
		return nil, err
	}
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func parserFor(path string) (koanf.Parser, error) {
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		return yaml.Parser(), nil
	case ".json":
		return json.Parser(), nil
	default:
		return nil, fmt.Errorf("unsupported config format: %s", ext)
	}
}
