package config

import (
	"errors"
	"fmt"

	"github.com/kilianp07/eta/core/dataset"
	"github.com/kilianp07/eta/core/regression"
	"github.com/kilianp07/eta/core/training"
)

// ModelConfig locates the trained artifact.
type ModelConfig struct {
	Path string `json:"path" yaml:"path"`
}

func (c *ModelConfig) SetDefaults() {
	if c.Path == "" {
		c.Path = "eta_model.json"
	}
}

func (c ModelConfig) Validate() error {
	if c.Path == "" {
		return errors.New("path is required")
	}
	return nil
}

// DatasetConfig controls the synthetic dataset written by "eta generate".
type DatasetConfig struct {
	Path    string `json:"path" yaml:"path"`
	Samples int    `json:"samples" yaml:"samples"`
	Seed    uint64 `json:"seed" yaml:"seed"`
}

func (c *DatasetConfig) SetDefaults() {
	def := dataset.DefaultGeneratorConfig()
	if c.Path == "" {
		c.Path = "fleet_routes.csv"
	}
	if c.Samples == 0 {
		c.Samples = def.Samples
	}
	if c.Seed == 0 {
		c.Seed = def.Seed
	}
}

func (c DatasetConfig) Validate() error {
	if c.Path == "" {
		return errors.New("path is required")
	}
	if c.Samples <= 0 {
		return errors.New("samples must be positive")
	}
	return nil
}

// Generator returns the generator profile with this section applied.
func (c DatasetConfig) Generator() dataset.GeneratorConfig {
	g := dataset.DefaultGeneratorConfig()
	g.Samples = c.Samples
	g.Seed = c.Seed
	return g
}

// TrainingConfig selects the algorithm and its hyper-parameters.
type TrainingConfig struct {
	Algorithm      string  `json:"algorithm" yaml:"algorithm"`
	TestRatio      float64 `json:"test_ratio" yaml:"test_ratio"`
	Seed           uint64  `json:"seed" yaml:"seed"`
	NEstimators    int     `json:"n_estimators" yaml:"n_estimators"`
	MaxDepth       int     `json:"max_depth" yaml:"max_depth"`
	LearningRate   float64 `json:"learning_rate" yaml:"learning_rate"`
	Subsample      float64 `json:"subsample" yaml:"subsample"`
	Colsample      float64 `json:"colsample" yaml:"colsample"`
	MinSamplesLeaf int     `json:"min_samples_leaf" yaml:"min_samples_leaf"`
}

func (c *TrainingConfig) SetDefaults() {
	def := training.DefaultConfig()
	if c.Algorithm == "" {
		c.Algorithm = string(def.Algorithm)
	}
	if c.TestRatio == 0 {
		c.TestRatio = def.TestRatio
	}
	if c.Seed == 0 {
		c.Seed = def.Seed
	}
	if c.NEstimators == 0 {
		c.NEstimators = def.GBRT.NEstimators
	}
	if c.MaxDepth == 0 {
		c.MaxDepth = def.GBRT.MaxDepth
	}
	if c.LearningRate == 0 {
		c.LearningRate = def.GBRT.LearningRate
	}
	if c.Subsample == 0 {
		c.Subsample = def.GBRT.Subsample
	}
	if c.Colsample == 0 {
		c.Colsample = def.GBRT.Colsample
	}
	if c.MinSamplesLeaf == 0 {
		c.MinSamplesLeaf = def.GBRT.MinSamplesLeaf
	}
}

func (c TrainingConfig) Validate() error {
	tc, err := c.Trainer()
	if err != nil {
		return err
	}
	return tc.Validate()
}

// Trainer converts the section into a training configuration.
func (c TrainingConfig) Trainer() (training.Config, error) {
	kind, err := regression.ParseKind(c.Algorithm)
	if err != nil {
		return training.Config{}, fmt.Errorf("algorithm: %w", err)
	}
	return training.Config{
		Algorithm: kind,
		TestRatio: c.TestRatio,
		Seed:      c.Seed,
		GBRT: regression.GBRTConfig{
			NEstimators:    c.NEstimators,
			MaxDepth:       c.MaxDepth,
			LearningRate:   c.LearningRate,
			Subsample:      c.Subsample,
			Colsample:      c.Colsample,
			MinSamplesLeaf: c.MinSamplesLeaf,
			Seed:           c.Seed,
		},
	}, nil
}
