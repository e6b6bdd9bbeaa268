// Package training fits and evaluates ETA models on a labelled dataset.
package training

import (
	"errors"
	"fmt"
	"math/rand/v2"

	"github.com/kilianp07/eta/core/dataset"
	"github.com/kilianp07/eta/core/regression"
)

// Config selects the algorithm and the hold-out split.
type Config struct {
	Algorithm regression.Kind
	TestRatio float64
	Seed      uint64
	GBRT      regression.GBRTConfig
}

// DefaultConfig returns gradient boosting with an 80/20 split.
func DefaultConfig() Config {
	return Config{
		Algorithm: regression.KindGradientBoosting,
		TestRatio: 0.2,
		Seed:      42,
		GBRT:      regression.DefaultGBRTConfig(),
	}
}

// Validate checks the configuration.
func (c Config) Validate() error {
	if !c.Algorithm.IsValid() {
		return fmt.Errorf("unknown algorithm %q", c.Algorithm)
	}
	if c.TestRatio <= 0 || c.TestRatio >= 1 {
		return fmt.Errorf("test ratio %v outside (0,1)", c.TestRatio)
	}
	if c.Algorithm == regression.KindGradientBoosting {
		return c.GBRT.Validate()
	}
	return nil
}

// Split shuffles rows deterministically and cuts off the last testRatio share
// as the hold-out set. Both sides get at least one row.
func Split(rows []dataset.Row, testRatio float64, seed uint64) (train, test []dataset.Row, err error) {
	if len(rows) < 2 {
		return nil, nil, fmt.Errorf("need at least 2 rows to split, got %d", len(rows))
	}
	if testRatio <= 0 || testRatio >= 1 {
		return nil, nil, fmt.Errorf("test ratio %v outside (0,1)", testRatio)
	}
	rng := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	perm := rng.Perm(len(rows))

	nTest := int(float64(len(rows))*testRatio + 0.5)
	nTest = max(1, min(nTest, len(rows)-1))
	nTrain := len(rows) - nTest

	train = make([]dataset.Row, 0, nTrain)
	test = make([]dataset.Row, 0, nTest)
	for i, p := range perm {
		if i < nTrain {
			train = append(train, rows[p])
		} else {
			test = append(test, rows[p])
		}
	}
	return train, test, nil
}

// Train splits rows, fits the configured algorithm on the training share and
// scores it on the hold-out share.
func Train(rows []dataset.Row, cfg Config) (regression.Model, regression.Metadata, error) {
	if len(rows) == 0 {
		return nil, regression.Metadata{}, errors.New("empty dataset")
	}
	if err := cfg.Validate(); err != nil {
		return nil, regression.Metadata{}, err
	}
	trainRows, testRows, err := Split(rows, cfg.TestRatio, cfg.Seed)
	if err != nil {
		return nil, regression.Metadata{}, err
	}
	X, y, err := dataset.Matrix(trainRows)
	if err != nil {
		return nil, regression.Metadata{}, fmt.Errorf("encode training rows: %w", err)
	}
	Xt, yt, err := dataset.Matrix(testRows)
	if err != nil {
		return nil, regression.Metadata{}, fmt.Errorf("encode test rows: %w", err)
	}

	var m regression.Model
	switch cfg.Algorithm {
	case regression.KindGradientBoosting:
		g := cfg.GBRT
		g.Seed = cfg.Seed
		m, err = regression.FitGradientBoosting(X, y, g)
	case regression.KindLinear:
		m, err = regression.FitLinear(X, y)
	}
	if err != nil {
		return nil, regression.Metadata{}, fmt.Errorf("fit %s: %w", cfg.Algorithm, err)
	}

	ev, err := regression.Evaluate(m, Xt, yt)
	if err != nil {
		return nil, regression.Metadata{}, err
	}
	ev.TrainRows = len(trainRows)

	meta := regression.NewMetadata(m.Kind())
	meta.Evaluation = ev
	return m, meta, nil
}
