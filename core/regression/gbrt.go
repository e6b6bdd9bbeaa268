package regression

import (
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
	"slices"

	"gonum.org/v1/gonum/floats"
)

// GBRTConfig holds the hyper-parameters of gradient boosting.
type GBRTConfig struct {
	NEstimators    int     `json:"n_estimators"`
	MaxDepth       int     `json:"max_depth"`
	LearningRate   float64 `json:"learning_rate"`
	Subsample      float64 `json:"subsample"`
	Colsample      float64 `json:"colsample"`
	MinSamplesLeaf int     `json:"min_samples_leaf"`
	Seed           uint64  `json:"seed"`
}

// DefaultGBRTConfig mirrors the parameters the production model was tuned with.
func DefaultGBRTConfig() GBRTConfig {
	return GBRTConfig{
		NEstimators:    300,
		MaxDepth:       6,
		LearningRate:   0.05,
		Subsample:      0.9,
		Colsample:      0.8,
		MinSamplesLeaf: 1,
		Seed:           42,
	}
}

// Validate checks the parameter ranges.
func (c GBRTConfig) Validate() error {
	switch {
	case c.NEstimators <= 0:
		return errors.New("n_estimators must be positive")
	case c.MaxDepth <= 0:
		return errors.New("max_depth must be positive")
	case c.LearningRate <= 0 || c.LearningRate > 1:
		return errors.New("learning_rate must be in (0,1]")
	case c.Subsample <= 0 || c.Subsample > 1:
		return errors.New("subsample must be in (0,1]")
	case c.Colsample <= 0 || c.Colsample > 1:
		return errors.New("colsample must be in (0,1]")
	case c.MinSamplesLeaf <= 0:
		return errors.New("min_samples_leaf must be positive")
	}
	return nil
}

// GradientBoosting is an additive ensemble of regression trees fitted to the
// squared-error gradient.
type GradientBoosting struct {
	BaseScore    float64 `json:"base_score"`
	LearningRate float64 `json:"learning_rate"`
	Width        int     `json:"n_features"`
	Trees        []Tree  `json:"trees"`
}

// FitGradientBoosting trains an ensemble on X/y. The result is deterministic
// for a given cfg.Seed.
func FitGradientBoosting(X [][]float64, y []float64, cfg GBRTConfig) (*GradientBoosting, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	width, err := checkTrainingSet(X, y)
	if err != nil {
		return nil, err
	}
	n := len(X)
	rng := rand.New(rand.NewPCG(cfg.Seed, cfg.Seed^0x9e3779b97f4a7c15))

	base := floats.Sum(y) / float64(n)
	pred := make([]float64, n)
	for i := range pred {
		pred[i] = base
	}
	residual := make([]float64, n)
	rowCount := max(1, int(math.Round(cfg.Subsample*float64(n))))
	colCount := max(1, int(math.Round(cfg.Colsample*float64(width))))

	b := &treeBuilder{x: X, target: residual, maxDepth: cfg.MaxDepth, minLeaf: cfg.MinSamplesLeaf}
	m := &GradientBoosting{BaseScore: base, LearningRate: cfg.LearningRate, Width: width}
	for round := 0; round < cfg.NEstimators; round++ {
		floats.SubTo(residual, y, pred)
		rows := rng.Perm(n)[:rowCount]
		cols := rng.Perm(width)[:colCount]
		slices.Sort(cols)
		b.features = cols

		tree := b.build(rows)
		for i := range pred {
			pred[i] += cfg.LearningRate * tree.predict(X[i])
		}
		m.Trees = append(m.Trees, tree)
	}
	return m, nil
}

func (m *GradientBoosting) Kind() Kind       { return KindGradientBoosting }
func (m *GradientBoosting) NumFeatures() int { return m.Width }

// Predict evaluates the ensemble on x.
func (m *GradientBoosting) Predict(x []float64) (float64, error) {
	if err := checkWidth(x, m.Width); err != nil {
		return 0, err
	}
	out := m.BaseScore
	for i := range m.Trees {
		out += m.LearningRate * m.Trees[i].predict(x)
	}
	return out, nil
}

func (m *GradientBoosting) validate() error {
	if m.Width <= 0 {
		return errors.New("gbrt: n_features must be positive")
	}
	if len(m.Trees) == 0 {
		return errors.New("gbrt: no trees")
	}
	if math.IsNaN(m.BaseScore) || math.IsInf(m.BaseScore, 0) {
		return errors.New("gbrt: base_score not finite")
	}
	for i := range m.Trees {
		if err := m.Trees[i].validate(m.Width); err != nil {
			return fmt.Errorf("gbrt: tree %d: %w", i, err)
		}
	}
	return nil
}
