// Package regression implements the ETA regression models, their evaluation
// and the artifact format they are persisted in.
//
// Models are immutable once fitted or decoded: Predict only reads model state
// and may be called from any number of goroutines.
package regression

import (
	"errors"
	"fmt"
)

// Kind identifies a model family inside an artifact.
type Kind string

const (
	KindGradientBoosting Kind = "gbrt"
	KindLinear           Kind = "linear"
)

// IsValid reports whether k names a supported model family.
func (k Kind) IsValid() bool {
	switch k {
	case KindGradientBoosting, KindLinear:
		return true
	}
	return false
}

func (k Kind) String() string { return string(k) }

// ParseKind validates s as a model kind.
func ParseKind(s string) (Kind, error) {
	k := Kind(s)
	if !k.IsValid() {
		return "", fmt.Errorf("unknown model kind %q", s)
	}
	return k, nil
}

// Model is a fitted regression function over a fixed-length feature vector.
type Model interface {
	Kind() Kind
	NumFeatures() int
	Predict(x []float64) (float64, error)
}

// ErrFeatureCount is returned when a vector does not match the model width.
var ErrFeatureCount = errors.New("feature count mismatch")

func checkWidth(x []float64, n int) error {
	if len(x) != n {
		return fmt.Errorf("%w: got %d, want %d", ErrFeatureCount, len(x), n)
	}
	return nil
}

func checkTrainingSet(X [][]float64, y []float64) (int, error) {
	if len(X) == 0 {
		return 0, errors.New("empty training set")
	}
	if len(X) != len(y) {
		return 0, fmt.Errorf("rows and labels differ: %d vs %d", len(X), len(y))
	}
	width := len(X[0])
	if width == 0 {
		return 0, errors.New("rows have no features")
	}
	for i, row := range X {
		if len(row) != width {
			return 0, fmt.Errorf("row %d: %w: got %d, want %d", i, ErrFeatureCount, len(row), width)
		}
	}
	return width, nil
}
