package regression

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// Linear is an ordinary least squares model with intercept.
type Linear struct {
	Intercept    float64   `json:"intercept"`
	Coefficients []float64 `json:"coefficients"`
}

// FitLinear solves the least squares problem for X/y through a QR
// decomposition of the design matrix.
func FitLinear(X [][]float64, y []float64) (*Linear, error) {
	width, err := checkTrainingSet(X, y)
	if err != nil {
		return nil, err
	}
	n := len(X)
	if n <= width {
		return nil, fmt.Errorf("linear: need more than %d rows, got %d", width, n)
	}
	design := mat.NewDense(n, width+1, nil)
	for i, row := range X {
		design.Set(i, 0, 1)
		for j, v := range row {
			design.Set(i, j+1, v)
		}
	}
	labels := mat.NewVecDense(n, append([]float64(nil), y...))

	var beta mat.VecDense
	if err := beta.SolveVec(design, labels); err != nil {
		return nil, fmt.Errorf("linear: least squares: %w", err)
	}
	coefs := make([]float64, width)
	for j := range coefs {
		coefs[j] = beta.AtVec(j + 1)
	}
	return &Linear{Intercept: beta.AtVec(0), Coefficients: coefs}, nil
}

func (m *Linear) Kind() Kind       { return KindLinear }
func (m *Linear) NumFeatures() int { return len(m.Coefficients) }

// Predict returns intercept + coefficients·x.
func (m *Linear) Predict(x []float64) (float64, error) {
	if err := checkWidth(x, len(m.Coefficients)); err != nil {
		return 0, err
	}
	return m.Intercept + floats.Dot(m.Coefficients, x), nil
}

func (m *Linear) validate() error {
	if len(m.Coefficients) == 0 {
		return errors.New("linear: no coefficients")
	}
	if math.IsNaN(m.Intercept) || math.IsInf(m.Intercept, 0) || floats.HasNaN(m.Coefficients) {
		return errors.New("linear: coefficients not finite")
	}
	return nil
}
