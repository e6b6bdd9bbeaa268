package regression

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat"
)

// Evaluation summarises model quality on a held-out set.
type Evaluation struct {
	R2        float64 `json:"r2"`
	RMSE      float64 `json:"rmse"`
	MAE       float64 `json:"mae"`
	TrainRows int     `json:"train_rows"`
	TestRows  int     `json:"test_rows"`
}

// Evaluate scores m against X/y. TrainRows is left for the caller to fill.
func Evaluate(m Model, X [][]float64, y []float64) (Evaluation, error) {
	if len(X) == 0 || len(X) != len(y) {
		return Evaluation{}, fmt.Errorf("evaluate: %d rows for %d labels", len(X), len(y))
	}
	est := make([]float64, len(X))
	var sq, abs float64
	for i, row := range X {
		p, err := m.Predict(row)
		if err != nil {
			return Evaluation{}, fmt.Errorf("evaluate row %d: %w", i, err)
		}
		est[i] = p
		d := p - y[i]
		sq += d * d
		abs += math.Abs(d)
	}
	n := float64(len(X))
	return Evaluation{
		R2:       stat.RSquaredFrom(est, y, nil),
		RMSE:     math.Sqrt(sq / n),
		MAE:      abs / n,
		TestRows: len(X),
	}, nil
}
