// Package report renders an HTML training report: predicted against observed
// ETA on the hold-out rows, the residual distribution and the error per
// traffic level.
package report

import (
	"errors"
	"fmt"
	"io"
	"math"
	"slices"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/kilianp07/eta/core/dataset"
	"github.com/kilianp07/eta/core/model"
	"github.com/kilianp07/eta/core/regression"
)

// ResidualBins is the number of histogram buckets.
const ResidualBins = 20

// Point pairs an observed label with the model output.
type Point struct {
	Actual    float64
	Predicted float64
	Traffic   model.TrafficLevel
}

// Residual is Predicted minus Actual.
func (p Point) Residual() float64 { return p.Predicted - p.Actual }

// Score runs m on rows.
func Score(m regression.Model, rows []dataset.Row) ([]Point, error) {
	if len(rows) == 0 {
		return nil, errors.New("no rows to score")
	}
	X, y, err := dataset.Matrix(rows)
	if err != nil {
		return nil, err
	}
	pts := make([]Point, len(rows))
	for i := range X {
		p, err := m.Predict(X[i])
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i, err)
		}
		pts[i] = Point{Actual: y[i], Predicted: p, Traffic: rows[i].Traffic}
	}
	return pts, nil
}

// Histogram buckets the residuals into ResidualBins equal-width bins and
// returns the bin centres and counts.
func Histogram(pts []Point) (centres, counts []float64) {
	res := make([]float64, len(pts))
	for i, p := range pts {
		res[i] = p.Residual()
	}
	slices.Sort(res)
	lo, hi := res[0], res[len(res)-1]
	if hi == lo {
		return []float64{lo}, []float64{float64(len(res))}
	}
	// The last divider must exceed the maximum for it to be counted.
	dividers := floats.Span(make([]float64, ResidualBins+1), lo, math.Nextafter(hi, math.Inf(1)))
	counts = stat.Histogram(nil, dividers, res, nil)
	centres = make([]float64, ResidualBins)
	for i := range centres {
		centres[i] = (dividers[i] + dividers[i+1]) / 2
	}
	return centres, counts
}

// Render writes the report page for m evaluated on the test rows.
func Render(w io.Writer, m regression.Model, meta regression.Metadata, test []dataset.Row) error {
	pts, err := Score(m, test)
	if err != nil {
		return err
	}
	subtitle := fmt.Sprintf("model %s (%s) | R² %.3f | RMSE %.2f min | MAE %.2f min | %d test rows",
		meta.ID, meta.Kind, meta.Evaluation.R2, meta.Evaluation.RMSE, meta.Evaluation.MAE, len(pts))

	page := components.NewPage()
	page.PageTitle = "ETA model report"
	page.AddCharts(
		scatter(pts, subtitle),
		residuals(pts),
		trafficError(pts),
	)
	return page.Render(w)
}

func scatter(pts []Point, subtitle string) *charts.Scatter {
	sc := charts.NewScatter()
	sc.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{Title: "Predicted vs observed ETA", Subtitle: subtitle}),
		charts.WithXAxisOpts(opts.XAxis{Name: "Observed (min)", Type: "value"}),
		charts.WithYAxisOpts(opts.YAxis{Name: "Predicted (min)", Type: "value"}),
	)
	for _, lvl := range model.TrafficLevels {
		var data []opts.ScatterData
		for _, p := range pts {
			if p.Traffic == lvl {
				data = append(data, opts.ScatterData{Value: []float64{p.Actual, p.Predicted}})
			}
		}
		sc.AddSeries(lvl.String(), data)
	}
	return sc
}

func residuals(pts []Point) *charts.Bar {
	centres, counts := Histogram(pts)
	x := make([]string, len(centres))
	data := make([]opts.BarData, len(counts))
	for i := range centres {
		x[i] = fmt.Sprintf("%.1f", centres[i])
		data[i] = opts.BarData{Value: counts[i]}
	}
	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{Title: "Residuals (predicted - observed)"}),
		charts.WithXAxisOpts(opts.XAxis{Name: "min"}),
		charts.WithYAxisOpts(opts.YAxis{Name: "rows"}),
	)
	bar.SetXAxis(x).AddSeries("residuals", data)
	return bar
}

func trafficError(pts []Point) *charts.Bar {
	x := make([]string, 0, len(model.TrafficLevels))
	data := make([]opts.BarData, 0, len(model.TrafficLevels))
	for _, lvl := range model.TrafficLevels {
		var abs []float64
		for _, p := range pts {
			if p.Traffic == lvl {
				abs = append(abs, math.Abs(p.Residual()))
			}
		}
		mae := 0.0
		if len(abs) > 0 {
			mae = stat.Mean(abs, nil)
		}
		x = append(x, lvl.String())
		data = append(data, opts.BarData{Value: math.Round(mae*100) / 100})
	}
	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{Title: "Mean absolute error by traffic level"}),
		charts.WithYAxisOpts(opts.YAxis{Name: "MAE (min)"}),
	)
	bar.SetXAxis(x).AddSeries("MAE", data)
	return bar
}
