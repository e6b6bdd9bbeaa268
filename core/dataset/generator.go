// Package dataset produces and reads the labelled trip table the ETA model is
// trained on.
package dataset

import (
	"errors"
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/stat/distuv"

	"github.com/kilianp07/eta/core/model"
)

// Row is one labelled trip.
type Row struct {
	DistanceKm   float64
	AvgSpeed     float64
	Traffic      model.TrafficLevel
	BatteryLevel float64
	FuelLevel    float64
	ETAMinutes   float64
}

// Features encodes the row into model inputs using the shared traffic table.
func (r Row) Features() (model.TripFeatures, error) {
	traffic, err := r.Traffic.Encode()
	if err != nil {
		return model.TripFeatures{}, err
	}
	return model.TripFeatures{
		DistanceKm:   r.DistanceKm,
		AvgSpeed:     r.AvgSpeed,
		TrafficLevel: traffic,
		BatteryLevel: r.BatteryLevel,
		FuelLevel:    r.FuelLevel,
	}, nil
}

// Range is a closed sampling interval.
type Range struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// GeneratorConfig controls the synthetic fleet.
type GeneratorConfig struct {
	Samples int
	Seed    uint64

	Distance Range
	Speed    Range
	Battery  Range
	Fuel     Range

	// TrafficWeights are the probabilities of Low, Medium and High.
	TrafficWeights [3]float64
	// NoiseStdDev is the standard deviation of the Gaussian ETA noise in minutes.
	NoiseStdDev float64
}

// DefaultGeneratorConfig returns the fleet profile the production model was
// trained on.
func DefaultGeneratorConfig() GeneratorConfig {
	return GeneratorConfig{
		Samples:        2500,
		Seed:           100,
		Distance:       Range{5, 120},
		Speed:          Range{20, 120},
		Battery:        Range{10, 100},
		Fuel:           Range{0, 100},
		TrafficWeights: [3]float64{0.5, 0.3, 0.2},
		NoiseStdDev:    5,
	}
}

// Validate checks the configuration.
func (c GeneratorConfig) Validate() error {
	if c.Samples <= 0 {
		return errors.New("samples must be positive")
	}
	for _, r := range []Range{c.Distance, c.Battery, c.Fuel} {
		if r.Min < 0 || r.Max < r.Min {
			return errors.New("invalid sampling range")
		}
	}
	if c.Speed.Min <= 0 || c.Speed.Max < c.Speed.Min {
		return errors.New("speed range must be positive")
	}
	var sum float64
	for _, w := range c.TrafficWeights {
		if w < 0 {
			return errors.New("traffic weights must be non-negative")
		}
		sum += w
	}
	if sum == 0 {
		return errors.New("traffic weights sum to zero")
	}
	if c.NoiseStdDev < 0 {
		return errors.New("noise must be non-negative")
	}
	return nil
}

// Generate draws cfg.Samples trips. The label is the free-flow travel time
// plus Gaussian noise plus the traffic penalty, clipped at zero. Every value
// is rounded to two decimals. Output is fully determined by cfg.
func Generate(cfg GeneratorConfig) ([]Row, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	src := rand.NewPCG(cfg.Seed, cfg.Seed+1)
	uniform := func(r Range) distuv.Uniform { return distuv.Uniform{Min: r.Min, Max: r.Max, Src: src} }
	distance := uniform(cfg.Distance)
	speed := uniform(cfg.Speed)
	battery := uniform(cfg.Battery)
	fuel := uniform(cfg.Fuel)
	traffic := distuv.NewCategorical(cfg.TrafficWeights[:], src)
	noise := distuv.Normal{Mu: 0, Sigma: cfg.NoiseStdDev, Src: src}

	rows := make([]Row, cfg.Samples)
	for i := range rows {
		r := Row{
			DistanceKm:   round2(distance.Rand()),
			AvgSpeed:     round2(speed.Rand()),
			Traffic:      model.TrafficLevels[int(traffic.Rand())],
			BatteryLevel: round2(battery.Rand()),
			FuelLevel:    round2(fuel.Rand()),
		}
		eta := r.DistanceKm/r.AvgSpeed*60 + model.TrafficPenaltyMinutes[r.Traffic]
		if cfg.NoiseStdDev > 0 {
			eta += noise.Rand()
		}
		r.ETAMinutes = round2(math.Max(0, eta))
		rows[i] = r
	}
	return rows, nil
}

// Matrix splits rows into model inputs and labels.
func Matrix(rows []Row) ([][]float64, []float64, error) {
	X := make([][]float64, len(rows))
	y := make([]float64, len(rows))
	for i, r := range rows {
		f, err := r.Features()
		if err != nil {
			return nil, nil, err
		}
		X[i] = f.Vector().Slice()
		y[i] = r.ETAMinutes
	}
	return X, y, nil
}

func round2(x float64) float64 { return math.Round(x*100) / 100 }
