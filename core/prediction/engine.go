package prediction

import (
	"errors"
	"fmt"
	"maps"
	"math"
	"slices"

	"github.com/kilianp07/eta/core/model"
	"github.com/kilianp07/eta/core/regression"
)

var (
	// ErrModelLoad reports that the model artifact could not be loaded or
	// does not match the serving schema.
	ErrModelLoad = errors.New("model load failed")
	// ErrPrediction reports a failure inside the model during predict.
	ErrPrediction = errors.New("prediction failed")
)

// Engine maps an ordered feature vector to an ETA in minutes.
type Engine interface {
	Predict(v model.Vector) (float64, error)
}

// ModelLoader yields a trained model and its metadata.
type ModelLoader interface {
	LoadModel() (regression.Model, regression.Metadata, error)
}

// LoaderFunc adapts a function to ModelLoader.
type LoaderFunc func() (regression.Model, regression.Metadata, error)

// LoadModel calls f.
func (f LoaderFunc) LoadModel() (regression.Model, regression.Metadata, error) { return f() }

// Static returns a loader that hands out an already decoded model.
func Static(m regression.Model, meta regression.Metadata) ModelLoader {
	return LoaderFunc(func() (regression.Model, regression.Metadata, error) { return m, meta, nil })
}

// Predictor wraps a loaded model. It is immutable after construction and
// safe for concurrent use.
type Predictor struct {
	model regression.Model
	meta  regression.Metadata
}

// NewPredictor loads the model once through loader.
func NewPredictor(loader ModelLoader) (*Predictor, error) {
	if loader == nil {
		return nil, fmt.Errorf("%w: no loader", ErrModelLoad)
	}
	m, meta, err := loader.LoadModel()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrModelLoad, err)
	}
	if m == nil {
		return nil, fmt.Errorf("%w: loader returned no model", ErrModelLoad)
	}
	if n := m.NumFeatures(); n != model.NumFeatures {
		return nil, fmt.Errorf("%w: model expects %d features, schema has %d", ErrModelLoad, n, model.NumFeatures)
	}
	if err := regression.CheckCompatible(meta); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrModelLoad, err)
	}
	return &Predictor{model: m, meta: meta}, nil
}

// Predict evaluates the model on v. A panic inside the model is recovered
// and reported as ErrPrediction, as is a non-finite output.
func (p *Predictor) Predict(v model.Vector) (eta float64, err error) {
	defer func() {
		if r := recover(); r != nil {
			eta, err = 0, fmt.Errorf("%w: model panic: %v", ErrPrediction, r)
		}
	}()
	eta, err = p.model.Predict(v.Slice())
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrPrediction, err)
	}
	if math.IsNaN(eta) || math.IsInf(eta, 0) {
		return 0, fmt.Errorf("%w: non-finite output %v", ErrPrediction, eta)
	}
	return eta, nil
}

// Info returns a copy of the loaded model's metadata.
func (p *Predictor) Info() regression.Metadata {
	meta := p.meta
	meta.Features = slices.Clone(p.meta.Features)
	meta.TrafficEncoding = maps.Clone(p.meta.TrafficEncoding)
	return meta
}
