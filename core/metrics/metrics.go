package metrics

import (
	"errors"
	"time"

	"github.com/kilianp07/eta/core/model"
)

// Outcome classifies a served request.
type Outcome string

const (
	OutcomeSuccess Outcome = "success"
	// OutcomeInvalid marks a request rejected by feature validation.
	OutcomeInvalid Outcome = "invalid"
	// OutcomeError marks a request that failed inside the model.
	OutcomeError Outcome = "error"
)

// Outcomes lists every outcome label.
var Outcomes = []Outcome{OutcomeSuccess, OutcomeInvalid, OutcomeError}

// PredictionEvent describes one served request.
type PredictionEvent struct {
	ID      string
	Time    time.Time
	Source  string
	Outcome Outcome
	// Features is nil when validation failed.
	Features *model.TripFeatures
	// ETA is the rounded value returned to the caller; zero unless Outcome is success.
	ETA      float64
	Error    string
	Duration time.Duration
}

// PredictionSink records prediction events for observability purposes.
type PredictionSink interface {
	RecordPrediction(ev PredictionEvent) error
}

// Closer is implemented by sinks holding external resources.
type Closer interface {
	Close() error
}

// NopSink discards every event.
type NopSink struct{}

func (NopSink) RecordPrediction(PredictionEvent) error { return nil }

// MultiSink fans an event out to several sinks.
type MultiSink struct {
	Sinks []PredictionSink
}

// NewMultiSink creates a MultiSink with the provided sinks.
func NewMultiSink(sinks ...PredictionSink) *MultiSink {
	return &MultiSink{Sinks: sinks}
}

// RecordPrediction forwards ev to every sink, even after a failure, and
// returns the joined errors.
func (m *MultiSink) RecordPrediction(ev PredictionEvent) error {
	var errs []error
	for _, s := range m.Sinks {
		if err := s.RecordPrediction(ev); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Close closes every sink that implements Closer.
func (m *MultiSink) Close() error {
	var errs []error
	for _, s := range m.Sinks {
		if c, ok := s.(Closer); ok {
			errs = append(errs, c.Close())
		}
	}
	return errors.Join(errs...)
}
