package metrics

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"

	coremetrics "github.com/kilianp07/eta/core/metrics"
)

// PromSink records served predictions in Prometheus metrics.
type PromSink struct {
	requests  *prometheus.CounterVec
	latency   *prometheus.HistogramVec
	predicted prometheus.Histogram
}

// NewPromSink registers prediction metrics on the default Prometheus
// registerer. The /metrics endpoint is started separately with
// StartPromServer.
func NewPromSink() (*PromSink, error) {
	return NewPromSinkWithRegistry(prometheus.DefaultRegisterer)
}

// NewPromSinkWithRegistry registers metrics on the provided registerer.
// A nil registerer defaults to the global Prometheus registerer. Collectors
// already registered by a previous sink are reused.
func NewPromSinkWithRegistry(reg prometheus.Registerer) (*PromSink, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	requests, err := register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "eta_predictions_total",
		Help: "Prediction requests by outcome and transport",
	}, []string{"outcome", "source"}))
	if err != nil {
		return nil, err
	}
	latency, err := register(reg, prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "eta_prediction_duration_seconds",
		Help:    "Time spent validating and predicting one request",
		Buckets: []float64{.0001, .0005, .001, .0025, .005, .01, .025, .05, .1},
	}, []string{"outcome"}))
	if err != nil {
		return nil, err
	}
	predicted, err := register(reg, prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "eta_predicted_minutes",
		Help:    "Distribution of returned ETAs",
		Buckets: prometheus.LinearBuckets(0, 15, 13),
	}))
	if err != nil {
		return nil, err
	}
	return &PromSink{requests: requests, latency: latency, predicted: predicted}, nil
}

func register[C prometheus.Collector](reg prometheus.Registerer, c C) (C, error) {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing, nil
			}
		}
		return c, err
	}
	return c, nil
}

// RecordPrediction updates the counters and histograms for ev.
func (s *PromSink) RecordPrediction(ev coremetrics.PredictionEvent) error {
	s.requests.WithLabelValues(string(ev.Outcome), ev.Source).Inc()
	s.latency.WithLabelValues(string(ev.Outcome)).Observe(ev.Duration.Seconds())
	if ev.Outcome == coremetrics.OutcomeSuccess {
		s.predicted.Observe(ev.ETA)
	}
	return nil
}
