package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/kilianp07/eta/core/factory"
	coremetrics "github.com/kilianp07/eta/core/metrics"
)

// init registers built-in prediction sinks.
func init() {
	_ = coremetrics.RegisterPredictionSink("nop", func(map[string]any) (coremetrics.PredictionSink, error) {
		return coremetrics.NopSink{}, nil
	})

	_ = coremetrics.RegisterPredictionSink("prometheus", func(map[string]any) (coremetrics.PredictionSink, error) {
		return NewPromSinkWithRegistry(prometheus.DefaultRegisterer)
	})

	_ = coremetrics.RegisterPredictionSink("influx", func(conf map[string]any) (coremetrics.PredictionSink, error) {
		var c InfluxConfig
		if err := factory.Decode(conf, &c); err != nil {
			return nil, err
		}
		return NewInfluxSinkWithFallback(c), nil
	})
}
