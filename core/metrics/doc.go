// Package metrics defines how served predictions are observed. Every request
// produces one PredictionEvent which is handed to a PredictionSink; sinks are
// built from configuration through a registry so that infrastructure packages
// (Prometheus, InfluxDB, the prediction log) can plug themselves in.
package metrics
