package metrics

import (
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	coremetrics "github.com/kilianp07/eta/core/metrics"
)

func TestPromSink_RecordPrediction(t *testing.T) {
	reg := prometheus.NewRegistry()
	sink, err := NewPromSinkWithRegistry(reg)
	if err != nil {
		t.Fatalf("create sink: %v", err)
	}
	events := []coremetrics.PredictionEvent{
		{Outcome: coremetrics.OutcomeSuccess, Source: "http", ETA: 20, Duration: time.Millisecond},
		{Outcome: coremetrics.OutcomeSuccess, Source: "mqtt", ETA: 95, Duration: time.Millisecond},
		{Outcome: coremetrics.OutcomeInvalid, Source: "http", Duration: time.Microsecond},
	}
	for _, ev := range events {
		if err := sink.RecordPrediction(ev); err != nil {
			t.Fatalf("record: %v", err)
		}
	}

	expected := `
# HELP eta_predictions_total Prediction requests by outcome and transport
# TYPE eta_predictions_total counter
eta_predictions_total{outcome="invalid",source="http"} 1
eta_predictions_total{outcome="success",source="http"} 1
eta_predictions_total{outcome="success",source="mqtt"} 1
`
	if err := testutil.GatherAndCompare(reg, strings.NewReader(expected), "eta_predictions_total"); err != nil {
		t.Fatalf("unexpected counters: %v", err)
	}
	if n := testutil.CollectAndCount(sink.predicted); n != 1 {
		t.Fatalf("expected one ETA histogram, got %d", n)
	}
	if got := testutil.CollectAndCount(sink.latency); got != 2 {
		t.Fatalf("expected latency series for 2 outcomes, got %d", got)
	}
}

func TestPromSink_ReusesRegisteredCollectors(t *testing.T) {
	reg := prometheus.NewRegistry()
	a, err := NewPromSinkWithRegistry(reg)
	if err != nil {
		t.Fatalf("first: %v", err)
	}
	b, err := NewPromSinkWithRegistry(reg)
	if err != nil {
		t.Fatalf("second: %v", err)
	}
	if a.requests != b.requests {
		t.Fatalf("expected shared counter vec")
	}
}
