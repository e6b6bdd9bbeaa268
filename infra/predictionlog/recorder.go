package predictionlog

import (
	"context"
	"time"

	"github.com/kilianp07/eta/core/metrics"
)

// Recorder is a PredictionSink appending every event to a Store.
type Recorder struct {
	store   Store
	timeout time.Duration
}

// NewRecorder wraps store. Each append is bounded by timeout when positive.
func NewRecorder(store Store, timeout time.Duration) *Recorder {
	return &Recorder{store: store, timeout: timeout}
}

// RecordPrediction appends ev.
func (r *Recorder) RecordPrediction(ev metrics.PredictionEvent) error {
	ctx := context.Background()
	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}
	return r.store.Append(ctx, FromEvent(ev))
}

// Close closes the store.
func (r *Recorder) Close() error { return r.store.Close() }
