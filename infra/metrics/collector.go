package metrics

import (
	"context"

	coremetrics "github.com/kilianp07/eta/core/metrics"
	"github.com/kilianp07/eta/infra/logger"
	"github.com/kilianp07/eta/internal/eventbus"
)

// StartEventCollector drains prediction events from bus into sink until ctx
// is canceled or the bus is closed. Sink failures are logged and never reach
// the request path. The returned channel closes when the collector exits.
func StartEventCollector(ctx context.Context, bus *eventbus.Bus[coremetrics.PredictionEvent], sink coremetrics.PredictionSink, log logger.Logger) <-chan struct{} {
	if log == nil {
		log = logger.NopLogger{}
	}
	if bus == nil || sink == nil {
		done := make(chan struct{})
		close(done)
		return done
	}
	return bus.Consume(ctx, func(ev coremetrics.PredictionEvent) {
		if err := sink.RecordPrediction(ev); err != nil {
			log.Errorw("record prediction", map[string]any{"id": ev.ID, "error": err.Error()})
		}
	})
}
