package metrics

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/kilianp07/eta/core/factory"
	coremetrics "github.com/kilianp07/eta/core/metrics"
	"github.com/kilianp07/eta/internal/eventbus"
)

type recordSink struct {
	mu  sync.Mutex
	ids []string
	err error
}

func (r *recordSink) RecordPrediction(ev coremetrics.PredictionEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ids = append(r.ids, ev.ID)
	return r.err
}

func TestStartEventCollector(t *testing.T) {
	bus := eventbus.New[coremetrics.PredictionEvent](8)
	sink := &recordSink{err: errors.New("flaky")}
	done := StartEventCollector(context.Background(), bus, sink, nil)

	bus.Publish(coremetrics.PredictionEvent{ID: "a"})
	bus.Publish(coremetrics.PredictionEvent{ID: "b"})
	bus.Close()
	<-done

	sink.mu.Lock()
	defer sink.mu.Unlock()
	assert.Equal(t, []string{"a", "b"}, sink.ids)
}

func TestStartEventCollector_NilBus(t *testing.T) {
	done := StartEventCollector(context.Background(), nil, &recordSink{}, nil)
	_, open := <-done
	assert.False(t, open)
}

func TestBuiltinSinks(t *testing.T) {
	s, err := coremetrics.NewPredictionSink([]factory.ModuleConfig{{Type: "nop"}})
	assert.NoError(t, err)
	assert.IsType(t, coremetrics.NopSink{}, s)

	s, err = coremetrics.NewPredictionSink([]factory.ModuleConfig{{Type: "prometheus"}, {Type: "nop"}})
	assert.NoError(t, err)
	assert.IsType(t, &coremetrics.MultiSink{}, s)

	_, err = coremetrics.NewPredictionSink([]factory.ModuleConfig{{Type: "statsd"}})
	assert.Error(t, err)
}
