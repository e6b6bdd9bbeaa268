package predictionlog

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/eta/core/metrics"
)

type mockStore struct{ mock.Mock }

func (m *mockStore) Append(ctx context.Context, rec Record) error {
	return m.Called(ctx, rec).Error(0)
}

func (m *mockStore) Query(ctx context.Context, q Query) ([]Record, error) {
	args := m.Called(ctx, q)
	recs, _ := args.Get(0).([]Record)
	return recs, args.Error(1)
}

func (m *mockStore) Close() error { return m.Called().Error(0) }

func TestRecorder(t *testing.T) {
	st := &mockStore{}
	ev := metrics.PredictionEvent{ID: "x", Time: base, Outcome: metrics.OutcomeInvalid, Error: "bad"}
	st.On("Append", mock.MatchedBy(func(ctx context.Context) bool {
		_, ok := ctx.Deadline()
		return ok
	}), FromEvent(ev)).Return(nil).Once()
	st.On("Close").Return(nil).Once()

	r := NewRecorder(st, time.Second)
	require.NoError(t, r.RecordPrediction(ev))
	require.NoError(t, r.Close())
	st.AssertExpectations(t)
}

func TestRecorder_PropagatesError(t *testing.T) {
	st := &mockStore{}
	st.On("Append", mock.Anything, mock.Anything).Return(errors.New("disk full"))
	r := NewRecorder(st, 0)
	assert.EqualError(t, r.RecordPrediction(metrics.PredictionEvent{ID: "y"}), "disk full")
}
