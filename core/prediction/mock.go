package prediction

import (
	"sync"

	"github.com/kilianp07/eta/core/model"
)

// MockEngine returns a fixed ETA or error and records every vector it sees.
type MockEngine struct {
	ETA float64
	Err error
	// Fn, when set, overrides ETA and Err.
	Fn func(model.Vector) (float64, error)

	mu    sync.Mutex
	calls []model.Vector
}

// Predict records v and returns the configured result.
func (m *MockEngine) Predict(v model.Vector) (float64, error) {
	m.mu.Lock()
	m.calls = append(m.calls, v)
	m.mu.Unlock()
	if m.Fn != nil {
		return m.Fn(v)
	}
	return m.ETA, m.Err
}

// Calls returns the vectors passed to Predict so far.
func (m *MockEngine) Calls() []model.Vector {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]model.Vector, len(m.calls))
	copy(out, m.calls)
	return out
}
