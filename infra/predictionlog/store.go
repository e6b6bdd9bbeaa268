// Package predictionlog keeps an audit trail of served predictions and lets
// operators query it back.
package predictionlog

import (
	"context"
	"slices"
	"time"

	"github.com/kilianp07/eta/core/metrics"
	"github.com/kilianp07/eta/core/model"
)

// DefaultLimit caps Query results when no limit is given.
const DefaultLimit = 100

// Record is one logged prediction.
type Record struct {
	ID         string              `json:"id"`
	Timestamp  time.Time           `json:"timestamp"`
	Source     string              `json:"source"`
	Outcome    metrics.Outcome     `json:"outcome"`
	Features   *model.TripFeatures `json:"features,omitempty"`
	ETA        *float64            `json:"predicted_eta,omitempty"`
	Error      string              `json:"error,omitempty"`
	DurationMS float64             `json:"duration_ms"`
}

// FromEvent converts a prediction event into a log record.
func FromEvent(ev metrics.PredictionEvent) Record {
	r := Record{
		ID:         ev.ID,
		Timestamp:  ev.Time.UTC(),
		Source:     ev.Source,
		Outcome:    ev.Outcome,
		Error:      ev.Error,
		DurationMS: float64(ev.Duration.Microseconds()) / 1000,
	}
	if ev.Features != nil {
		f := *ev.Features
		r.Features = &f
	}
	if ev.Outcome == metrics.OutcomeSuccess {
		eta := ev.ETA
		r.ETA = &eta
	}
	return r
}

// Query filters records. Zero values mean no filter.
type Query struct {
	Start   time.Time
	End     time.Time
	Outcome metrics.Outcome
	Limit   int
}

func (q Query) limit() int {
	if q.Limit <= 0 {
		return DefaultLimit
	}
	return q.Limit
}

func (q Query) match(r Record) bool {
	if !q.Start.IsZero() && r.Timestamp.Before(q.Start) {
		return false
	}
	if !q.End.IsZero() && r.Timestamp.After(q.End) {
		return false
	}
	return q.Outcome == "" || r.Outcome == q.Outcome
}

// Store persists Records and supports querying. Query returns the newest
// matching records first.
type Store interface {
	Append(ctx context.Context, rec Record) error
	Query(ctx context.Context, q Query) ([]Record, error)
	Close() error
}

func newestFirst(recs []Record, limit int) []Record {
	slices.SortStableFunc(recs, func(a, b Record) int { return b.Timestamp.Compare(a.Timestamp) })
	if len(recs) > limit {
		recs = recs[:limit]
	}
	return recs
}
