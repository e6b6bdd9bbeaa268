package predictions

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/kilianp07/eta/core/metrics"
	"github.com/kilianp07/eta/infra/predictionlog"
)

type memStore struct {
	recs []predictionlog.Record
	last predictionlog.Query
	err  error
}

func (m *memStore) Append(ctx context.Context, r predictionlog.Record) error {
	m.recs = append(m.recs, r)
	return nil
}

func (m *memStore) Query(ctx context.Context, q predictionlog.Query) ([]predictionlog.Record, error) {
	m.last = q
	if m.err != nil {
		return nil, m.err
	}
	var res []predictionlog.Record
	for _, r := range m.recs {
		if q.Outcome != "" && r.Outcome != q.Outcome {
			continue
		}
		res = append(res, r)
	}
	return res, nil
}

func (m *memStore) Close() error { return nil }

func get(h http.Handler, target string) *httptest.ResponseRecorder {
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest("GET", target, nil))
	return rr
}

func TestLogHandler_Filters(t *testing.T) {
	store := &memStore{}
	_ = store.Append(context.Background(), predictionlog.Record{ID: "a", Timestamp: time.Now(), Outcome: metrics.OutcomeSuccess})
	_ = store.Append(context.Background(), predictionlog.Record{ID: "b", Timestamp: time.Now(), Outcome: metrics.OutcomeInvalid})
	h := NewLogHandler(store)

	rr := get(h, "/api/predictions/logs?outcome=invalid&start=2025-01-01T00:00:00Z&limit=5000")
	if rr.Code != http.StatusOK {
		t.Fatalf("status %d", rr.Code)
	}
	var out []predictionlog.Record
	if err := json.Unmarshal(rr.Body.Bytes(), &out); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(out) != 1 || out[0].ID != "b" {
		t.Fatalf("unexpected records %+v", out)
	}
	if store.last.Limit != MaxLimit {
		t.Fatalf("limit not capped: %d", store.last.Limit)
	}
	if !store.last.Start.Equal(time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("start not parsed: %v", store.last.Start)
	}

	rr = get(h, "/api/predictions/logs?outcome=error")
	if rr.Body.String() != "[]\n" {
		t.Fatalf("expected empty array, got %q", rr.Body.String())
	}
}

func TestLogHandler_BadQuery(t *testing.T) {
	h := NewLogHandler(&memStore{})
	for _, q := range []string{"start=yesterday", "end=1", "outcome=maybe", "limit=0", "limit=x"} {
		if rr := get(h, "/api/predictions/logs?"+q); rr.Code != http.StatusBadRequest {
			t.Errorf("%s: expected 400 got %d", q, rr.Code)
		}
	}
}

func TestLogHandler_Errors(t *testing.T) {
	if rr := get(NewLogHandler(nil), "/api/predictions/logs"); rr.Code != http.StatusNotFound {
		t.Fatalf("nil store: expected 404 got %d", rr.Code)
	}
	if rr := get(NewLogHandler(&memStore{err: errors.New("db down")}), "/api/predictions/logs"); rr.Code != http.StatusInternalServerError {
		t.Fatalf("store error: expected 500 got %d", rr.Code)
	}
	rr := httptest.NewRecorder()
	NewLogHandler(&memStore{}).ServeHTTP(rr, httptest.NewRequest("DELETE", "/api/predictions/logs", nil))
	if rr.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405 got %d", rr.Code)
	}
}
