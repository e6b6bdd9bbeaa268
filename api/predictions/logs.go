// Package predictions exposes served predictions to operators: the audit log
// query and a live websocket feed.
package predictions

import (
	"encoding/json"
	"fmt"
	"net/http"
	"slices"
	"strconv"
	"time"

	"github.com/kilianp07/eta/core/metrics"
	"github.com/kilianp07/eta/infra/predictionlog"
)

// MaxLimit caps the limit query parameter.
const MaxLimit = 1000

// NewLogHandler returns an HTTP handler exposing the audit log via
// GET /api/predictions/logs?start=&end=&outcome=&limit=. Times are RFC3339.
// A nil store answers 404.
func NewLogHandler(store predictionlog.Store) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		if store == nil {
			http.Error(w, "prediction log disabled", http.StatusNotFound)
			return
		}
		q, err := parseQuery(r)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		records, err := store.Query(r.Context(), q)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		if records == nil {
			records = []predictionlog.Record{}
		}
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(records); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
	})
}

func parseQuery(r *http.Request) (predictionlog.Query, error) {
	v := r.URL.Query()
	q := predictionlog.Query{}
	for _, p := range []struct {
		key string
		dst *time.Time
	}{{"start", &q.Start}, {"end", &q.End}} {
		if s := v.Get(p.key); s != "" {
			t, err := time.Parse(time.RFC3339, s)
			if err != nil {
				return q, fmt.Errorf("invalid %s: %w", p.key, err)
			}
			*p.dst = t
		}
	}
	if s := v.Get("outcome"); s != "" {
		o := metrics.Outcome(s)
		if !slices.Contains(metrics.Outcomes, o) {
			return q, fmt.Errorf("unknown outcome %q", s)
		}
		q.Outcome = o
	}
	if s := v.Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n <= 0 {
			return q, fmt.Errorf("invalid limit %q", s)
		}
		q.Limit = min(n, MaxLimit)
	}
	return q, nil
}
