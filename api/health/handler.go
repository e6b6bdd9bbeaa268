// Package health serves liveness and readiness probes.
package health

import (
	"encoding/json"
	"net/http"
)

// NewLivenessHandler answers 200 while the process is serving.
func NewLivenessHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		write(w, http.StatusOK, "ok")
	})
}

// NewReadinessHandler answers 200 once ready reports true and 503 before.
func NewReadinessHandler(ready func() bool) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if ready == nil || !ready() {
			write(w, http.StatusServiceUnavailable, "not ready")
			return
		}
		write(w, http.StatusOK, "ready")
	})
}

func write(w http.ResponseWriter, code int, status string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(map[string]string{"status": status})
}
