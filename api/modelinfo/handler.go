// Package modelinfo exposes metadata of the served model.
package modelinfo

import (
	"encoding/json"
	"net/http"

	"github.com/kilianp07/eta/core/regression"
)

// Source provides the metadata of the loaded model.
type Source interface {
	Info() regression.Metadata
}

// NewHandler returns an HTTP handler serving GET /api/model.
func NewHandler(src Source) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(src.Info()); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
	})
}
