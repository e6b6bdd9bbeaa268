// Package predict exposes the inference handler over HTTP.
package predict

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/kilianp07/eta/core/inference"
)

// Path is the route of the prediction endpoint.
const Path = "/predict-eta"

// NewHandler returns an HTTP handler serving POST /predict-eta. Every failure
// is answered with 400 and {"error": msg}; the X-Request-ID header carries the
// prediction id.
func NewHandler(h *inference.Handler, maxBody int64) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			w.Header().Set("Allow", http.MethodPost)
			writeJSON(w, http.StatusMethodNotAllowed, inference.Response{Error: "method not allowed"})
			return
		}
		ctx := inference.WithSource(r.Context(), "http")
		body := r.Body
		if maxBody > 0 {
			body = http.MaxBytesReader(w, r.Body, maxBody)
		}

		var resp inference.Response
		payload, err := inference.DecodePayload(body)
		if err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				err = errors.New("request body too large")
			}
			resp = h.Reject(ctx, err)
		} else {
			resp = h.Handle(ctx, payload)
		}

		w.Header().Set("X-Request-ID", resp.ID)
		status := http.StatusOK
		if !resp.OK() {
			status = http.StatusBadRequest
		}
		writeJSON(w, status, resp)
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
