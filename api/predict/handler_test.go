package predict

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/eta/core/inference"
	"github.com/kilianp07/eta/core/model"
	"github.com/kilianp07/eta/core/prediction"
)

const validBody = `{"distanceKm": 50, "avgSpeed": 40, "trafficLevel": 0.8, "batteryLevel": 80, "fuelLevel": 60}`

func serve(t *testing.T, engine prediction.Engine, method, body string) *httptest.ResponseRecorder {
	t.Helper()
	h := NewHandler(inference.NewHandler(engine), 1024)
	req := httptest.NewRequest(method, Path, strings.NewReader(body))
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func decode(t *testing.T, rr *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &out))
	return out
}

func TestPredict_Success(t *testing.T) {
	engine := &prediction.MockEngine{ETA: 94.996}
	rr := serve(t, engine, http.MethodPost, validBody)

	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "application/json", rr.Header().Get("Content-Type"))
	assert.NotEmpty(t, rr.Header().Get("X-Request-ID"))
	assert.Equal(t, map[string]any{"predicted_eta": 95.0}, decode(t, rr))
	require.Len(t, engine.Calls(), 1)
	assert.Equal(t, model.Vector{50, 40, 0.8, 80, 60}, engine.Calls()[0])
}

func TestPredict_MissingField(t *testing.T) {
	engine := &prediction.MockEngine{ETA: 1}
	rr := serve(t, engine, http.MethodPost, `{"distanceKm": 50, "avgSpeed": 40, "trafficLevel": 0.8, "batteryLevel": 80}`)

	require.Equal(t, http.StatusBadRequest, rr.Code)
	out := decode(t, rr)
	assert.Contains(t, out["error"], "fuelLevel")
	assert.NotContains(t, out, "predicted_eta")
	assert.Empty(t, engine.Calls())
}

func TestPredict_ModelFailure(t *testing.T) {
	engine := &prediction.MockEngine{Err: errors.New("boom")}
	rr := serve(t, engine, http.MethodPost, validBody)
	require.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, "boom", decode(t, rr)["error"])
}

func TestPredict_BadBodies(t *testing.T) {
	bodies := map[string]string{
		"malformed":  `{"distanceKm":`,
		"array":      `[50, 40, 0.8, 80, 60]`,
		"empty":      ``,
		"too large":  `{"distanceKm": 50, "pad": "` + strings.Repeat("x", 2048) + `"}`,
		"string num": `{"distanceKm": "50", "avgSpeed": 40, "trafficLevel": 0.8, "batteryLevel": 80, "fuelLevel": 60}`,
	}
	for name, body := range bodies {
		engine := &prediction.MockEngine{ETA: 1}
		rr := serve(t, engine, http.MethodPost, body)
		assert.Equal(t, http.StatusBadRequest, rr.Code, name)
		assert.NotEmpty(t, decode(t, rr)["error"], name)
		assert.Empty(t, engine.Calls(), name)
	}

	rr := serve(t, &prediction.MockEngine{}, http.MethodPost, `{"pad": "`+strings.Repeat("x", 2048)+`"}`)
	assert.Equal(t, "request body too large", decode(t, rr)["error"])
}

func TestPredict_MethodNotAllowed(t *testing.T) {
	rr := serve(t, &prediction.MockEngine{}, http.MethodGet, "")
	assert.Equal(t, http.StatusMethodNotAllowed, rr.Code)
	assert.Equal(t, http.MethodPost, rr.Header().Get("Allow"))
}
