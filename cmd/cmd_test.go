package cmd

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/eta/api/predict"
	"github.com/kilianp07/eta/core/inference"
	"github.com/kilianp07/eta/core/prediction"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := newRootCmd()
	var buf bytes.Buffer
	root.SetOut(&buf)
	root.SetErr(&buf)
	root.SetArgs(args)
	err := root.Execute()
	return buf.String(), err
}

func TestGenerateTrainPredict(t *testing.T) {
	dir := t.TempDir()
	data := filepath.Join(dir, "data", "fleet.csv")
	artifact := filepath.Join(dir, "model.json")
	html := filepath.Join(dir, "report.html")
	cfgPath := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("model:\n  path: "+artifact+"\n"), 0o600))

	out, err := execute(t, "generate", "--out", data, "--samples", "300", "--seed", "7")
	require.NoError(t, err)
	assert.Contains(t, out, "wrote 300 rows")

	out, err = execute(t, "train", "--data", data, "--out", artifact, "--algorithm", "linear", "--report", html)
	require.NoError(t, err)
	assert.Contains(t, out, "(linear) saved to "+artifact)
	page, err := os.ReadFile(html)
	require.NoError(t, err)
	assert.Contains(t, string(page), "echarts")

	out, err = execute(t, "predict", "--config", cfgPath,
		"--distance", "50", "--speed", "40", "--traffic", "High", "--battery", "80", "--fuel", "60")
	require.NoError(t, err)
	assert.Contains(t, out, `"predicted_eta":`)

	out, err = execute(t, "predict", "--config", cfgPath,
		"--distance", "50", "--speed=-5", "--traffic", "0.5", "--battery", "80", "--fuel", "60")
	require.Error(t, err)
	assert.Contains(t, out, `"error":`)
	assert.Contains(t, out, "avgSpeed")
}

func TestTrain_UnknownAlgorithm(t *testing.T) {
	_, err := execute(t, "train", "--data", "missing.csv", "--algorithm", "forest")
	assert.Error(t, err)
}

func TestPredict_Remote(t *testing.T) {
	engine := &prediction.MockEngine{ETA: 42.123}
	mux := http.NewServeMux()
	mux.Handle(predict.Path, predict.NewHandler(inference.NewHandler(engine), 1<<20))
	srv := httptest.NewServer(mux)
	defer srv.Close()

	out, err := execute(t, "predict", "--url", srv.URL,
		"--distance", "10", "--speed", "60", "--traffic", "Low", "--battery", "50", "--fuel", "40")
	require.NoError(t, err)
	assert.Contains(t, out, `{"predicted_eta":42.12}`)
	require.Len(t, engine.Calls(), 1)
	assert.Equal(t, 0.2, engine.Calls()[0][2])
}

func TestPredict_BadTraffic(t *testing.T) {
	_, err := execute(t, "predict", "--distance", "10", "--speed", "60", "--traffic", "Jam", "--battery", "50", "--fuel", "40")
	assert.ErrorContains(t, err, "Jam")
}

func TestConfig(t *testing.T) {
	t.Setenv("K_API__TOKEN", "hunter2")
	out, err := execute(t, "config")
	require.NoError(t, err)
	assert.Contains(t, out, "server:")
	assert.Contains(t, out, "5001")
	assert.Contains(t, out, redacted)
	assert.NotContains(t, out, "hunter2")

	out, err = execute(t, "config", "--validate")
	require.NoError(t, err)
	assert.Contains(t, out, "configuration is valid")

	t.Setenv("K_TRAINING__ALGORITHM", "forest")
	_, err = execute(t, "config", "--validate")
	assert.Error(t, err)
}
