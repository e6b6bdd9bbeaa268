package test

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"path/filepath"
	"strings"
	"testing"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/eta/api/predict"
	"github.com/kilianp07/eta/app"
	"github.com/kilianp07/eta/config"
	"github.com/kilianp07/eta/core/dataset"
	"github.com/kilianp07/eta/core/factory"
	"github.com/kilianp07/eta/core/training"
	"github.com/kilianp07/eta/infra/modelstore"
	"github.com/kilianp07/eta/test/util"
)

const tripBody = `{"distanceKm": 42, "avgSpeed": 55, "trafficLevel": "Medium", "batteryLevel": 70, "fuelLevel": 30}`

// trainedConfig trains a small gradient boosting model and returns a config
// serving it on free local ports.
func trainedConfig(t *testing.T) *config.Config {
	t.Helper()
	gen := dataset.DefaultGeneratorConfig()
	gen.Samples = 400
	rows, err := dataset.Generate(gen)
	require.NoError(t, err)
	tc := training.DefaultConfig()
	tc.GBRT.NEstimators = 40
	tc.GBRT.MaxDepth = 4
	m, meta, err := training.Train(rows, tc)
	require.NoError(t, err)

	cfg := config.Default()
	cfg.Model.Path = filepath.Join(t.TempDir(), "eta_model.json")
	require.NoError(t, modelstore.NewFileStore(cfg.Model.Path).Save(m, meta))
	cfg.Server.Address = freeAddr(t)
	return cfg
}

func freeAddr(t *testing.T) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()
	return ln.Addr().String()
}

// runService starts svc in the background and stops it when the test ends.
func runService(t *testing.T, cfg *config.Config) *app.Service {
	t.Helper()
	svc, err := app.New(cfg)
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- svc.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		if err := <-done; err != nil {
			t.Errorf("run: %v", err)
		}
		_ = svc.Close()
	})

	waitCtx, waitCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer waitCancel()
	require.NoError(t, util.WaitForHTTP(waitCtx, fmt.Sprintf("http://%s%s", cfg.Server.Address, app.PathReadiness)))
	return svc
}

func TestMetricsHTTPExposure(t *testing.T) {
	cfg := trainedConfig(t)
	cfg.Metrics.Sinks = []factory.ModuleConfig{{Type: "prometheus"}}
	cfg.Metrics.PrometheusAddress = freeAddr(t)
	runService(t, cfg)

	resp, err := http.Post("http://"+cfg.Server.Address+predict.Path, "application/json", strings.NewReader(tripBody))
	require.NoError(t, err)
	var body map[string]float64
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Greater(t, body["predicted_eta"], 0.0)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	metricsURL := "http://" + cfg.Metrics.PrometheusAddress + "/metrics"
	require.NoError(t, util.WaitForMetric(ctx, metricsURL, `eta_predictions_total{outcome="success",source="http"}`))
	require.NoError(t, util.WaitForMetric(ctx, metricsURL, "eta_predicted_minutes_count"))
}

func TestMQTTRequestReply(t *testing.T) {
	util.RequireDocker(t)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()
	broker, cleanup, err := util.StartMosquitto(ctx)
	if err != nil {
		t.Skipf("mosquitto unavailable: %v", err)
	}
	defer cleanup()

	cfg := trainedConfig(t)
	cfg.MQTT.Enabled = true
	cfg.MQTT.Broker = broker
	cfg.MQTT.ClientID = "eta-e2e"
	runService(t, cfg)

	replies := make(chan paho.Message, 2)
	opts := paho.NewClientOptions().AddBroker(broker).SetClientID("eta-e2e-caller")
	cli := paho.NewClient(opts)
	tok := cli.Connect()
	require.True(t, tok.WaitTimeout(10*time.Second))
	require.NoError(t, tok.Error())
	defer cli.Disconnect(100)

	tok = cli.Subscribe(cfg.MQTT.ResponsePrefix+"/+", 1, func(_ paho.Client, m paho.Message) { replies <- m })
	require.True(t, tok.WaitTimeout(10*time.Second))
	require.NoError(t, tok.Error())

	// The service subscribes after connecting; retry until it answers.
	var msg paho.Message
	require.Eventually(t, func() bool {
		cli.Publish("eta/request/trip-1", 1, false, tripBody).WaitTimeout(time.Second)
		select {
		case msg = <-replies:
			return true
		case <-time.After(500 * time.Millisecond):
			return false
		}
	}, 20*time.Second, 10*time.Millisecond)

	assert.Equal(t, cfg.MQTT.ResponsePrefix+"/trip-1", msg.Topic())
	var body map[string]any
	require.NoError(t, json.Unmarshal(msg.Payload(), &body))
	assert.Contains(t, body, "predicted_eta")
}
