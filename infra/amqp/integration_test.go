package amqp

import (
	"context"
	"testing"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/eta/config"
	"github.com/kilianp07/eta/core/inference"
	"github.com/kilianp07/eta/core/prediction"
	"github.com/kilianp07/eta/test/util"
)

func TestServer_RabbitMQ(t *testing.T) {
	util.RequireDocker(t)
	if testing.Short() {
		t.Skip("skipping container test in short mode")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()
	url, cleanup, err := util.StartRabbitMQ(ctx)
	if err != nil {
		t.Skipf("rabbitmq not available: %v", err)
	}
	defer cleanup()

	cfg := config.AMQPConfig{Enabled: true, URL: url}
	cfg.SetDefaults()
	srv, err := NewServer(cfg, inference.NewHandler(&prediction.MockEngine{ETA: 21.5}))
	require.NoError(t, err)
	defer func() { _ = srv.Close() }()

	conn, err := amqp.Dial(url)
	require.NoError(t, err)
	defer func() { _ = conn.Close() }()
	ch, err := conn.Channel()
	require.NoError(t, err)

	// Direct reply-to needs the consumer before the publish.
	replies, err := ch.Consume("amq.rabbitmq.reply-to", "", true, false, false, false, nil)
	require.NoError(t, err)
	err = ch.PublishWithContext(ctx, "", cfg.RequestQueue, false, false, amqp.Publishing{
		ContentType:   "application/json",
		CorrelationId: "rpc-1",
		ReplyTo:       "amq.rabbitmq.reply-to",
		Body:          []byte(validBody),
	})
	require.NoError(t, err)

	select {
	case d := <-replies:
		assert.Equal(t, "rpc-1", d.CorrelationId)
		assert.JSONEq(t, `{"predicted_eta": 21.5}`, string(d.Body))
	case <-ctx.Done():
		t.Fatal("no reply received")
	}
}
