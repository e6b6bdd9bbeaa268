package mqtt

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"

	"github.com/kilianp07/eta/config"
	"github.com/kilianp07/eta/core/inference"
	"github.com/kilianp07/eta/core/monitoring"
	"github.com/kilianp07/eta/infra/logger"
)

// Source is the transport name attached to prediction events.
const Source = "mqtt"

// Server answers ETA requests received over MQTT.
type Server struct {
	cli     pahoClient
	handler *inference.Handler
	cfg     config.MQTTConfig
	log     logger.Logger

	maxRetries int
	backoff    time.Duration

	wg     sync.WaitGroup
	mu     sync.Mutex
	closed bool
}

// NewServer connects to the broker and subscribes to the request topic. The
// subscription is renewed on every reconnect.
func NewServer(cfg config.MQTTConfig, h *inference.Handler) (*Server, error) {
	if h == nil {
		return nil, errors.New("nil inference handler")
	}
	opts, err := NewClientOptions(cfg)
	if err != nil {
		return nil, err
	}

	log := logger.New("mqtt")
	s := &Server{
		handler:    h,
		cfg:        cfg,
		log:        log,
		maxRetries: max(cfg.MaxRetries, 0),
		backoff:    time.Duration(cfg.BackoffMS) * time.Millisecond,
	}
	if s.backoff <= 0 {
		s.backoff = 100 * time.Millisecond
	}

	opts.OnConnect = func(c paho.Client) {
		log.Infof("MQTT connected")
		if token := c.Subscribe(cfg.RequestTopic, cfg.QoS, s.onRequest); token.Wait() && token.Error() != nil {
			log.Errorf("subscribe error: %v", token.Error())
			monitoring.CaptureException(token.Error(), map[string]string{"component": "mqtt", "topic": cfg.RequestTopic})
			return
		}
		if cfg.StatusTopic != "" {
			c.Publish(cfg.StatusTopic, 1, true, StatusOnline)
		}
	}
	opts.OnConnectionLost = func(_ paho.Client, err error) {
		log.Errorf("connection lost: %v", err)
	}
	opts.OnReconnecting = func(_ paho.Client, _ *paho.ClientOptions) {
		log.Warnf("reconnecting to MQTT broker")
	}
	// Requests may arrive from OnConnect before Connect returns.
	s.cli = newMQTTClient(opts)
	if token := s.cli.Connect(); token.Wait() && token.Error() != nil {
		return nil, token.Error()
	}
	return s, nil
}

// CorrelationID returns the last level of topic.
func CorrelationID(topic string) string {
	i := strings.LastIndexByte(topic, '/')
	return topic[i+1:]
}

// ReplyTopic is where the reply to a request with id is published.
func (s *Server) ReplyTopic(id string) string {
	return strings.TrimSuffix(s.cfg.ResponsePrefix, "/") + "/" + id
}

func (s *Server) onRequest(_ paho.Client, msg paho.Message) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.wg.Add(1)
	s.mu.Unlock()
	defer s.wg.Done()
	defer monitoring.Recover()

	id := CorrelationID(msg.Topic())
	if id == "" {
		s.log.Warnf("request on %q has no correlation id", msg.Topic())
		return
	}
	ctx := inference.WithSource(context.Background(), Source)
	var resp inference.Response
	payload, err := inference.DecodePayload(bytes.NewReader(msg.Payload()))
	if err != nil {
		resp = s.handler.Reject(ctx, err)
	} else {
		resp = s.handler.Handle(ctx, payload)
	}
	body, err := json.Marshal(resp)
	if err != nil {
		s.log.Errorf("encode reply %s: %v", id, err)
		return
	}
	if err := s.publish(s.ReplyTopic(id), body); err != nil {
		monitoring.CaptureException(err, map[string]string{"component": "mqtt", "correlation_id": id})
	}
}

func (s *Server) publish(topic string, payload []byte) error {
	var publishErr error
	for attempt := 0; attempt <= s.maxRetries; attempt++ {
		token := s.cli.Publish(topic, s.cfg.QoS, false, payload)
		token.Wait()
		publishErr = token.Error()
		if publishErr == nil {
			s.log.Debugw("reply sent", map[string]any{"topic": topic})
			return nil
		}
		s.log.Errorf("publish attempt %d failed: %v", attempt+1, publishErr)
		if attempt < s.maxRetries {
			time.Sleep(s.backoff * time.Duration(1<<attempt))
		}
	}
	return fmt.Errorf("publish %s: %w", topic, publishErr)
}

// Close stops accepting requests, waits for in-flight replies, marks the
// service offline and disconnects.
func (s *Server) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()
	s.wg.Wait()

	if s.cli != nil && s.cli.IsConnected() {
		if s.cfg.StatusTopic != "" {
			token := s.cli.Publish(s.cfg.StatusTopic, 1, true, StatusOffline)
			token.WaitTimeout(time.Second)
		}
		s.cli.Disconnect(250)
	}
	return nil
}
