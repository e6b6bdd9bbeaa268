// Package amqp serves ETA predictions over AMQP 0-9-1 in RPC style: requests
// are consumed from a durable queue and answered on the reply_to queue with
// the request's correlation id.
package amqp

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/kilianp07/eta/config"
	"github.com/kilianp07/eta/core/inference"
	"github.com/kilianp07/eta/core/monitoring"
	"github.com/kilianp07/eta/infra/logger"
)

// Source is the transport name attached to prediction events.
const Source = "amqp"

const (
	consumerTag    = "eta-service"
	publishTimeout = 5 * time.Second
)

// Server consumes prediction requests and publishes replies. It reconnects
// with a fixed delay whenever the broker connection drops.
type Server struct {
	cfg     config.AMQPConfig
	handler *inference.Handler
	log     logger.Logger

	mu   sync.Mutex
	conn connection

	done      chan struct{}
	closeOnce sync.Once
	wg        sync.WaitGroup
}

type session struct {
	conn       connection
	ch         channel
	deliveries <-chan amqp.Delivery
	closed     chan *amqp.Error
}

// NewServer connects, declares the request queue and starts consuming. The
// first connection must succeed.
func NewServer(cfg config.AMQPConfig, h *inference.Handler) (*Server, error) {
	if h == nil {
		return nil, errors.New("nil inference handler")
	}
	s := &Server{
		cfg:     cfg,
		handler: h,
		log:     logger.New("amqp"),
		done:    make(chan struct{}),
	}
	sess, err := s.connect()
	if err != nil {
		return nil, err
	}
	s.log.Infof("consuming %s", cfg.RequestQueue)
	s.wg.Add(1)
	go s.run(sess)
	return s, nil
}

func (s *Server) connect() (*session, error) {
	conn, err := dial(s.cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("dial: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		return nil, errors.Join(fmt.Errorf("channel: %w", err), conn.Close())
	}
	if err := ch.Qos(s.cfg.Prefetch, 0, false); err != nil {
		return nil, errors.Join(fmt.Errorf("qos: %w", err), conn.Close())
	}
	if _, err := ch.QueueDeclare(s.cfg.RequestQueue, true, false, false, false, nil); err != nil {
		return nil, errors.Join(fmt.Errorf("declare %s: %w", s.cfg.RequestQueue, err), conn.Close())
	}
	deliveries, err := ch.Consume(s.cfg.RequestQueue, consumerTag, false, false, false, false, nil)
	if err != nil {
		return nil, errors.Join(fmt.Errorf("consume %s: %w", s.cfg.RequestQueue, err), conn.Close())
	}
	sess := &session{
		conn:       conn,
		ch:         ch,
		deliveries: deliveries,
		closed:     conn.NotifyClose(make(chan *amqp.Error, 1)),
	}
	s.mu.Lock()
	s.conn = conn
	s.mu.Unlock()
	return sess, nil
}

func (s *Server) run(sess *session) {
	defer s.wg.Done()
	defer monitoring.Recover()
	for {
		s.serve(sess)
		select {
		case <-s.done:
			_ = sess.conn.Close()
			return
		default:
		}
		s.log.Warnf("amqp session lost, reconnecting")
		// serve also returns on a channel-level close with the connection
		// still open.
		if err := sess.conn.Close(); err != nil && !errors.Is(err, amqp.ErrClosed) {
			s.log.Warnf("close stale connection: %v", err)
		}
		sess = s.reconnect()
		if sess == nil {
			return
		}
		s.log.Infof("amqp reconnected")
	}
}

func (s *Server) reconnect() *session {
	for {
		select {
		case <-s.done:
			return nil
		case <-time.After(s.cfg.ReconnectDelay()):
		}
		sess, err := s.connect()
		if err == nil {
			return sess
		}
		s.log.Errorf("amqp reconnect: %v", err)
	}
}

func (s *Server) serve(sess *session) {
	for {
		select {
		case <-s.done:
			return
		case err := <-sess.closed:
			if err != nil {
				s.log.Errorf("amqp connection closed: %v", err)
			}
			return
		case d, ok := <-sess.deliveries:
			if !ok {
				return
			}
			s.handle(sess.ch, d)
		}
	}
}

func (s *Server) handle(ch channel, d amqp.Delivery) {
	ctx := inference.WithSource(context.Background(), Source)
	var resp inference.Response
	payload, err := inference.DecodePayload(bytes.NewReader(d.Body))
	if err != nil {
		resp = s.handler.Reject(ctx, err)
	} else {
		resp = s.handler.Handle(ctx, payload)
	}

	if d.ReplyTo != "" {
		if err := s.reply(ctx, ch, d, resp); err != nil {
			s.log.Errorf("reply to %s: %v", d.ReplyTo, err)
			monitoring.CaptureException(err, map[string]string{"component": "amqp", "reply_to": d.ReplyTo})
			// One redelivery, then drop.
			if err := d.Nack(false, !d.Redelivered); err != nil {
				s.log.Errorf("nack: %v", err)
			}
			return
		}
	}
	if err := d.Ack(false); err != nil {
		s.log.Errorf("ack: %v", err)
	}
}

func (s *Server) reply(ctx context.Context, ch channel, d amqp.Delivery, resp inference.Response) error {
	body, err := json.Marshal(resp)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()
	return ch.PublishWithContext(ctx, "", d.ReplyTo, false, false, amqp.Publishing{
		ContentType:   "application/json",
		CorrelationId: d.CorrelationId,
		MessageId:     resp.ID,
		Timestamp:     time.Now().UTC(),
		Body:          body,
	})
}

// Close stops consuming and closes the connection.
func (s *Server) Close() error {
	var err error
	s.closeOnce.Do(func() {
		close(s.done)
		s.mu.Lock()
		conn := s.conn
		s.mu.Unlock()
		if conn != nil {
			err = conn.Close()
			if errors.Is(err, amqp.ErrClosed) {
				err = nil
			}
		}
		s.wg.Wait()
	})
	return err
}
