package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/kilianp07/eta/api/auth"
	"github.com/kilianp07/eta/api/health"
	"github.com/kilianp07/eta/api/modelinfo"
	"github.com/kilianp07/eta/api/predict"
	"github.com/kilianp07/eta/api/predictions"
	"github.com/kilianp07/eta/config"
	"github.com/kilianp07/eta/core/inference"
	coremetrics "github.com/kilianp07/eta/core/metrics"
	coremon "github.com/kilianp07/eta/core/monitoring"
	"github.com/kilianp07/eta/core/prediction"
	"github.com/kilianp07/eta/infra/amqp"
	"github.com/kilianp07/eta/infra/logger"
	"github.com/kilianp07/eta/infra/metrics"
	"github.com/kilianp07/eta/infra/modelstore"
	"github.com/kilianp07/eta/infra/monitoring"
	"github.com/kilianp07/eta/infra/mqtt"
	"github.com/kilianp07/eta/infra/predictionlog"
	"github.com/kilianp07/eta/internal/eventbus"
)

// Routes served next to the prediction endpoint.
const (
	PathLiveness       = "/healthz"
	PathReadiness      = "/readyz"
	PathModel          = "/api/model"
	PathPredictionLogs = "/api/predictions/logs"
	PathStream         = "/ws/predictions"
)

// recordTimeout bounds a single prediction log append.
const recordTimeout = 2 * time.Second

// Service wires the predictor, the transports and the observation sinks.
type Service struct {
	cfg       *config.Config
	log       logger.Logger
	predictor *prediction.Predictor
	handler   *inference.Handler
	mux       *http.ServeMux

	bus           *eventbus.Bus[coremetrics.PredictionEvent]
	sink          *coremetrics.MultiSink
	hub           *predictions.Hub
	cancelCollect context.CancelFunc
	collectorDone <-chan struct{}

	ready     atomic.Bool
	closeOnce sync.Once
	closeErr  error
}

// New installs the Sentry monitor when a DSN is configured, loads the model
// and builds the service. A model that cannot be loaded aborts startup before
// any sink or transport is created.
func New(cfg *config.Config) (*Service, error) {
	log := logger.New("service")

	if cfg.Sentry.DSN != "" {
		mon, err := monitoring.NewSentryMonitor(cfg.Sentry)
		if err != nil {
			return nil, err
		}
		coremon.Init(mon)
	}

	predictor, err := prediction.NewPredictor(modelstore.NewFileStore(cfg.Model.Path))
	if err != nil {
		coremon.CaptureException(err, map[string]string{"stage": "startup"})
		return nil, err
	}
	meta := predictor.Info()
	log.Infof("model %s (%s) loaded from %s", meta.ID, meta.Kind, cfg.Model.Path)

	configured, err := coremetrics.NewPredictionSink(cfg.Metrics.Sinks)
	if err != nil {
		return nil, fmt.Errorf("metrics sinks: %w", err)
	}
	sinks := []coremetrics.PredictionSink{configured}

	store, err := predictionlog.Open(cfg.PredictionLog)
	if err != nil {
		if c, ok := configured.(coremetrics.Closer); ok {
			if cerr := c.Close(); cerr != nil {
				log.Warnf("close metrics sink: %v", cerr)
			}
		}
		return nil, fmt.Errorf("prediction log: %w", err)
	}
	if store != nil {
		sinks = append(sinks, predictionlog.NewRecorder(store, recordTimeout))
		log.Infof("prediction log enabled (%s)", cfg.PredictionLog.Backend)
	}

	hub := predictions.NewHub(cfg.API.StreamBuffer, logger.New("stream"))
	sinks = append(sinks, hub)

	s := &Service{
		cfg:       cfg,
		log:       log,
		predictor: predictor,
		bus:       eventbus.New[coremetrics.PredictionEvent](eventbus.DefaultBuffer),
		sink:      coremetrics.NewMultiSink(sinks...),
		hub:       hub,
	}
	s.handler = inference.NewHandler(predictor, inference.WithPublisher(s.bus))

	ctx, cancel := context.WithCancel(context.Background())
	s.cancelCollect = cancel
	s.collectorDone = metrics.StartEventCollector(ctx, s.bus, s.sink, logger.New("collector"))

	verifier := auth.NewVerifier(cfg.API)
	mux := http.NewServeMux()
	mux.Handle(predict.Path, predict.NewHandler(s.handler, cfg.Server.MaxBodyBytes))
	mux.Handle(PathLiveness, health.NewLivenessHandler())
	mux.Handle(PathReadiness, health.NewReadinessHandler(s.ready.Load))
	mux.Handle(PathModel, modelinfo.NewHandler(predictor))
	mux.Handle(PathPredictionLogs, verifier.Middleware(predictions.NewLogHandler(store)))
	mux.Handle(PathStream, verifier.Middleware(hub))
	s.mux = mux

	s.ready.Store(true)
	return s, nil
}

// Handler returns the HTTP routes of the service.
func (s *Service) Handler() http.Handler { return s.mux }

// Inference returns the request handler shared by every transport.
func (s *Service) Inference() *inference.Handler { return s.handler }

// Ready reports whether the service accepts predictions.
func (s *Service) Ready() bool { return s.ready.Load() }

// Run serves HTTP and the enabled message transports until ctx is canceled,
// then shuts them down gracefully.
func (s *Service) Run(ctx context.Context) error {
	var transports []func() error
	defer func() {
		for _, stop := range transports {
			if err := stop(); err != nil {
				s.log.Errorf("transport close: %v", err)
			}
		}
	}()

	if s.cfg.MQTT.Enabled {
		srv, err := mqtt.NewServer(s.cfg.MQTT, s.handler)
		if err != nil {
			return fmt.Errorf("mqtt: %w", err)
		}
		transports = append(transports, srv.Close)
		s.log.Infof("mqtt transport subscribed to %s on %s", s.cfg.MQTT.RequestTopic, s.cfg.MQTT.Broker)
	}
	if s.cfg.AMQP.Enabled {
		srv, err := amqp.NewServer(s.cfg.AMQP, s.handler)
		if err != nil {
			return fmt.Errorf("amqp: %w", err)
		}
		transports = append(transports, srv.Close)
		s.log.Infof("amqp transport consuming %s", s.cfg.AMQP.RequestQueue)
	}

	if addr := s.cfg.Metrics.PrometheusAddress; addr != "" {
		go func() {
			if err := metrics.StartPromServer(ctx, addr, nil); err != nil {
				s.log.Errorf("prom server: %v", err)
			}
		}()
	}

	srv := &http.Server{
		Addr:              s.cfg.Server.Address,
		Handler:           s.mux,
		ReadTimeout:       s.cfg.Server.ReadTimeout(),
		ReadHeaderTimeout: s.cfg.Server.ReadTimeout(),
		WriteTimeout:      s.cfg.Server.WriteTimeout(),
	}
	errCh := make(chan error, 1)
	go func() {
		s.log.Infof("listening on %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			coremon.CaptureException(err, map[string]string{"stage": "listen"})
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	s.ready.Store(false)
	s.log.Infof("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.Server.ShutdownTimeout())
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http shutdown: %w", err)
	}
	return nil
}

// Close drains pending observation events and releases the sinks. It is safe
// to call more than once.
func (s *Service) Close() error {
	s.closeOnce.Do(func() {
		s.ready.Store(false)
		s.bus.Close()
		select {
		case <-s.collectorDone:
		case <-time.After(s.cfg.Server.ShutdownTimeout()):
			s.log.Warnf("collector did not drain within %s", s.cfg.Server.ShutdownTimeout())
		}
		s.cancelCollect()
		s.closeErr = s.sink.Close()
		coremon.Flush(2 * time.Second)
	})
	return s.closeErr
}
