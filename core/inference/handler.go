// Package inference turns an untyped request payload into an ETA reply. It is
// shared by every transport (HTTP, MQTT, AMQP, the CLI) so that they all apply
// the same validation, rounding and failure semantics.
package inference

import (
	"context"
	"errors"
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/kilianp07/eta/core/features"
	"github.com/kilianp07/eta/core/metrics"
	"github.com/kilianp07/eta/core/monitoring"
	"github.com/kilianp07/eta/core/prediction"
)

// Status classifies a Response for transports that map it to a code.
type Status int

const (
	StatusOK Status = iota
	// StatusClientError covers every failure, validation and model alike.
	StatusClientError
)

// Response is the reply to one request. Exactly one of PredictedETA and
// Error is set.
type Response struct {
	ID           string   `json:"-"`
	PredictedETA *float64 `json:"predicted_eta,omitempty"`
	Error        string   `json:"error,omitempty"`
	Status       Status   `json:"-"`
}

// OK reports whether the request succeeded.
func (r Response) OK() bool { return r.Status == StatusOK }

// Publisher receives one event per handled request. Implementations must not
// block.
type Publisher interface {
	Publish(ev metrics.PredictionEvent)
}

type nopPublisher struct{}

func (nopPublisher) Publish(metrics.PredictionEvent) {}

// Option configures a Handler.
type Option func(*Handler)

// WithPublisher sets where prediction events are sent.
func WithPublisher(p Publisher) Option {
	return func(h *Handler) {
		if p != nil {
			h.pub = p
		}
	}
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(h *Handler) { h.now = now }
}

// Handler runs validation, prediction and response shaping.
type Handler struct {
	engine prediction.Engine
	pub    Publisher
	now    func() time.Time
}

// NewHandler returns a handler predicting with engine.
func NewHandler(engine prediction.Engine, opts ...Option) *Handler {
	h := &Handler{engine: engine, pub: nopPublisher{}, now: time.Now}
	for _, o := range opts {
		o(h)
	}
	return h
}

type sourceKey struct{}

// WithSource tags ctx with the transport name reported in prediction events.
func WithSource(ctx context.Context, source string) context.Context {
	return context.WithValue(ctx, sourceKey{}, source)
}

func sourceFrom(ctx context.Context) string {
	if s, ok := ctx.Value(sourceKey{}).(string); ok {
		return s
	}
	return "unknown"
}

// Handle validates payload, predicts and formats the reply. The engine is
// not called when validation fails. Handle never panics on bad input.
func (h *Handler) Handle(ctx context.Context, payload map[string]any) Response {
	start := h.now()
	ev := metrics.PredictionEvent{
		ID:     uuid.NewString(),
		Time:   start.UTC(),
		Source: sourceFrom(ctx),
	}
	resp := h.handle(ctx, payload, &ev)
	resp.ID = ev.ID
	ev.Duration = h.now().Sub(start)
	h.pub.Publish(ev)
	return resp
}

func (h *Handler) handle(ctx context.Context, payload map[string]any, ev *metrics.PredictionEvent) Response {
	tf, err := features.Parse(payload)
	if err != nil {
		ev.Outcome = metrics.OutcomeInvalid
		ev.Error = err.Error()
		return failure(err)
	}
	ev.Features = &tf

	if err := ctx.Err(); err != nil {
		ev.Outcome = metrics.OutcomeError
		ev.Error = err.Error()
		return failure(err)
	}

	eta, err := h.engine.Predict(tf.Vector())
	if err != nil {
		ev.Outcome = metrics.OutcomeError
		ev.Error = err.Error()
		if errors.Is(err, prediction.ErrPrediction) {
			monitoring.CaptureException(err, map[string]string{"component": "inference", "source": ev.Source})
		}
		return failure(err)
	}
	eta = Round2(math.Max(0, eta))
	ev.Outcome = metrics.OutcomeSuccess
	ev.ETA = eta
	return Response{PredictedETA: &eta, Status: StatusOK}
}

// Reject answers a request whose body could not be decoded into a payload.
// It is observed like a validation failure.
func (h *Handler) Reject(ctx context.Context, err error) Response {
	start := h.now()
	ev := metrics.PredictionEvent{
		ID:      uuid.NewString(),
		Time:    start.UTC(),
		Source:  sourceFrom(ctx),
		Outcome: metrics.OutcomeInvalid,
		Error:   err.Error(),
	}
	resp := failure(err)
	resp.ID = ev.ID
	h.pub.Publish(ev)
	return resp
}

func failure(err error) Response {
	return Response{Error: err.Error(), Status: StatusClientError}
}

// Round2 rounds x half away from zero to two decimals. Values too large to
// scale are returned unchanged.
func Round2(x float64) float64 {
	scaled := x * 100
	if math.IsInf(scaled, 0) || math.IsNaN(scaled) {
		return x
	}
	return math.Round(scaled) / 100
}
