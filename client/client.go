// Package client is a small Go client for the ETA service HTTP API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/kilianp07/eta/api/predict"
	"github.com/kilianp07/eta/core/model"
)

// DefaultTimeout bounds a single request when no http.Client is supplied.
const DefaultTimeout = 10 * time.Second

// APIError is returned when the service answers with a non-200 status.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("eta service returned status %d", e.StatusCode)
	}
	return fmt.Sprintf("eta service returned status %d: %s", e.StatusCode, e.Message)
}

// Option customises a Client.
type Option func(*Client)

// WithHTTPClient replaces the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithClientCredentials authenticates every request with a bearer token from
// the OAuth2 client-credentials grant.
func WithClientCredentials(cred Credentials) Option {
	return func(c *Client) { c.tokens = newTokenCache(cred) }
}

// Client calls POST /predict-eta on a running service.
type Client struct {
	endpoint string
	http     *http.Client
	tokens   *tokenCache
}

// New returns a client for the service at baseURL.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		endpoint: strings.TrimRight(baseURL, "/") + predict.Path,
		http:     &http.Client{Timeout: DefaultTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type etaResponse struct {
	PredictedETA *float64 `json:"predicted_eta"`
	Error        string   `json:"error"`
}

// PredictETA returns the predicted trip duration in minutes.
func (c *Client) PredictETA(ctx context.Context, f model.TripFeatures) (float64, error) {
	resp, err := c.post(ctx, f)
	if err != nil {
		return 0, err
	}
	// A rejected token gets one retry with a fresh one.
	if resp.StatusCode == http.StatusUnauthorized && c.tokens != nil {
		resp.Body.Close()
		c.tokens.Invalidate()
		if resp, err = c.post(ctx, f); err != nil {
			return 0, err
		}
	}
	defer resp.Body.Close()

	var out etaResponse
	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return 0, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		_ = json.Unmarshal(body, &out)
		return 0, &APIError{StatusCode: resp.StatusCode, Message: out.Error}
	}
	if err := json.Unmarshal(body, &out); err != nil {
		return 0, fmt.Errorf("error decoding response: %w", err)
	}
	if out.PredictedETA == nil {
		return 0, errors.New("response carries no predicted_eta")
	}
	return *out.PredictedETA, nil
}

func (c *Client) post(ctx context.Context, f model.TripFeatures) (*http.Response, error) {
	body, err := json.Marshal(f)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.tokens != nil {
		if err := c.tokens.SetAuthHeader(req); err != nil {
			return nil, err
		}
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("eta service request failed: %w", err)
	}
	return resp, nil
}
