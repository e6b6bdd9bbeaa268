package config

import "errors"

// APIConfig guards the operator endpoints (audit log, live stream). The
// prediction endpoint itself is always open.
type APIConfig struct {
	// JWTSecret enables HS256 bearer tokens.
	JWTSecret string `json:"jwt_secret" yaml:"jwt_secret"`
	// Token is a static bearer token accepted alongside JWTs.
	Token string `json:"token" yaml:"token"`
	// StreamBuffer is the per-client queue of the live prediction stream.
	StreamBuffer int `json:"stream_buffer" yaml:"stream_buffer"`
}

func (c *APIConfig) SetDefaults() {
	if c.StreamBuffer == 0 {
		c.StreamBuffer = 64
	}
}

func (c APIConfig) Validate() error {
	if c.StreamBuffer < 0 {
		return errors.New("stream_buffer must be positive")
	}
	return nil
}

// AuthEnabled reports whether operator endpoints require a bearer token.
func (c APIConfig) AuthEnabled() bool { return c.JWTSecret != "" || c.Token != "" }
