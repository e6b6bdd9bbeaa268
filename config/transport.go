package config

import (
	"crypto/tls"
	"errors"
	"strings"
	"time"
)

// MQTTConfig configures the MQTT request/reply transport.
type MQTTConfig struct {
	Enabled        bool   `json:"enabled" yaml:"enabled"`
	Broker         string `json:"broker" yaml:"broker"`
	ClientID       string `json:"client_id" yaml:"client_id"`
	Username       string `json:"username" yaml:"username"`
	Password       string `json:"password" yaml:"password"`
	RequestTopic   string `json:"request_topic" yaml:"request_topic"`
	ResponsePrefix string `json:"response_prefix" yaml:"response_prefix"`
	QoS            byte   `json:"qos" yaml:"qos"`
	UseTLS         bool   `json:"use_tls" yaml:"use_tls"`
	ClientCert     string `json:"client_cert" yaml:"client_cert"`
	ClientKey      string `json:"client_key" yaml:"client_key"`
	CABundle       string `json:"ca_bundle" yaml:"ca_bundle"`
	// StatusTopic receives "online" after connect and "offline" as last will.
	StatusTopic string      `json:"status_topic" yaml:"status_topic"`
	MaxRetries  int         `json:"max_retries" yaml:"max_retries"`
	BackoffMS   int         `json:"backoff_ms" yaml:"backoff_ms"`
	TLSConfig   *tls.Config `json:"-" yaml:"-"`
}

func (c *MQTTConfig) SetDefaults() {
	if c.ClientID == "" {
		c.ClientID = "eta-service"
	}
	if c.RequestTopic == "" {
		c.RequestTopic = "eta/request/+"
	}
	if c.ResponsePrefix == "" {
		c.ResponsePrefix = "eta/response"
	}
	if c.StatusTopic == "" {
		c.StatusTopic = "eta/status"
	}
	if c.MaxRetries == 0 {
		c.MaxRetries = 3
	}
	if c.BackoffMS == 0 {
		c.BackoffMS = 500
	}
}

func (c MQTTConfig) Validate() error {
	if !c.Enabled {
		return nil
	}
	if c.Broker == "" {
		return errors.New("broker is required")
	}
	if !strings.HasSuffix(c.RequestTopic, "/+") {
		return errors.New("request_topic must end with a single-level wildcard")
	}
	if c.QoS > 2 {
		return errors.New("qos must be 0, 1 or 2")
	}
	if c.UseTLS && (c.ClientCert == "") != (c.ClientKey == "") {
		return errors.New("client_cert and client_key go together")
	}
	return nil
}

// AMQPConfig configures the AMQP RPC transport.
type AMQPConfig struct {
	Enabled          bool   `json:"enabled" yaml:"enabled"`
	URL              string `json:"url" yaml:"url"`
	RequestQueue     string `json:"request_queue" yaml:"request_queue"`
	Prefetch         int    `json:"prefetch" yaml:"prefetch"`
	ReconnectSeconds int    `json:"reconnect_seconds" yaml:"reconnect_seconds"`
}

func (c *AMQPConfig) SetDefaults() {
	if c.RequestQueue == "" {
		c.RequestQueue = "eta.requests"
	}
	if c.Prefetch == 0 {
		c.Prefetch = 8
	}
	if c.ReconnectSeconds == 0 {
		c.ReconnectSeconds = 5
	}
}

func (c AMQPConfig) Validate() error {
	if !c.Enabled {
		return nil
	}
	if c.URL == "" {
		return errors.New("url is required")
	}
	if c.Prefetch < 0 {
		return errors.New("prefetch must be positive")
	}
	return nil
}

func (c AMQPConfig) ReconnectDelay() time.Duration {
	return time.Duration(c.ReconnectSeconds) * time.Second
}
