// Package infra contains technical adapters: logging, metrics exporters,
// model and prediction storage, message transports and error monitoring.
// These packages should depend only on the interfaces defined in the core
// packages and on config.
package infra
