package internal

import (
	"github.com/starford/tiedye/internal/metrics"
)

// Option is a functional option for configuring the application.
type Option func(*application)

type application struct {
	config  *Config
	version string
	metrics *metrics.Metrics
}

// WithConfig sets the application configuration.
func WithConfig(cfg *Config) Option {
	return func(a *application) {
		a.config = cfg
	}
}

// WithVersion sets the version reported by the MCP server and logs.
func WithVersion(v string) Option {
	return func(a *application) {
		a.version = v
	}
}

// WithMetrics replaces the default metrics collectors.
func WithMetrics(m *metrics.Metrics) Option {
	return func(a *application) {
		a.metrics = m
	}
}
