// Package config holds the Hub's runtime configuration.
package config

import (
	"fmt"
	"time"
)

// Config holds the Hub's runtime configuration.
type Config struct {
	// FrontendAddr is the TCP host:port clients connect to.
	FrontendAddr string
	// BackendSocketPath is the filesystem path of the Unix domain stream
	// socket servers connect to.
	BackendSocketPath string
	// Backlog is the accept backlog for the frontend TCP listener.
	Backlog int
	// AcceptTimeout bounds each accept() call so the stop flag is checked
	// frequently; it is not a client-visible timeout.
	AcceptTimeout time.Duration
	// MetricsAddr, when non-empty, is the address a separate net/http
	// server exposes /metrics on. Empty disables the metrics endpoint.
	MetricsAddr string
}

// Default returns a Config populated with the spec's documented defaults.
func Default() Config {
	return Config{
		FrontendAddr:      "0.0.0.0:5555",
		BackendSocketPath: "/var/run/sockethub.sock",
		Backlog:           10,
		AcceptTimeout:     100 * time.Millisecond,
	}
}

// Validate checks the configuration values.
func (c Config) Validate() error {
	if c.FrontendAddr == "" {
		return fmt.Errorf("frontend address is required")
	}
	if c.BackendSocketPath == "" {
		return fmt.Errorf("backend socket path is required")
	}
	if c.Backlog <= 0 {
		return fmt.Errorf("backlog must be positive, got %d", c.Backlog)
	}
	if c.AcceptTimeout <= 0 {
		return fmt.Errorf("accept timeout must be positive, got %s", c.AcceptTimeout)
	}
	return nil
}
