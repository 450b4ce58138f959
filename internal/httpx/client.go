// Package httpx provides the shared HTTP client factory for provider calls.
package httpx

import (
	"net/http"
	"time"
)

const (
	// DefaultTimeout is the default per-request timeout for provider calls.
	DefaultTimeout = 30 * time.Second

	// Per-host connection ceilings stay low so concurrent async-adapter
	// polling cannot exhaust sockets.
	defaultMaxIdleConns        = 20
	defaultMaxIdleConnsPerHost = 2
	defaultIdleConnTimeout     = 90 * time.Second
	defaultTLSHandshakeTimeout = 10 * time.Second
)

// ClientConfig configures an HTTP client.
type ClientConfig struct {
	// Timeout specifies a time limit for requests made by this client.
	Timeout time.Duration

	// MaxIdleConnsPerHost controls the maximum idle keep-alive connections
	// per host.
	MaxIdleConnsPerHost int
}

// NewClient creates a new HTTP client with standardized transport settings.
// If cfg is nil, defaults are used.
func NewClient(cfg *ClientConfig) *http.Client {
	if cfg == nil {
		cfg = &ClientConfig{}
	}

	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = DefaultTimeout
	}

	maxIdlePerHost := cfg.MaxIdleConnsPerHost
	if maxIdlePerHost == 0 {
		maxIdlePerHost = defaultMaxIdleConnsPerHost
	}

	transport := &http.Transport{
		MaxIdleConns:        defaultMaxIdleConns,
		MaxIdleConnsPerHost: maxIdlePerHost,
		IdleConnTimeout:     defaultIdleConnTimeout,
		TLSHandshakeTimeout: defaultTLSHandshakeTimeout,
	}

	return &http.Client{
		Timeout:   timeout,
		Transport: transport,
	}
}

// NewDefaultClient creates a new HTTP client with all default settings.
func NewDefaultClient() *http.Client {
	return NewClient(nil)
}
