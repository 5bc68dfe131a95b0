package rpc

import (
	"net/http"
	"time"

	"golang.org/x/time/rate"
)

const (
	defaultTimeout         = 60 * time.Second
	defaultCacheSize       = 1024
	defaultMaxResponseSize = 10 * 1024 * 1024
)

type clientOptions struct {
	timeout           time.Duration
	httpClient        *http.Client
	fallbackEndpoints []string
	strategy          Strategy
	retry             RetryConfig
	limiter           *rate.Limiter
	metrics           *Metrics
	cacheSize         int
	maxResponseSize   int64
}

func defaultClientOptions() clientOptions {
	return clientOptions{
		timeout:         defaultTimeout,
		strategy:        StrategyRoundRobin,
		retry:           DefaultRetryConfig(),
		cacheSize:       defaultCacheSize,
		maxResponseSize: defaultMaxResponseSize,
	}
}

// Option configures a Client
type Option func(*clientOptions)

// WithTimeout bounds a single HTTP round trip (default 60s)
func WithTimeout(timeout time.Duration) Option {
	return func(o *clientOptions) {
		o.timeout = timeout
	}
}

// WithHTTPClient replaces the HTTP client; WithTimeout is then ignored
func WithHTTPClient(client *http.Client) Option {
	return func(o *clientOptions) {
		o.httpClient = client
	}
}

// WithFallbackEndpoints adds endpoints used alongside the primary one
func WithFallbackEndpoints(endpoints ...string) Option {
	return func(o *clientOptions) {
		o.fallbackEndpoints = append(o.fallbackEndpoints, endpoints...)
	}
}

// WithStrategy selects how calls are spread over endpoints
func WithStrategy(strategy Strategy) Option {
	return func(o *clientOptions) {
		o.strategy = strategy
	}
}

// WithRetry overrides DefaultRetryConfig
func WithRetry(cfg RetryConfig) Option {
	return func(o *clientOptions) {
		o.retry = cfg
	}
}

// WithRateLimit caps outgoing calls to rps with the given burst
func WithRateLimit(rps float64, burst int) Option {
	return func(o *clientOptions) {
		o.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

// WithMetrics records calls into m
func WithMetrics(m *Metrics) Option {
	return func(o *clientOptions) {
		o.metrics = m
	}
}

// WithCacheSize sets how many final outcomes are kept; 0 disables the cache
func WithCacheSize(size int) Option {
	return func(o *clientOptions) {
		o.cacheSize = size
	}
}

// WithMaxResponseSize caps the bytes read from a response body
func WithMaxResponseSize(size int64) Option {
	return func(o *clientOptions) {
		o.maxResponseSize = size
	}
}
