package rpc

import (
	"math/rand"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

// Strategy defines how calls are distributed across endpoints
type Strategy string

const (
	StrategyRoundRobin Strategy = "round-robin"
	StrategyWeighted   Strategy = "weighted"
)

// An endpoint with this many consecutive failures is skipped while a
// healthier one exists
const maxConsecutiveFailures = 3

// endpointMetrics tracks performance and health of one endpoint
type endpointMetrics struct {
	mu                  sync.RWMutex
	totalRequests       uint64
	failedRequests      uint64
	consecutiveFailures int
	averageLatency      time.Duration
	lastError           error
	healthScore         float64 // 0-100
}

func (m *endpointMetrics) recordSuccess(latency time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.totalRequests++
	m.consecutiveFailures = 0
	m.updateLatency(latency)
	m.calculateHealthScore()
}

func (m *endpointMetrics) recordFailure(err error, latency time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.totalRequests++
	m.failedRequests++
	m.consecutiveFailures++
	m.lastError = err
	m.updateLatency(latency)
	m.calculateHealthScore()
}

// updateLatency keeps an exponential moving average with alpha = 0.1
func (m *endpointMetrics) updateLatency(latency time.Duration) {
	if m.averageLatency == 0 {
		m.averageLatency = latency
		return
	}
	m.averageLatency = time.Duration(float64(m.averageLatency)*0.9 + float64(latency)*0.1)
}

// calculateHealthScore combines success rate, latency above one second and
// consecutive failures
func (m *endpointMetrics) calculateHealthScore() {
	successRate := float64(m.totalRequests-m.failedRequests) / float64(m.totalRequests)
	score := successRate * 100.0

	if m.averageLatency > time.Second {
		penalty := (m.averageLatency.Seconds() - 1.0) * 5.0
		if penalty > 20.0 {
			penalty = 20.0
		}
		score -= penalty
	}

	failurePenalty := float64(m.consecutiveFailures) * 10.0
	if failurePenalty > 50.0 {
		failurePenalty = 50.0
	}
	score -= failurePenalty

	if score < 0 {
		score = 0
	}
	m.healthScore = score
}

func (m *endpointMetrics) score() float64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.healthScore
}

func (m *endpointMetrics) healthy() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.consecutiveFailures < maxConsecutiveFailures
}

type endpoint struct {
	url     string
	metrics *endpointMetrics
}

// EndpointStatus is a snapshot of one endpoint's health
type EndpointStatus struct {
	URL                 string  `json:"url"`
	Healthy             bool    `json:"healthy"`
	HealthScore         float64 `json:"health_score"`
	TotalRequests       uint64  `json:"total_requests"`
	FailedRequests      uint64  `json:"failed_requests"`
	ConsecutiveFailures int     `json:"consecutive_failures"`
	AverageLatencyMs    int64   `json:"average_latency_ms"`
	LastError           string  `json:"last_error,omitempty"`
}

func (e *endpoint) status() EndpointStatus {
	e.metrics.mu.RLock()
	defer e.metrics.mu.RUnlock()

	status := EndpointStatus{
		URL:                 e.url,
		Healthy:             e.metrics.consecutiveFailures < maxConsecutiveFailures,
		HealthScore:         e.metrics.healthScore,
		TotalRequests:       e.metrics.totalRequests,
		FailedRequests:      e.metrics.failedRequests,
		ConsecutiveFailures: e.metrics.consecutiveFailures,
		AverageLatencyMs:    e.metrics.averageLatency.Milliseconds(),
	}
	if e.metrics.lastError != nil {
		status.LastError = e.metrics.lastError.Error()
	}
	return status
}

// endpointPool selects endpoints according to a Strategy
type endpointPool struct {
	endpoints []*endpoint
	strategy  Strategy
	current   atomic.Uint32
	logger    *zap.Logger
}

func newEndpointPool(urls []string, strategy Strategy, logger *zap.Logger) *endpointPool {
	if strategy != StrategyRoundRobin && strategy != StrategyWeighted {
		strategy = StrategyRoundRobin
	}

	pool := &endpointPool{strategy: strategy, logger: logger}
	for _, url := range urls {
		pool.endpoints = append(pool.endpoints, &endpoint{
			url:     url,
			metrics: &endpointMetrics{healthScore: 100.0},
		})
	}
	return pool
}

// pick returns the next endpoint, skipping unhealthy ones while a healthy
// endpoint remains
func (p *endpointPool) pick() *endpoint {
	candidates := make([]*endpoint, 0, len(p.endpoints))
	for _, e := range p.endpoints {
		if e.metrics.healthy() {
			candidates = append(candidates, e)
		}
	}
	if len(candidates) == 0 {
		p.logger.Warn("no healthy endpoint left, using all endpoints", zap.Int("endpoints", len(p.endpoints)))
		candidates = p.endpoints
	}

	if len(candidates) == 1 {
		return candidates[0]
	}
	if p.strategy == StrategyWeighted {
		return p.pickWeighted(candidates)
	}
	return p.pickRoundRobin(candidates)
}

func (p *endpointPool) pickRoundRobin(candidates []*endpoint) *endpoint {
	index := (p.current.Add(1) - 1) % uint32(len(candidates))
	return candidates[index]
}

// pickWeighted selects proportionally to health scores
func (p *endpointPool) pickWeighted(candidates []*endpoint) *endpoint {
	total := 0.0
	for _, e := range candidates {
		total += e.metrics.score()
	}
	if total == 0 {
		return p.pickRoundRobin(candidates)
	}

	target := rand.Float64() * total
	current := 0.0
	for _, e := range candidates {
		current += e.metrics.score()
		if current >= target {
			return e
		}
	}
	return candidates[len(candidates)-1]
}

func (p *endpointPool) statuses() []EndpointStatus {
	out := make([]EndpointStatus, 0, len(p.endpoints))
	for _, e := range p.endpoints {
		out = append(out, e.status())
	}
	return out
}
