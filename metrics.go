package goadsio

import (
	"sync"
	"sync/atomic"
	"time"
)

// Metrics defines the interface for collecting operational metrics.
// Implementations can export metrics to various backends (see package promstats).
type Metrics interface {
	// Connection metrics
	ConnectionAttempts()
	ConnectionSuccesses()
	ConnectionFailures()
	ConnectionActive(active bool)
	RouteRepairs()

	// Operation metrics
	OperationCompleted(operation string, duration time.Duration, err error)

	// Data transfer metrics
	BytesSent(bytes int64)
	BytesReceived(bytes int64)
}

// noopMetrics implements Metrics with no-op operations for minimal overhead.
type noopMetrics struct{}

func (n *noopMetrics) ConnectionAttempts()                                                    {}
func (n *noopMetrics) ConnectionSuccesses()                                                   {}
func (n *noopMetrics) ConnectionFailures()                                                    {}
func (n *noopMetrics) ConnectionActive(active bool)                                           {}
func (n *noopMetrics) RouteRepairs()                                                          {}
func (n *noopMetrics) OperationCompleted(operation string, duration time.Duration, err error) {}
func (n *noopMetrics) BytesSent(bytes int64)                                                  {}
func (n *noopMetrics) BytesReceived(bytes int64)                                              {}

var (
	// DefaultMetrics is a no-op metrics collector to minimize overhead when metrics are not configured.
	DefaultMetrics Metrics = &noopMetrics{}
)

// WithMetrics sets the metrics collector for the client.
func WithMetrics(m Metrics) Option {
	return func(c *clientConfig) error {
		if m == nil {
			m = DefaultMetrics
		}
		c.metrics = m
		return nil
	}
}

// InMemoryMetrics provides a simple in-memory metrics collector for testing and debugging.
type InMemoryMetrics struct {
	mu sync.RWMutex

	// Connection metrics
	ConnectionAttemptsCount  atomic.Int64
	ConnectionSuccessesCount atomic.Int64
	ConnectionFailuresCount  atomic.Int64
	ConnectionActiveState    atomic.Bool
	RouteRepairsCount        atomic.Int64

	// Operation metrics
	OperationCounts    map[string]*atomic.Int64
	OperationDurations map[string][]time.Duration
	OperationErrors    map[string]*atomic.Int64

	// Data transfer metrics
	BytesSentCount     atomic.Int64
	BytesReceivedCount atomic.Int64
}

// NewInMemoryMetrics creates a new in-memory metrics collector.
func NewInMemoryMetrics() *InMemoryMetrics {
	return &InMemoryMetrics{
		OperationCounts:    make(map[string]*atomic.Int64),
		OperationDurations: make(map[string][]time.Duration),
		OperationErrors:    make(map[string]*atomic.Int64),
	}
}

func (m *InMemoryMetrics) ConnectionAttempts() {
	m.ConnectionAttemptsCount.Add(1)
}

func (m *InMemoryMetrics) ConnectionSuccesses() {
	m.ConnectionSuccessesCount.Add(1)
}

func (m *InMemoryMetrics) ConnectionFailures() {
	m.ConnectionFailuresCount.Add(1)
}

func (m *InMemoryMetrics) ConnectionActive(active bool) {
	m.ConnectionActiveState.Store(active)
}

func (m *InMemoryMetrics) RouteRepairs() {
	m.RouteRepairsCount.Add(1)
}

func (m *InMemoryMetrics) OperationCompleted(operation string, duration time.Duration, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.OperationCounts[operation]; !ok {
		m.OperationCounts[operation] = &atomic.Int64{}
	}
	m.OperationCounts[operation].Add(1)
	m.OperationDurations[operation] = append(m.OperationDurations[operation], duration)

	if err != nil {
		if _, ok := m.OperationErrors[operation]; !ok {
			m.OperationErrors[operation] = &atomic.Int64{}
		}
		m.OperationErrors[operation].Add(1)
	}
}

func (m *InMemoryMetrics) BytesSent(bytes int64) {
	m.BytesSentCount.Add(bytes)
}

func (m *InMemoryMetrics) BytesReceived(bytes int64) {
	m.BytesReceivedCount.Add(bytes)
}

// MetricsSnapshot is a point-in-time copy of InMemoryMetrics.
type MetricsSnapshot struct {
	ConnectionAttempts  int64
	ConnectionSuccesses int64
	ConnectionFailures  int64
	ConnectionActive    bool
	RouteRepairs        int64
	Operations          map[string]int64
	OperationErrors     map[string]int64
	BytesSent           int64
	BytesReceived       int64
}

// Snapshot returns the current counter values.
func (m *InMemoryMetrics) Snapshot() MetricsSnapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s := MetricsSnapshot{
		ConnectionAttempts:  m.ConnectionAttemptsCount.Load(),
		ConnectionSuccesses: m.ConnectionSuccessesCount.Load(),
		ConnectionFailures:  m.ConnectionFailuresCount.Load(),
		ConnectionActive:    m.ConnectionActiveState.Load(),
		RouteRepairs:        m.RouteRepairsCount.Load(),
		Operations:          make(map[string]int64, len(m.OperationCounts)),
		OperationErrors:     make(map[string]int64, len(m.OperationErrors)),
		BytesSent:           m.BytesSentCount.Load(),
		BytesReceived:       m.BytesReceivedCount.Load(),
	}
	for op, c := range m.OperationCounts {
		s.Operations[op] = c.Load()
	}
	for op, c := range m.OperationErrors {
		s.OperationErrors[op] = c.Load()
	}
	return s
}
