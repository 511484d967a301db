package goadsio

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInMemoryMetrics(t *testing.T) {
	m := NewInMemoryMetrics()

	m.ConnectionAttempts()
	m.ConnectionAttempts()
	m.ConnectionFailures()
	m.ConnectionSuccesses()
	m.ConnectionActive(true)
	m.RouteRepairs()
	m.OperationCompleted("read", time.Millisecond, nil)
	m.OperationCompleted("read", time.Millisecond, errors.New("boom"))
	m.OperationCompleted("write", time.Millisecond, nil)
	m.BytesSent(50)
	m.BytesReceived(42)

	snap := m.Snapshot()
	assert.Equal(t, int64(2), snap.ConnectionAttempts)
	assert.Equal(t, int64(1), snap.ConnectionFailures)
	assert.Equal(t, int64(1), snap.ConnectionSuccesses)
	assert.True(t, snap.ConnectionActive)
	assert.Equal(t, int64(1), snap.RouteRepairs)
	assert.Equal(t, map[string]int64{"read": 2, "write": 1}, snap.Operations)
	assert.Equal(t, map[string]int64{"read": 1}, snap.OperationErrors)
	assert.Equal(t, int64(50), snap.BytesSent)
	assert.Equal(t, int64(42), snap.BytesReceived)

	// Snapshots are copies.
	snap.Operations["read"] = 100
	assert.Equal(t, int64(2), m.Snapshot().Operations["read"])
}

func TestInMemoryMetricsConcurrent(t *testing.T) {
	m := NewInMemoryMetrics()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				m.OperationCompleted("read", time.Microsecond, nil)
				m.BytesSent(1)
			}
		}()
	}
	wg.Wait()

	snap := m.Snapshot()
	assert.Equal(t, int64(800), snap.Operations["read"])
	assert.Equal(t, int64(800), snap.BytesSent)
}

func TestWithMetricsNil(t *testing.T) {
	cfg := &clientConfig{}
	require.NoError(t, WithMetrics(nil)(cfg))
	assert.Equal(t, DefaultMetrics, cfg.metrics)
}
