// Package promstats exports goadsio client metrics to Prometheus.
package promstats

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/mrpasztoradam/goadsio"
)

// Collector implements goadsio.Metrics on top of Prometheus metrics.
type Collector struct {
	// Connection metrics
	Attempts  prometheus.Counter
	Successes prometheus.Counter
	Failures  prometheus.Counter
	Active    prometheus.Gauge
	Repairs   prometheus.Counter

	// Operation metrics
	OperationsTotal  *prometheus.CounterVec
	OperationSeconds *prometheus.HistogramVec

	// Transfer metrics
	SentBytes     prometheus.Counter
	ReceivedBytes prometheus.Counter
}

var _ goadsio.Metrics = (*Collector)(nil)

// NewCollector creates the metrics and registers them with reg.
// A nil reg leaves them unregistered.
func NewCollector(reg prometheus.Registerer) *Collector {
	f := promauto.With(reg)

	return &Collector{
		Attempts: f.NewCounter(prometheus.CounterOpts{
			Namespace: "goadsio",
			Subsystem: "connection",
			Name:      "attempts_total",
			Help:      "Total number of ADS connection attempts",
		}),
		Successes: f.NewCounter(prometheus.CounterOpts{
			Namespace: "goadsio",
			Subsystem: "connection",
			Name:      "successes_total",
			Help:      "Total number of completed ADS handshakes",
		}),
		Failures: f.NewCounter(prometheus.CounterOpts{
			Namespace: "goadsio",
			Subsystem: "connection",
			Name:      "failures_total",
			Help:      "Total number of failed ADS connection attempts",
		}),
		Active: f.NewGauge(prometheus.GaugeOpts{
			Namespace: "goadsio",
			Subsystem: "connection",
			Name:      "active",
			Help:      "1 while the ADS session is connected",
		}),
		Repairs: f.NewCounter(prometheus.CounterOpts{
			Namespace: "goadsio",
			Subsystem: "connection",
			Name:      "route_repairs_total",
			Help:      "Total number of add-route requests sent",
		}),

		OperationsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "goadsio",
			Subsystem: "operation",
			Name:      "total",
			Help:      "Total number of read/write operations",
		}, []string{"operation", "status"}),
		OperationSeconds: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "goadsio",
			Subsystem: "operation",
			Name:      "duration_seconds",
			Help:      "Read/write duration including any reconnect",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}, []string{"operation"}),

		SentBytes: f.NewCounter(prometheus.CounterOpts{
			Namespace: "goadsio",
			Subsystem: "transfer",
			Name:      "bytes_sent_total",
			Help:      "Total number of AMS frame bytes sent",
		}),
		ReceivedBytes: f.NewCounter(prometheus.CounterOpts{
			Namespace: "goadsio",
			Subsystem: "transfer",
			Name:      "bytes_received_total",
			Help:      "Total number of AMS frame bytes received",
		}),
	}
}

func (c *Collector) ConnectionAttempts()  { c.Attempts.Inc() }
func (c *Collector) ConnectionSuccesses() { c.Successes.Inc() }
func (c *Collector) ConnectionFailures()  { c.Failures.Inc() }
func (c *Collector) RouteRepairs()        { c.Repairs.Inc() }

func (c *Collector) ConnectionActive(active bool) {
	if active {
		c.Active.Set(1)
		return
	}
	c.Active.Set(0)
}

func (c *Collector) OperationCompleted(operation string, duration time.Duration, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	c.OperationsTotal.WithLabelValues(operation, status).Inc()
	c.OperationSeconds.WithLabelValues(operation).Observe(duration.Seconds())
}

func (c *Collector) BytesSent(bytes int64)     { c.SentBytes.Add(float64(bytes)) }
func (c *Collector) BytesReceived(bytes int64) { c.ReceivedBytes.Add(float64(bytes)) }
