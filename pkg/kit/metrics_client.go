package kit

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// ClientMetrics covers the outbound side: API calls, cache hits and the
// offline queue. A nil *ClientMetrics is valid and records nothing.
type ClientMetrics struct {
	requests   *prometheus.CounterVec
	latency    *prometheus.HistogramVec
	retries    prometheus.Counter
	cacheOps   *prometheus.CounterVec
	queueDepth prometheus.Gauge
}

func NewClientMetrics(reg prometheus.Registerer) *ClientMetrics {
	m := &ClientMetrics{
		requests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "storeclient_http_requests_total",
				Help: "Outbound API attempts by method and status",
			},
			[]string{labelMethod, labelStatus},
		),
		latency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name: "storeclient_http_request_duration_seconds",
				Help: "Outbound API attempt latency",
			},
			[]string{labelMethod},
		),
		retries: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "storeclient_http_retries_total",
			Help: "Outbound API attempts that were retried",
		}),
		cacheOps: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "storeclient_cache_ops_total",
				Help: "Cache lookups and writes by result",
			},
			[]string{"op", "result"},
		),
		queueDepth: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "storeclient_offline_queue_depth",
			Help: "Requests waiting in the offline queue",
		}),
	}

	reg.MustRegister(m.requests, m.latency, m.retries, m.cacheOps, m.queueDepth)
	return m
}

// ObserveRequest records one attempt. Status 0 marks a transport failure.
func (m *ClientMetrics) ObserveRequest(method string, status int, d time.Duration) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(method, strconv.Itoa(status)).Inc()
	m.latency.WithLabelValues(method).Observe(d.Seconds())
}

func (m *ClientMetrics) Retry() {
	if m == nil {
		return
	}
	m.retries.Inc()
}

func (m *ClientMetrics) CacheOp(op, result string) {
	if m == nil {
		return
	}
	m.cacheOps.WithLabelValues(op, result).Inc()
}

func (m *ClientMetrics) QueueDepth(n int) {
	if m == nil {
		return
	}
	m.queueDepth.Set(float64(n))
}
