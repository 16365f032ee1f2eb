package recordserver

import (
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type metrics struct {
	registry *prometheus.Registry
	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

func newMetrics() *metrics {
	m := &metrics{
		registry: prometheus.NewRegistry(),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "recordstore",
			Name:      "requests_total",
			Help:      "Record store requests by method, collection and status code.",
		}, []string{"method", "collection", "code"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "recordstore",
			Name:      "request_duration_seconds",
			Help:      "Record store request latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "collection"}),
	}
	m.registry.MustRegister(m.requests, m.duration)
	return m
}

func (m *metrics) observe(method, collection string, status int, seconds float64) {
	m.requests.WithLabelValues(method, collection, strconv.Itoa(status)).Inc()
	m.duration.WithLabelValues(method, collection).Observe(seconds)
}

func (m *metrics) handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
