package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the service collectors. A nil *Metrics is valid and records
// nothing, which keeps tests free of registry setup.
type Metrics struct {
	registry      *prometheus.Registry
	httpRequests  *prometheus.CounterVec
	closeOutcomes *prometheus.CounterVec
	closeDuration prometheus.Histogram
}

// New registers the collectors on reg. A nil reg gets a fresh registry with
// the Go and process collectors attached.
func New(reg *prometheus.Registry) *Metrics {
	if reg == nil {
		reg = prometheus.NewRegistry()
		reg.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
	}

	m := &Metrics{
		registry: reg,
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "election",
			Name:      "http_requests_total",
			Help:      "Total HTTP requests processed by the election API.",
		}, []string{"method", "path", "status"}),
		closeOutcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "election",
			Name:      "position_close_total",
			Help:      "Position close attempts by outcome.",
		}, []string{"outcome"}),
		closeDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "election",
			Name:      "position_close_duration_seconds",
			Help:      "Time spent closing a position, including the poll creation call.",
			Buckets:   prometheus.DefBuckets,
		}),
	}
	reg.MustRegister(m.httpRequests, m.closeOutcomes, m.closeDuration)
	return m
}

// IncRequest increments the http_requests_total counter with the given labels.
func (m *Metrics) IncRequest(method, path string, status int) {
	if m == nil {
		return
	}
	m.httpRequests.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
}

// ObserveClose matches the election service close observer signature.
func (m *Metrics) ObserveClose(outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.closeOutcomes.WithLabelValues(outcome).Inc()
	m.closeDuration.Observe(elapsed.Seconds())
}

func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
