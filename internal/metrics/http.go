package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/razvandimescu/molesk/internal/server"
)

// httpMetrics implements server.Metrics.
type httpMetrics struct {
	requests    *prometheus.CounterVec
	duration    *prometheus.HistogramVec
	liveClients prometheus.Gauge
}

// NewHTTPMetrics returns nil when metrics are disabled.
func NewHTTPMetrics() server.Metrics {
	if !IsEnabled() {
		return nil
	}
	reg := GetRegistry()

	return &httpMetrics{
		requests: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "molesk_http_requests_total",
				Help: "Total number of HTTP requests by route and status code",
			},
			[]string{"route", "code"},
		),
		duration: promauto.With(reg).NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "molesk_http_request_duration_seconds",
				Help:    "Duration of HTTP requests in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"route"},
		),
		liveClients: promauto.With(reg).NewGauge(
			prometheus.GaugeOpts{
				Name: "molesk_live_clients",
				Help: "Number of connected live-reload clients",
			},
		),
	}
}

func (m *httpMetrics) RecordRequest(route string, status int, duration time.Duration) {
	m.requests.WithLabelValues(route, strconv.Itoa(status)).Inc()
	m.duration.WithLabelValues(route).Observe(duration.Seconds())
}

func (m *httpMetrics) SetLiveClients(n int) {
	m.liveClients.Set(float64(n))
}
