package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/razvandimescu/molesk/internal/cache"
)

// cacheMetrics implements cache.Metrics.
type cacheMetrics struct {
	lookups       *prometheus.CounterVec
	invalidations prometheus.Counter
}

// NewCacheMetrics returns nil when metrics are disabled.
func NewCacheMetrics() cache.Metrics {
	if !IsEnabled() {
		return nil
	}
	reg := GetRegistry()

	return &cacheMetrics{
		lookups: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "molesk_cache_lookups_total",
				Help: "Total number of cache lookups by kind and result",
			},
			[]string{"kind", "result"},
		),
		invalidations: promauto.With(reg).NewCounter(
			prometheus.CounterOpts{
				Name: "molesk_cache_invalidations_total",
				Help: "Total number of full cache clears",
			},
		),
	}
}

func (m *cacheMetrics) RecordLookup(kind string, hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	m.lookups.WithLabelValues(kind, result).Inc()
}

func (m *cacheMetrics) RecordInvalidation() {
	m.invalidations.Inc()
}
