package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/razvandimescu/molesk/internal/content"
)

// Tree and feed builds walk the whole content root, so buckets run from
// sub-millisecond to several seconds.
var buildBuckets = []float64{
	0.0005, // 500µs
	0.001,  // 1ms
	0.005,  // 5ms
	0.01,   // 10ms
	0.05,   // 50ms
	0.1,    // 100ms
	0.5,    // 500ms
	1,      // 1s
	5,      // 5s
}

// contentMetrics implements content.Metrics.
type contentMetrics struct {
	treeBuilds *prometheus.HistogramVec
	feedBuilds *prometheus.HistogramVec
	feedItems  prometheus.Gauge
}

// NewContentMetrics returns nil when metrics are disabled.
func NewContentMetrics() content.Metrics {
	if !IsEnabled() {
		return nil
	}
	reg := GetRegistry()

	return &contentMetrics{
		treeBuilds: promauto.With(reg).NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "molesk_tree_build_duration_seconds",
				Help:    "Duration of folder tree builds (cache misses) in seconds",
				Buckets: buildBuckets,
			},
			[]string{"status"},
		),
		feedBuilds: promauto.With(reg).NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "molesk_feed_build_duration_seconds",
				Help:    "Duration of RSS feed builds (cache misses) in seconds",
				Buckets: buildBuckets,
			},
			[]string{"status"},
		),
		feedItems: promauto.With(reg).NewGauge(
			prometheus.GaugeOpts{
				Name: "molesk_feed_items",
				Help: "Number of items in the last generated feed",
			},
		),
	}
}

func (m *contentMetrics) ObserveTreeBuild(duration time.Duration, err error) {
	m.treeBuilds.WithLabelValues(statusLabel(err)).Observe(duration.Seconds())
}

func (m *contentMetrics) ObserveFeedBuild(duration time.Duration, items int, err error) {
	m.feedBuilds.WithLabelValues(statusLabel(err)).Observe(duration.Seconds())
	if err == nil {
		m.feedItems.Set(float64(items))
	}
}
