// Package metrics provides Prometheus metrics for molesk components.
//
// All metrics are optional. Constructors return nil until InitRegistry has
// been called, and the consuming packages substitute their no-op
// implementations.
package metrics

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	registry     *prometheus.Registry
	registryOnce sync.Once
)

// InitRegistry creates the global registry with Go runtime and process
// collectors. Subsequent calls are ignored.
func InitRegistry() {
	registryOnce.Do(func() {
		registry = prometheus.NewRegistry()
		registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
	})
}

// GetRegistry returns nil when metrics are disabled.
func GetRegistry() *prometheus.Registry {
	return registry
}

func IsEnabled() bool {
	return GetRegistry() != nil
}

// Handler serves the registry in the Prometheus text format, or nil when
// metrics are disabled.
func Handler() http.Handler {
	if !IsEnabled() {
		return nil
	}
	return promhttp.HandlerFor(registry, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
	})
}

func statusLabel(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}
