package content

import "time"

// Metrics receives build timings. A nil Metrics is replaced by a no-op.
type Metrics interface {
	ObserveTreeBuild(duration time.Duration, err error)
	ObserveFeedBuild(duration time.Duration, items int, err error)
}

type noopMetrics struct{}

func (noopMetrics) ObserveTreeBuild(time.Duration, error)      {}
func (noopMetrics) ObserveFeedBuild(time.Duration, int, error) {}

func metricsOrNoop(m Metrics) Metrics {
	if m == nil {
		return noopMetrics{}
	}
	return m
}
