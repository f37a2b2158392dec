package cache

// Lookup kinds reported to Metrics.
const (
	KindTree = "tree"
	KindFeed = "feed"
)

// Metrics observes cache behaviour. A nil Metrics is replaced by a no-op.
type Metrics interface {
	RecordLookup(kind string, hit bool)
	RecordInvalidation()
}

type noopMetrics struct{}

func (noopMetrics) RecordLookup(string, bool) {}
func (noopMetrics) RecordInvalidation()       {}
