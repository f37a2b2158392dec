package server

import "time"

// Metrics observes HTTP traffic. A nil Metrics is replaced by a no-op.
type Metrics interface {
	RecordRequest(route string, status int, duration time.Duration)
	SetLiveClients(n int)
}

type noopMetrics struct{}

func (noopMetrics) RecordRequest(string, int, time.Duration) {}
func (noopMetrics) SetLiveClients(int)                       {}
