package assets

import (
	"sync/atomic"
	"time"
)

// Stats holds the Loader's observational counters (spec.md §4.2:
// "maintained with relaxed atomics and are observational, not
// authoritative"). Never consulted for correctness, only for
// diagnostics/telemetry.
type Stats struct {
	totalRequests   atomic.Uint64
	submitted       atomic.Uint64
	completed       atomic.Uint64
	failed          atomic.Uint64
	totalLoadNanos  atomic.Int64
	loadSampleCount atomic.Uint64
}

func NewStats() *Stats { return &Stats{} }

func (s *Stats) recordRequest()    { s.totalRequests.Add(1) }
func (s *Stats) recordSubmission() { s.submitted.Add(1) }
func (s *Stats) recordCompletion(d time.Duration) {
	s.completed.Add(1)
	s.totalLoadNanos.Add(int64(d))
	s.loadSampleCount.Add(1)
}
func (s *Stats) recordFailure() { s.failed.Add(1) }

// Snapshot is a point-in-time, plain-value copy of the counters.
type Snapshot struct {
	TotalRequests int
	Submitted     int
	Completed     int
	Failed        int
	AverageLoad   time.Duration
}

func (s *Stats) Snapshot() Snapshot {
	samples := s.loadSampleCount.Load()
	var avg time.Duration
	if samples > 0 {
		avg = time.Duration(s.totalLoadNanos.Load() / int64(samples))
	}
	return Snapshot{
		TotalRequests: int(s.totalRequests.Load()),
		Submitted:     int(s.submitted.Load()),
		Completed:     int(s.completed.Load()),
		Failed:        int(s.failed.Load()),
		AverageLoad:   avg,
	}
}
