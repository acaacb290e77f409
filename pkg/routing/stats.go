package routing

import (
	"sync"
	"sync/atomic"
	"time"
)

// AtomicStats implements thread-safe routing statistics using atomic
// operations so the hot path never takes a lock.
type AtomicStats struct {
	totalRequests          atomic.Int64
	requestsPerDestination sync.Map // map[string]*atomic.Int64
	failoverCount          atomic.Int64
	errors                 atomic.Int64

	lastResetTime time.Time
	mu            sync.RWMutex
}

// NewAtomicStats creates a new atomic statistics tracker.
func NewAtomicStats() *AtomicStats {
	return &AtomicStats{lastResetTime: time.Now()}
}

func (s *AtomicStats) IncrementTotal() { s.totalRequests.Add(1) }

func (s *AtomicStats) IncrementDestination(name string) {
	val, _ := s.requestsPerDestination.LoadOrStore(name, &atomic.Int64{})
	val.(*atomic.Int64).Add(1)
}

func (s *AtomicStats) IncrementFailover() { s.failoverCount.Add(1) }

func (s *AtomicStats) IncrementErrors() { s.errors.Add(1) }

// Snapshot returns a point-in-time copy of the statistics.
func (s *AtomicStats) Snapshot() *Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	perDest := make(map[string]int64)
	s.requestsPerDestination.Range(func(key, value interface{}) bool {
		perDest[key.(string)] = value.(*atomic.Int64).Load()
		return true
	})

	return &Stats{
		TotalRequests:          s.totalRequests.Load(),
		RequestsPerDestination: perDest,
		FailoverCount:          s.failoverCount.Load(),
		Errors:                 s.errors.Load(),
		LastResetTime:          s.lastResetTime,
	}
}

// Reset zeroes all counters.
func (s *AtomicStats) Reset() {
	s.totalRequests.Store(0)
	s.failoverCount.Store(0)
	s.errors.Store(0)
	s.requestsPerDestination.Range(func(key, _ interface{}) bool {
		s.requestsPerDestination.Delete(key)
		return true
	})
	s.mu.Lock()
	s.lastResetTime = time.Now()
	s.mu.Unlock()
}
