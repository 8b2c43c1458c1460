package dashboard

import (
	"sync"
	"time"

	"github.com/efebarandurmaz/roadnet/internal/metrics"
)

const maxRefreshes = 100

// RefreshRecord describes one recomputation attempt.
type RefreshRecord struct {
	ID         string        `json:"id"`
	StartedAt  time.Time     `json:"started_at"`
	Duration   time.Duration `json:"duration"`
	Error      string        `json:"error,omitempty"`
	TotalNodes int           `json:"total_intersections,omitempty"`
}

// Store holds the current report, the snapshot it came from and the
// recent refresh history.
type Store struct {
	mu         sync.RWMutex
	snapshot   *metrics.Snapshot
	report     *metrics.Report
	computedAt time.Time
	history    []RefreshRecord
}

// NewStore creates an empty Store.
func NewStore() *Store {
	return &Store{history: make([]RefreshRecord, 0, maxRefreshes)}
}

// Set replaces the current report.
func (s *Store) Set(snap *metrics.Snapshot, rep *metrics.Report, at time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snapshot = snap
	s.report = rep
	s.computedAt = at
}

// Current returns the report and its snapshot; ok is false before the first Set.
func (s *Store) Current() (snap *metrics.Snapshot, rep *metrics.Report, ok bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshot, s.report, s.report != nil
}

// ComputedAt reports when the current report was computed.
func (s *Store) ComputedAt() (time.Time, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.computedAt, s.report != nil
}

// Record appends to the refresh history, dropping the oldest entries.
func (s *Store) Record(rec RefreshRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.history = append(s.history, rec)
	if over := len(s.history) - maxRefreshes; over > 0 {
		s.history = append(s.history[:0:0], s.history[over:]...)
	}
}

// History returns the refresh history, newest first.
func (s *Store) History() []RefreshRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]RefreshRecord, len(s.history))
	for i, rec := range s.history {
		out[len(out)-1-i] = rec
	}
	return out
}
