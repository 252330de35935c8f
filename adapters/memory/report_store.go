// Package memory keeps finished reports in process memory.
package memory

import (
	"sync"

	"gocoherence/domain/stats"
)

// DefaultCapacity is the number of reports kept before the oldest is evicted.
const DefaultCapacity = 32

// ReportStore is a bounded, insertion-ordered report cache safe for concurrent use.
type ReportStore struct {
	mu       sync.RWMutex
	capacity int
	order    []string
	reports  map[string]*stats.Report
}

// NewReportStore creates a store holding at most capacity reports (<= 0 means DefaultCapacity).
func NewReportStore(capacity int) *ReportStore {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &ReportStore{capacity: capacity, reports: make(map[string]*stats.Report)}
}

// Put stores report under its RunID, replacing any report with the same ID.
func (s *ReportStore) Put(report *stats.Report) {
	id := report.RunID.String()

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.reports[id]; exists {
		s.remove(id)
	}
	s.reports[id] = report
	s.order = append(s.order, id)
	for len(s.order) > s.capacity {
		delete(s.reports, s.order[0])
		s.order = s.order[1:]
	}
}

func (s *ReportStore) remove(id string) {
	delete(s.reports, id)
	for i, v := range s.order {
		if v == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			return
		}
	}
}

// Get returns the report with the given run ID.
func (s *ReportStore) Get(id string) (*stats.Report, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.reports[id]
	return r, ok
}

// List returns all reports, newest first.
func (s *ReportStore) List() []*stats.Report {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*stats.Report, 0, len(s.order))
	for i := len(s.order) - 1; i >= 0; i-- {
		out = append(out, s.reports[s.order[i]])
	}
	return out
}
