// Package store implements C6, the Incident Store: an in-memory, FIFO-
// retained index of confirmed spike incidents and their RCA records (spec
// §4.6).
package store

import (
	"sort"
	"sync"

	"github.com/dmitriimaksimovdevelop/rcawatch/internal/model"
)

// defaultRetention is the number of most-recent incidents kept (spec §3
// "Lifecycle", default N=200).
const defaultRetention = 200

// Store is single-writer/multi-reader consistent: readers observe either
// the pre-insert or post-insert state, never a partial incident (spec
// §4.6, §5 "Shared resources").
type Store struct {
	mu        sync.RWMutex
	byID      map[int64]*model.SpikeIncident
	order     []int64 // insertion order, oldest first
	retention int
}

// New builds a Store retaining at most retention incidents (<=0 uses the
// spec default of 200).
func New(retention int) *Store {
	if retention <= 0 {
		retention = defaultRetention
	}
	return &Store{byID: make(map[int64]*model.SpikeIncident), retention: retention}
}

// Insert records a newly confirmed incident, evicting the oldest if the
// store is at capacity.
func (s *Store) Insert(inc model.SpikeIncident) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cp := inc
	s.byID[inc.ID] = &cp
	s.order = append(s.order, inc.ID)

	for len(s.order) > s.retention {
		oldest := s.order[0]
		s.order = s.order[1:]
		delete(s.byID, oldest)
	}
}

// UpdateRCA sets id's RCA report exactly once. Subsequent calls are no-ops
// if the field is already set (spec §5: "rca field... is set at most
// once").
func (s *Store) UpdateRCA(id int64, report model.RcaReport) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	inc, ok := s.byID[id]
	if !ok || inc.Rca != nil {
		return false
	}
	cp := report
	inc.Rca = &cp
	return true
}

// Get returns a copy of the incident with id, if present.
func (s *Store) Get(id int64) (model.SpikeIncident, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	inc, ok := s.byID[id]
	if !ok {
		return model.SpikeIncident{}, false
	}
	return *inc, true
}

// List returns up to limit incidents newest-first, optionally restricted to
// those detected at or after since (zero time means no lower bound).
func (s *Store) List(limit int, sinceUnixNano int64) []model.SpikeIncident {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := append([]int64(nil), s.order...)
	sort.Slice(ids, func(i, j int) bool { return ids[i] > ids[j] })

	out := make([]model.SpikeIncident, 0, limit)
	for _, id := range ids {
		inc := s.byID[id]
		if sinceUnixNano > 0 && inc.DetectedAt.UnixNano() < sinceUnixNano {
			continue
		}
		out = append(out, *inc)
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out
}

// LatestRCA returns the RCA report of the newest retained incident that
// has one; incidents without an RCA are skipped.
func (s *Store) LatestRCA() (model.RcaReport, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for i := len(s.order) - 1; i >= 0; i-- {
		inc := s.byID[s.order[i]]
		if inc.Rca != nil {
			return *inc.Rca, true
		}
	}
	return model.RcaReport{}, false
}
