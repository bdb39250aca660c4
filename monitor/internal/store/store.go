package store

import (
	"sort"
	"sync"
	"time"

	"github.com/Tummers/Precision-Refrigerator/monitor/internal/compute"
)

// entry is a result together with the time it was stored.
type entry struct {
	Result    *compute.Result
	UpdatedAt time.Time
}

// Store is a thread-safe map of the newest Result per thermometer ID.
type Store struct {
	mu   sync.RWMutex
	data map[string]*entry
	ttl  time.Duration
	now  func() time.Time // injectable for deterministic tests
}

// New creates a Store whose entries go stale after ttl.
func New(ttl time.Duration) *Store {
	return &Store{
		data: make(map[string]*entry),
		ttl:  ttl,
		now:  time.Now,
	}
}

// Put stores or replaces the result for res.ThermometerID.
// Callers must not modify res after calling Put.
func (s *Store) Put(res *compute.Result) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[res.ThermometerID] = &entry{Result: res, UpdatedAt: s.now()}
}

// Results returns the fresh results ordered by thermometer ID.
func (s *Store) Results() []*compute.Result {
	s.mu.RLock()
	defer s.mu.RUnlock()
	cutoff := s.now().Add(-s.ttl)
	out := make([]*compute.Result, 0, len(s.data))
	for _, e := range s.data {
		if e.UpdatedAt.After(cutoff) {
			out = append(out, e.Result)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ThermometerID < out[j].ThermometerID })
	return out
}

// Evict removes entries not updated within the TTL and returns how many
// were removed.
func (s *Store) Evict() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	cutoff := s.now().Add(-s.ttl)
	removed := 0
	for id, e := range s.data {
		if !e.UpdatedAt.After(cutoff) {
			delete(s.data, id)
			removed++
		}
	}
	return removed
}
