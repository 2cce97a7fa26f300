package state

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/five82/adindex/internal/adindex"
)

// Snapshot represents the latest query status available to the UI.
type Snapshot struct {
	Statuses            map[string]adindex.QueryStatus
	Watched             []string
	LastUpdated         time.Time
	LastError           error
	ConsecutiveFailures int // Number of consecutive poll failures
}

// IsOffline returns true when the API has been unreachable for multiple polls.
func (s Snapshot) IsOffline() bool {
	return s.ConsecutiveFailures >= 2
}

// Status returns the last known status of a query.
func (s Snapshot) Status(queryID string) (adindex.QueryStatus, bool) {
	st, ok := s.Statuses[queryID]
	return st, ok
}

// Store coordinates the poller and the UI. The zero value is ready to use.
type Store struct {
	// Clock stamps updates; nil uses the real clock.
	Clock clockwork.Clock

	mu       sync.RWMutex
	snapshot Snapshot
	changed  chan struct{}
}

// Watch replaces the set of query ids the poller fetches status for and
// wakes the poller when the set changed.
func (s *Store) Watch(ids []string) {
	next := normalizeIDs(ids)

	s.mu.Lock()
	same := equalIDs(s.snapshot.Watched, next)
	if !same {
		s.snapshot.Watched = next
	}
	ch := s.changedLocked()
	s.mu.Unlock()

	if !same {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}

// Watched returns the ids the poller should fetch.
func (s *Store) Watched() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]string(nil), s.snapshot.Watched...)
}

// Changed is signalled after Watch changes the watched set.
func (s *Store) Changed() <-chan struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.changedLocked()
}

// Update merges fetched statuses. When err is non-nil the previous data is
// kept but the error is recorded for visibility.
func (s *Store) Update(statuses []adindex.QueryStatus, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if err != nil {
		s.snapshot.LastError = err
		s.snapshot.LastUpdated = now
		s.snapshot.ConsecutiveFailures++
		return
	}

	next := make(map[string]adindex.QueryStatus, len(statuses))
	for _, st := range statuses {
		next[st.AdQueryID] = st
	}
	s.snapshot.Statuses = next
	s.snapshot.LastError = nil
	s.snapshot.LastUpdated = now
	s.snapshot.ConsecutiveFailures = 0
}

// Forget drops the status of a deleted query.
func (s *Store) Forget(queryID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.snapshot.Statuses == nil {
		return
	}
	delete(s.snapshot.Statuses, queryID)
}

// Snapshot returns a copy of the current snapshot.
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := s.snapshot
	snap.Statuses = cloneStatuses(s.snapshot.Statuses)
	snap.Watched = append([]string(nil), s.snapshot.Watched...)
	if s.snapshot.LastError != nil {
		snap.LastError = fmt.Errorf("%w", s.snapshot.LastError)
	}
	return snap
}

func (s *Store) now() time.Time {
	if s.Clock == nil {
		return time.Now()
	}
	return s.Clock.Now()
}

func (s *Store) changedLocked() chan struct{} {
	if s.changed == nil {
		s.changed = make(chan struct{}, 1)
	}
	return s.changed
}

func cloneStatuses(in map[string]adindex.QueryStatus) map[string]adindex.QueryStatus {
	if len(in) == 0 {
		return nil
	}
	dup := make(map[string]adindex.QueryStatus, len(in))
	for k, v := range in {
		dup[k] = v
	}
	return dup
}

func normalizeIDs(ids []string) []string {
	if len(ids) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

func equalIDs(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
