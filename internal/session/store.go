// Package session holds finished run results in memory for later retrieval
// and export, keyed by session id with an explicit eviction policy.
package session

import (
	"sync"
	"time"

	"github.com/ace26597/News-Agent/internal/model"
)

// Result is a finished run retained for the session's lifetime.
type Result struct {
	SessionID string
	Query     model.Query
	Articles  []model.Article
	Stats     model.RunStats
	CreatedAt time.Time

	lastTouched time.Time
}

// Store is a bounded in-memory result cache. When the size cap is exceeded
// the least-recently-touched entry is evicted; entries older than the TTL
// are dropped on access.
type Store struct {
	mu         sync.Mutex
	entries    map[string]*Result
	maxEntries int
	ttl        time.Duration
}

// NewStore creates a Store with the given size cap and TTL. Zero values
// fall back to 50 entries and two hours.
func NewStore(maxEntries int, ttl time.Duration) *Store {
	if maxEntries <= 0 {
		maxEntries = 50
	}
	if ttl <= 0 {
		ttl = 2 * time.Hour
	}
	return &Store{
		entries:    make(map[string]*Result),
		maxEntries: maxEntries,
		ttl:        ttl,
	}
}

// Put stores a result, evicting the least-recently-touched entry if the
// store is full.
func (s *Store) Put(result *Result) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	result.CreatedAt = now
	result.lastTouched = now
	s.entries[result.SessionID] = result

	for len(s.entries) > s.maxEntries {
		s.evictOldest()
	}
}

// Get returns the result for a session id, refreshing its last-touched
// time. Expired entries are dropped and reported as absent.
func (s *Store) Get(sessionID string) (*Result, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.entries[sessionID]
	if !ok {
		return nil, false
	}
	if time.Since(r.lastTouched) > s.ttl {
		delete(s.entries, sessionID)
		return nil, false
	}
	r.lastTouched = time.Now()
	return r, true
}

// Len reports the current entry count.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

func (s *Store) evictOldest() {
	var oldestID string
	var oldest time.Time
	first := true
	for id, r := range s.entries {
		if first || r.lastTouched.Before(oldest) {
			oldestID = id
			oldest = r.lastTouched
			first = false
		}
	}
	if oldestID != "" {
		delete(s.entries, oldestID)
	}
}
