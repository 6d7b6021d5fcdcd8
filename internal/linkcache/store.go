package linkcache

import (
	"context"
	"net/url"
	"sync"
	"time"

	"artkeeper/internal/models"
)

// Verdict is one settled verification result.
type Verdict struct {
	Validity   models.LinkValidity `json:"validity"`
	StatusCode int                 `json:"statusCode"`
	CID        string              `json:"cid,omitempty"`
	CheckedAt  time.Time           `json:"checkedAt"`
}

// VerdictStore persists verdicts under normalized URL keys. An entry past
// its TTL is absent, never "invalid".
type VerdictStore interface {
	Get(ctx context.Context, key string) (Verdict, bool)
	Set(ctx context.Context, key string, v Verdict, ttl time.Duration)
	Delete(ctx context.Context, key string)
	// DeleteDomain removes every settled entry whose host matches and
	// reports how many were dropped.
	DeleteDomain(ctx context.Context, host string) int
	// PurgeExpired drops entries past their TTL. Stores with native
	// expiry may treat this as a no-op.
	PurgeExpired(ctx context.Context) int
}

func hostOf(key string) string {
	u, err := url.Parse(key)
	if err != nil {
		return ""
	}
	return u.Hostname()
}

type memoryEntry struct {
	verdict   Verdict
	expiresAt time.Time
}

// MemoryStore is the in-process VerdictStore. Readers never mutate; the
// lock is never held across a network call.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string]memoryEntry
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[string]memoryEntry)}
}

func (s *MemoryStore) Get(_ context.Context, key string) (Verdict, bool) {
	s.mu.RLock()
	e, ok := s.entries[key]
	s.mu.RUnlock()
	if !ok {
		return Verdict{}, false
	}
	if time.Now().After(e.expiresAt) {
		s.mu.Lock()
		// Re-check under the write lock; another writer may have
		// refreshed the entry meanwhile.
		if cur, ok := s.entries[key]; ok && time.Now().After(cur.expiresAt) {
			delete(s.entries, key)
		}
		s.mu.Unlock()
		return Verdict{}, false
	}
	return e.verdict, true
}

func (s *MemoryStore) Set(_ context.Context, key string, v Verdict, ttl time.Duration) {
	s.mu.Lock()
	s.entries[key] = memoryEntry{verdict: v, expiresAt: time.Now().Add(ttl)}
	s.mu.Unlock()
}

func (s *MemoryStore) Delete(_ context.Context, key string) {
	s.mu.Lock()
	delete(s.entries, key)
	s.mu.Unlock()
}

func (s *MemoryStore) DeleteDomain(_ context.Context, host string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for key := range s.entries {
		if hostOf(key) == host {
			delete(s.entries, key)
			n++
		}
	}
	return n
}

func (s *MemoryStore) PurgeExpired(_ context.Context) int {
	now := time.Now()
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for key, e := range s.entries {
		if now.After(e.expiresAt) {
			delete(s.entries, key)
			n++
		}
	}
	return n
}

// Len reports the live entry count (testing and metrics).
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}
