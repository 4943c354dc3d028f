package cache

import (
	"context"
	"sync"
	"time"

	sa "github.com/panyam/stackauth"
)

type memoryEntry struct {
	profile   sa.Profile
	expiresAt time.Time
}

// MemoryCache is a process local ProfileCache.  A zero TTL keeps entries
// forever; otherwise expired entries are swept out on writes at most once per TTL.
type MemoryCache struct {
	TTL time.Duration

	mu        sync.Mutex
	entries   map[string]memoryEntry
	nextPrune time.Time
	now       func() time.Time
}

func NewMemoryCache(ttl time.Duration) *MemoryCache {
	return &MemoryCache{
		TTL:     ttl,
		entries: make(map[string]memoryEntry),
		now:     time.Now,
	}
}

func (m *MemoryCache) Get(ctx context.Context, accessToken string) (*sa.Profile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := TokenKey(accessToken)
	entry, ok := m.entries[key]
	if !ok {
		return nil, ErrNotFound
	}
	if entry.expired(m.now()) {
		delete(m.entries, key)
		return nil, ErrNotFound
	}
	profile := entry.profile
	return &profile, nil
}

func (m *MemoryCache) Put(ctx context.Context, accessToken string, profile *sa.Profile) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.now()
	entry := memoryEntry{profile: *profile}
	if m.TTL > 0 {
		entry.expiresAt = now.Add(m.TTL)
		if !now.Before(m.nextPrune) {
			m.prune(now)
			m.nextPrune = now.Add(m.TTL)
		}
	}
	m.entries[TokenKey(accessToken)] = entry
	return nil
}

// Len returns the number of entries held, expired or not
func (m *MemoryCache) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}

func (m *MemoryCache) prune(now time.Time) {
	for key, entry := range m.entries {
		if entry.expired(now) {
			delete(m.entries, key)
		}
	}
}

func (e memoryEntry) expired(now time.Time) bool {
	return !e.expiresAt.IsZero() && now.After(e.expiresAt)
}
