package cache

import (
	"context"
	"sync"
	"time"
)

// memoryEntry holds one value and its hard expiry.
type memoryEntry struct {
	value     []byte
	expiresAt time.Time
}

func (e memoryEntry) expired(now time.Time) bool {
	return now.After(e.expiresAt)
}

// MemoryStore is a thread-safe in-memory TTL store. Expired entries are
// evicted lazily on read and swept by a background janitor so abandoned keys
// do not accumulate.
type MemoryStore struct {
	mu    sync.RWMutex
	items map[string]memoryEntry

	shutdown chan struct{}
	done     chan struct{}
}

// NewMemoryStore creates a memory store whose janitor sweeps at the given
// interval. Close stops the janitor.
func NewMemoryStore(janitorInterval time.Duration) *MemoryStore {
	s := &MemoryStore{
		items:    make(map[string]memoryEntry),
		shutdown: make(chan struct{}),
		done:     make(chan struct{}),
	}
	go s.janitor(janitorInterval)
	return s
}

// Get returns the value for key, or a miss when absent or expired. Expired
// entries are removed on the spot.
func (s *MemoryStore) Get(_ context.Context, key string) ([]byte, bool, error) {
	s.mu.RLock()
	entry, exists := s.items[key]
	s.mu.RUnlock()

	if !exists {
		return nil, false, nil
	}

	if entry.expired(time.Now()) {
		s.mu.Lock()
		// Re-check under the write lock; a concurrent Set may have renewed it.
		if current, still := s.items[key]; still && current.expired(time.Now()) {
			delete(s.items, key)
		}
		s.mu.Unlock()
		return nil, false, nil
	}

	return entry.value, true, nil
}

// Set stores value under key with the given TTL. Last writer wins.
func (s *MemoryStore) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	s.mu.Lock()
	s.items[key] = memoryEntry{value: value, expiresAt: time.Now().Add(ttl)}
	s.mu.Unlock()
	return nil
}

// Close stops the background janitor.
func (s *MemoryStore) Close() error {
	select {
	case <-s.shutdown:
	default:
		close(s.shutdown)
	}
	<-s.done
	return nil
}

func (s *MemoryStore) janitor(interval time.Duration) {
	defer close(s.done)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.shutdown:
			return
		case <-ticker.C:
			s.removeExpired()
		}
	}
}

func (s *MemoryStore) removeExpired() {
	now := time.Now()
	s.mu.Lock()
	for key, entry := range s.items {
		if entry.expired(now) {
			delete(s.items, key)
		}
	}
	s.mu.Unlock()
}
