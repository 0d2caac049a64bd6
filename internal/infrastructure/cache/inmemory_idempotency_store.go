package cache

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/storesync/backend/internal/domain/shared"
)

// sweepInterval is how often the background sweep evicts expired batch keys
const sweepInterval = 5 * time.Minute

// batchEntry is one remembered batch key
type batchEntry struct {
	markedAt  time.Time
	expiresAt time.Time
}

func (e batchEntry) expired(now time.Time) bool {
	return now.After(e.expiresAt)
}

// InMemoryIdempotencyStore implements IdempotencyStore on a process-local
// map. Keys are namespaced the same way as the Redis store, so a deployment
// can move between the two without re-keying its batch feed. Suitable for
// single-instance deployments and tests; state is not shared across
// processes.
type InMemoryIdempotencyStore struct {
	keyPrefix string

	mu      sync.Mutex
	entries map[string]batchEntry

	stopChan  chan struct{}
	wg        sync.WaitGroup
	closeOnce sync.Once
}

// NewInMemoryIdempotencyStore creates an in-memory idempotency store with
// the standard batch key namespace and starts the background sweep.
func NewInMemoryIdempotencyStore() *InMemoryIdempotencyStore {
	store := &InMemoryIdempotencyStore{
		keyPrefix: "batch:idempotency:",
		entries:   make(map[string]batchEntry),
		stopChan:  make(chan struct{}),
	}

	store.wg.Add(1)
	go store.sweepLoop()

	return store
}

func (s *InMemoryIdempotencyStore) key(batchKey string) string {
	if strings.HasPrefix(batchKey, s.keyPrefix) {
		return batchKey
	}
	return s.keyPrefix + batchKey
}

// MarkProcessed marks a batch key as processed with a TTL. Returns true if
// the key was newly marked, false if it was already processed. The single
// lock keeps the check-and-mark atomic within the process, mirroring the
// Redis store's SETNX.
func (s *InMemoryIdempotencyStore) MarkProcessed(ctx context.Context, batchKey string, ttl time.Duration) (bool, error) {
	key := s.key(batchKey)
	now := time.Now()

	s.mu.Lock()
	defer s.mu.Unlock()

	if e, exists := s.entries[key]; exists && !e.expired(now) {
		return false, nil
	}

	s.entries[key] = batchEntry{
		markedAt:  now,
		expiresAt: now.Add(ttl),
	}
	return true, nil
}

// IsProcessed checks if a batch key has already been processed. An expired
// entry is evicted on sight rather than waiting for the sweep.
func (s *InMemoryIdempotencyStore) IsProcessed(ctx context.Context, batchKey string) (bool, error) {
	key := s.key(batchKey)
	now := time.Now()

	s.mu.Lock()
	defer s.mu.Unlock()

	e, exists := s.entries[key]
	if !exists {
		return false, nil
	}
	if e.expired(now) {
		delete(s.entries, key)
		return false, nil
	}
	return true, nil
}

// Close stops the sweep goroutine. Safe to call multiple times.
func (s *InMemoryIdempotencyStore) Close() error {
	s.closeOnce.Do(func() {
		close(s.stopChan)
		s.wg.Wait()
	})
	return nil
}

func (s *InMemoryIdempotencyStore) sweepLoop() {
	defer s.wg.Done()

	ticker := time.NewTicker(sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopChan:
			return
		case <-ticker.C:
			s.sweep()
		}
	}
}

// sweep evicts every expired batch key
func (s *InMemoryIdempotencyStore) sweep() {
	now := time.Now()

	s.mu.Lock()
	defer s.mu.Unlock()

	for key, e := range s.entries {
		if e.expired(now) {
			delete(s.entries, key)
		}
	}
}

// Size returns the number of remembered batch keys (for testing/monitoring)
func (s *InMemoryIdempotencyStore) Size() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// Ensure InMemoryIdempotencyStore implements IdempotencyStore
var _ shared.IdempotencyStore = (*InMemoryIdempotencyStore)(nil)
