package memory

import (
	"context"
	"sync"
	"time"

	"timed-quiz-service/internal/domain"
)

// TransferStore is a read-once key/value store with per-entry expiry.
type TransferStore struct {
	clock func() time.Time

	mu      sync.Mutex
	entries map[string]transferEntry
}

type transferEntry struct {
	payload   []byte
	expiresAt time.Time
}

func NewTransferStore() *TransferStore {
	return &TransferStore{
		clock:   time.Now,
		entries: make(map[string]transferEntry),
	}
}

func (s *TransferStore) Put(_ context.Context, key string, payload []byte, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.clock()
	s.evictLocked(now)
	entry := transferEntry{payload: append([]byte(nil), payload...)}
	if ttl > 0 {
		entry.expiresAt = now.Add(ttl)
	}
	s.entries[key] = entry
	return nil
}

func (s *TransferStore) Take(_ context.Context, key string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.entries[key]
	if !ok {
		return nil, domain.ErrTransferNotFound
	}
	delete(s.entries, key)
	if !entry.expiresAt.IsZero() && !entry.expiresAt.After(s.clock()) {
		return nil, domain.ErrTransferNotFound
	}
	return entry.payload, nil
}

func (s *TransferStore) evictLocked(now time.Time) {
	for k, e := range s.entries {
		if !e.expiresAt.IsZero() && !e.expiresAt.After(now) {
			delete(s.entries, k)
		}
	}
}
