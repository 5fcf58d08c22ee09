package memory

import (
	"context"
	"sync"
	"time"

	"letsquiz-service/internal/domain"
)

// GuestStore is an in-memory implementation of app.GuestStore with the same
// TTL semantics as the Redis one: Put resets the expiry, Get treats an
// expired record as a miss.
type GuestStore struct {
	ttl   time.Duration
	clock func() time.Time

	mu      sync.RWMutex
	records map[string]guestEntry
}

type guestEntry struct {
	record    domain.GuestSession
	expiresAt time.Time
}

func NewGuestStore(ttl time.Duration) *GuestStore {
	return &GuestStore{ttl: ttl, clock: time.Now, records: make(map[string]guestEntry)}
}

func (s *GuestStore) Put(_ context.Context, record domain.GuestSession) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[record.ID] = guestEntry{record: record, expiresAt: s.clock().Add(s.ttl)}
	return nil
}

func (s *GuestStore) Get(_ context.Context, id string) (domain.GuestSession, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	entry, ok := s.records[id]
	if !ok || entry.expiresAt.Before(s.clock()) {
		return domain.GuestSession{}, false, nil
	}
	return entry.record, true, nil
}
