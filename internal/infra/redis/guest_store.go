package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"letsquiz-service/internal/domain"
)

// GuestStore keeps anonymous session records in Redis as JSON values with a
// fixed TTL (30 days in production). Every Put rewrites the whole record and
// resets the expiry; concurrent writers are last-writer-wins, which is the
// documented behavior for guest state.
type GuestStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewGuestStore(client *redis.Client, ttl time.Duration) *GuestStore {
	return &GuestStore{client: client, ttl: ttl}
}

func (s *GuestStore) Put(ctx context.Context, record domain.GuestSession) error {
	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("marshal guest session: %w", err)
	}
	if err := s.client.Set(ctx, s.key(record.ID), data, s.ttl).Err(); err != nil {
		return fmt.Errorf("store guest session: %w", err)
	}
	return nil
}

func (s *GuestStore) Get(ctx context.Context, id string) (domain.GuestSession, bool, error) {
	data, err := s.client.Get(ctx, s.key(id)).Bytes()
	if err == redis.Nil {
		return domain.GuestSession{}, false, nil
	}
	if err != nil {
		return domain.GuestSession{}, false, fmt.Errorf("load guest session: %w", err)
	}
	var record domain.GuestSession
	if err := json.Unmarshal(data, &record); err != nil {
		return domain.GuestSession{}, false, fmt.Errorf("unmarshal guest session: %w", err)
	}
	return record, true, nil
}

func (s *GuestStore) key(id string) string {
	return "guest:session:" + id
}
