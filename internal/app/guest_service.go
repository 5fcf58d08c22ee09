package app

import (
	"context"
	"strconv"
	"time"

	"github.com/google/uuid"

	"letsquiz-service/internal/domain"
)

// GuestStore abstracts the cache that holds anonymous session records. Put
// (re)writes the record and resets its expiry; Get returns found=false on a
// cache miss or an expired record.
type GuestStore interface {
	Put(ctx context.Context, record domain.GuestSession) error
	Get(ctx context.Context, id string) (domain.GuestSession, bool, error)
}

// GuestService manages cache-backed anonymous progress records. The record
// id is a capability token: whoever holds it owns the record, and there is
// no conversion to a real account (an explicit extension point). Updates are
// last-writer-wins; the store offers no locking.
type GuestService struct {
	store GuestStore
	now   func() time.Time
}

func NewGuestService(store GuestStore) *GuestService {
	return &GuestService{store: store, now: time.Now}
}

// NewGuestServiceWithClock is for deterministic timestamps in tests.
func NewGuestServiceWithClock(store GuestStore, now func() time.Time) *GuestService {
	return &GuestService{store: store, now: now}
}

// Create mints a fresh guest record and stores it with the fixed TTL.
func (s *GuestService) Create(ctx context.Context) (domain.GuestSession, error) {
	record := domain.GuestSession{
		ID:               uuid.NewString(),
		Progress:         map[string]domain.GuestProgress{},
		CompletedQuizzes: []string{},
		CreatedAt:        s.now(),
	}
	if err := s.store.Put(ctx, record); err != nil {
		return domain.GuestSession{}, err
	}
	return record, nil
}

// Get fetches a guest record; a cache miss is a plain not-found.
func (s *GuestService) Get(ctx context.Context, id string) (domain.GuestSession, error) {
	record, found, err := s.store.Get(ctx, id)
	if err != nil {
		return domain.GuestSession{}, err
	}
	if !found {
		return domain.GuestSession{}, domain.ErrSessionNotFound
	}
	return record, nil
}

// SessionProgress is the slice of session state a guest record tracks.
type SessionProgress struct {
	SessionID      int64
	Score          int
	TotalQuestions int
	Completed      bool
}

// TrackProgress folds the current state of a quiz session into the guest
// record. An expired or missing record is restarted rather than failed, so
// a guest whose record lapsed mid-quiz keeps playing. The write refreshes
// the TTL.
func (s *GuestService) TrackProgress(ctx context.Context, guestID string, progress SessionProgress) error {
	record, found, err := s.store.Get(ctx, guestID)
	if err != nil {
		return err
	}
	if !found {
		record = domain.GuestSession{
			ID:               guestID,
			Progress:         map[string]domain.GuestProgress{},
			CompletedQuizzes: []string{},
			CreatedAt:        s.now(),
		}
	}
	if record.Progress == nil {
		record.Progress = map[string]domain.GuestProgress{}
	}

	key := strconv.FormatInt(progress.SessionID, 10)
	record.Progress[key] = domain.GuestProgress{
		Score:          progress.Score,
		CompletedAt:    s.now(),
		TotalQuestions: progress.TotalQuestions,
	}
	if progress.Completed && !containsString(record.CompletedQuizzes, key) {
		record.CompletedQuizzes = append(record.CompletedQuizzes, key)
		record.TotalScore += progress.Score
	}
	return s.store.Put(ctx, record)
}

func containsString(list []string, want string) bool {
	for _, s := range list {
		if s == want {
			return true
		}
	}
	return false
}
