package app

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"letsquiz-service/internal/domain"
)

// ReferenceService serves the public lookup endpoints: seeded questions,
// categories and difficulty levels. The category list is the one hot spot
// (every dashboard load hits it), so it is cached with a TTL and a
// singleflight guard against stampedes on expiry.
type ReferenceService struct {
	questions QuestionRepository
	ttl       time.Duration
	clock     func() time.Time
	sf        singleflight.Group
	rnd       *rand.Rand

	mu        sync.RWMutex
	cached    []CategoryCount
	expiresAt time.Time
}

func NewReferenceService(questions QuestionRepository, cacheTTL time.Duration) *ReferenceService {
	return &ReferenceService{
		questions: questions,
		ttl:       cacheTTL,
		clock:     time.Now,
		rnd:       rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// QuestionQuery filters the public question listing.
type QuestionQuery struct {
	CategoryID      *int64
	DifficultyLabel string
	Count           int
}

// Questions returns up to Count seeded questions in random order. The
// difficulty filter is by label here, matching the public query parameter;
// an unknown label is an error, an unknown category just yields nothing.
func (s *ReferenceService) Questions(ctx context.Context, q QuestionQuery) ([]domain.Question, error) {
	if q.Count == 0 {
		q.Count = 10
	}
	if q.Count < 0 {
		return nil, domain.NewValidationError("Count must be a positive integer.")
	}

	filter := QuestionFilter{CategoryID: q.CategoryID}
	if q.DifficultyLabel != "" {
		difficulty, err := s.questions.GetDifficultyByLabel(ctx, q.DifficultyLabel)
		if err != nil {
			return nil, domain.ErrInvalidDifficulty
		}
		filter.DifficultyID = &difficulty.ID
	}
	return s.questions.RandomSeeded(ctx, filter, q.Count)
}

// Categories returns categories that have at least one seeded question,
// annotated with their question counts.
func (s *ReferenceService) Categories(ctx context.Context) ([]CategoryCount, error) {
	now := s.clock()

	s.mu.RLock()
	if s.cached != nil && s.expiresAt.After(now) {
		cached := s.cached
		s.mu.RUnlock()
		return cached, nil
	}
	s.mu.RUnlock()

	result, err, _ := s.sf.Do("categories", func() (interface{}, error) {
		now := s.clock()
		s.mu.RLock()
		if s.cached != nil && s.expiresAt.After(now) {
			cached := s.cached
			s.mu.RUnlock()
			return cached, nil
		}
		s.mu.RUnlock()

		categories, err := s.questions.ListCategories(ctx)
		if err != nil {
			return nil, err
		}

		s.mu.Lock()
		s.cached = categories
		s.expiresAt = now.Add(s.ttlWithJitter())
		s.mu.Unlock()
		return categories, nil
	})
	if err != nil {
		return nil, err
	}
	return result.([]CategoryCount), nil
}

// Difficulties lists every difficulty level.
func (s *ReferenceService) Difficulties(ctx context.Context) ([]domain.DifficultyLevel, error) {
	return s.questions.ListDifficulties(ctx)
}

func (s *ReferenceService) ttlWithJitter() time.Duration {
	if s.ttl <= 0 {
		return 0
	}
	// up to 10% jitter to spread expirations
	jitterMax := int64(s.ttl) / 10
	return s.ttl + time.Duration(s.rnd.Int63n(jitterMax+1))
}
