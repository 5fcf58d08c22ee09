package memory

import (
	"context"
	"math/rand"
	"sort"
	"sync"
	"time"

	"letsquiz-service/internal/app"
	"letsquiz-service/internal/domain"
)

// QuestionRepository is an in-memory implementation of app.QuestionRepository,
// used by tests and by the no-database demo mode.
type QuestionRepository struct {
	mu           sync.RWMutex
	rnd          *rand.Rand
	categories   map[int64]domain.Category
	difficulties map[int64]domain.DifficultyLevel
	questions    map[int64]domain.Question
	nextID       int64
}

func NewQuestionRepository() *QuestionRepository {
	return &QuestionRepository{
		rnd:          rand.New(rand.NewSource(time.Now().UnixNano())),
		categories:   make(map[int64]domain.Category),
		difficulties: make(map[int64]domain.DifficultyLevel),
		questions:    make(map[int64]domain.Question),
	}
}

// AddCategory registers a category, reusing an existing one with the same name.
func (r *QuestionRepository) AddCategory(name string) domain.Category {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, c := range r.categories {
		if c.Name == name {
			return c
		}
	}
	r.nextID++
	c := domain.Category{ID: r.nextID, Name: name}
	r.categories[c.ID] = c
	return c
}

// AddDifficulty registers a difficulty level, reusing an existing label.
func (r *QuestionRepository) AddDifficulty(label string) domain.DifficultyLevel {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, d := range r.difficulties {
		if d.Label == label {
			return d
		}
	}
	r.nextID++
	d := domain.DifficultyLevel{ID: r.nextID, Label: label}
	r.difficulties[d.ID] = d
	return d
}

// AddQuestion stores a question and assigns its id.
func (r *QuestionRepository) AddQuestion(q domain.Question) domain.Question {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	q.ID = r.nextID
	r.questions[q.ID] = q
	return q
}

func (r *QuestionRepository) GetQuestion(_ context.Context, id int64) (domain.Question, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	q, ok := r.questions[id]
	if !ok {
		return domain.Question{}, domain.ErrQuestionNotFound
	}
	return q, nil
}

func (r *QuestionRepository) CountSeeded(_ context.Context, filter app.QuestionFilter) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.matchingLocked(filter)), nil
}

func (r *QuestionRepository) RandomSeeded(_ context.Context, filter app.QuestionFilter, n int) ([]domain.Question, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	pool := r.matchingLocked(filter)
	r.rnd.Shuffle(len(pool), func(i, j int) { pool[i], pool[j] = pool[j], pool[i] })
	if n < len(pool) {
		pool = pool[:n]
	}
	return pool, nil
}

func (r *QuestionRepository) matchingLocked(filter app.QuestionFilter) []domain.Question {
	var pool []domain.Question
	for _, q := range r.questions {
		if !q.IsSeeded {
			continue
		}
		if filter.CategoryID != nil && (q.Category == nil || q.Category.ID != *filter.CategoryID) {
			continue
		}
		if filter.DifficultyID != nil && (q.Difficulty == nil || q.Difficulty.ID != *filter.DifficultyID) {
			continue
		}
		pool = append(pool, q)
	}
	// Stable base order so selection probabilities are map-iteration
	// independent; the shuffle above supplies the randomness.
	sort.Slice(pool, func(i, j int) bool { return pool[i].ID < pool[j].ID })
	return pool
}

func (r *QuestionRepository) GetCategory(_ context.Context, id int64) (domain.Category, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.categories[id]
	if !ok {
		return domain.Category{}, domain.ErrInvalidCategory
	}
	return c, nil
}

func (r *QuestionRepository) GetDifficulty(_ context.Context, id int64) (domain.DifficultyLevel, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	d, ok := r.difficulties[id]
	if !ok {
		return domain.DifficultyLevel{}, domain.ErrInvalidDifficulty
	}
	return d, nil
}

func (r *QuestionRepository) GetDifficultyByLabel(_ context.Context, label string) (domain.DifficultyLevel, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, d := range r.difficulties {
		if d.Label == label {
			return d, nil
		}
	}
	return domain.DifficultyLevel{}, domain.ErrInvalidDifficulty
}

func (r *QuestionRepository) ListCategories(_ context.Context) ([]app.CategoryCount, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	counts := make(map[int64]int)
	for _, q := range r.questions {
		if q.IsSeeded && q.Category != nil {
			counts[q.Category.ID]++
		}
	}
	out := make([]app.CategoryCount, 0, len(counts))
	for id, n := range counts {
		out = append(out, app.CategoryCount{Category: r.categories[id], QuestionCount: n})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (r *QuestionRepository) ListDifficulties(_ context.Context) ([]domain.DifficultyLevel, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]domain.DifficultyLevel, 0, len(r.difficulties))
	for _, d := range r.difficulties {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}
