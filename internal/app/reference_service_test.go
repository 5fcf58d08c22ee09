package app_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"letsquiz-service/internal/app"
	"letsquiz-service/internal/domain"
	"letsquiz-service/internal/infra/memory"
)

// countingQuestionRepo wraps the memory repo to count ListCategories calls.
type countingQuestionRepo struct {
	*memory.QuestionRepository
	listCalls atomic.Int64
}

func (r *countingQuestionRepo) ListCategories(ctx context.Context) ([]app.CategoryCount, error) {
	r.listCalls.Add(1)
	return r.QuestionRepository.ListCategories(ctx)
}

func newReferenceFixture(t *testing.T) (*countingQuestionRepo, *app.ReferenceService) {
	t.Helper()
	repo := &countingQuestionRepo{QuestionRepository: memory.NewQuestionRepository()}
	science := repo.AddCategory("Science")
	easy := repo.AddDifficulty("Easy")
	hard := repo.AddDifficulty("Hard")
	for i := 0; i < 15; i++ {
		difficulty := easy
		if i%2 == 0 {
			difficulty = hard
		}
		repo.AddQuestion(domain.Question{
			Category:      &science,
			Difficulty:    &difficulty,
			Text:          "q",
			CorrectAnswer: "a",
			IsSeeded:      true,
		})
	}
	return repo, app.NewReferenceService(repo, time.Minute)
}

func TestQuestionsDefaultCount(t *testing.T) {
	ctx := context.Background()
	_, service := newReferenceFixture(t)

	questions, err := service.Questions(ctx, app.QuestionQuery{})
	if err != nil {
		t.Fatalf("questions failed: %v", err)
	}
	if len(questions) != 10 {
		t.Fatalf("expected default count of 10, got %d", len(questions))
	}
}

func TestQuestionsDifficultyFilter(t *testing.T) {
	ctx := context.Background()
	_, service := newReferenceFixture(t)

	questions, err := service.Questions(ctx, app.QuestionQuery{DifficultyLabel: "Hard", Count: 100})
	if err != nil {
		t.Fatalf("questions failed: %v", err)
	}
	for _, q := range questions {
		if q.Difficulty == nil || q.Difficulty.Label != "Hard" {
			t.Fatalf("expected only hard questions, got %+v", q.Difficulty)
		}
	}

	if _, err := service.Questions(ctx, app.QuestionQuery{DifficultyLabel: "Impossible"}); !errors.Is(err, domain.ErrInvalidDifficulty) {
		t.Fatalf("expected invalid difficulty, got %v", err)
	}
}

func TestQuestionsUnknownCategoryYieldsNothing(t *testing.T) {
	ctx := context.Background()
	_, service := newReferenceFixture(t)

	unknown := int64(999)
	questions, err := service.Questions(ctx, app.QuestionQuery{CategoryID: &unknown})
	if err != nil {
		t.Fatalf("questions failed: %v", err)
	}
	if len(questions) != 0 {
		t.Fatalf("expected empty result for unknown category, got %d", len(questions))
	}
}

func TestCategoriesAreCached(t *testing.T) {
	ctx := context.Background()
	repo, service := newReferenceFixture(t)

	first, err := service.Categories(ctx)
	if err != nil {
		t.Fatalf("categories failed: %v", err)
	}
	if len(first) != 1 || first[0].Name != "Science" || first[0].QuestionCount != 15 {
		t.Fatalf("unexpected categories: %+v", first)
	}

	for i := 0; i < 5; i++ {
		if _, err := service.Categories(ctx); err != nil {
			t.Fatalf("categories failed: %v", err)
		}
	}
	if calls := repo.listCalls.Load(); calls != 1 {
		t.Fatalf("expected a single backing call within the TTL, got %d", calls)
	}
}

func TestDifficulties(t *testing.T) {
	ctx := context.Background()
	_, service := newReferenceFixture(t)

	difficulties, err := service.Difficulties(ctx)
	if err != nil {
		t.Fatalf("difficulties failed: %v", err)
	}
	if len(difficulties) != 2 {
		t.Fatalf("expected 2 difficulty levels, got %d", len(difficulties))
	}
}
