package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/uptrace/bun"

	"letsquiz-service/internal/app"
	"letsquiz-service/internal/domain"
)

// QuestionRepository is the Postgres implementation of app.QuestionRepository.
type QuestionRepository struct {
	db *bun.DB
}

func NewQuestionRepository(db *bun.DB) *QuestionRepository {
	return &QuestionRepository{db: db}
}

func (r *QuestionRepository) GetQuestion(ctx context.Context, id int64) (domain.Question, error) {
	rec := new(questionRecord)
	err := r.db.NewSelect().Model(rec).
		Relation("Category").
		Relation("Difficulty").
		Where("q.id = ?", id).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Question{}, domain.ErrQuestionNotFound
	}
	if err != nil {
		return domain.Question{}, fmt.Errorf("get question: %w", err)
	}
	return rec.toDomain(), nil
}

func (r *QuestionRepository) CountSeeded(ctx context.Context, filter app.QuestionFilter) (int, error) {
	q := r.db.NewSelect().Model((*questionRecord)(nil))
	n, err := seededFilter(q, filter).Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("count seeded questions: %w", err)
	}
	return n, nil
}

func (r *QuestionRepository) RandomSeeded(ctx context.Context, filter app.QuestionFilter, n int) ([]domain.Question, error) {
	var recs []questionRecord
	q := r.db.NewSelect().Model(&recs).
		Relation("Category").
		Relation("Difficulty")
	err := seededFilter(q, filter).
		OrderExpr("random()").
		Limit(n).
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("select random questions: %w", err)
	}
	out := make([]domain.Question, 0, len(recs))
	for i := range recs {
		out = append(out, recs[i].toDomain())
	}
	return out, nil
}

func seededFilter(q *bun.SelectQuery, filter app.QuestionFilter) *bun.SelectQuery {
	q = q.Where("q.is_seeded")
	if filter.CategoryID != nil {
		q = q.Where("q.category_id = ?", *filter.CategoryID)
	}
	if filter.DifficultyID != nil {
		q = q.Where("q.difficulty_id = ?", *filter.DifficultyID)
	}
	return q
}

func (r *QuestionRepository) GetCategory(ctx context.Context, id int64) (domain.Category, error) {
	rec := new(categoryRecord)
	err := r.db.NewSelect().Model(rec).Where("c.id = ?", id).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Category{}, domain.ErrInvalidCategory
	}
	if err != nil {
		return domain.Category{}, fmt.Errorf("get category: %w", err)
	}
	return rec.toDomain(), nil
}

func (r *QuestionRepository) GetDifficulty(ctx context.Context, id int64) (domain.DifficultyLevel, error) {
	rec := new(difficultyRecord)
	err := r.db.NewSelect().Model(rec).Where("d.id = ?", id).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.DifficultyLevel{}, domain.ErrInvalidDifficulty
	}
	if err != nil {
		return domain.DifficultyLevel{}, fmt.Errorf("get difficulty: %w", err)
	}
	return rec.toDomain(), nil
}

func (r *QuestionRepository) GetDifficultyByLabel(ctx context.Context, label string) (domain.DifficultyLevel, error) {
	rec := new(difficultyRecord)
	err := r.db.NewSelect().Model(rec).Where("d.label = ?", label).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.DifficultyLevel{}, domain.ErrInvalidDifficulty
	}
	if err != nil {
		return domain.DifficultyLevel{}, fmt.Errorf("get difficulty by label: %w", err)
	}
	return rec.toDomain(), nil
}

func (r *QuestionRepository) ListCategories(ctx context.Context) ([]app.CategoryCount, error) {
	var rows []struct {
		ID            int64  `bun:"id"`
		Name          string `bun:"name"`
		Description   string `bun:"description"`
		QuestionCount int    `bun:"question_count"`
	}
	err := r.db.NewSelect().
		TableExpr("categories AS c").
		ColumnExpr("c.id, c.name, c.description").
		ColumnExpr("count(q.id) AS question_count").
		Join("JOIN questions AS q ON q.category_id = c.id AND q.is_seeded").
		GroupExpr("c.id, c.name, c.description").
		OrderExpr("c.name").
		Scan(ctx, &rows)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	out := make([]app.CategoryCount, 0, len(rows))
	for _, row := range rows {
		out = append(out, app.CategoryCount{
			Category:      domain.Category{ID: row.ID, Name: row.Name, Description: row.Description},
			QuestionCount: row.QuestionCount,
		})
	}
	return out, nil
}

func (r *QuestionRepository) ListDifficulties(ctx context.Context) ([]domain.DifficultyLevel, error) {
	var recs []difficultyRecord
	err := r.db.NewSelect().Model(&recs).Order("d.id").Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("list difficulties: %w", err)
	}
	out := make([]domain.DifficultyLevel, 0, len(recs))
	for i := range recs {
		out = append(out, recs[i].toDomain())
	}
	return out, nil
}
