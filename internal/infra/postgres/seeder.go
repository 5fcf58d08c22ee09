package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/jackc/pgx/v4/pgxpool"
)

// Seeder loads seed questions from a JSON file into Postgres. It is used by
// the seed command and by integration tests to prime a fresh database.
type Seeder struct {
	pool *pgxpool.Pool
}

func NewSeeder(pool *pgxpool.Pool) *Seeder {
	return &Seeder{pool: pool}
}

type seedQuestion struct {
	Category      string            `json:"category"`
	Difficulty    string            `json:"difficulty"`
	QuestionText  string            `json:"question_text"`
	CorrectAnswer string            `json:"correct_answer"`
	Options       []string          `json:"options"`
	Metadata      map[string]string `json:"metadata"`
}

// SeedFromFile reads the seed file and inserts every question, creating
// categories and difficulty levels on demand. Returns the number of
// questions inserted.
func (s *Seeder) SeedFromFile(ctx context.Context, path string) (int, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("read seed file: %w", err)
	}
	var questions []seedQuestion
	if err := json.Unmarshal(raw, &questions); err != nil {
		return 0, fmt.Errorf("parse seed file: %w", err)
	}
	return s.Seed(ctx, questions)
}

func (s *Seeder) Seed(ctx context.Context, questions []seedQuestion) (int, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("begin seed tx: %w", err)
	}
	defer tx.Rollback(ctx)

	categories := map[string]int64{}
	difficulties := map[string]int64{}
	inserted := 0

	for _, q := range questions {
		if q.QuestionText == "" || q.CorrectAnswer == "" {
			continue
		}
		catID, ok := categories[q.Category]
		if !ok {
			err := tx.QueryRow(ctx, `
				INSERT INTO categories (name) VALUES ($1)
				ON CONFLICT (name) DO UPDATE SET name = EXCLUDED.name
				RETURNING id`, q.Category).Scan(&catID)
			if err != nil {
				return 0, fmt.Errorf("upsert category %q: %w", q.Category, err)
			}
			categories[q.Category] = catID
		}
		diffID, ok := difficulties[q.Difficulty]
		if !ok {
			err := tx.QueryRow(ctx, `
				INSERT INTO difficulty_levels (label) VALUES ($1)
				ON CONFLICT (label) DO UPDATE SET label = EXCLUDED.label
				RETURNING id`, q.Difficulty).Scan(&diffID)
			if err != nil {
				return 0, fmt.Errorf("upsert difficulty %q: %w", q.Difficulty, err)
			}
			difficulties[q.Difficulty] = diffID
		}

		options, err := json.Marshal(q.Options)
		if err != nil {
			return 0, fmt.Errorf("marshal options: %w", err)
		}
		metadata := q.Metadata
		if metadata == nil {
			metadata = map[string]string{}
		}
		meta, err := json.Marshal(metadata)
		if err != nil {
			return 0, fmt.Errorf("marshal metadata: %w", err)
		}

		_, err = tx.Exec(ctx, `
			INSERT INTO questions
				(category_id, difficulty_id, question_text, correct_answer, answer_options, is_seeded, metadata)
			VALUES ($1, $2, $3, $4, $5, TRUE, $6)`,
			catID, diffID, q.QuestionText, q.CorrectAnswer, options, meta)
		if err != nil {
			return 0, fmt.Errorf("insert question: %w", err)
		}
		inserted++
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("commit seed tx: %w", err)
	}
	return inserted, nil
}
