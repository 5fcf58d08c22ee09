package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/uptrace/bun"

	"letsquiz-service/internal/domain"
)

// SessionRepository is the Postgres implementation of app.SessionRepository.
type SessionRepository struct {
	db *bun.DB
}

func NewSessionRepository(db *bun.DB) *SessionRepository {
	return &SessionRepository{db: db}
}

func (r *SessionRepository) CreateSession(ctx context.Context, session *domain.QuizSession) error {
	return r.db.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		rec := &sessionRecord{
			UserID:         session.UserID,
			StartedAt:      session.StartedAt,
			CompletedAt:    session.CompletedAt,
			Score:          session.Score,
			IsGroupSession: session.IsGroupSession,
		}
		if _, err := tx.NewInsert().Model(rec).Returning("id").Exec(ctx); err != nil {
			return fmt.Errorf("insert session: %w", err)
		}
		session.ID = rec.ID

		if len(session.Questions) > 0 {
			sqRecs := make([]*sessionQuestionRecord, 0, len(session.Questions))
			for i := range session.Questions {
				sq := &session.Questions[i]
				sq.SessionID = session.ID
				sqRecs = append(sqRecs, &sessionQuestionRecord{
					SessionID:      sq.SessionID,
					QuestionID:     sq.QuestionID,
					Position:       sq.Position,
					SelectedAnswer: sq.SelectedAnswer,
					IsCorrect:      sq.IsCorrect,
					AnsweredAt:     sq.AnsweredAt,
				})
			}
			if _, err := tx.NewInsert().Model(&sqRecs).Returning("id").Exec(ctx); err != nil {
				return fmt.Errorf("insert session questions: %w", err)
			}
			for i := range sqRecs {
				session.Questions[i].ID = sqRecs[i].ID
			}
		}

		if len(session.Players) > 0 {
			gpRecs := make([]*groupPlayerRecord, 0, len(session.Players))
			for i := range session.Players {
				session.Players[i].SessionID = session.ID
				gpRecs = append(gpRecs, playerRecord(&session.Players[i]))
			}
			if _, err := tx.NewInsert().Model(&gpRecs).Returning("id").Exec(ctx); err != nil {
				return fmt.Errorf("insert group players: %w", err)
			}
			for i := range gpRecs {
				session.Players[i].ID = gpRecs[i].ID
			}
		}
		return nil
	})
}

func (r *SessionRepository) GetSession(ctx context.Context, id int64) (domain.QuizSession, error) {
	rec := new(sessionRecord)
	err := r.db.NewSelect().Model(rec).
		Relation("Questions", func(q *bun.SelectQuery) *bun.SelectQuery {
			return q.Order("position")
		}).
		Relation("Questions.Question").
		Relation("Questions.Question.Category").
		Relation("Questions.Question.Difficulty").
		Relation("Players", func(q *bun.SelectQuery) *bun.SelectQuery {
			return q.Order("id")
		}).
		Where("qs.id = ?", id).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.QuizSession{}, domain.ErrSessionNotFound
	}
	if err != nil {
		return domain.QuizSession{}, fmt.Errorf("get session: %w", err)
	}
	return rec.toDomain(), nil
}

// AnswerQuestion applies the answer with a conditional update: the write
// only lands while answered_at is still NULL, so of two racing submissions
// exactly one wins and the loser sees already_answered. The score bump rides
// in the same transaction.
func (r *SessionRepository) AnswerQuestion(ctx context.Context, sessionID, sessionQuestionID int64, selected string, correct bool, answeredAt time.Time) (int, error) {
	var score int
	err := r.db.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		res, err := tx.NewUpdate().Model((*sessionQuestionRecord)(nil)).
			Set("selected_answer = ?", selected).
			Set("is_correct = ?", correct).
			Set("answered_at = ?", answeredAt).
			Where("id = ?", sessionQuestionID).
			Where("session_id = ?", sessionID).
			Where("answered_at IS NULL").
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("answer question: %w", err)
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if affected == 0 {
			return domain.ErrAlreadyAnswered
		}

		if correct {
			if _, err := tx.NewUpdate().Model((*sessionRecord)(nil)).
				Set("score = score + 1").
				Where("id = ?", sessionID).
				Exec(ctx); err != nil {
				return fmt.Errorf("bump score: %w", err)
			}
		}
		return tx.NewSelect().Model((*sessionRecord)(nil)).
			Column("score").
			Where("id = ?", sessionID).
			Scan(ctx, &score)
	})
	if err != nil {
		return 0, err
	}
	return score, nil
}

func (r *SessionRepository) MarkCompleted(ctx context.Context, sessionID int64, completedAt time.Time) error {
	_, err := r.db.NewUpdate().Model((*sessionRecord)(nil)).
		Set("completed_at = ?", completedAt).
		Where("id = ?", sessionID).
		Where("completed_at IS NULL").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("mark completed: %w", err)
	}
	return nil
}

func (r *SessionRepository) UpdatePlayer(ctx context.Context, player *domain.GroupPlayer) error {
	res, err := r.db.NewUpdate().Model(playerRecord(player)).
		Column("score", "errors", "answers", "correct_answers").
		WherePK().
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("update player: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return domain.ErrPlayerNotFound
	}
	return nil
}

func (r *SessionRepository) ReplacePlayers(ctx context.Context, sessionID int64, players []domain.GroupPlayer) error {
	return r.db.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		if _, err := tx.NewDelete().Model((*groupPlayerRecord)(nil)).
			Where("session_id = ?", sessionID).
			Exec(ctx); err != nil {
			return fmt.Errorf("clear players: %w", err)
		}
		if len(players) == 0 {
			return nil
		}
		recs := make([]*groupPlayerRecord, 0, len(players))
		for i := range players {
			players[i].SessionID = sessionID
			recs = append(recs, playerRecord(&players[i]))
		}
		if _, err := tx.NewInsert().Model(&recs).Returning("id").Exec(ctx); err != nil {
			return fmt.Errorf("insert players: %w", err)
		}
		for i := range recs {
			players[i].ID = recs[i].ID
		}
		return nil
	})
}

// DeleteSession removes the session row; session questions and group players
// go with it via ON DELETE CASCADE.
func (r *SessionRepository) DeleteSession(ctx context.Context, id int64) error {
	res, err := r.db.NewDelete().Model((*sessionRecord)(nil)).Where("id = ?", id).Exec(ctx)
	if err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return domain.ErrSessionNotFound
	}
	return nil
}

func (r *SessionRepository) ListByUser(ctx context.Context, userID int64, offset, limit int) ([]domain.QuizSession, int, error) {
	total, err := r.db.NewSelect().Model((*sessionRecord)(nil)).
		Where("qs.user_id = ?", userID).
		Count(ctx)
	if err != nil {
		return nil, 0, fmt.Errorf("count sessions: %w", err)
	}

	var recs []sessionRecord
	err = r.db.NewSelect().Model(&recs).
		Relation("Questions", func(q *bun.SelectQuery) *bun.SelectQuery {
			return q.Order("position")
		}).
		Relation("Questions.Question").
		Relation("Questions.Question.Category").
		Relation("Questions.Question.Difficulty").
		Relation("Players", func(q *bun.SelectQuery) *bun.SelectQuery {
			return q.Order("id")
		}).
		Where("qs.user_id = ?", userID).
		OrderExpr("qs.started_at DESC, qs.id DESC").
		Offset(offset).
		Limit(limit).
		Scan(ctx)
	if err != nil {
		return nil, 0, fmt.Errorf("list sessions: %w", err)
	}

	out := make([]domain.QuizSession, 0, len(recs))
	for i := range recs {
		out = append(out, recs[i].toDomain())
	}
	return out, total, nil
}

func (r *SessionRepository) ListAllByUser(ctx context.Context, userID int64) ([]domain.QuizSession, error) {
	var recs []sessionRecord
	err := r.db.NewSelect().Model(&recs).
		Relation("Questions", func(q *bun.SelectQuery) *bun.SelectQuery {
			return q.Order("position")
		}).
		Relation("Questions.Question").
		Relation("Questions.Question.Category").
		Relation("Questions.Question.Difficulty").
		Where("qs.user_id = ?", userID).
		OrderExpr("qs.started_at DESC, qs.id DESC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("list all sessions: %w", err)
	}
	out := make([]domain.QuizSession, 0, len(recs))
	for i := range recs {
		out = append(out, recs[i].toDomain())
	}
	return out, nil
}
