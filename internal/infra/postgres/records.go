package postgres

import (
	"time"

	"github.com/uptrace/bun"

	"letsquiz-service/internal/domain"
)

type userRecord struct {
	bun.BaseModel `bun:"table:users,alias:u"`

	ID           int64     `bun:"id,pk,autoincrement"`
	Email        string    `bun:"email,notnull,unique"`
	PasswordHash string    `bun:"password_hash,notnull"`
	IsActive     bool      `bun:"is_active,notnull"`
	IsPremium    bool      `bun:"is_premium,notnull"`
	JoinedAt     time.Time `bun:"joined_at,notnull"`
}

type categoryRecord struct {
	bun.BaseModel `bun:"table:categories,alias:c"`

	ID          int64  `bun:"id,pk,autoincrement"`
	Name        string `bun:"name,notnull,unique"`
	Description string `bun:"description"`
}

type difficultyRecord struct {
	bun.BaseModel `bun:"table:difficulty_levels,alias:d"`

	ID          int64  `bun:"id,pk,autoincrement"`
	Label       string `bun:"label,notnull,unique"`
	Description string `bun:"description"`
}

type questionRecord struct {
	bun.BaseModel `bun:"table:questions,alias:q"`

	ID            int64             `bun:"id,pk,autoincrement"`
	CategoryID    *int64            `bun:"category_id"`
	DifficultyID  *int64            `bun:"difficulty_id"`
	Text          string            `bun:"question_text,notnull"`
	CorrectAnswer string            `bun:"correct_answer,notnull"`
	AnswerOptions []string          `bun:"answer_options,type:jsonb"`
	Metadata      map[string]any    `bun:"metadata,type:jsonb"`
	IsSeeded      bool              `bun:"is_seeded,notnull"`
	IsFallback    bool              `bun:"is_fallback,notnull"`
	CreatedBy     *int64            `bun:"created_by"`
	Category      *categoryRecord   `bun:"rel:belongs-to,join:category_id=id"`
	Difficulty    *difficultyRecord `bun:"rel:belongs-to,join:difficulty_id=id"`
}

type sessionRecord struct {
	bun.BaseModel `bun:"table:quiz_sessions,alias:qs"`

	ID             int64                    `bun:"id,pk,autoincrement"`
	UserID         *int64                   `bun:"user_id"`
	StartedAt      time.Time                `bun:"started_at,notnull"`
	CompletedAt    *time.Time               `bun:"completed_at"`
	Score          int                      `bun:"score,notnull"`
	IsGroupSession bool                     `bun:"is_group_session,notnull"`
	Questions      []*sessionQuestionRecord `bun:"rel:has-many,join:id=session_id"`
	Players        []*groupPlayerRecord     `bun:"rel:has-many,join:id=session_id"`
}

type sessionQuestionRecord struct {
	bun.BaseModel `bun:"table:session_questions,alias:sq"`

	ID             int64           `bun:"id,pk,autoincrement"`
	SessionID      int64           `bun:"session_id,notnull"`
	QuestionID     int64           `bun:"question_id,notnull"`
	Position       int             `bun:"position,notnull"`
	SelectedAnswer *string         `bun:"selected_answer"`
	IsCorrect      bool            `bun:"is_correct,notnull"`
	AnsweredAt     *time.Time      `bun:"answered_at"`
	Question       *questionRecord `bun:"rel:belongs-to,join:question_id=id"`
}

type groupPlayerRecord struct {
	bun.BaseModel `bun:"table:group_players,alias:gp"`

	ID             int64          `bun:"id,pk,autoincrement"`
	SessionID      int64          `bun:"session_id,notnull"`
	Name           string         `bun:"name,notnull"`
	Score          int            `bun:"score,notnull"`
	Errors         []string       `bun:"errors,type:jsonb"`
	Answers        []string       `bun:"answers,type:jsonb"`
	CorrectAnswers map[int64]bool `bun:"correct_answers,type:jsonb"`
}

func (r *userRecord) toDomain() domain.User {
	return domain.User{
		ID:           r.ID,
		Email:        r.Email,
		PasswordHash: r.PasswordHash,
		IsActive:     r.IsActive,
		IsPremium:    r.IsPremium,
		JoinedAt:     r.JoinedAt,
	}
}

func (r *categoryRecord) toDomain() domain.Category {
	return domain.Category{ID: r.ID, Name: r.Name, Description: r.Description}
}

func (r *difficultyRecord) toDomain() domain.DifficultyLevel {
	return domain.DifficultyLevel{ID: r.ID, Label: r.Label, Description: r.Description}
}

func (r *questionRecord) toDomain() domain.Question {
	q := domain.Question{
		ID:            r.ID,
		Text:          r.Text,
		CorrectAnswer: r.CorrectAnswer,
		AnswerOptions: r.AnswerOptions,
		Metadata:      r.Metadata,
		IsSeeded:      r.IsSeeded,
		IsFallback:    r.IsFallback,
		CreatedBy:     r.CreatedBy,
	}
	if r.Category != nil {
		c := r.Category.toDomain()
		q.Category = &c
	}
	if r.Difficulty != nil {
		d := r.Difficulty.toDomain()
		q.Difficulty = &d
	}
	return q
}

func (r *sessionRecord) toDomain() domain.QuizSession {
	s := domain.QuizSession{
		ID:             r.ID,
		UserID:         r.UserID,
		StartedAt:      r.StartedAt,
		CompletedAt:    r.CompletedAt,
		Score:          r.Score,
		IsGroupSession: r.IsGroupSession,
	}
	for _, sq := range r.Questions {
		item := domain.SessionQuestion{
			ID:             sq.ID,
			SessionID:      sq.SessionID,
			QuestionID:     sq.QuestionID,
			Position:       sq.Position,
			SelectedAnswer: sq.SelectedAnswer,
			IsCorrect:      sq.IsCorrect,
			AnsweredAt:     sq.AnsweredAt,
		}
		if sq.Question != nil {
			q := sq.Question.toDomain()
			item.Question = &q
		}
		s.Questions = append(s.Questions, item)
	}
	for _, gp := range r.Players {
		s.Players = append(s.Players, gp.toDomain())
	}
	return s
}

func (r *groupPlayerRecord) toDomain() domain.GroupPlayer {
	p := domain.GroupPlayer{
		ID:             r.ID,
		SessionID:      r.SessionID,
		Name:           r.Name,
		Score:          r.Score,
		Errors:         r.Errors,
		Answers:        r.Answers,
		CorrectAnswers: r.CorrectAnswers,
	}
	if p.Errors == nil {
		p.Errors = []string{}
	}
	if p.Answers == nil {
		p.Answers = []string{}
	}
	if p.CorrectAnswers == nil {
		p.CorrectAnswers = map[int64]bool{}
	}
	return p
}

func playerRecord(p *domain.GroupPlayer) *groupPlayerRecord {
	return &groupPlayerRecord{
		ID:             p.ID,
		SessionID:      p.SessionID,
		Name:           p.Name,
		Score:          p.Score,
		Errors:         p.Errors,
		Answers:        p.Answers,
		CorrectAnswers: p.CorrectAnswers,
	}
}
