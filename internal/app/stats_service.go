package app

import (
	"context"
	"math"
	"time"

	"letsquiz-service/internal/domain"
)

// SessionPageSize is the fixed page size of the session history endpoint.
const SessionPageSize = 10

// StatsService rolls historical sessions up into per-user statistics. It
// reads through the same SessionRepository as the session engine; all
// aggregation happens here, not in the store.
type StatsService struct {
	sessions SessionRepository
	users    UserRepository
}

func NewStatsService(sessions SessionRepository, users UserRepository) *StatsService {
	return &StatsService{sessions: sessions, users: users}
}

// SessionSummary is one row of a user's paginated session history.
type SessionSummary struct {
	ID             int64                `json:"id"`
	Score          int                  `json:"score"`
	TotalQuestions int                  `json:"total_questions"`
	StartedAt      time.Time            `json:"started_at"`
	CompletedAt    *time.Time           `json:"completed_at,omitempty"`
	Category       *string              `json:"category"`
	Difficulty     *string              `json:"difficulty"`
	IsGroupSession bool                 `json:"is_group_session"`
	Players        []domain.GroupPlayer `json:"players,omitempty"`
}

// SessionPage is the pagination envelope the frontend consumes.
type SessionPage struct {
	Count    int              `json:"count"`
	Next     *int             `json:"next"`
	Previous *int             `json:"previous"`
	Results  []SessionSummary `json:"results"`
}

// UserSessions returns the caller's session history, newest first. The
// category and difficulty shown per session come from its first question.
func (s *StatsService) UserSessions(ctx context.Context, caller domain.Caller, userID int64, page int) (SessionPage, error) {
	if !caller.Authenticated || caller.UserID != userID {
		return SessionPage{}, domain.ErrPermissionDenied
	}
	if page < 1 {
		page = 1
	}

	sessions, total, err := s.sessions.ListByUser(ctx, userID, (page-1)*SessionPageSize, SessionPageSize)
	if err != nil {
		return SessionPage{}, err
	}

	out := SessionPage{Count: total, Results: make([]SessionSummary, 0, len(sessions))}
	if page > 1 {
		prev := page - 1
		out.Previous = &prev
	}
	if page*SessionPageSize < total {
		next := page + 1
		out.Next = &next
	}

	for i := range sessions {
		session := &sessions[i]
		summary := SessionSummary{
			ID:             session.ID,
			Score:          session.Score,
			TotalQuestions: len(session.Questions),
			StartedAt:      session.StartedAt,
			CompletedAt:    session.CompletedAt,
			IsGroupSession: session.IsGroupSession,
		}
		if len(session.Questions) > 0 {
			first := session.Questions[0].Question
			if first != nil && first.Category != nil {
				summary.Category = &first.Category.Name
			}
			if first != nil && first.Difficulty != nil {
				summary.Difficulty = &first.Difficulty.Label
			}
		}
		if session.IsGroupSession {
			summary.Players = session.Players
		}
		out.Results = append(out.Results, summary)
	}
	return out, nil
}

// BucketStats is a correct/total pair with its derived accuracy.
type BucketStats struct {
	Correct  int     `json:"correct"`
	Total    int     `json:"total"`
	Accuracy float64 `json:"accuracy"`
}

// OverallStats sums a user's whole history.
type OverallStats struct {
	TotalQuizzes   int     `json:"total_quizzes"`
	TotalScore     int     `json:"total_score"`
	TotalQuestions int     `json:"total_questions"`
	CorrectAnswers int     `json:"correct_answers"`
	Accuracy       float64 `json:"accuracy"`
}

// UserStats is the nested statistics payload.
type UserStats struct {
	OverallStats    OverallStats           `json:"overall_stats"`
	CategoryStats   map[string]BucketStats `json:"category_stats"`
	DifficultyStats map[string]BucketStats `json:"difficulty_stats"`
}

// UserStats aggregates every session the user owns. Only answered session
// questions feed the totals and the per-category/per-difficulty buckets.
func (s *StatsService) UserStats(ctx context.Context, caller domain.Caller, userID int64) (UserStats, error) {
	if !caller.Authenticated || caller.UserID != userID {
		return UserStats{}, domain.ErrPermissionDenied
	}

	sessions, err := s.sessions.ListAllByUser(ctx, userID)
	if err != nil {
		return UserStats{}, err
	}

	stats := UserStats{
		CategoryStats:   map[string]BucketStats{},
		DifficultyStats: map[string]BucketStats{},
	}
	categories := map[string]*tally{}
	difficulties := map[string]*tally{}

	for i := range sessions {
		session := &sessions[i]
		stats.OverallStats.TotalQuizzes++
		stats.OverallStats.TotalScore += session.Score

		for j := range session.Questions {
			sq := &session.Questions[j]
			if sq.AnsweredAt == nil {
				continue
			}
			stats.OverallStats.TotalQuestions++
			if sq.IsCorrect {
				stats.OverallStats.CorrectAnswers++
			}
			if sq.Question == nil {
				continue
			}
			if sq.Question.Category != nil {
				bump(categories, sq.Question.Category.Name, sq.IsCorrect)
			}
			if sq.Question.Difficulty != nil {
				bump(difficulties, sq.Question.Difficulty.Label, sq.IsCorrect)
			}
		}
	}

	stats.OverallStats.Accuracy = accuracy(stats.OverallStats.CorrectAnswers, stats.OverallStats.TotalQuestions)
	for name, t := range categories {
		stats.CategoryStats[name] = BucketStats{Correct: t.correct, Total: t.total, Accuracy: accuracy(t.correct, t.total)}
	}
	for label, t := range difficulties {
		stats.DifficultyStats[label] = BucketStats{Correct: t.correct, Total: t.total, Accuracy: accuracy(t.correct, t.total)}
	}
	return stats, nil
}

type tally struct {
	total   int
	correct int
}

func bump(buckets map[string]*tally, key string, correct bool) {
	t, ok := buckets[key]
	if !ok {
		t = &tally{}
		buckets[key] = t
	}
	t.total++
	if correct {
		t.correct++
	}
}

// accuracy returns correct/total as a percentage rounded to one decimal
// place, and 0 for an empty bucket.
func accuracy(correct, total int) float64 {
	if total == 0 {
		return 0
	}
	return math.Round(float64(correct)/float64(total)*1000) / 10
}

// UserProfile is the account view shown on the dashboard.
type UserProfile struct {
	UserID        int64                  `json:"user_id"`
	Email         string                 `json:"email"`
	IsPremium     bool                   `json:"is_premium"`
	JoinedDate    time.Time              `json:"joined_date"`
	TotalScore    int                    `json:"total_score"`
	TotalQuizzes  int                    `json:"total_quizzes"`
	CategoryStats map[string]BucketStats `json:"category_stats"`
}

// Profile returns the caller's own profile with lifetime totals.
func (s *StatsService) Profile(ctx context.Context, caller domain.Caller, userID int64) (UserProfile, error) {
	if !caller.Authenticated || caller.UserID != userID {
		return UserProfile{}, domain.ErrPermissionDenied
	}

	user, err := s.users.GetUser(ctx, userID)
	if err != nil {
		return UserProfile{}, err
	}
	stats, err := s.UserStats(ctx, caller, userID)
	if err != nil {
		return UserProfile{}, err
	}

	return UserProfile{
		UserID:        user.ID,
		Email:         user.Email,
		IsPremium:     user.IsPremium,
		JoinedDate:    user.JoinedAt,
		TotalScore:    stats.OverallStats.TotalScore,
		TotalQuizzes:  stats.OverallStats.TotalQuizzes,
		CategoryStats: stats.CategoryStats,
	}, nil
}
