package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"letsquiz-service/internal/domain"
)

// SessionRepository is an in-memory implementation of app.SessionRepository.
// The mutex is held across every check-and-set, which gives the same
// at-most-one-answer guarantee the Postgres implementation gets from its
// conditional UPDATE.
type SessionRepository struct {
	mu       sync.Mutex
	sessions map[int64]*domain.QuizSession
	nextID   int64
}

func NewSessionRepository() *SessionRepository {
	return &SessionRepository{sessions: make(map[int64]*domain.QuizSession)}
}

func (r *SessionRepository) CreateSession(_ context.Context, session *domain.QuizSession) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.nextID++
	session.ID = r.nextID
	for i := range session.Questions {
		r.nextID++
		session.Questions[i].ID = r.nextID
		session.Questions[i].SessionID = session.ID
	}
	for i := range session.Players {
		r.nextID++
		session.Players[i].ID = r.nextID
		session.Players[i].SessionID = session.ID
	}

	stored := cloneSession(session)
	r.sessions[session.ID] = &stored
	return nil
}

func (r *SessionRepository) GetSession(_ context.Context, id int64) (domain.QuizSession, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	session, ok := r.sessions[id]
	if !ok {
		return domain.QuizSession{}, domain.ErrSessionNotFound
	}
	return cloneSession(session), nil
}

func (r *SessionRepository) AnswerQuestion(_ context.Context, sessionID, sessionQuestionID int64, selected string, correct bool, answeredAt time.Time) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	session, ok := r.sessions[sessionID]
	if !ok {
		return 0, domain.ErrSessionNotFound
	}
	for i := range session.Questions {
		sq := &session.Questions[i]
		if sq.ID != sessionQuestionID {
			continue
		}
		if sq.AnsweredAt != nil {
			return 0, domain.ErrAlreadyAnswered
		}
		answer := selected
		at := answeredAt
		sq.SelectedAnswer = &answer
		sq.IsCorrect = correct
		sq.AnsweredAt = &at
		if correct {
			session.Score++
		}
		return session.Score, nil
	}
	return 0, domain.ErrQuestionNotFound
}

func (r *SessionRepository) MarkCompleted(_ context.Context, sessionID int64, completedAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	session, ok := r.sessions[sessionID]
	if !ok {
		return domain.ErrSessionNotFound
	}
	if session.CompletedAt == nil {
		at := completedAt
		session.CompletedAt = &at
	}
	return nil
}

func (r *SessionRepository) UpdatePlayer(_ context.Context, player *domain.GroupPlayer) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	session, ok := r.sessions[player.SessionID]
	if !ok {
		return domain.ErrSessionNotFound
	}
	for i := range session.Players {
		if session.Players[i].ID == player.ID {
			session.Players[i] = clonePlayer(player)
			return nil
		}
	}
	return domain.ErrPlayerNotFound
}

func (r *SessionRepository) ReplacePlayers(_ context.Context, sessionID int64, players []domain.GroupPlayer) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	session, ok := r.sessions[sessionID]
	if !ok {
		return domain.ErrSessionNotFound
	}
	session.Players = session.Players[:0]
	for i := range players {
		r.nextID++
		players[i].ID = r.nextID
		players[i].SessionID = sessionID
		session.Players = append(session.Players, clonePlayer(&players[i]))
	}
	return nil
}

func (r *SessionRepository) DeleteSession(_ context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.sessions[id]; !ok {
		return domain.ErrSessionNotFound
	}
	delete(r.sessions, id)
	return nil
}

func (r *SessionRepository) ListByUser(_ context.Context, userID int64, offset, limit int) ([]domain.QuizSession, int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	owned := r.ownedLocked(userID)
	total := len(owned)
	if offset >= total {
		return nil, total, nil
	}
	end := offset + limit
	if end > total {
		end = total
	}
	out := make([]domain.QuizSession, 0, end-offset)
	for _, s := range owned[offset:end] {
		out = append(out, cloneSession(s))
	}
	return out, total, nil
}

func (r *SessionRepository) ListAllByUser(_ context.Context, userID int64) ([]domain.QuizSession, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	owned := r.ownedLocked(userID)
	out := make([]domain.QuizSession, 0, len(owned))
	for _, s := range owned {
		out = append(out, cloneSession(s))
	}
	return out, nil
}

// ownedLocked returns the user's sessions newest-first.
func (r *SessionRepository) ownedLocked(userID int64) []*domain.QuizSession {
	var owned []*domain.QuizSession
	for _, s := range r.sessions {
		if s.UserID != nil && *s.UserID == userID {
			owned = append(owned, s)
		}
	}
	sort.Slice(owned, func(i, j int) bool {
		if !owned[i].StartedAt.Equal(owned[j].StartedAt) {
			return owned[i].StartedAt.After(owned[j].StartedAt)
		}
		return owned[i].ID > owned[j].ID
	})
	return owned
}

func cloneSession(s *domain.QuizSession) domain.QuizSession {
	out := *s
	out.Questions = make([]domain.SessionQuestion, len(s.Questions))
	copy(out.Questions, s.Questions)
	for i := range out.Questions {
		if out.Questions[i].SelectedAnswer != nil {
			v := *out.Questions[i].SelectedAnswer
			out.Questions[i].SelectedAnswer = &v
		}
		if out.Questions[i].AnsweredAt != nil {
			v := *out.Questions[i].AnsweredAt
			out.Questions[i].AnsweredAt = &v
		}
	}
	out.Players = make([]domain.GroupPlayer, 0, len(s.Players))
	for i := range s.Players {
		out.Players = append(out.Players, clonePlayer(&s.Players[i]))
	}
	return out
}

func clonePlayer(p *domain.GroupPlayer) domain.GroupPlayer {
	out := *p
	out.Errors = append([]string(nil), p.Errors...)
	out.Answers = append([]string(nil), p.Answers...)
	out.CorrectAnswers = make(map[int64]bool, len(p.CorrectAnswers))
	for k, v := range p.CorrectAnswers {
		out.CorrectAnswers[k] = v
	}
	return out
}
