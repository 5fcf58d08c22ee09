package app

import (
	"context"
	"strconv"
	"strings"
	"time"

	"letsquiz-service/internal/domain"
)

// SessionRepository abstracts how quiz sessions are stored (Postgres,
// in-memory, etc). GetSession returns the session with its questions in
// selection order, question content attached, and group players loaded.
type SessionRepository interface {
	CreateSession(ctx context.Context, session *domain.QuizSession) error
	GetSession(ctx context.Context, id int64) (domain.QuizSession, error)
	// AnswerQuestion records an answer for a session question only if it is
	// still unanswered, bumping the session score when correct, and returns
	// the updated score. A question answered in the meantime surfaces
	// domain.ErrAlreadyAnswered; the check and the write must be atomic.
	AnswerQuestion(ctx context.Context, sessionID, sessionQuestionID int64, selected string, correct bool, answeredAt time.Time) (int, error)
	MarkCompleted(ctx context.Context, sessionID int64, completedAt time.Time) error
	UpdatePlayer(ctx context.Context, player *domain.GroupPlayer) error
	ReplacePlayers(ctx context.Context, sessionID int64, players []domain.GroupPlayer) error
	DeleteSession(ctx context.Context, id int64) error
	// ListByUser returns the user's sessions newest-first with questions and
	// players loaded, plus the total session count for pagination.
	ListByUser(ctx context.Context, userID int64, offset, limit int) ([]domain.QuizSession, int, error)
	ListAllByUser(ctx context.Context, userID int64) ([]domain.QuizSession, error)
}

// QuestionRepository loads questions and the reference data they hang off.
type QuestionRepository interface {
	GetQuestion(ctx context.Context, id int64) (domain.Question, error)
	CountSeeded(ctx context.Context, filter QuestionFilter) (int, error)
	// RandomSeeded returns up to n seeded questions matching the filter, in
	// uniformly random order.
	RandomSeeded(ctx context.Context, filter QuestionFilter, n int) ([]domain.Question, error)
	GetCategory(ctx context.Context, id int64) (domain.Category, error)
	GetDifficulty(ctx context.Context, id int64) (domain.DifficultyLevel, error)
	GetDifficultyByLabel(ctx context.Context, label string) (domain.DifficultyLevel, error)
	ListCategories(ctx context.Context) ([]CategoryCount, error)
	ListDifficulties(ctx context.Context) ([]domain.DifficultyLevel, error)
}

// QuestionFilter narrows the seeded question pool.
type QuestionFilter struct {
	CategoryID   *int64
	DifficultyID *int64
}

// CategoryCount is a category annotated with its seeded question count.
type CategoryCount struct {
	domain.Category
	QuestionCount int `json:"question_count"`
}

// Session modes accepted by Create.
const (
	ModeSolo  = "solo"
	ModeGroup = "group"
)

// SessionService contains the session lifecycle use cases: creation,
// retrieval, answer scoring, bulk save, deletion and results.
type SessionService struct {
	sessions  SessionRepository
	questions QuestionRepository
	now       func() time.Time
}

func NewSessionService(sessions SessionRepository, questions QuestionRepository) *SessionService {
	return NewSessionServiceWithClock(sessions, questions, time.Now)
}

// NewSessionServiceWithClock is for deterministic timestamps in tests.
func NewSessionServiceWithClock(sessions SessionRepository, questions QuestionRepository, now func() time.Time) *SessionService {
	return &SessionService{sessions: sessions, questions: questions, now: now}
}

// CreateSessionInput carries the start-session request.
type CreateSessionInput struct {
	CategoryID   *int64
	DifficultyID *int64
	Count        int
	Mode         string
	Players      []string
}

// CreatedSession is what Create hands back to the transport layer.
type CreatedSession struct {
	SessionID     int64 `json:"session_id"`
	QuestionCount int   `json:"question_count"`
	IsGuest       bool  `json:"is_guest"`
}

// Create starts a new solo or group session for the caller, selecting a
// uniformly random set of seeded questions matching the filters. The
// selection order becomes the session's question order for its whole life.
func (s *SessionService) Create(ctx context.Context, caller domain.Caller, in CreateSessionInput) (CreatedSession, error) {
	if in.Count < 1 {
		return CreatedSession{}, domain.NewValidationError("Count must be a positive integer.")
	}
	if in.Mode != ModeSolo && in.Mode != ModeGroup {
		return CreatedSession{}, domain.NewValidationError("Mode must be either %q or %q.", ModeSolo, ModeGroup)
	}

	var playerNames []string
	if in.Mode == ModeGroup {
		names, err := normalizePlayerNames(in.Players)
		if err != nil {
			return CreatedSession{}, err
		}
		playerNames = names
	}

	filter := QuestionFilter{CategoryID: in.CategoryID, DifficultyID: in.DifficultyID}
	if in.CategoryID != nil {
		if _, err := s.questions.GetCategory(ctx, *in.CategoryID); err != nil {
			return CreatedSession{}, domain.ErrInvalidCategory
		}
		// A category without any seeded question is as useless as a missing one.
		n, err := s.questions.CountSeeded(ctx, QuestionFilter{CategoryID: in.CategoryID})
		if err != nil {
			return CreatedSession{}, err
		}
		if n == 0 {
			return CreatedSession{}, domain.ErrInvalidCategory
		}
	}
	if in.DifficultyID != nil {
		if _, err := s.questions.GetDifficulty(ctx, *in.DifficultyID); err != nil {
			return CreatedSession{}, domain.ErrInvalidDifficulty
		}
	}

	available, err := s.questions.CountSeeded(ctx, filter)
	if err != nil {
		return CreatedSession{}, err
	}
	if available < in.Count {
		return CreatedSession{}, domain.ErrInsufficientQuestions
	}

	selected, err := s.questions.RandomSeeded(ctx, filter, in.Count)
	if err != nil {
		return CreatedSession{}, err
	}
	if len(selected) < in.Count {
		return CreatedSession{}, domain.ErrInsufficientQuestions
	}

	session := domain.QuizSession{
		StartedAt:      s.now(),
		IsGroupSession: in.Mode == ModeGroup,
	}
	if caller.Authenticated {
		uid := caller.UserID
		session.UserID = &uid
	}
	for i, q := range selected {
		q := q
		session.Questions = append(session.Questions, domain.SessionQuestion{
			QuestionID: q.ID,
			Question:   &q,
			Position:   i,
		})
	}
	for _, name := range playerNames {
		session.Players = append(session.Players, domain.GroupPlayer{
			Name:           name,
			Errors:         []string{},
			Answers:        []string{},
			CorrectAnswers: map[int64]bool{},
		})
	}

	if err := s.sessions.CreateSession(ctx, &session); err != nil {
		return CreatedSession{}, err
	}
	return CreatedSession{
		SessionID:     session.ID,
		QuestionCount: len(session.Questions),
		IsGuest:       !caller.Authenticated,
	}, nil
}

func normalizePlayerNames(raw []string) ([]string, error) {
	if len(raw) < 2 {
		return nil, domain.NewValidationError("Group sessions require at least 2 players.")
	}
	names := make([]string, 0, len(raw))
	seen := make(map[string]struct{}, len(raw))
	for _, name := range raw {
		trimmed := strings.TrimSpace(name)
		if trimmed == "" {
			return nil, domain.NewValidationError("Player names must not be empty.")
		}
		key := strings.ToLower(trimmed)
		if _, dup := seen[key]; dup {
			return nil, domain.NewValidationError("All players must have unique names.")
		}
		seen[key] = struct{}{}
		names = append(names, trimmed)
	}
	return names, nil
}

// Get returns the session detail visible to the caller. Correctness of a
// question stays hidden until it has been answered.
func (s *SessionService) Get(ctx context.Context, caller domain.Caller, sessionID int64) (domain.QuizSession, error) {
	session, err := s.sessions.GetSession(ctx, sessionID)
	if err != nil {
		return domain.QuizSession{}, err
	}
	if !session.AccessibleBy(caller) {
		return domain.QuizSession{}, domain.ErrPermissionDenied
	}
	return session, nil
}

// SubmitAnswerInput carries one live answer submission.
type SubmitAnswerInput struct {
	QuestionID     int64
	SelectedAnswer string
	PlayerID       *int64
}

// SubmitAnswerResult reports the outcome of a submission.
type SubmitAnswerResult struct {
	IsCorrect      bool `json:"is_correct"`
	UpdatedScore   int  `json:"updated_score"`
	Completed      bool `json:"-"`
	TotalQuestions int  `json:"-"`
}

// SubmitAnswer scores a live submission. The comparison is case-insensitive
// on this path; the bulk-save path is exact by design (see SaveCompleted).
// Duplicate submissions are rejected, never overwritten: the storage layer
// applies the answer conditionally on the question still being unanswered,
// so at most one concurrent submission can win.
func (s *SessionService) SubmitAnswer(ctx context.Context, caller domain.Caller, sessionID int64, in SubmitAnswerInput) (SubmitAnswerResult, error) {
	if strings.TrimSpace(in.SelectedAnswer) == "" {
		return SubmitAnswerResult{}, domain.NewValidationError("selected_answer is required.")
	}

	session, err := s.sessions.GetSession(ctx, sessionID)
	if err != nil {
		return SubmitAnswerResult{}, err
	}
	if !session.AccessibleBy(caller) {
		return SubmitAnswerResult{}, domain.ErrPermissionDenied
	}

	var sq *domain.SessionQuestion
	for i := range session.Questions {
		if session.Questions[i].QuestionID == in.QuestionID {
			sq = &session.Questions[i]
			break
		}
	}
	if sq == nil {
		return SubmitAnswerResult{}, domain.ErrQuestionNotFound
	}
	if sq.AnsweredAt != nil {
		return SubmitAnswerResult{}, domain.ErrAlreadyAnswered
	}

	correct := strings.EqualFold(in.SelectedAnswer, sq.Question.CorrectAnswer)
	answeredAt := s.now()
	score, err := s.sessions.AnswerQuestion(ctx, session.ID, sq.ID, in.SelectedAnswer, correct, answeredAt)
	if err != nil {
		return SubmitAnswerResult{}, err
	}
	sq.SelectedAnswer = &in.SelectedAnswer
	sq.IsCorrect = correct
	sq.AnsweredAt = &answeredAt

	if session.IsGroupSession && in.PlayerID != nil {
		if err := s.recordPlayerAnswer(ctx, &session, *in.PlayerID, sq, in.SelectedAnswer, correct); err != nil {
			return SubmitAnswerResult{}, err
		}
	}

	completed := session.IsCompleted()
	if completed && session.CompletedAt == nil {
		if err := s.sessions.MarkCompleted(ctx, session.ID, answeredAt); err != nil {
			return SubmitAnswerResult{}, err
		}
	}

	return SubmitAnswerResult{
		IsCorrect:      correct,
		UpdatedScore:   score,
		Completed:      completed,
		TotalQuestions: len(session.Questions),
	}, nil
}

// recordPlayerAnswer writes the submitted answer into the player's
// index-aligned answer list, padding with empty strings up to the question's
// position. This bookkeeping is independent of the session-level score.
func (s *SessionService) recordPlayerAnswer(ctx context.Context, session *domain.QuizSession, playerID int64, sq *domain.SessionQuestion, selected string, correct bool) error {
	var player *domain.GroupPlayer
	for i := range session.Players {
		if session.Players[i].ID == playerID {
			player = &session.Players[i]
			break
		}
	}
	if player == nil {
		return domain.ErrPlayerNotFound
	}

	for len(player.Answers) <= sq.Position {
		player.Answers = append(player.Answers, "")
	}
	player.Answers[sq.Position] = selected
	if player.CorrectAnswers == nil {
		player.CorrectAnswers = map[int64]bool{}
	}
	player.CorrectAnswers[sq.QuestionID] = correct
	if correct {
		player.Score++
	} else {
		player.Errors = append(player.Errors, strconv.FormatInt(sq.QuestionID, 10))
	}
	return s.sessions.UpdatePlayer(ctx, player)
}

// QuestionAnswer is one (question, answer) pair of a client-computed quiz.
type QuestionAnswer struct {
	QuestionID     int64  `json:"id"`
	SelectedAnswer string `json:"selected_answer"`
}

// PlayerRecord is the client-supplied state of one group player.
type PlayerRecord struct {
	Name           string         `json:"name"`
	Score          int            `json:"score"`
	Errors         []string       `json:"errors"`
	Answers        []string       `json:"answers"`
	CorrectAnswers map[int64]bool `json:"correct_answers"`
}

// SaveSessionInput carries the bulk save of a completed session.
type SaveSessionInput struct {
	Questions       []QuestionAnswer
	Score           int
	CategoryID      *int64
	DifficultyLabel string
	IsGroupSession  bool
	Players         []PlayerRecord
}

// SaveCompleted persists a quiz that was played entirely client-side. The
// session lands already completed. Unknown and repeated question ids are
// skipped silently; answers are compared exactly (case-sensitive) on this path,
// unlike the live path — both behaviors are pinned by the API contract.
func (s *SessionService) SaveCompleted(ctx context.Context, caller domain.Caller, in SaveSessionInput) (CreatedSession, error) {
	if !caller.Authenticated {
		return CreatedSession{}, domain.ErrPermissionDenied
	}
	if len(in.Questions) == 0 {
		return CreatedSession{}, domain.NewValidationError("questions must not be empty.")
	}
	if in.Score < 0 {
		return CreatedSession{}, domain.NewValidationError("score must not be negative.")
	}
	if strings.TrimSpace(in.DifficultyLabel) == "" {
		return CreatedSession{}, domain.NewValidationError("difficulty is required.")
	}
	if _, err := s.questions.GetDifficultyByLabel(ctx, in.DifficultyLabel); err != nil {
		return CreatedSession{}, domain.ErrInvalidDifficulty
	}
	if in.CategoryID != nil {
		if _, err := s.questions.GetCategory(ctx, *in.CategoryID); err != nil {
			return CreatedSession{}, domain.ErrInvalidCategory
		}
	}

	now := s.now()
	uid := caller.UserID
	session := domain.QuizSession{
		UserID:         &uid,
		StartedAt:      now,
		CompletedAt:    &now,
		Score:          in.Score,
		IsGroupSession: in.IsGroupSession || len(in.Players) > 0,
	}

	position := 0
	seen := make(map[int64]struct{}, len(in.Questions))
	for _, qa := range in.Questions {
		// A session holds each question at most once; repeats and stale
		// client-side ids are dropped alike.
		if _, dup := seen[qa.QuestionID]; dup {
			continue
		}
		question, err := s.questions.GetQuestion(ctx, qa.QuestionID)
		if err != nil {
			continue
		}
		seen[qa.QuestionID] = struct{}{}
		q := question
		selected := qa.SelectedAnswer
		answeredAt := now
		session.Questions = append(session.Questions, domain.SessionQuestion{
			QuestionID:     q.ID,
			Question:       &q,
			Position:       position,
			SelectedAnswer: &selected,
			IsCorrect:      selected == q.CorrectAnswer,
			AnsweredAt:     &answeredAt,
		})
		position++
	}

	if err := s.sessions.CreateSession(ctx, &session); err != nil {
		return CreatedSession{}, err
	}

	if session.IsGroupSession && len(in.Players) > 0 {
		players := make([]domain.GroupPlayer, 0, len(in.Players))
		for _, rec := range in.Players {
			player := domain.GroupPlayer{
				SessionID:      session.ID,
				Name:           strings.TrimSpace(rec.Name),
				Score:          rec.Score,
				Errors:         rec.Errors,
				Answers:        rec.Answers,
				CorrectAnswers: rec.CorrectAnswers,
			}
			if player.Errors == nil {
				player.Errors = []string{}
			}
			if player.Answers == nil {
				player.Answers = []string{}
			}
			if player.CorrectAnswers == nil {
				player.CorrectAnswers = deriveCorrectAnswers(player.Answers, session.Questions)
			}
			players = append(players, player)
		}
		if err := s.sessions.ReplacePlayers(ctx, session.ID, players); err != nil {
			return CreatedSession{}, err
		}
	}

	return CreatedSession{SessionID: session.ID, QuestionCount: len(session.Questions)}, nil
}

// deriveCorrectAnswers reconstructs a player's correctness map from their
// indexed answers, stopping at whichever of answers/questions is shorter.
func deriveCorrectAnswers(answers []string, questions []domain.SessionQuestion) map[int64]bool {
	derived := make(map[int64]bool)
	for i, answer := range answers {
		if i >= len(questions) {
			break
		}
		derived[questions[i].QuestionID] = strings.EqualFold(answer, questions[i].Question.CorrectAnswer)
	}
	return derived
}

// Delete removes a session and everything it owns. Only the exact owner may
// delete; guest sessions cannot be deleted through this path.
func (s *SessionService) Delete(ctx context.Context, caller domain.Caller, sessionID int64) error {
	session, err := s.sessions.GetSession(ctx, sessionID)
	if err != nil {
		return err
	}
	if !session.OwnedBy(caller) {
		return domain.ErrPermissionDenied
	}
	return s.sessions.DeleteSession(ctx, session.ID)
}

// QuestionResult is the per-question line of a results breakdown.
type QuestionResult struct {
	QuestionText   string  `json:"question_text"`
	SelectedAnswer *string `json:"selected_answer"`
	CorrectAnswer  string  `json:"correct_answer"`
	IsCorrect      bool    `json:"is_correct"`
	Category       string  `json:"category"`
	Difficulty     string  `json:"difficulty"`
}

// SessionResults aggregates a single session.
type SessionResults struct {
	SessionID      int64            `json:"session_id"`
	TotalScore     int              `json:"total_score"`
	TotalQuestions int              `json:"total_questions"`
	CorrectAnswers int              `json:"correct_answers"`
	Accuracy       float64          `json:"accuracy"`
	StartedAt      time.Time        `json:"started_at"`
	CompletedAt    *time.Time       `json:"completed_at,omitempty"`
	Questions      []QuestionResult `json:"questions"`
	IsGuest        bool             `json:"is_guest"`
}

// Results returns the aggregate view of one session.
func (s *SessionService) Results(ctx context.Context, caller domain.Caller, sessionID int64) (SessionResults, error) {
	session, err := s.sessions.GetSession(ctx, sessionID)
	if err != nil {
		return SessionResults{}, err
	}
	if !session.AccessibleBy(caller) {
		return SessionResults{}, domain.ErrPermissionDenied
	}

	results := SessionResults{
		SessionID:   session.ID,
		TotalScore:  session.Score,
		StartedAt:   session.StartedAt,
		CompletedAt: session.CompletedAt,
		IsGuest:     !caller.Authenticated,
		Questions:   make([]QuestionResult, 0, len(session.Questions)),
	}
	for _, sq := range session.Questions {
		results.TotalQuestions++
		if sq.IsCorrect {
			results.CorrectAnswers++
		}
		line := QuestionResult{
			QuestionText:   sq.Question.Text,
			SelectedAnswer: sq.SelectedAnswer,
			CorrectAnswer:  sq.Question.CorrectAnswer,
			IsCorrect:      sq.IsCorrect,
		}
		if sq.Question.Category != nil {
			line.Category = sq.Question.Category.Name
		}
		if sq.Question.Difficulty != nil {
			line.Difficulty = sq.Question.Difficulty.Label
		}
		results.Questions = append(results.Questions, line)
	}
	if results.TotalQuestions > 0 {
		results.Accuracy = float64(results.CorrectAnswers) / float64(results.TotalQuestions) * 100
	}
	return results, nil
}
