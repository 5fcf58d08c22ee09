package domain

import "time"

// User is a registered account. Sessions reference it by id; a nil owner on a
// session means it was played as a guest.
type User struct {
	ID           int64     `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	IsActive     bool      `json:"is_active"`
	IsPremium    bool      `json:"is_premium"`
	JoinedAt     time.Time `json:"joined_date"`
}

// Caller identifies who is making a request. The zero value is an anonymous
// (guest) caller; services never consult ambient request state.
type Caller struct {
	UserID        int64
	Authenticated bool
}

// Anonymous returns the guest caller.
func Anonymous() Caller {
	return Caller{}
}

// AsUser returns a caller acting as the given user id.
func AsUser(id int64) Caller {
	return Caller{UserID: id, Authenticated: true}
}

// Category is shared reference data, unique by name.
type Category struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

// DifficultyLevel is shared reference data, unique by label.
type DifficultyLevel struct {
	ID          int64  `json:"id"`
	Label       string `json:"label"`
	Description string `json:"description,omitempty"`
}

// Question is immutable once created. Seeded questions are the only ones
// eligible for session selection.
type Question struct {
	ID            int64            `json:"id"`
	Category      *Category        `json:"category,omitempty"`
	Difficulty    *DifficultyLevel `json:"difficulty,omitempty"`
	Text          string           `json:"question_text"`
	CorrectAnswer string           `json:"correct_answer"`
	AnswerOptions []string         `json:"answer_options"`
	Metadata      map[string]any   `json:"metadata_json,omitempty"`
	IsSeeded      bool             `json:"-"`
	IsFallback    bool             `json:"-"`
	CreatedBy     *int64           `json:"-"`
}

// QuizSession is one playthrough, solo or group. The owner is fixed at
// creation; a nil UserID marks a guest-owned session. Score is always the
// count of correctly answered session questions.
type QuizSession struct {
	ID             int64             `json:"id"`
	UserID         *int64            `json:"user_id,omitempty"`
	StartedAt      time.Time         `json:"started_at"`
	CompletedAt    *time.Time        `json:"completed_at,omitempty"`
	Score          int               `json:"score"`
	IsGroupSession bool              `json:"is_group_session"`
	Questions      []SessionQuestion `json:"questions,omitempty"`
	Players        []GroupPlayer     `json:"players,omitempty"`
}

// IsCompleted reports whether every session question has been answered.
func (s *QuizSession) IsCompleted() bool {
	if len(s.Questions) == 0 {
		return false
	}
	for i := range s.Questions {
		if s.Questions[i].AnsweredAt == nil {
			return false
		}
	}
	return true
}

// OwnedBy reports whether the caller is the session's owner. Guest sessions
// have no owner and are never owned by anyone.
func (s *QuizSession) OwnedBy(caller Caller) bool {
	return s.UserID != nil && caller.Authenticated && *s.UserID == caller.UserID
}

// AccessibleBy reports whether the caller may read the session: owned
// sessions are private, guest sessions are open to whoever holds the id.
func (s *QuizSession) AccessibleBy(caller Caller) bool {
	return s.UserID == nil || s.OwnedBy(caller)
}

// SessionQuestion links a session to a question. Unique per (session,
// question); once AnsweredAt is set the row is immutable.
type SessionQuestion struct {
	ID             int64      `json:"id"`
	SessionID      int64      `json:"-"`
	QuestionID     int64      `json:"question_id"`
	Question       *Question  `json:"-"`
	Position       int        `json:"position"`
	SelectedAnswer *string    `json:"selected_answer,omitempty"`
	IsCorrect      bool       `json:"is_correct"`
	AnsweredAt     *time.Time `json:"answered_at,omitempty"`
}

// GroupPlayer is a named, non-authenticated participant in a group session.
// Answers is index-aligned with the session's question order; CorrectAnswers
// maps a question id to whether that player got it right.
type GroupPlayer struct {
	ID             int64          `json:"id"`
	SessionID      int64          `json:"-"`
	Name           string         `json:"name"`
	Score          int            `json:"score"`
	Errors         []string       `json:"errors"`
	Answers        []string       `json:"answers"`
	CorrectAnswers map[int64]bool `json:"correct_answers"`
}

// GuestSession is an anonymous, cache-backed progress record with a fixed
// TTL. The id itself is the capability token; it never gains an owner.
type GuestSession struct {
	ID               string                   `json:"guest_session_id"`
	Progress         map[string]GuestProgress `json:"progress"`
	CompletedQuizzes []string                 `json:"completed_quizzes"`
	TotalScore       int                      `json:"total_score"`
	CreatedAt        time.Time                `json:"created_at"`
}

// GuestProgress is the per-session slice of a guest record.
type GuestProgress struct {
	Score          int       `json:"score"`
	CompletedAt    time.Time `json:"completed_at"`
	TotalQuestions int       `json:"total_questions"`
}
