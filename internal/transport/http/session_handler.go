package http

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"letsquiz-service/internal/app"
	"letsquiz-service/internal/domain"
)

type SessionHandler struct {
	sessions *app.SessionService
	guests   *app.GuestService
}

func NewSessionHandler(sessions *app.SessionService, guests *app.GuestService) *SessionHandler {
	return &SessionHandler{sessions: sessions, guests: guests}
}

type createSessionRequest struct {
	CategoryID   *int64   `json:"category_id"`
	DifficultyID *int64   `json:"difficulty_id"`
	Count        int      `json:"count"`
	Mode         string   `json:"mode"`
	Players      []string `json:"players"`
}

func (h *SessionHandler) Create(c *gin.Context) {
	var req createSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, domain.NewValidationError("Invalid request body."))
		return
	}
	if req.Mode == "" {
		req.Mode = app.ModeSolo
	}

	created, err := h.sessions.Create(c.Request.Context(), caller(c), app.CreateSessionInput{
		CategoryID:   req.CategoryID,
		DifficultyID: req.DifficultyID,
		Count:        req.Count,
		Mode:         req.Mode,
		Players:      req.Players,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	h.trackGuestProgress(c, app.SessionProgress{
		SessionID:      created.SessionID,
		TotalQuestions: created.QuestionCount,
	})
	c.JSON(http.StatusCreated, created)
}

func (h *SessionHandler) Get(c *gin.Context) {
	id, ok := sessionID(c)
	if !ok {
		return
	}
	session, err := h.sessions.Get(c.Request.Context(), caller(c), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, sessionDetail(&session))
}

type submitAnswerRequest struct {
	QuestionID     int64  `json:"question_id"`
	SelectedAnswer string `json:"selected_answer"`
	PlayerID       *int64 `json:"player_id"`
}

func (h *SessionHandler) SubmitAnswer(c *gin.Context) {
	id, ok := sessionID(c)
	if !ok {
		return
	}
	var req submitAnswerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, domain.NewValidationError("Invalid request body."))
		return
	}

	result, err := h.sessions.SubmitAnswer(c.Request.Context(), caller(c), id, app.SubmitAnswerInput{
		QuestionID:     req.QuestionID,
		SelectedAnswer: req.SelectedAnswer,
		PlayerID:       req.PlayerID,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	h.trackGuestProgress(c, app.SessionProgress{
		SessionID:      id,
		Score:          result.UpdatedScore,
		TotalQuestions: result.TotalQuestions,
		Completed:      result.Completed,
	})
	c.JSON(http.StatusOK, result)
}

func (h *SessionHandler) Results(c *gin.Context) {
	id, ok := sessionID(c)
	if !ok {
		return
	}
	results, err := h.sessions.Results(c.Request.Context(), caller(c), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, results)
}

func (h *SessionHandler) Delete(c *gin.Context) {
	id, ok := sessionID(c)
	if !ok {
		return
	}
	if err := h.sessions.Delete(c.Request.Context(), caller(c), id); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"detail": "Session deleted."})
}

type saveSessionRequest struct {
	Questions      []app.QuestionAnswer `json:"questions"`
	Score          int                  `json:"score"`
	CategoryID     *int64               `json:"category_id"`
	Difficulty     string               `json:"difficulty"`
	IsGroupSession bool                 `json:"is_group_session"`
	Players        []app.PlayerRecord   `json:"players"`
}

// SaveCompleted persists a quiz played entirely on the client.
func (h *SessionHandler) SaveCompleted(c *gin.Context) {
	var req saveSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, domain.NewValidationError("Invalid request body."))
		return
	}

	created, err := h.sessions.SaveCompleted(c.Request.Context(), caller(c), app.SaveSessionInput{
		Questions:       req.Questions,
		Score:           req.Score,
		CategoryID:      req.CategoryID,
		DifficultyLabel: req.Difficulty,
		IsGroupSession:  req.IsGroupSession,
		Players:         req.Players,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, created)
}

// trackGuestProgress folds the session state into the caller's guest record
// when an X-Guest-Session-ID header rode along on an anonymous request.
// Best-effort: a tracking failure never fails the request that triggered it.
func (h *SessionHandler) trackGuestProgress(c *gin.Context, progress app.SessionProgress) {
	gid := guestID(c)
	if gid == "" || caller(c).Authenticated {
		return
	}
	_ = h.guests.TrackProgress(c.Request.Context(), gid, progress)
}

func sessionID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id < 1 {
		respondError(c, domain.ErrSessionNotFound)
		return 0, false
	}
	return id, true
}

// sessionQuestionView is the per-question slice of a session detail. The
// correct answer stays hidden until the question has been answered.
type sessionQuestionView struct {
	QuestionID     int64      `json:"question_id"`
	Position       int        `json:"position"`
	QuestionText   string     `json:"question_text"`
	AnswerOptions  []string   `json:"answer_options"`
	Category       string     `json:"category,omitempty"`
	Difficulty     string     `json:"difficulty,omitempty"`
	SelectedAnswer *string    `json:"selected_answer,omitempty"`
	IsCorrect      *bool      `json:"is_correct,omitempty"`
	CorrectAnswer  string     `json:"correct_answer,omitempty"`
	AnsweredAt     *time.Time `json:"answered_at,omitempty"`
}

type sessionDetailView struct {
	ID             int64                 `json:"id"`
	UserID         *int64                `json:"user_id,omitempty"`
	IsGuest        bool                  `json:"is_guest"`
	StartedAt      time.Time             `json:"started_at"`
	CompletedAt    *time.Time            `json:"completed_at,omitempty"`
	IsCompleted    bool                  `json:"is_completed"`
	Score          int                   `json:"score"`
	IsGroupSession bool                  `json:"is_group_session"`
	Questions      []sessionQuestionView `json:"questions"`
	Players        []domain.GroupPlayer  `json:"players,omitempty"`
}

func sessionDetail(session *domain.QuizSession) sessionDetailView {
	view := sessionDetailView{
		ID:             session.ID,
		UserID:         session.UserID,
		IsGuest:        session.UserID == nil,
		StartedAt:      session.StartedAt,
		CompletedAt:    session.CompletedAt,
		IsCompleted:    session.CompletedAt != nil || session.IsCompleted(),
		Score:          session.Score,
		IsGroupSession: session.IsGroupSession,
		Questions:      make([]sessionQuestionView, 0, len(session.Questions)),
		Players:        session.Players,
	}
	for i := range session.Questions {
		sq := &session.Questions[i]
		q := sessionQuestionView{
			QuestionID:     sq.QuestionID,
			Position:       sq.Position,
			SelectedAnswer: sq.SelectedAnswer,
			AnsweredAt:     sq.AnsweredAt,
		}
		if sq.Question != nil {
			q.QuestionText = sq.Question.Text
			q.AnswerOptions = sq.Question.AnswerOptions
			if sq.Question.Category != nil {
				q.Category = sq.Question.Category.Name
			}
			if sq.Question.Difficulty != nil {
				q.Difficulty = sq.Question.Difficulty.Label
			}
		}
		if sq.AnsweredAt != nil {
			correct := sq.IsCorrect
			q.IsCorrect = &correct
			if sq.Question != nil {
				q.CorrectAnswer = sq.Question.CorrectAnswer
			}
		}
		view.Questions = append(view.Questions, q)
	}
	return view
}
