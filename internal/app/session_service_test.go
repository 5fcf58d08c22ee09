package app_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"letsquiz-service/internal/app"
	"letsquiz-service/internal/domain"
	"letsquiz-service/internal/infra/memory"
)

type sessionFixture struct {
	service   *app.SessionService
	sessions  *memory.SessionRepository
	questions *memory.QuestionRepository
	category  domain.Category
	easy      domain.DifficultyLevel
	seeded    []domain.Question
}

func newSessionFixture(t *testing.T) *sessionFixture {
	t.Helper()
	questions := memory.NewQuestionRepository()
	sessions := memory.NewSessionRepository()

	category := questions.AddCategory("Science")
	easy := questions.AddDifficulty("Easy")

	f := &sessionFixture{
		service:   app.NewSessionService(sessions, questions),
		sessions:  sessions,
		questions: questions,
		category:  category,
		easy:      easy,
	}
	for _, answer := range []string{"Mars", "Water", "Oxygen"} {
		q := questions.AddQuestion(domain.Question{
			Category:      &category,
			Difficulty:    &easy,
			Text:          "question " + answer,
			CorrectAnswer: answer,
			AnswerOptions: []string{answer, "other"},
			IsSeeded:      true,
		})
		f.seeded = append(f.seeded, q)
	}
	return f
}

func TestCreateSoloSession(t *testing.T) {
	ctx := context.Background()
	f := newSessionFixture(t)
	caller := domain.AsUser(1)

	created, err := f.service.Create(ctx, caller, app.CreateSessionInput{
		CategoryID: &f.category.ID,
		Count:      3,
		Mode:       app.ModeSolo,
	})
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if created.QuestionCount != 3 || created.IsGuest {
		t.Fatalf("unexpected created session: %+v", created)
	}

	session, err := f.service.Get(ctx, caller, created.SessionID)
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if session.UserID == nil || *session.UserID != 1 {
		t.Fatalf("expected owner 1, got %v", session.UserID)
	}
	for i, sq := range session.Questions {
		if sq.Position != i {
			t.Fatalf("expected position %d, got %d", i, sq.Position)
		}
	}
}

func TestCreateGuestSession(t *testing.T) {
	ctx := context.Background()
	f := newSessionFixture(t)

	created, err := f.service.Create(ctx, domain.Anonymous(), app.CreateSessionInput{Count: 2, Mode: app.ModeSolo})
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if !created.IsGuest {
		t.Fatalf("expected guest session")
	}

	// Guest sessions are readable by anyone holding the id.
	if _, err := f.service.Get(ctx, domain.AsUser(7), created.SessionID); err != nil {
		t.Fatalf("expected guest session to be readable, got %v", err)
	}
}

func TestCreateValidation(t *testing.T) {
	ctx := context.Background()
	f := newSessionFixture(t)
	caller := domain.AsUser(1)

	cases := []struct {
		name string
		in   app.CreateSessionInput
		want error
	}{
		{"zero count", app.CreateSessionInput{Count: 0, Mode: app.ModeSolo}, domain.NewValidationError("")},
		{"bad mode", app.CreateSessionInput{Count: 1, Mode: "duel"}, domain.NewValidationError("")},
		{"too few players", app.CreateSessionInput{Count: 1, Mode: app.ModeGroup, Players: []string{"Alice"}}, domain.NewValidationError("")},
		{"duplicate players", app.CreateSessionInput{Count: 1, Mode: app.ModeGroup, Players: []string{"Alice", "alice"}}, domain.NewValidationError("")},
		{"blank player", app.CreateSessionInput{Count: 1, Mode: app.ModeGroup, Players: []string{"Alice", "  "}}, domain.NewValidationError("")},
		{"insufficient questions", app.CreateSessionInput{Count: 10, Mode: app.ModeSolo}, domain.ErrInsufficientQuestions},
	}
	for _, tc := range cases {
		_, err := f.service.Create(ctx, caller, tc.in)
		if !errors.Is(err, tc.want) {
			t.Fatalf("%s: expected %v, got %v", tc.name, tc.want, err)
		}
	}

	unknown := int64(999)
	if _, err := f.service.Create(ctx, caller, app.CreateSessionInput{Count: 1, Mode: app.ModeSolo, CategoryID: &unknown}); !errors.Is(err, domain.ErrInvalidCategory) {
		t.Fatalf("expected invalid category, got %v", err)
	}
	if _, err := f.service.Create(ctx, caller, app.CreateSessionInput{Count: 1, Mode: app.ModeSolo, DifficultyID: &unknown}); !errors.Is(err, domain.ErrInvalidDifficulty) {
		t.Fatalf("expected invalid difficulty, got %v", err)
	}

	// A category that exists but has no seeded questions is invalid too.
	empty := f.questions.AddCategory("Empty")
	if _, err := f.service.Create(ctx, caller, app.CreateSessionInput{Count: 1, Mode: app.ModeSolo, CategoryID: &empty.ID}); !errors.Is(err, domain.ErrInvalidCategory) {
		t.Fatalf("expected invalid category for empty pool, got %v", err)
	}
}

func TestSubmitAnswerScoring(t *testing.T) {
	ctx := context.Background()
	f := newSessionFixture(t)
	caller := domain.AsUser(1)

	created, err := f.service.Create(ctx, caller, app.CreateSessionInput{Count: 2, Mode: app.ModeSolo})
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	session, err := f.service.Get(ctx, caller, created.SessionID)
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}

	first := session.Questions[0]
	// Case-insensitive match on the live path.
	result, err := f.service.SubmitAnswer(ctx, caller, session.ID, app.SubmitAnswerInput{
		QuestionID:     first.QuestionID,
		SelectedAnswer: flipCase(first.Question.CorrectAnswer),
	})
	if err != nil {
		t.Fatalf("submit failed: %v", err)
	}
	if !result.IsCorrect || result.UpdatedScore != 1 {
		t.Fatalf("expected correct answer with score 1, got %+v", result)
	}

	// Duplicate submission is rejected, not overwritten.
	_, err = f.service.SubmitAnswer(ctx, caller, session.ID, app.SubmitAnswerInput{
		QuestionID:     first.QuestionID,
		SelectedAnswer: "anything",
	})
	if !errors.Is(err, domain.ErrAlreadyAnswered) {
		t.Fatalf("expected already answered, got %v", err)
	}

	second := session.Questions[1]
	result, err = f.service.SubmitAnswer(ctx, caller, session.ID, app.SubmitAnswerInput{
		QuestionID:     second.QuestionID,
		SelectedAnswer: "definitely wrong",
	})
	if err != nil {
		t.Fatalf("submit failed: %v", err)
	}
	if result.IsCorrect || result.UpdatedScore != 1 {
		t.Fatalf("expected wrong answer keeping score 1, got %+v", result)
	}

	// Both questions answered so the session completes.
	final, err := f.service.Get(ctx, caller, session.ID)
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if final.CompletedAt == nil {
		t.Fatalf("expected completed session")
	}
}

func flipCase(s string) string {
	out := []rune(s)
	for i, r := range out {
		if r >= 'a' && r <= 'z' {
			out[i] = r - 32
		} else if r >= 'A' && r <= 'Z' {
			out[i] = r + 32
		}
	}
	return string(out)
}

func TestSubmitAnswerValidation(t *testing.T) {
	ctx := context.Background()
	f := newSessionFixture(t)
	caller := domain.AsUser(1)

	created, _ := f.service.Create(ctx, caller, app.CreateSessionInput{Count: 1, Mode: app.ModeSolo})
	session, _ := f.service.Get(ctx, caller, created.SessionID)

	if _, err := f.service.SubmitAnswer(ctx, caller, session.ID, app.SubmitAnswerInput{QuestionID: session.Questions[0].QuestionID, SelectedAnswer: "  "}); !errors.Is(err, domain.NewValidationError("")) {
		t.Fatalf("expected validation error for blank answer, got %v", err)
	}
	if _, err := f.service.SubmitAnswer(ctx, caller, session.ID, app.SubmitAnswerInput{QuestionID: 999, SelectedAnswer: "x"}); !errors.Is(err, domain.ErrQuestionNotFound) {
		t.Fatalf("expected question not found, got %v", err)
	}
	if _, err := f.service.SubmitAnswer(ctx, domain.AsUser(2), session.ID, app.SubmitAnswerInput{QuestionID: session.Questions[0].QuestionID, SelectedAnswer: "x"}); !errors.Is(err, domain.ErrPermissionDenied) {
		t.Fatalf("expected permission denied, got %v", err)
	}
	if _, err := f.service.SubmitAnswer(ctx, caller, 999, app.SubmitAnswerInput{QuestionID: 1, SelectedAnswer: "x"}); !errors.Is(err, domain.ErrSessionNotFound) {
		t.Fatalf("expected session not found, got %v", err)
	}
}

func TestGroupSessionPlayerScoring(t *testing.T) {
	ctx := context.Background()
	f := newSessionFixture(t)
	caller := domain.AsUser(1)

	created, err := f.service.Create(ctx, caller, app.CreateSessionInput{
		Count:   2,
		Mode:    app.ModeGroup,
		Players: []string{"Alice", "Bob"},
	})
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	session, err := f.service.Get(ctx, caller, created.SessionID)
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if len(session.Players) != 2 {
		t.Fatalf("expected 2 players, got %d", len(session.Players))
	}

	alice := session.Players[0]
	first := session.Questions[0]
	result, err := f.service.SubmitAnswer(ctx, caller, session.ID, app.SubmitAnswerInput{
		QuestionID:     first.QuestionID,
		SelectedAnswer: first.Question.CorrectAnswer,
		PlayerID:       &alice.ID,
	})
	if err != nil {
		t.Fatalf("submit failed: %v", err)
	}
	if !result.IsCorrect {
		t.Fatalf("expected correct answer")
	}

	after, _ := f.service.Get(ctx, caller, session.ID)
	var updated *domain.GroupPlayer
	for i := range after.Players {
		if after.Players[i].ID == alice.ID {
			updated = &after.Players[i]
		}
	}
	if updated == nil || updated.Score != 1 {
		t.Fatalf("expected alice score 1, got %+v", updated)
	}
	if !updated.CorrectAnswers[first.QuestionID] {
		t.Fatalf("expected correctness recorded for question %d", first.QuestionID)
	}
	if len(updated.Answers) != first.Position+1 {
		t.Fatalf("expected answers padded to position %d, got %v", first.Position, updated.Answers)
	}

	unknown := int64(999)
	if _, err := f.service.SubmitAnswer(ctx, caller, session.ID, app.SubmitAnswerInput{
		QuestionID:     session.Questions[1].QuestionID,
		SelectedAnswer: "x",
		PlayerID:       &unknown,
	}); !errors.Is(err, domain.ErrPlayerNotFound) {
		t.Fatalf("expected player not found, got %v", err)
	}
}

func TestSaveCompletedSession(t *testing.T) {
	ctx := context.Background()
	f := newSessionFixture(t)
	caller := domain.AsUser(1)

	in := app.SaveSessionInput{
		Questions: []app.QuestionAnswer{
			{QuestionID: f.seeded[0].ID, SelectedAnswer: f.seeded[0].CorrectAnswer},
			{QuestionID: f.seeded[1].ID, SelectedAnswer: "wrong"},
			{QuestionID: 999, SelectedAnswer: "ignored"}, // unknown id is skipped
		},
		Score:           1,
		DifficultyLabel: "Easy",
	}
	created, err := f.service.SaveCompleted(ctx, caller, in)
	if err != nil {
		t.Fatalf("save failed: %v", err)
	}
	if created.QuestionCount != 2 {
		t.Fatalf("expected unknown question skipped, got %d", created.QuestionCount)
	}

	session, err := f.service.Get(ctx, caller, created.SessionID)
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if session.CompletedAt == nil || session.Score != 1 {
		t.Fatalf("expected completed session with score 1, got %+v", session)
	}
	if !session.Questions[0].IsCorrect || session.Questions[1].IsCorrect {
		t.Fatalf("unexpected correctness: %+v", session.Questions)
	}
}

func TestSaveCompletedSkipsRepeatedQuestion(t *testing.T) {
	ctx := context.Background()
	f := newSessionFixture(t)
	caller := domain.AsUser(1)

	created, err := f.service.SaveCompleted(ctx, caller, app.SaveSessionInput{
		Questions: []app.QuestionAnswer{
			{QuestionID: f.seeded[0].ID, SelectedAnswer: f.seeded[0].CorrectAnswer},
			{QuestionID: f.seeded[0].ID, SelectedAnswer: "wrong"},
			{QuestionID: f.seeded[1].ID, SelectedAnswer: "wrong"},
		},
		Score:           1,
		DifficultyLabel: "Easy",
	})
	if err != nil {
		t.Fatalf("save failed: %v", err)
	}
	if created.QuestionCount != 2 {
		t.Fatalf("expected repeated question stored once, got %d", created.QuestionCount)
	}

	session, err := f.service.Get(ctx, caller, created.SessionID)
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	count := 0
	for _, sq := range session.Questions {
		if sq.QuestionID == f.seeded[0].ID {
			count++
		}
	}
	if count != 1 {
		t.Fatalf("expected question %d stored once, got %d", f.seeded[0].ID, count)
	}
	// First occurrence wins.
	if !session.Questions[0].IsCorrect {
		t.Fatalf("expected first answer for the repeated question to be kept")
	}
}

func TestSaveCompletedUnknownDifficulty(t *testing.T) {
	ctx := context.Background()
	f := newSessionFixture(t)

	_, err := f.service.SaveCompleted(ctx, domain.AsUser(1), app.SaveSessionInput{
		Questions:       []app.QuestionAnswer{{QuestionID: f.seeded[0].ID, SelectedAnswer: "x"}},
		DifficultyLabel: "Impossible",
	})
	if !errors.Is(err, domain.ErrInvalidDifficulty) {
		t.Fatalf("expected invalid difficulty, got %v", err)
	}
}

func TestSaveCompletedExactMatch(t *testing.T) {
	ctx := context.Background()
	f := newSessionFixture(t)
	caller := domain.AsUser(1)

	// The bulk path compares answers exactly, so a case mismatch is wrong.
	created, err := f.service.SaveCompleted(ctx, caller, app.SaveSessionInput{
		Questions:       []app.QuestionAnswer{{QuestionID: f.seeded[0].ID, SelectedAnswer: flipCase(f.seeded[0].CorrectAnswer)}},
		Score:           0,
		DifficultyLabel: "Easy",
	})
	if err != nil {
		t.Fatalf("save failed: %v", err)
	}
	session, _ := f.service.Get(ctx, caller, created.SessionID)
	if session.Questions[0].IsCorrect {
		t.Fatalf("expected case-mismatched answer to be wrong on bulk save")
	}
}

func TestSaveCompletedGroupPlayers(t *testing.T) {
	ctx := context.Background()
	f := newSessionFixture(t)
	caller := domain.AsUser(1)

	created, err := f.service.SaveCompleted(ctx, caller, app.SaveSessionInput{
		Questions:       []app.QuestionAnswer{{QuestionID: f.seeded[0].ID, SelectedAnswer: f.seeded[0].CorrectAnswer}},
		Score:           1,
		DifficultyLabel: "Easy",
		IsGroupSession:  true,
		Players: []app.PlayerRecord{
			{Name: "Alice", Score: 1, Answers: []string{f.seeded[0].CorrectAnswer}},
			{Name: "Bob", Score: 0, Answers: []string{"wrong"}},
		},
	})
	if err != nil {
		t.Fatalf("save failed: %v", err)
	}

	session, _ := f.service.Get(ctx, caller, created.SessionID)
	if !session.IsGroupSession || len(session.Players) != 2 {
		t.Fatalf("expected 2 group players, got %+v", session)
	}
	// Correctness maps were absent, so they are derived from the answers.
	if !session.Players[0].CorrectAnswers[f.seeded[0].ID] {
		t.Fatalf("expected alice derived correct, got %+v", session.Players[0].CorrectAnswers)
	}
	if session.Players[1].CorrectAnswers[f.seeded[0].ID] {
		t.Fatalf("expected bob derived wrong, got %+v", session.Players[1].CorrectAnswers)
	}
}

func TestSaveCompletedRequiresAuth(t *testing.T) {
	ctx := context.Background()
	f := newSessionFixture(t)

	_, err := f.service.SaveCompleted(ctx, domain.Anonymous(), app.SaveSessionInput{
		Questions:       []app.QuestionAnswer{{QuestionID: f.seeded[0].ID, SelectedAnswer: "x"}},
		DifficultyLabel: "Easy",
	})
	if !errors.Is(err, domain.ErrPermissionDenied) {
		t.Fatalf("expected permission denied, got %v", err)
	}
}

func TestDeleteSessionOwnership(t *testing.T) {
	ctx := context.Background()
	f := newSessionFixture(t)
	owner := domain.AsUser(1)

	created, _ := f.service.Create(ctx, owner, app.CreateSessionInput{Count: 1, Mode: app.ModeSolo})

	if err := f.service.Delete(ctx, domain.AsUser(2), created.SessionID); !errors.Is(err, domain.ErrPermissionDenied) {
		t.Fatalf("expected permission denied, got %v", err)
	}
	if err := f.service.Delete(ctx, owner, created.SessionID); err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	if _, err := f.service.Get(ctx, owner, created.SessionID); !errors.Is(err, domain.ErrSessionNotFound) {
		t.Fatalf("expected session gone, got %v", err)
	}

	// Guest sessions have no owner and cannot be deleted.
	guest, _ := f.service.Create(ctx, domain.Anonymous(), app.CreateSessionInput{Count: 1, Mode: app.ModeSolo})
	if err := f.service.Delete(ctx, owner, guest.SessionID); !errors.Is(err, domain.ErrPermissionDenied) {
		t.Fatalf("expected permission denied for guest session, got %v", err)
	}
}

func TestSessionResults(t *testing.T) {
	ctx := context.Background()
	f := newSessionFixture(t)
	caller := domain.AsUser(1)

	created, _ := f.service.Create(ctx, caller, app.CreateSessionInput{Count: 3, Mode: app.ModeSolo})
	session, _ := f.service.Get(ctx, caller, created.SessionID)

	for i, sq := range session.Questions {
		answer := "wrong"
		if i < 2 {
			answer = sq.Question.CorrectAnswer
		}
		if _, err := f.service.SubmitAnswer(ctx, caller, session.ID, app.SubmitAnswerInput{QuestionID: sq.QuestionID, SelectedAnswer: answer}); err != nil {
			t.Fatalf("submit failed: %v", err)
		}
	}

	results, err := f.service.Results(ctx, caller, session.ID)
	if err != nil {
		t.Fatalf("results failed: %v", err)
	}
	if results.TotalQuestions != 3 || results.CorrectAnswers != 2 || results.TotalScore != 2 {
		t.Fatalf("unexpected results: %+v", results)
	}
	want := float64(2) / float64(3) * 100
	if results.Accuracy != want {
		t.Fatalf("expected accuracy %v, got %v", want, results.Accuracy)
	}
	if len(results.Questions) != 3 || results.Questions[0].Category != "Science" || results.Questions[0].Difficulty != "Easy" {
		t.Fatalf("unexpected breakdown: %+v", results.Questions)
	}
}

func TestDeterministicClock(t *testing.T) {
	ctx := context.Background()
	questions := memory.NewQuestionRepository()
	sessions := memory.NewSessionRepository()
	cat := questions.AddCategory("Science")
	diff := questions.AddDifficulty("Easy")
	questions.AddQuestion(domain.Question{Category: &cat, Difficulty: &diff, Text: "q", CorrectAnswer: "a", IsSeeded: true})

	fixed := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	service := app.NewSessionServiceWithClock(sessions, questions, func() time.Time { return fixed })

	created, err := service.Create(ctx, domain.AsUser(1), app.CreateSessionInput{Count: 1, Mode: app.ModeSolo})
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	session, _ := service.Get(ctx, domain.AsUser(1), created.SessionID)
	if !session.StartedAt.Equal(fixed) {
		t.Fatalf("expected started_at %v, got %v", fixed, session.StartedAt)
	}
}
