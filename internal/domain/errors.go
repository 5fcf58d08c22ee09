package domain

import "fmt"

// Error is a domain failure with a stable machine-readable code. The code is
// what API clients switch on; the message is for humans.
type Error struct {
	Code    string
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

// Is matches errors by code so sentinel comparisons via errors.Is work even
// for messages built at call sites.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Code == e.Code
}

// Stable error codes surfaced by the API.
const (
	CodeValidation            = "validation_error"
	CodeInvalidCategory       = "invalid_category"
	CodeInvalidDifficulty     = "invalid_difficulty"
	CodeInvalidCount          = "invalid_count"
	CodeInsufficientQuestions = "insufficient_questions"
	CodePermissionDenied      = "permission_denied"
	CodeSessionNotFound       = "session_not_found"
	CodeQuestionNotFound      = "question_not_found"
	CodePlayerNotFound        = "player_not_found"
	CodeUserNotFound          = "user_not_found"
	CodeAlreadyAnswered       = "already_answered"
	CodeAuthenticationFailed  = "authentication_failed"
	CodeServerError           = "server_error"
)

var (
	// ErrSessionNotFound is returned when no quiz session matches the id.
	ErrSessionNotFound = &Error{Code: CodeSessionNotFound, Message: "Quiz session not found."}
	// ErrQuestionNotFound is returned when a question id does not resolve
	// within the requested scope (catalogue or session).
	ErrQuestionNotFound = &Error{Code: CodeQuestionNotFound, Message: "Question not found in this session."}
	// ErrPlayerNotFound is returned when a group player id does not belong
	// to the session.
	ErrPlayerNotFound = &Error{Code: CodePlayerNotFound, Message: "Player not found in this session."}
	// ErrUserNotFound is returned when a user id or email does not resolve.
	ErrUserNotFound = &Error{Code: CodeUserNotFound, Message: "User not found."}
	// ErrAlreadyAnswered rejects a duplicate submission for an answered
	// question. Idempotent rejection, never an overwrite.
	ErrAlreadyAnswered = &Error{Code: CodeAlreadyAnswered, Message: "Question has already been answered."}
	// ErrPermissionDenied is returned on any ownership mismatch.
	ErrPermissionDenied = &Error{Code: CodePermissionDenied, Message: "Not authorized to access this session."}
	// ErrInvalidCategory is returned for an unresolvable category reference.
	ErrInvalidCategory = &Error{Code: CodeInvalidCategory, Message: "Invalid category ID."}
	// ErrInvalidDifficulty is returned for an unresolvable difficulty reference.
	ErrInvalidDifficulty = &Error{Code: CodeInvalidDifficulty, Message: "Invalid difficulty ID."}
	// ErrInvalidCount is returned for a non-positive or unparseable count.
	ErrInvalidCount = &Error{Code: CodeInvalidCount, Message: "Invalid count parameter."}
	// ErrInsufficientQuestions is returned when the seeded pool is smaller
	// than the requested question count.
	ErrInsufficientQuestions = &Error{Code: CodeInsufficientQuestions, Message: "Insufficient questions available for the selected criteria."}
	// ErrAuthenticationFailed covers bad credentials and disabled accounts.
	ErrAuthenticationFailed = &Error{Code: CodeAuthenticationFailed, Message: "Invalid email or password."}
)

// NewValidationError reports malformed or missing input.
func NewValidationError(format string, args ...any) *Error {
	return &Error{Code: CodeValidation, Message: fmt.Sprintf(format, args...)}
}

// NewAuthError reports an authentication failure with a specific message.
func NewAuthError(message string) *Error {
	return &Error{Code: CodeAuthenticationFailed, Message: message}
}
