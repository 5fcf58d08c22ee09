package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"letsquiz-service/internal/domain"
)

// errorBody is the single error envelope every endpoint returns.
type errorBody struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// respondError translates a domain error into its HTTP status and the
// {error, code} envelope. Anything that is not a domain error is a 500 with
// the generic message; the real error stays server-side.
func respondError(c *gin.Context, err error) {
	var derr *domain.Error
	if !errors.As(err, &derr) {
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, errorBody{
			Error: "An unexpected error occurred.",
			Code:  domain.CodeServerError,
		})
		return
	}
	c.JSON(statusFor(derr.Code), errorBody{Error: derr.Message, Code: derr.Code})
}

func statusFor(code string) int {
	switch code {
	case domain.CodeValidation,
		domain.CodeInvalidCategory,
		domain.CodeInvalidDifficulty,
		domain.CodeInvalidCount,
		domain.CodeInsufficientQuestions,
		domain.CodeAlreadyAnswered:
		return http.StatusBadRequest
	case domain.CodeAuthenticationFailed:
		return http.StatusUnauthorized
	case domain.CodePermissionDenied:
		return http.StatusForbidden
	case domain.CodeSessionNotFound,
		domain.CodeQuestionNotFound,
		domain.CodePlayerNotFound,
		domain.CodeUserNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}
