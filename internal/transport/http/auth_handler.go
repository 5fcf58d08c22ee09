package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"letsquiz-service/internal/app"
	"letsquiz-service/internal/domain"
)

type AuthHandler struct {
	auth *app.AuthService
}

func NewAuthHandler(auth *app.AuthService) *AuthHandler {
	return &AuthHandler{auth: auth}
}

type credentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *AuthHandler) Signup(c *gin.Context) {
	var req credentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, domain.NewValidationError("Invalid request body."))
		return
	}

	user, err := h.auth.Signup(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"user_id": user.ID,
		"email":   user.Email,
	})
}

func (h *AuthHandler) Login(c *gin.Context) {
	var req credentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, domain.NewValidationError("Invalid request body."))
		return
	}

	pair, err := h.auth.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, pair)
}

// Logout is stateless on the server side: tokens simply expire. The endpoint
// exists so clients have a uniform place to end a session.
func (h *AuthHandler) Logout(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"detail": "Successfully logged out."})
}
