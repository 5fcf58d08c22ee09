package http

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"letsquiz-service/internal/app"
	"letsquiz-service/internal/domain"
)

const (
	callerKey      = "caller"
	guestHeaderKey = "X-Guest-Session-ID"
)

// RequireAuth rejects requests without a valid Bearer access token and puts
// the resolved caller on the context.
func RequireAuth(auth *app.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		caller, err := callerFromHeader(c, auth)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, errorBody{
				Error: err.Error(),
				Code:  domain.CodeAuthenticationFailed,
			})
			return
		}
		if !caller.Authenticated {
			c.AbortWithStatusJSON(http.StatusUnauthorized, errorBody{
				Error: "Authentication credentials were not provided.",
				Code:  domain.CodeAuthenticationFailed,
			})
			return
		}
		c.Set(callerKey, caller)
		c.Next()
	}
}

// OptionalAuth resolves the caller when a Bearer token is present and falls
// back to the anonymous caller when it is not. A token that is present but
// invalid is still a hard 401.
func OptionalAuth(auth *app.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		caller, err := callerFromHeader(c, auth)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, errorBody{
				Error: err.Error(),
				Code:  domain.CodeAuthenticationFailed,
			})
			return
		}
		c.Set(callerKey, caller)
		c.Next()
	}
}

func callerFromHeader(c *gin.Context, auth *app.AuthService) (domain.Caller, error) {
	header := c.GetHeader("Authorization")
	if header == "" {
		return domain.Anonymous(), nil
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return domain.Caller{}, domain.NewAuthError("Invalid authorization header format.")
	}
	return auth.Authenticate(c.Request.Context(), parts[1])
}

// caller returns the request's caller, anonymous if no middleware set one.
func caller(c *gin.Context) domain.Caller {
	v, ok := c.Get(callerKey)
	if !ok {
		return domain.Anonymous()
	}
	caller, ok := v.(domain.Caller)
	if !ok {
		return domain.Anonymous()
	}
	return caller
}

// guestID returns the guest record id the client attached, if any.
func guestID(c *gin.Context) string {
	return strings.TrimSpace(c.GetHeader(guestHeaderKey))
}
