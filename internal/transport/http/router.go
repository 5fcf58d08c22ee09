package http

import (
	"net/http"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"letsquiz-service/internal/app"
)

// Services bundles everything the router wires handlers to.
type Services struct {
	Auth      *app.AuthService
	Sessions  *app.SessionService
	Stats     *app.StatsService
	Guests    *app.GuestService
	Reference *app.ReferenceService
}

// NewRouter builds the gin engine with every route mounted.
func NewRouter(s Services) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", guestHeaderKey},
		AllowCredentials: true,
	}))

	authHandler := NewAuthHandler(s.Auth)
	sessionHandler := NewSessionHandler(s.Sessions, s.Guests)
	statsHandler := NewStatsHandler(s.Stats)
	guestHandler := NewGuestHandler(s.Guests)
	referenceHandler := NewReferenceHandler(s.Reference)

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	auth := r.Group("/auth")
	{
		auth.POST("/signup/", authHandler.Signup)
		auth.POST("/login/", authHandler.Login)
		auth.POST("/logout/", authHandler.Logout)
	}

	guest := r.Group("/guest")
	{
		guest.POST("/session/", guestHandler.Create)
		guest.GET("/session/:id/", guestHandler.Get)
		guest.POST("/convert/:id/", guestHandler.Convert)
	}

	r.GET("/questions/", referenceHandler.Questions)
	r.GET("/categories/", referenceHandler.Categories)
	r.GET("/difficulties/", referenceHandler.Difficulties)

	sessions := r.Group("/sessions", OptionalAuth(s.Auth))
	{
		sessions.POST("/", sessionHandler.Create)
		sessions.GET("/:id/", sessionHandler.Get)
		sessions.POST("/:id/answer/", sessionHandler.SubmitAnswer)
		sessions.GET("/:id/results/", sessionHandler.Results)
		sessions.DELETE("/:id/", RequireAuth(s.Auth), sessionHandler.Delete)
	}

	r.POST("/quiz-sessions/", RequireAuth(s.Auth), sessionHandler.SaveCompleted)

	users := r.Group("/users", RequireAuth(s.Auth))
	{
		users.GET("/:id/", statsHandler.Profile)
		users.GET("/:id/sessions/", statsHandler.Sessions)
		users.GET("/:id/stats/", statsHandler.Stats)
	}

	return r
}
