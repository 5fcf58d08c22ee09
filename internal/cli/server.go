package cli

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"letsquiz-service/internal/app"
	"letsquiz-service/internal/config"
	"letsquiz-service/internal/infra/memory"
	"letsquiz-service/internal/infra/postgres"
	redisinfra "letsquiz-service/internal/infra/redis"
	transport "letsquiz-service/internal/transport/http"
)

// NewServeCmd builds the CLI subcommand to start the API server.
func NewServeCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the quiz API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), *configPath, *port)
		},
	}
}

func runServer(ctx context.Context, configPath, portFlag string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	if cfg.Postgres.URL != "" {
		if err := runMigrationsWithConfig(ctx, cfg); err != nil {
			return err
		}
	}

	finalPort := portFlag
	if finalPort == "" {
		finalPort = cfg.Server.Port
	}
	if finalPort == "" {
		finalPort = "8080"
	}

	guestTTL := config.TTLDuration(cfg.Guest.TTL, 30*24*time.Hour)
	cacheTTL := config.TTLDuration(cfg.Reference.CacheTTL, 5*time.Minute)

	var (
		sessionRepo app.SessionRepository
		questions   app.QuestionRepository
		users       app.UserRepository
	)
	if cfg.Postgres.URL != "" {
		db := postgres.Open(cfg.Postgres.URL)
		defer db.Close()
		sessionRepo = postgres.NewSessionRepository(db)
		questions = postgres.NewQuestionRepository(db)
		users = postgres.NewUserRepository(db)
		log.Printf("using postgres storage")
	} else {
		sessionRepo = memory.NewSessionRepository()
		questions = memory.NewQuestionRepository()
		users = memory.NewUserRepository()
		log.Printf("postgres not configured, using in-memory storage")
	}

	var guestStore app.GuestStore
	if cfg.Redis.Addr != "" {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer client.Close()
		guestStore = redisinfra.NewGuestStore(client, guestTTL)
		log.Printf("using redis guest store")
	} else {
		guestStore = memory.NewGuestStore(guestTTL)
		log.Printf("redis not configured, using in-memory guest store")
	}

	accessTTL := config.TTLDuration(cfg.Auth.AccessTTL, time.Hour)
	refreshTTL := config.TTLDuration(cfg.Auth.RefreshTTL, 7*24*time.Hour)
	secret := cfg.Auth.JWTSecret
	if secret == "" {
		return errMissingJWTSecret
	}

	router := transport.NewRouter(transport.Services{
		Auth:      app.NewAuthService(users, secret, accessTTL, refreshTTL),
		Sessions:  app.NewSessionService(sessionRepo, questions),
		Stats:     app.NewStatsService(sessionRepo, users),
		Guests:    app.NewGuestService(guestStore),
		Reference: app.NewReferenceService(questions, cacheTTL),
	})

	server := &http.Server{
		Addr:         ":" + finalPort,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		log.Printf("starting quiz service on :%s", finalPort)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("failed to start server: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-stop:
		log.Println("shutting down server...")
	case <-ctx.Done():
		log.Println("context canceled, shutting down server...")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}
