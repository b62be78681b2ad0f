package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/hisabkitab/server/internal/config"
	"github.com/hisabkitab/server/internal/database"
	"github.com/hisabkitab/server/internal/handlers"
	"github.com/hisabkitab/server/internal/logging"
	"github.com/hisabkitab/server/internal/middleware"
	"github.com/hisabkitab/server/internal/services"
)

func main() {
	if err := run(); err != nil {
		logging.Error("Application error", map[string]interface{}{"error": err.Error()})
		os.Exit(1)
	}
}

func run() error {
	logger := logging.New()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	if cfg.Server.Debug {
		logger.SetLevel(logging.LevelDebug)
		logging.SetDefaultLevel(logging.LevelDebug)
		logger.Debug("Debug logging enabled", map[string]interface{}{
			"env": cfg.Server.Environment,
		})
	}

	logger.Info("Starting Hisab Kitab server...")

	logger.Info("Connecting to PostgreSQL", map[string]interface{}{
		"host": cfg.Database.Host,
		"port": cfg.Database.Port,
	})
	db, err := database.NewPostgresDB(cfg.Database.DSN())
	if err != nil {
		return fmt.Errorf("connecting to postgres: %w", err)
	}
	defer db.Close()
	logger.Info("Connected to PostgreSQL")

	logger.Info("Running database migrations...")
	migrator, err := database.NewMigrator(cfg.Database.DSN(), "migrations")
	if err != nil {
		return fmt.Errorf("creating migrator: %w", err)
	}
	if err := migrator.Up(); err != nil {
		_ = migrator.Close()
		return fmt.Errorf("running migrations: %w", err)
	}
	_ = migrator.Close()
	logger.Info("Migrations completed")

	logger.Info("Connecting to Redis", map[string]interface{}{
		"addr": cfg.Redis.Addr(),
	})
	redisDB, err := database.NewRedisDB(cfg.Redis.Addr(), cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		return fmt.Errorf("connecting to redis: %w", err)
	}
	defer func() { _ = redisDB.Close() }()
	logger.Info("Connected to Redis")

	// Initialize services
	dbAdapter := services.NewPoolAdapter(db.Pool)
	redisAdapter := services.NewRedisAdapter(redisDB.Client)

	userService := services.NewUserService(dbAdapter)
	authService := services.NewAuthService(redisAdapter, cfg.Auth.SessionTTL, cfg.Auth.BcryptCost)
	friendshipService := services.NewFriendshipService(dbAdapter)
	transactionService := services.NewTransactionService(dbAdapter)
	deleteRequestService := services.NewDeleteRequestService(dbAdapter)
	resetRequestService := services.NewResetRequestService(dbAdapter)

	// Initialize handlers
	healthHandler := handlers.NewHealthHandler(db, redisDB)
	authHandler := handlers.NewAuthHandler(userService, authService, cfg.Server.Secure)
	userHandler := handlers.NewUserHandler(userService)
	friendHandler := handlers.NewFriendHandler(friendshipService)
	transactionHandler := handlers.NewTransactionHandler(transactionService)
	deleteRequestHandler := handlers.NewDeleteRequestHandler(deleteRequestService)
	resetRequestHandler := handlers.NewResetRequestHandler(resetRequestService)

	// Initialize middleware
	authMiddleware := middleware.NewAuthMiddleware(authService, userService)
	requestLogger := middleware.NewRequestLogger(logger)

	loginRateLimit := resolveLoginRateLimit(cfg, logger, os.LookupEnv)
	loginRateLimiter := middleware.NewRateLimiter(redisDB.Client, loginRateLimit, cfg.Auth.LoginRateWindow, "ratelimit:login:", middleware.GetClientIP, false)

	requireSession := authMiddleware.RequireSession

	// Set up router
	mux := http.NewServeMux()

	// Health endpoints (no auth, no rate limit)
	mux.HandleFunc("GET /health", healthHandler.Health)
	mux.HandleFunc("GET /ready", healthHandler.Ready)

	// Auth endpoints
	mux.Handle("POST /api/auth/register", http.HandlerFunc(authHandler.Register))
	mux.Handle("POST /api/auth/login", loginRateLimiter.Middleware(http.HandlerFunc(authHandler.Login)))
	mux.Handle("POST /api/auth/logout", http.HandlerFunc(authHandler.Logout))
	mux.Handle("GET /api/auth/me", requireSession(http.HandlerFunc(authHandler.Me)))
	mux.Handle("POST /api/auth/password", requireSession(http.HandlerFunc(authHandler.ChangePassword)))

	// User search
	mux.Handle("GET /api/users/search", requireSession(http.HandlerFunc(userHandler.Search)))

	// Friend endpoints
	mux.Handle("GET /api/friends", requireSession(http.HandlerFunc(friendHandler.ListFriends)))
	mux.Handle("POST /api/friends/requests", requireSession(http.HandlerFunc(friendHandler.SendRequest)))
	mux.Handle("GET /api/friends/requests", requireSession(http.HandlerFunc(friendHandler.ListPendingRequests)))
	mux.Handle("POST /api/friends/requests/{id}/action", requireSession(http.HandlerFunc(friendHandler.ActOnRequest)))

	// Transaction endpoints
	mux.Handle("POST /api/transactions", requireSession(http.HandlerFunc(transactionHandler.Create)))
	mux.Handle("GET /api/transactions/pending/received", requireSession(http.HandlerFunc(transactionHandler.ListPendingReceived)))
	mux.Handle("GET /api/transactions/pending/sent", requireSession(http.HandlerFunc(transactionHandler.ListPendingSent)))
	mux.Handle("POST /api/transactions/{id}/action", requireSession(http.HandlerFunc(transactionHandler.Act)))
	mux.Handle("GET /api/transactions/history/{username}", requireSession(http.HandlerFunc(transactionHandler.History)))

	// Delete request endpoints
	mux.Handle("POST /api/transactions/{id}/delete-requests", requireSession(http.HandlerFunc(deleteRequestHandler.Create)))
	mux.Handle("GET /api/delete-requests", requireSession(http.HandlerFunc(deleteRequestHandler.ListPending)))
	mux.Handle("POST /api/delete-requests/{id}/action", requireSession(http.HandlerFunc(deleteRequestHandler.Act)))

	// History reset endpoints
	mux.Handle("POST /api/history/reset-requests", requireSession(http.HandlerFunc(resetRequestHandler.Create)))
	mux.Handle("GET /api/history/reset-requests", requireSession(http.HandlerFunc(resetRequestHandler.ListPending)))
	mux.Handle("POST /api/history/reset-requests/{id}/action", requireSession(http.HandlerFunc(resetRequestHandler.Act)))

	// Build middleware chain (order matters: outermost first)
	var handler http.Handler = mux
	handler = authMiddleware.Authenticate(handler)
	handler = requestLogger.Apply(handler)

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	server := &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown
	done := make(chan bool, 1)
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-quit
		logger.Info("Server is shutting down...")

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		server.SetKeepAlivesEnabled(false)
		if err := server.Shutdown(ctx); err != nil {
			logger.Error("Could not gracefully shutdown the server", map[string]interface{}{
				"error": err.Error(),
			})
		}
		close(done)
	}()

	logger.Info("Server is ready to handle requests", map[string]interface{}{"addr": addr})
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("listening on %s: %w", addr, err)
	}

	<-done
	logger.Info("Server stopped")
	return nil
}

// resolveLoginRateLimit picks the per-window login attempt cap. An
// explicit LOGIN_RATE_LIMIT wins; development environments get a loose
// cap so local testing is not throttled.
func resolveLoginRateLimit(cfg *config.Config, logger *logging.Logger, lookup func(string) (string, bool)) int64 {
	if raw, ok := lookup("LOGIN_RATE_LIMIT"); ok {
		if parsed, err := strconv.ParseInt(raw, 10, 64); err == nil && parsed > 0 {
			return parsed
		}
		logger.Warn("Invalid LOGIN_RATE_LIMIT, using default", map[string]interface{}{"value": raw})
	}
	if cfg.Server.Environment == "development" {
		return 100
	}
	return cfg.Auth.LoginRateLimit
}
