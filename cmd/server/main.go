// Model-context hub server.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"
	"github.com/joho/godotenv"
	"github.com/modelcontext/hub/internal/api"
	"github.com/modelcontext/hub/internal/auth"
	"github.com/modelcontext/hub/internal/config"
	"github.com/modelcontext/hub/internal/middleware"
	"github.com/modelcontext/hub/internal/registry"
	"github.com/modelcontext/hub/internal/session"
	"github.com/modelcontext/hub/internal/store"
	"github.com/modelcontext/hub/internal/ws"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	if err := godotenv.Load(); err != nil {
		slog.Info("No .env file found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	slog.Info("Starting server", "port", cfg.Port, "dev", cfg.IsDevelopment())

	// Initialize dependencies.
	repo, err := store.NewSQLite(cfg.DBPath)
	if err != nil {
		slog.Error("Failed to initialize database", "error", err)
		os.Exit(1)
	}
	defer func() {
		if closeErr := repo.Close(); closeErr != nil {
			slog.Error("Failed to close repository", "error", closeErr)
		}
	}()

	if err := repo.Ping(context.Background()); err != nil {
		slog.Error("Database health check failed", "error", err)
		os.Exit(1)
	}
	slog.Info("Database connected")

	// Initialize services.
	svc := session.NewService(repo)
	reg := registry.New()
	hub := ws.NewHub()
	issuer := auth.NewTokenIssuer(cfg.JWTSecret, cfg.TokenTTL)

	// Initialize handlers.
	mcpHandler := api.NewHandler(svc, reg)
	authHandler := api.NewAuthHandler(repo, issuer)
	productHandler := api.NewProductHandler(repo)
	orderHandler := api.NewOrderHandler(repo)
	healthHandler := api.NewHealthHandler(repo)
	wsHandler := ws.NewHandler(svc, hub, cfg.FrontendURL, cfg.IsDevelopment())

	// Setup router.
	r := chi.NewRouter()

	// Global middleware.
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Logger)
	r.Use(chiMiddleware.Recoverer)
	r.Use(httprate.LimitByIP(cfg.RateLimit, cfg.RateLimitWindow))
	r.Use(middleware.CORS(cfg.AllowedOrigins))
	r.Use(auth.Middleware(repo, issuer))

	// Public routes.
	healthHandler.RegisterHealth(r)

	// HTTP surface.
	mcpHandler.RegisterMCPRoutes(r)
	authHandler.RegisterRoutes(r)
	productHandler.RegisterRoutes(r)
	orderHandler.RegisterRoutes(r)

	// WebSocket endpoint.
	r.Get("/ws/{model_id}/{session_id}", wsHandler.ServeHTTP)

	// Create server.
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 0, // WebSocket connections stay open indefinitely.
		IdleTimeout:  120 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Start server.
	go func() {
		slog.Info("Server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Server failed", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for shutdown signal.
	<-ctx.Done()
	stop()

	slog.Info("Shutting down gracefully...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("Server forced to shutdown", "error", err)
		os.Exit(1)
	}

	slog.Info("Server stopped successfully")
}
