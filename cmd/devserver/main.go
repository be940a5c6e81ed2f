// Team console development backend.
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

	"github.com/ashureev/teamconsole/internal/api"
	"github.com/ashureev/teamconsole/internal/config"
	"github.com/joho/godotenv"
)

func main() {
	if err := godotenv.Load(); err != nil {
		slog.Info("No .env file found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}))
	slog.SetDefault(logger)

	slog.Info("Starting development backend", "port", cfg.DevServer.Port, "dev", cfg.IsDevelopment())

	origins := []string{"*"}
	if cfg.DevServer.FrontendURL != "" {
		origins = append(origins, cfg.DevServer.FrontendURL)
	}
	srvState := api.NewServer(api.ServerOptions{
		AllowedOrigins: origins,
		SecureCookies:  !cfg.IsDevelopment(),
		RequestLogging: true,
	})

	user, err := srvState.Repo.CreateUser(cfg.DevServer.UserEmail, cfg.DevServer.Password, "Dev", "User")
	if err != nil {
		slog.Error("Failed to seed development user", "error", err)
		os.Exit(1)
	}
	slog.Info("Development user ready", "email", user.Email, "user_id", user.UUID)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	srvState.StartSweeper(ctx, cfg.DevServer.SweepInterval, cfg.DevServer.ConversationTTL)

	// No WriteTimeout: chat sockets are long-lived.
	srv := &http.Server{
		Addr:         ":" + cfg.DevServer.Port,
		Handler:      srvState.Router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 0,
		IdleTimeout:  120 * time.Second,
	}

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
