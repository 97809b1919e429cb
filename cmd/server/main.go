package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"geminichat/db"
	"geminichat/internal/auth"
	"geminichat/internal/chat"
	"geminichat/internal/config"
	"geminichat/internal/generation"
	"geminichat/internal/identity"
	"geminichat/internal/user"
	"geminichat/internal/web"
	"geminichat/middleware"

	"github.com/sirupsen/logrus"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		logrus.Fatalf("Failed to load configuration: %v", err)
	}

	logger := newLogger(cfg.LogLevel)

	if err := cfg.ValidateServer(); err != nil {
		logger.Fatalf("Invalid configuration: %v", err)
	}
	logWarnings(cfg, logger)

	if err := run(cfg, logger); err != nil {
		logger.Fatalf("Server stopped: %v", err)
	}
	logger.Info("Server shutdown complete")
}

func logWarnings(cfg *config.Config, logger *logrus.Logger) {
	for _, warning := range cfg.Warnings() {
		logger.Warn(warning)
	}
}

func newLogger(level string) *logrus.Logger {
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	logLevel, err := logrus.ParseLevel(level)
	if err != nil {
		logLevel = logrus.InfoLevel
	}
	logger.SetLevel(logLevel)
	return logger
}

func run(cfg *config.Config, logger *logrus.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	conn, err := db.ConnectToDatabase(cfg.DatabaseDriver, cfg.DatabaseDSN, logger)
	if err != nil {
		return err
	}
	defer conn.Close()

	generator, err := generation.NewGeminiClient(ctx, cfg, logger)
	if err != nil {
		return err
	}

	handler, closer, err := buildHandler(cfg, conn, generator, logger)
	if err != nil {
		return err
	}
	defer closer.Close()

	server := newServer(cfg, handler)
	serverErr := make(chan error, 1)
	go func() {
		logger.WithField("port", cfg.Port).Info("Server is starting")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	select {
	case err := <-serverErr:
		return err
	case <-ctx.Done():
		logger.Info("Received shutdown signal")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown error: %w", err)
	}
	return nil
}

// buildHandler wires the schema, services and session store around conn.
// The returned closer releases the session backend.
func buildHandler(cfg *config.Config, conn *sql.DB, generator generation.Generator, logger *logrus.Logger) (http.Handler, io.Closer, error) {
	dialect, err := db.DialectFor(cfg.DatabaseDriver)
	if err != nil {
		return nil, nil, err
	}
	if err := db.InitializeSchema(conn, dialect); err != nil {
		return nil, nil, fmt.Errorf("failed to initialize database schema: %w", err)
	}

	repoFactory := db.NewRepositoryFactory(conn, dialect)
	userRepo := repoFactory.NewUserRepository()
	chatRepo := repoFactory.NewChatRepository()

	userService := user.NewUserService(userRepo, logger)
	chatService := chat.NewChatService(chatRepo, generator, logger)

	store, err := identity.NewStore(cfg, logger)
	if err != nil {
		return nil, nil, err
	}
	closer := io.Closer(nopCloser{})
	if c, ok := store.(io.Closer); ok {
		closer = c
	}

	sessions := identity.NewManager(store, logger)
	authHandlers := auth.NewAuthHandlers(cfg, userService, logger)
	mw := middleware.NewMiddleware(sessions, authHandlers, userService, logger)

	webHandler, err := web.NewWebHandler(userService, chatService, sessions, authHandlers, mw, conn, cfg, logger)
	if err != nil {
		closer.Close()
		return nil, nil, fmt.Errorf("failed to load templates: %w", err)
	}
	return webHandler.Handler(), closer, nil
}

func newServer(cfg *config.Config, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		// generation calls block the handler
		WriteTimeout: 5 * time.Minute,
		IdleTimeout:  2 * time.Minute,
	}
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
