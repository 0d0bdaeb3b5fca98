package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	"activities-api/config"
	"activities-api/ctxlog"
	"activities-api/db"
	"activities-api/directory"
	"activities-api/handlers"
	"activities-api/registration"
	"activities-api/seed"
)

func main() {
	if err := run(os.Args[1:], os.Getenv); err != nil {
		slog.Error("server exited with error", "error", err)
		os.Exit(1)
	}
}

func run(args []string, getenv func(string) string) error {
	cfg, err := config.Load(args, getenv)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logger := newLogger(cfg.LogLevel, cfg.LogFormat, os.Stdout)
	slog.SetDefault(logger)

	// Short timeout for startup work so a stuck database cannot hang boot
	ctx, cancel := context.WithTimeout(ctxlog.WithLogger(context.Background(), logger), 10*time.Second)
	defer cancel()

	store, err := db.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		return err
	}
	// Close DB connection last
	defer func() {
		if err := store.Close(); err != nil {
			logger.Error("failed to close db", "error", err)
		}
	}()

	if err := store.InitSchema(ctx); err != nil {
		return err
	}
	logger.Info("database schema initialized", "dialect", store.Dialect())

	catalog, err := seed.LoadCatalog(cfg.SeedCatalog)
	if err != nil {
		return err
	}
	if _, err := seed.NewLoader(store, catalog).Run(ctx); err != nil {
		return err
	}

	h := &handlers.Handlers{
		Registrar: registration.New(store, registration.WithUnregisterMode(cfg.UnregisterMode)),
		Directory: directory.New(store),
		DB:        store,
	}

	server := &http.Server{
		Addr:         cfg.Addr,
		Handler:      h2c.NewHandler(newHandler(cfg, logger, h), &http2.Server{}),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("server starting", "addr", cfg.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	select {
	case err := <-serverErr:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
	case <-quit:
	}

	logger.Info("shutting down server...")

	ctxShutdown, cancelShutdown := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancelShutdown()
	if err := server.Shutdown(ctxShutdown); err != nil {
		logger.Error("server forced to shutdown", "error", err)
	}

	logger.Info("server exited cleanly")
	return nil
}

// newHandler builds the routed handler wrapped in the global middlewares.
func newHandler(cfg *config.Config, logger *slog.Logger, h *handlers.Handlers) http.Handler {
	mux := http.NewServeMux()
	h.Routes(mux, cfg.StaticDir)

	var handler http.Handler = mux
	handler = RateLimitMiddleware(cfg.RateLimit, cfg.RateWindow)(handler)
	handler = LoggingMiddleware(handler)
	handler = RecoveryMiddleware(handler)
	handler = RequestIDMiddleware(logger)(handler)
	return handler
}

// newLogger creates a slog.Logger writing to outW. Unknown levels fall back
// to info and unknown formats to text.
func newLogger(levelStr, formatStr string, outW io.Writer) *slog.Logger {
	var level slog.Level
	switch levelStr {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	handlerOpts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler

	if formatStr == "json" {
		handler = slog.NewJSONHandler(outW, handlerOpts)
	} else {
		handler = slog.NewTextHandler(outW, handlerOpts)
	}

	return slog.New(handler)
}
