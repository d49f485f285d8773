// Package cli provides common CLI initialization utilities shared by
// cmd/invoicer and cmd/invoicer-worker.
package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"invoicer/internal/backend"
	"invoicer/internal/config"
	applog "invoicer/internal/log"
	"invoicer/internal/receipts"
)

// SetupLogger builds the application logger from LOG_LEVEL and LOG_FORMAT
// and installs it as the slog default.
func SetupLogger() *applog.Logger {
	level, err := applog.ParseLevel(os.Getenv("LOG_LEVEL"))
	logger := applog.New(applog.Config{
		Level:     level,
		Component: applog.ComponentApp,
		Format:    os.Getenv("LOG_FORMAT"),
	})
	applog.SetDefault(logger)
	if err != nil {
		logger.Warn("Unknown log level, using info", "error", err)
	}
	return logger
}

// LoadEnvFile loads the .env file for local development.
// Errors are ignored silently as this is optional in production.
func LoadEnvFile() {
	_ = godotenv.Load()
}

// LoadAndValidateConfig loads configuration and validates it.
// Returns the config or exits the process on validation failure.
func LoadAndValidateConfig(logger *applog.Logger) *config.Config {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", "error", err)
		os.Exit(1)
	}
	return cfg
}

// OpenBackend creates the configured repository.
// Returns the backend or exits the process on failure.
func OpenBackend(ctx context.Context, logger *applog.Logger, cfg *config.Config) *backend.BackendResult {
	bcfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid backend configuration", "error", err)
		os.Exit(1)
	}
	result, err := backend.NewFactory(logger.WithComponent(applog.ComponentStorage).Logger).CreateBackend(ctx, bcfg)
	if err != nil {
		logger.Error("Failed to initialize backend", "error", err, "backend", cfg.DataBackend)
		os.Exit(1)
	}
	return result
}

// CloseBackend runs the backend cleanup, logging failures.
func CloseBackend(logger *applog.Logger, result *backend.BackendResult) {
	if result == nil || result.Cleanup == nil {
		return
	}
	if err := result.Cleanup(); err != nil {
		logger.Error("Failed to close backend", "error", err)
	}
}

// NewReceiptStore returns the configured receipt store and, for local
// storage, the directory the server should serve receipts from.
func NewReceiptStore(cfg *config.Config) (receipts.Store, string, error) {
	switch cfg.ReceiptStore {
	case "s3":
		s, err := receipts.NewS3(cfg.S3Region, cfg.S3Bucket)
		if err != nil {
			return nil, "", fmt.Errorf("create s3 receipt store: %w", err)
		}
		return s, "", nil
	default:
		l, err := receipts.NewLocal(cfg.UploadDir, "/receipts/")
		if err != nil {
			return nil, "", fmt.Errorf("create local receipt store: %w", err)
		}
		return l, l.Dir(), nil
	}
}

// GracefulShutdown sets up signal handling for graceful shutdown.
// Returns a context that will be cancelled on shutdown signals,
// and a channel that signals when shutdown is complete.
func GracefulShutdown(logger *slog.Logger, timeout time.Duration, cleanup func(context.Context)) (context.Context, <-chan struct{}) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigChan
		logger.Info("Shutdown signal received", "signal", sig.String())

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), timeout)
		defer shutdownCancel()

		cancel()
		if cleanup != nil {
			cleanup(shutdownCtx)
		}
		if shutdownCtx.Err() != nil {
			logger.Warn("Shutdown timeout reached")
		} else {
			logger.Info("Shutdown complete")
		}
		close(done)
	}()

	return ctx, done
}

// WaitForShutdown blocks until the context is cancelled and cleanup ran.
func WaitForShutdown(ctx context.Context, done <-chan struct{}) {
	<-ctx.Done()
	<-done
}
