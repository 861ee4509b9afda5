// Package cli provides the start-up steps shared by cmd/posledger and
// cmd/posledger-worker.
package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"posledger/internal/amqp"
	"posledger/internal/backend"
	"posledger/internal/config"
	"posledger/internal/log"
	"posledger/internal/storage"
)

// LoadEnvFile loads the .env file for local development.
// Errors are ignored silently as this is optional in production.
func LoadEnvFile() {
	_ = godotenv.Load()
}

// SetupLogger builds the process logger at level and makes it the slog
// default.
func SetupLogger(level string) *log.Logger {
	cfg := log.DefaultConfig()
	cfg.Level = log.ParseLevel(level)
	logger := log.New(cfg)
	log.SetDefault(logger)
	return logger
}

// LoadAndValidateConfig loads configuration and sets up logging from it.
// The process exits when validation fails.
func LoadAndValidateConfig() (*config.Config, *log.Logger) {
	cfg := config.Load()
	logger := SetupLogger(cfg.LogLevel)
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", log.FieldError, err.Error())
		os.Exit(1)
	}
	return cfg, logger
}

// OpenTransactionStore opens the configured key-value backend and wraps it
// in a TransactionStore. The process exits on failure.
func OpenTransactionStore(ctx context.Context, logger *log.Logger, cfg *config.Config) (*storage.TransactionStore, backend.CleanupFunc) {
	bc, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid backend configuration", log.FieldError, err.Error())
		os.Exit(1)
	}

	res, err := backend.NewFactory(logger).CreateBackend(ctx, bc)
	if err != nil {
		logger.Error("Failed to initialize storage backend",
			log.FieldError, err.Error(),
			"backend", bc.Type.String())
		os.Exit(1)
	}

	store := storage.NewTransactionStore(res.Store, cfg.StorageKey,
		storage.WithLogger(logger))
	return store, res.Cleanup
}

// ConnectAMQP returns nil when AMQP is disabled. When required is false a
// failed connection is logged and nil is returned; otherwise the process
// exits.
func ConnectAMQP(logger *log.Logger, cfg *config.Config, required bool) *amqp.Client {
	if !cfg.AMQPEnabled() {
		if required {
			logger.Error("AMQP_URL is required")
			os.Exit(1)
		}
		logger.Info("AMQP disabled, change notifications off")
		return nil
	}

	client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		if required {
			logger.Error("Failed to initialize AMQP client", log.FieldError, err.Error())
			os.Exit(1)
		}
		logger.Warn("AMQP unavailable, continuing without change notifications", log.FieldError, err.Error())
		return nil
	}

	logger.Info("AMQP client initialized", "exchange", cfg.AMQPExchange, "queue", cfg.AMQPQueue)
	return client
}

// SignalContext returns a context cancelled on SIGINT or SIGTERM.
func SignalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}

// ShutdownTimeout bounds how long servers get to drain after a signal.
const ShutdownTimeout = 30 * time.Second
