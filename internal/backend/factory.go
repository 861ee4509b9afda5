package backend

import (
	"context"
	"fmt"

	"posledger/internal/log"
	"posledger/internal/storage"
	"posledger/internal/storage/memory"
	"posledger/internal/storage/redisstore"
)

type DefaultFactory struct {
	logger *log.Logger
}

func NewFactory(logger *log.Logger) Factory {
	if logger == nil {
		logger = log.Discard()
	}
	return &DefaultFactory{logger: logger.WithComponent(log.ComponentBackend)}
}

// CreateBackend implements Factory.CreateBackend
func (f *DefaultFactory) CreateBackend(ctx context.Context, config Config) (*Result, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	switch config.Type {
	case SQLiteBackend:
		return f.createSQLiteBackend(ctx, config)
	case RedisBackend:
		return f.createRedisBackend(ctx, config)
	default:
		return f.createMemoryBackend(ctx, config)
	}
}

func (f *DefaultFactory) createSQLiteBackend(ctx context.Context, config Config) (*Result, error) {
	store, err := storage.NewSQLiteStore(config.SQLiteDBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize SQLite store: %w", err)
	}

	f.logger.InfoContext(ctx, "Using SQLite backend", "db_path", config.SQLiteDBPath)
	return &Result{Store: store, Cleanup: store.Close}, nil
}

func (f *DefaultFactory) createRedisBackend(ctx context.Context, config Config) (*Result, error) {
	store, client, err := redisstore.Dial(ctx, config.RedisURL, config.RedisKeyPrefix)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	f.logger.InfoContext(ctx, "Using Redis backend", "key_prefix", config.RedisKeyPrefix)
	return &Result{Store: store, Cleanup: client.Close}, nil
}

func (f *DefaultFactory) createMemoryBackend(ctx context.Context, config Config) (*Result, error) {
	var store *memory.Store
	if config.DataDirectory != "" && config.SeedKey != "" {
		store = memory.NewFromFiles(config.DataDirectory, config.SeedKey)
	} else {
		store = memory.New()
	}

	f.logger.WarnContext(ctx, "Using in-memory backend, changes are lost on restart",
		"data_dir", config.DataDirectory)
	return &Result{Store: store, Cleanup: func() error { return nil }}, nil
}
