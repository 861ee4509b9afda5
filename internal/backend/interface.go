package backend

import (
	"context"

	"posledger/internal/storage"
)

// CleanupFunc releases resources held by a backend.
type CleanupFunc func() error

// Result carries the key-value store chosen by configuration.
type Result struct {
	Store   storage.KeyValueStore
	Cleanup CleanupFunc
}

// Factory creates key-value stores based on configuration
type Factory interface {
	CreateBackend(ctx context.Context, config Config) (*Result, error)
}

// BackendType names a storage backend
type BackendType string

const (
	MemoryBackend BackendType = "memory"
	SQLiteBackend BackendType = "sqlite"
	RedisBackend  BackendType = "redis"
)

func (bt BackendType) String() string {
	return string(bt)
}

func (bt BackendType) IsValid() bool {
	switch bt {
	case MemoryBackend, SQLiteBackend, RedisBackend:
		return true
	default:
		return false
	}
}
