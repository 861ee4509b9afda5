package backend

import (
	"errors"
	"fmt"

	"posledger/internal/config"
)

// Config holds what a factory needs to open a store.
type Config struct {
	Type BackendType

	// sqlite
	SQLiteDBPath string

	// redis
	RedisURL       string
	RedisKeyPrefix string

	// memory: seed files are read from <DataDirectory>/<SeedKey>.json
	DataDirectory string
	SeedKey       string
}

// FromAppConfig converts the application config to backend config
func FromAppConfig(appConfig *config.Config) (Config, error) {
	if appConfig == nil {
		return Config{}, errors.New("app config is nil")
	}

	backendType := BackendType(appConfig.StorageBackend)
	if !backendType.IsValid() {
		return Config{}, fmt.Errorf("invalid backend type in config: %s", appConfig.StorageBackend)
	}

	return Config{
		Type:           backendType,
		SQLiteDBPath:   appConfig.SQLiteDBPath,
		RedisURL:       appConfig.RedisURL,
		RedisKeyPrefix: appConfig.RedisKeyPrefix,
		DataDirectory:  appConfig.DataDir,
		SeedKey:        appConfig.StorageKey,
	}, nil
}

func (c Config) Validate() error {
	switch c.Type {
	case SQLiteBackend:
		if c.SQLiteDBPath == "" {
			return errors.New("SQLite database path is required for sqlite backend")
		}
	case RedisBackend:
		if c.RedisURL == "" {
			return errors.New("Redis URL is required for redis backend")
		}
	case MemoryBackend:
	default:
		return fmt.Errorf("invalid backend type: %s", c.Type)
	}
	return nil
}
