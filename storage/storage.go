// Package storage is the client's durable key/value store, the equivalent of
// browser localStorage. The session record and the per-conversation chat
// cache live here.
package storage

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	config "github.com/anjiri1684/skill_exchange/configs"
	"github.com/anjiri1684/skill_exchange/database"
)

type Storage interface {
	// Get returns the value for key and whether it was present.
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
	// Remove is a no-op for missing keys.
	Remove(ctx context.Context, key string) error
	Keys(ctx context.Context, prefix string) ([]string, error)
}

// Open builds the backend selected by cfg. The returned close function
// releases the underlying connection.
func Open(ctx context.Context, cfg config.StorageConfig, log *zap.Logger) (Storage, func() error, error) {
	switch strings.ToLower(cfg.Driver) {
	case "memory":
		return NewMemory(), func() error { return nil }, nil
	case "", "sqlite", "postgres":
		db, err := database.Connect(cfg.Driver, cfg.DSN, log)
		if err != nil {
			return nil, nil, err
		}
		s, err := NewGorm(db)
		if err != nil {
			_ = database.Close(db)
			return nil, nil, err
		}
		return s, func() error { return database.Close(db) }, nil
	case "redis":
		rdb, err := NewRedisClient(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			return nil, nil, err
		}
		return NewRedis(rdb, "skillswap:"), rdb.Close, nil
	default:
		return nil, nil, fmt.Errorf("unsupported storage driver %q", cfg.Driver)
	}
}
