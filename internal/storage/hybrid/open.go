package hybrid

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"messaging/backend/internal/config"
	"messaging/backend/internal/storage"
	"messaging/backend/internal/storage/postgres"
	"messaging/backend/internal/storage/redis"
)

// Open 根据配置创建数据库存储，启用 Redis 时外层叠加用户缓存。
// database.type 为空时返回错误，调用方应改用内存存储。
func Open(ctx context.Context, cfg *config.Config, log *zap.Logger) (storage.Store, error) {
	if log == nil {
		log = zap.NewNop()
	}
	if !cfg.UsesDatabase() {
		return nil, fmt.Errorf("database.type is not configured")
	}

	opts := postgres.Options{
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
		AutoMigrate:     cfg.Database.AutoMigrate,
		Logger:          log.Named("sql"),
	}

	var (
		sqlStore *postgres.Store
		err      error
	)
	switch cfg.Database.Type {
	case "postgres":
		client, cerr := postgres.New(ctx, &cfg.Database, log)
		if cerr != nil {
			return nil, cerr
		}
		sqlStore, err = postgres.NewStore(client, opts)
		if err != nil {
			client.Close()
		}
	case "mysql":
		sqlStore, err = postgres.NewMySQLStore(cfg.Database.DSN, opts)
	default:
		return nil, fmt.Errorf("unsupported database type: %s", cfg.Database.Type)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create %s store: %w", cfg.Database.Type, err)
	}

	if !cfg.Redis.Enabled {
		return sqlStore, nil
	}

	client, err := redis.New(ctx, &cfg.Redis, log)
	if err != nil {
		_ = sqlStore.Close()
		return nil, err
	}
	cache := client.UserCache()

	log.Info("user cache enabled",
		zap.String("redis_address", cfg.Redis.Address),
		zap.Duration("ttl", cfg.Redis.UserCacheTTL),
	)
	return NewStore(sqlStore, cache, log.Named("hybrid"), client.Close), nil
}
