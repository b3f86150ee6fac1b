package redis

import (
	"context"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"messaging/backend/internal/config"
)

const defaultUserCacheTTL = 10 * time.Minute

// Client 持有用户缓存使用的 Redis 连接
type Client struct {
	rdb     *goredis.Client
	log     *zap.Logger
	userTTL time.Duration
}

// New 连接 Redis 并在返回前确认可用；ctx 只约束启动时的 PING
func New(ctx context.Context, cfg *config.RedisConfig, log *zap.Logger) (*Client, error) {
	if log == nil {
		log = zap.NewNop()
	}
	log = log.Named("redis")

	rdb := goredis.NewClient(&goredis.Options{
		Addr:         cfg.Address,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  time.Second,
		WriteTimeout: time.Second,
		PoolSize:     10,
		MinIdleConns: 2,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis %s unreachable: %w", cfg.Address, err)
	}

	ttl := cfg.UserCacheTTL
	if ttl <= 0 {
		ttl = defaultUserCacheTTL
	}

	log.Info("redis connected", zap.String("address", cfg.Address), zap.Int("db", cfg.DB))
	return &Client{rdb: rdb, log: log, userTTL: ttl}, nil
}

// UserCache 返回基于该连接的用户缓存
func (c *Client) UserCache() *Cache {
	return NewCache(c.rdb, c.userTTL)
}

// Close 关闭连接池
func (c *Client) Close() error {
	if err := c.rdb.Close(); err != nil {
		c.log.Warn("redis close failed", zap.Error(err))
		return err
	}
	return nil
}
