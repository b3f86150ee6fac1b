package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"messaging/backend/internal/domain"
)

// ErrCacheMiss 缓存未命中
var ErrCacheMiss = errors.New("cache miss")

const userKeyPrefix = "user:"

// Cache 用户目录的 Redis 缓存。
// 用户创建后不可变，缓存项只会过期，不需要失效通知。
type Cache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewCache 创建 Redis 缓存实例
func NewCache(client *redis.Client, ttl time.Duration) *Cache {
	return &Cache{
		client: client,
		ttl:    ttl,
	}
}

func userKey(id string) string {
	return fmt.Sprintf("%s%s", userKeyPrefix, id)
}

// CacheUser 缓存用户信息
func (c *Cache) CacheUser(ctx context.Context, user *domain.User) error {
	data, err := json.Marshal(user)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, userKey(user.ID), data, c.ttl).Err()
}

// CacheUsers 使用 pipeline 批量缓存用户
func (c *Cache) CacheUsers(ctx context.Context, users []domain.User) error {
	if len(users) == 0 {
		return nil
	}
	pipe := c.client.Pipeline()
	for i := range users {
		data, err := json.Marshal(&users[i])
		if err != nil {
			return err
		}
		pipe.Set(ctx, userKey(users[i].ID), data, c.ttl)
	}
	_, err := pipe.Exec(ctx)
	return err
}

// GetCachedUser 获取缓存的用户信息
func (c *Cache) GetCachedUser(ctx context.Context, id string) (*domain.User, error) {
	data, err := c.client.Get(ctx, userKey(id)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrCacheMiss
		}
		return nil, err
	}

	var user domain.User
	if err := json.Unmarshal([]byte(data), &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// GetCachedUsers 批量读取缓存，返回命中的用户和未命中的 ID
func (c *Cache) GetCachedUsers(ctx context.Context, ids []string) ([]domain.User, []string, error) {
	if len(ids) == 0 {
		return []domain.User{}, nil, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = userKey(id)
	}

	values, err := c.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, nil, err
	}

	hits := make([]domain.User, 0, len(ids))
	var misses []string
	for i, v := range values {
		raw, ok := v.(string)
		if !ok {
			misses = append(misses, ids[i])
			continue
		}
		var user domain.User
		if err := json.Unmarshal([]byte(raw), &user); err != nil {
			misses = append(misses, ids[i])
			continue
		}
		hits = append(hits, user)
	}
	return hits, misses, nil
}

// Ping 测试 Redis 连接
func (c *Cache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}
