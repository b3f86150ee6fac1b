package hybrid

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"messaging/backend/internal/domain"
	"messaging/backend/internal/storage"
	"messaging/backend/internal/storage/redis"
)

// Store 混合存储实现：SQL 存储负责持久化与事务，Redis 缓存用户目录。
// 未覆盖的方法直接委托给底层存储。
type Store struct {
	storage.Store
	cache *redis.Cache
	log   *zap.Logger

	// populate 为 false 时只读缓存不回填（事务内使用，避免缓存未提交的数据）
	populate bool
	closeFn  func() error
}

var _ storage.Store = (*Store)(nil)

// NewStore 创建混合存储实例。closeFn 用于关闭 Redis 连接，可以为 nil。
func NewStore(inner storage.Store, cache *redis.Cache, log *zap.Logger, closeFn func() error) *Store {
	if log == nil {
		log = zap.NewNop()
	}
	return &Store{
		Store:    inner,
		cache:    cache,
		log:      log,
		populate: true,
		closeFn:  closeFn,
	}
}

// Transaction 在底层事务上叠加只读缓存
func (s *Store) Transaction(ctx context.Context, fn func(tx storage.Store) error) error {
	return s.Store.Transaction(ctx, func(tx storage.Store) error {
		return fn(&Store{Store: tx, cache: s.cache, log: s.log})
	})
}

// CreateUser 写入数据库后缓存用户
func (s *Store) CreateUser(ctx context.Context, user *domain.User) error {
	if err := s.Store.CreateUser(ctx, user); err != nil {
		return err
	}
	if s.populate {
		if err := s.cache.CacheUser(ctx, user); err != nil {
			// 缓存失败不影响主流程
			s.log.Warn("failed to cache user", zap.String("user_id", user.ID), zap.Error(err))
		}
	}
	return nil
}

// GetUserByID 先查 Redis，未命中再查数据库
func (s *Store) GetUserByID(ctx context.Context, id string) (*domain.User, error) {
	user, err := s.cache.GetCachedUser(ctx, id)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, redis.ErrCacheMiss) {
		s.log.Warn("user cache read failed", zap.String("user_id", id), zap.Error(err))
	}

	user, err = s.Store.GetUserByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if s.populate {
		if err := s.cache.CacheUser(ctx, user); err != nil {
			s.log.Warn("failed to cache user", zap.String("user_id", id), zap.Error(err))
		}
	}
	return user, nil
}

// GetUsersByIDs 批量读取缓存，只把未命中的 ID 交给数据库
func (s *Store) GetUsersByIDs(ctx context.Context, ids []string) ([]domain.User, error) {
	hits, misses, err := s.cache.GetCachedUsers(ctx, ids)
	if err != nil {
		s.log.Warn("user cache batch read failed", zap.Error(err))
		return s.Store.GetUsersByIDs(ctx, ids)
	}
	if len(misses) == 0 {
		return hits, nil
	}

	loaded, err := s.Store.GetUsersByIDs(ctx, misses)
	if err != nil {
		return nil, err
	}
	if s.populate {
		if err := s.cache.CacheUsers(ctx, loaded); err != nil {
			s.log.Warn("failed to cache users", zap.Int("count", len(loaded)), zap.Error(err))
		}
	}
	return append(hits, loaded...), nil
}

// Health 同时检查数据库与 Redis
func (s *Store) Health(ctx context.Context) error {
	if err := s.Store.Health(ctx); err != nil {
		return fmt.Errorf("database: %w", err)
	}
	if err := s.cache.Ping(ctx); err != nil {
		return fmt.Errorf("redis: %w", err)
	}
	return nil
}

// Close 关闭数据库与 Redis 连接
func (s *Store) Close() error {
	err := s.Store.Close()
	if s.closeFn != nil {
		if cerr := s.closeFn(); cerr != nil && err == nil {
			err = cerr
		}
	}
	return err
}
