package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"go.uber.org/zap"

	"messaging/backend/internal/config"
)

const (
	connectTimeout  = 10 * time.Second
	poolMaxIdleTime = 30 * time.Minute
)

// Client 持有 pgx 连接池，GORM 通过 DB() 复用同一个池
type Client struct {
	pool *pgxpool.Pool
	log  *zap.Logger
}

// New 按数据库配置建立连接池并确认可达
func New(ctx context.Context, cfg *config.DatabaseConfig, log *zap.Logger) (*Client, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("database.dsn is empty")
	}
	if log == nil {
		log = zap.NewNop()
	}

	pc, err := poolConfig(cfg)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(ctx, pc)
	if err != nil {
		return nil, fmt.Errorf("open postgres pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres unreachable: %w", err)
	}

	log.Info("postgres pool ready",
		zap.String("database", pc.ConnConfig.Database),
		zap.Int32("max_conns", pc.MaxConns),
	)
	return &Client{pool: pool, log: log}, nil
}

// poolConfig 将 database.* 配置映射到 pgxpool；未设置的项保留 pgx 默认值
func poolConfig(cfg *config.DatabaseConfig) (*pgxpool.Config, error) {
	pc, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	if cfg.MaxOpenConns > 0 {
		pc.MaxConns = int32(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		pc.MinConns = int32(min(cfg.MaxIdleConns, int(pc.MaxConns)))
	}
	if cfg.ConnMaxLifetime > 0 {
		pc.MaxConnLifetime = cfg.ConnMaxLifetime
	}
	pc.MaxConnIdleTime = poolMaxIdleTime
	return pc, nil
}

// DB 返回包装连接池的 *sql.DB
func (c *Client) DB() *sql.DB {
	return stdlib.OpenDBFromPool(c.pool)
}

// Close 关闭连接池
func (c *Client) Close() {
	c.pool.Close()
	c.log.Info("postgres pool closed")
}
