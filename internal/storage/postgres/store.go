package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"

	"messaging/backend/internal/domain"
	"messaging/backend/internal/storage"
)

// Options 数据库存储选项
type Options struct {
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	AutoMigrate     bool
	Logger          *zap.Logger
}

// Store 基于 GORM 的 SQL 存储实现（PostgreSQL / MySQL）
type Store struct {
	db   *gorm.DB
	bind int // sqlx 占位符风格
	log  *zap.Logger

	// closeFn 释放 db 之外的底层资源（如 pgxpool）
	closeFn func()
}

var _ storage.Store = (*Store)(nil)

// NewStore 在已建立的 PostgreSQL 连接池上创建存储实例
func NewStore(client *Client, opts Options) (*Store, error) {
	store, err := NewStoreWithDialector(postgres.New(postgres.Config{Conn: client.DB()}), opts)
	if err != nil {
		return nil, err
	}
	store.closeFn = client.Close
	return store, nil
}

// NewMySQLStore 创建 MySQL 存储实例。DSN 需要带 parseTime=true。
func NewMySQLStore(dsn string, opts Options) (*Store, error) {
	return NewStoreWithDialector(mysql.Open(dsn), opts)
}

// NewStoreWithDialector 使用指定的GORM dialector创建存储实例
func NewStoreWithDialector(dialector gorm.Dialector, opts Options) (*Store, error) {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}

	config := &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent), // 静默模式
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
		// 唯一约束冲突统一翻译为 gorm.ErrDuplicatedKey
		TranslateError: true,
	}

	db, err := gorm.Open(dialector, config)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}
	if opts.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(opts.MaxOpenConns)
	}
	if opts.MaxIdleConns > 0 {
		sqlDB.SetMaxIdleConns(opts.MaxIdleConns)
	}
	if opts.ConnMaxLifetime > 0 {
		sqlDB.SetConnMaxLifetime(opts.ConnMaxLifetime)
	}

	store := &Store{
		db:   db,
		bind: sqlx.BindType(driverName(db.Dialector.Name())),
		log:  log,
	}

	if opts.AutoMigrate {
		if err := store.migrate(); err != nil {
			return nil, fmt.Errorf("failed to migrate database: %w", err)
		}
		log.Info("database schema migrated", zap.String("dialect", db.Dialector.Name()))
	}

	return store, nil
}

// driverName 将 GORM 方言名映射为 sqlx 识别的驱动名
func driverName(dialect string) string {
	switch dialect {
	case "sqlite":
		return "sqlite3"
	default:
		return dialect
	}
}

// migrate 自动迁移数据库表结构
func (s *Store) migrate() error {
	return s.db.AutoMigrate(
		&userRow{},
		&messageRow{},
		&deliveryRow{},
	)
}

// Transaction 在数据库事务中执行 fn
func (s *Store) Transaction(ctx context.Context, fn func(tx storage.Store) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&Store{db: tx, bind: s.bind, log: s.log})
	})
}

// ========== User Repository ==========

// CreateUser 创建新用户
func (s *Store) CreateUser(ctx context.Context, user *domain.User) error {
	db := s.db.WithContext(ctx)

	// 检查邮箱是否已存在
	var existing domain.User
	err := db.Where("email = ?", user.Email).First(&existing).Error
	if err == nil {
		return storage.ErrEmailExists
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}

	// 并发注册时由唯一索引兜底
	if err := db.Create(user).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return storage.ErrEmailExists
		}
		return err
	}
	return nil
}

// GetUserByID 根据ID获取用户
func (s *Store) GetUserByID(ctx context.Context, id string) (*domain.User, error) {
	var user domain.User
	err := s.db.WithContext(ctx).Where("id = ?", id).First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, storage.ErrUserNotFound
		}
		return nil, err
	}
	return &user, nil
}

// GetUsersByIDs 批量获取用户
func (s *Store) GetUsersByIDs(ctx context.Context, ids []string) ([]domain.User, error) {
	users := make([]domain.User, 0, len(ids))
	if len(ids) == 0 {
		return users, nil
	}
	err := s.db.WithContext(ctx).Where("id IN ?", ids).Find(&users).Error
	return users, err
}

// ListUsers 按注册时间返回全部用户
func (s *Store) ListUsers(ctx context.Context) ([]domain.User, error) {
	users := make([]domain.User, 0)
	err := s.db.WithContext(ctx).Order("created_at ASC, id ASC").Find(&users).Error
	return users, err
}

// ========== Message Repository ==========

// CreateMessage 保存消息
func (s *Store) CreateMessage(ctx context.Context, message *domain.Message) error {
	return s.db.WithContext(ctx).Create(message).Error
}

// GetMessage 获取单条消息
func (s *Store) GetMessage(ctx context.Context, id string) (*domain.Message, error) {
	var message domain.Message
	err := s.db.WithContext(ctx).Where("id = ?", id).First(&message).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, storage.ErrMessageNotFound
		}
		return nil, err
	}
	return &message, nil
}

// ListMessagesBySender 返回发件人的全部消息，时间倒序
func (s *Store) ListMessagesBySender(ctx context.Context, senderID string) ([]domain.Message, error) {
	messages := make([]domain.Message, 0)
	err := s.db.WithContext(ctx).
		Where("sender_id = ?", senderID).
		Order(clause.OrderByColumn{Column: clause.Column{Name: "timestamp"}, Desc: true}).
		Order("id ASC").
		Find(&messages).Error
	return messages, err
}

// ========== Delivery Repository ==========

// CreateDeliveries 批量写入投递记录
func (s *Store) CreateDeliveries(ctx context.Context, records []domain.DeliveryRecord) error {
	if len(records) == 0 {
		return nil
	}
	return s.db.WithContext(ctx).Create(&records).Error
}

// ListDeliveriesByMessage 返回若干消息的投递记录
func (s *Store) ListDeliveriesByMessage(ctx context.Context, messageIDs ...string) ([]domain.DeliveryRecord, error) {
	records := make([]domain.DeliveryRecord, 0)
	if len(messageIDs) == 0 {
		return records, nil
	}
	err := s.db.WithContext(ctx).
		Where("message_id IN ?", messageIDs).
		Order("message_id ASC, recipient_id ASC").
		Find(&records).Error
	return records, err
}

// MarkDeliveryRead 以条件更新实现原子的 Unread -> Read。
// 只有 is_read = false 的行会被更新，并发调用中恰好一个得到 RowsAffected == 1。
func (s *Store) MarkDeliveryRead(ctx context.Context, id string, at time.Time) (*domain.DeliveryRecord, domain.ReadTransition, error) {
	db := s.db.WithContext(ctx)

	result := db.Model(&domain.DeliveryRecord{}).
		Where("id = ? AND is_read = ?", id, false).
		Updates(map[string]interface{}{
			"is_read": true,
			"read_at": at,
		})
	if result.Error != nil {
		return nil, "", result.Error
	}

	var record domain.DeliveryRecord
	if err := db.Where("id = ?", id).First(&record).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, "", storage.ErrDeliveryNotFound
		}
		return nil, "", err
	}

	if result.RowsAffected == 1 {
		return &record, domain.TransitionApplied, nil
	}
	return &record, domain.TransitionAlreadyRead, nil
}

// ========== 工具方法 ==========

// Health 检查数据库连接
func (s *Store) Health(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// Close 关闭数据库连接
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	err = sqlDB.Close()
	if s.closeFn != nil {
		s.closeFn()
	}
	return err
}
