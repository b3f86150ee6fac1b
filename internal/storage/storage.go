package storage

import (
	"context"
	"errors"
	"time"

	"messaging/backend/internal/domain"
)

var (
	// ErrUserNotFound 用户未找到错误
	ErrUserNotFound = errors.New("user not found")
	// ErrEmailExists 邮箱已被注册
	ErrEmailExists = errors.New("email already exists")
	// ErrMessageNotFound 消息未找到错误
	ErrMessageNotFound = errors.New("message not found")
	// ErrDeliveryNotFound 投递记录未找到错误
	ErrDeliveryNotFound = errors.New("delivery record not found")
)

// UserRepository 定义用户目录数据存取操作。
type UserRepository interface {
	CreateUser(ctx context.Context, user *domain.User) error
	GetUserByID(ctx context.Context, id string) (*domain.User, error)
	// GetUsersByIDs 批量查询，只返回存在的用户，不保证顺序
	GetUsersByIDs(ctx context.Context, ids []string) ([]domain.User, error)
	ListUsers(ctx context.Context) ([]domain.User, error)
}

// MessageRepository 定义消息数据存取操作。
type MessageRepository interface {
	CreateMessage(ctx context.Context, message *domain.Message) error
	GetMessage(ctx context.Context, id string) (*domain.Message, error)
	// ListMessagesBySender 按时间倒序返回发件人的全部消息
	ListMessagesBySender(ctx context.Context, senderID string) ([]domain.Message, error)
}

// DeliveryRepository 定义投递账本操作。
type DeliveryRepository interface {
	CreateDeliveries(ctx context.Context, records []domain.DeliveryRecord) error
	ListDeliveriesByMessage(ctx context.Context, messageIDs ...string) ([]domain.DeliveryRecord, error)
	// ListInbox 返回收件人的收件箱条目，read 为 nil 时不过滤
	ListInbox(ctx context.Context, recipientID string, read *bool) ([]domain.InboxItem, error)
	// MarkDeliveryRead 原子地执行 Unread -> Read，返回记录的最新状态
	MarkDeliveryRead(ctx context.Context, id string, at time.Time) (*domain.DeliveryRecord, domain.ReadTransition, error)
}

// Store 定义完整的存储接口。
type Store interface {
	UserRepository
	MessageRepository
	DeliveryRepository

	// Transaction 在单个事务中执行 fn；fn 返回错误时全部回滚
	Transaction(ctx context.Context, fn func(tx Store) error) error

	// 工具方法
	Close() error
	Health(ctx context.Context) error
}
