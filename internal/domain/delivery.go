package domain

import "time"

// ReadState 投递记录的阅读状态
type ReadState string

const (
	ReadStateUnread ReadState = "unread"
	ReadStateRead   ReadState = "read"
)

// ReadTransition 描述一次标记已读操作的结果
type ReadTransition string

const (
	// TransitionApplied 本次调用完成了 Unread -> Read 的转换
	TransitionApplied ReadTransition = "applied"
	// TransitionAlreadyRead 记录此前已读，本次调用没有任何修改
	TransitionAlreadyRead ReadTransition = "already_read"
)

// DeliveryRecord 是投递账本中的一行：每个 (消息, 收件人) 对应一条。
type DeliveryRecord struct {
	ID          string     `json:"id" gorm:"primaryKey;type:varchar(36)"`
	MessageID   string     `json:"messageId" gorm:"type:varchar(36);not null;index;uniqueIndex:uq_message_recipients_pair,priority:1"`
	RecipientID string     `json:"recipientId" gorm:"type:varchar(36);not null;uniqueIndex:uq_message_recipients_pair,priority:2;index:idx_message_recipients_inbox,priority:1"`
	Read        bool       `json:"read" gorm:"column:is_read;default:false;not null;index:idx_message_recipients_inbox,priority:2"`
	ReadAt      *time.Time `json:"readAt" gorm:"check:ck_message_recipients_read_at,is_read OR read_at IS NULL"`
}

// TableName 投递记录表名
func (DeliveryRecord) TableName() string {
	return "message_recipients"
}

// NewDeliveryRecord 创建一条未读的投递记录
func NewDeliveryRecord(id, messageID, recipientID string) DeliveryRecord {
	return DeliveryRecord{
		ID:          id,
		MessageID:   messageID,
		RecipientID: recipientID,
	}
}

// State 返回记录当前的阅读状态
func (d *DeliveryRecord) State() ReadState {
	if d.Read {
		return ReadStateRead
	}
	return ReadStateUnread
}

// MarkRead 执行单向的 Unread -> Read 转换。
// 已读记录保持不变（readAt 不会被覆盖），返回 TransitionAlreadyRead。
func (d *DeliveryRecord) MarkRead(at time.Time) ReadTransition {
	if d.State() == ReadStateRead {
		return TransitionAlreadyRead
	}
	readAt := at
	d.Read = true
	d.ReadAt = &readAt
	return TransitionApplied
}
