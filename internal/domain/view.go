package domain

import (
	"sort"
	"time"
)

// RecipientDelivery 是消息视图中单个收件人的投递状态
type RecipientDelivery struct {
	DeliveryRecordID string      `json:"deliveryRecordId"`
	Recipient        UserSummary `json:"recipient"`
	Read             bool        `json:"read"`
	ReadAt           *time.Time  `json:"readAt"`
}

// MessageView 消息连同发件人和完整投递列表的读模型
type MessageView struct {
	ID         string              `json:"id"`
	Subject    *string             `json:"subject"`
	Content    string              `json:"content"`
	Timestamp  time.Time           `json:"timestamp"`
	Sender     UserSummary         `json:"sender"`
	Recipients []RecipientDelivery `json:"recipients"`
}

// RecipientIDs 返回视图中全部收件人 ID
func (v *MessageView) RecipientIDs() []string {
	ids := make([]string, 0, len(v.Recipients))
	for _, r := range v.Recipients {
		ids = append(ids, r.Recipient.ID)
	}
	return ids
}

// ReadStatus 收件箱条目的阅读状态
type ReadStatus struct {
	IsRead           bool       `json:"isRead"`
	ReadAt           *time.Time `json:"readAt"`
	DeliveryRecordID string     `json:"deliveryRecordId"`
}

// InboxItem 以消息为中心的收件箱条目
type InboxItem struct {
	MessageID  string      `json:"messageId"`
	Subject    *string     `json:"subject"`
	Content    string      `json:"content"`
	Timestamp  time.Time   `json:"timestamp"`
	Sender     UserSummary `json:"sender"`
	ReadStatus ReadStatus  `json:"readStatus"`
}

// SortInbox 按收件箱规则原地排序：
// 未读在前；同一状态内按 readAt 降序，再按消息时间降序，最后按投递记录 ID 升序。
func SortInbox(items []InboxItem) {
	sort.SliceStable(items, func(i, j int) bool {
		a, b := items[i], items[j]
		if a.ReadStatus.IsRead != b.ReadStatus.IsRead {
			return !a.ReadStatus.IsRead
		}
		if at, bt := readAtOrZero(a), readAtOrZero(b); !at.Equal(bt) {
			return at.After(bt)
		}
		if !a.Timestamp.Equal(b.Timestamp) {
			return a.Timestamp.After(b.Timestamp)
		}
		return a.ReadStatus.DeliveryRecordID < b.ReadStatus.DeliveryRecordID
	})
}

func readAtOrZero(item InboxItem) time.Time {
	if item.ReadStatus.ReadAt == nil {
		return time.Time{}
	}
	return *item.ReadStatus.ReadAt
}
