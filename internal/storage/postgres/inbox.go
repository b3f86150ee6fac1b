package postgres

import (
	"context"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"messaging/backend/internal/domain"
)

// inboxRow 收件箱联表查询的一行
type inboxRow struct {
	MessageID   string     `db:"message_id"`
	Subject     *string    `db:"subject"`
	Content     string     `db:"content"`
	Timestamp   time.Time  `db:"timestamp"`
	SenderID    string     `db:"sender_id"`
	SenderName  string     `db:"sender_name"`
	SenderEmail string     `db:"sender_email"`
	DeliveryID  string     `db:"delivery_id"`
	IsRead      bool       `db:"is_read"`
	ReadAt      *time.Time `db:"read_at"`
}

func (r inboxRow) item() domain.InboxItem {
	return domain.InboxItem{
		MessageID: r.MessageID,
		Subject:   r.Subject,
		Content:   r.Content,
		Timestamp: r.Timestamp,
		Sender: domain.UserSummary{
			ID:    r.SenderID,
			Name:  r.SenderName,
			Email: r.SenderEmail,
		},
		ReadStatus: domain.ReadStatus{
			IsRead:           r.IsRead,
			ReadAt:           r.ReadAt,
			DeliveryRecordID: r.DeliveryID,
		},
	}
}

const inboxSelect = `SELECT m.id AS message_id, m.subject AS subject, m.content AS content, m.timestamp AS timestamp,
	u.id AS sender_id, u.name AS sender_name, u.email AS sender_email,
	d.id AS delivery_id, d.is_read AS is_read, d.read_at AS read_at
FROM message_recipients d
JOIN messages m ON m.id = d.message_id
JOIN users u ON u.id = m.sender_id
WHERE d.recipient_id = ?`

// 未读在前，其次 readAt 降序，再按消息时间降序
const inboxOrder = ` ORDER BY d.is_read ASC, d.read_at DESC, m.timestamp DESC, d.id ASC`

func inboxQuery(recipientID string, read *bool) (string, []interface{}) {
	var b strings.Builder
	b.WriteString(inboxSelect)
	args := []interface{}{recipientID}
	if read != nil {
		b.WriteString(" AND d.is_read = ?")
		args = append(args, *read)
	}
	b.WriteString(inboxOrder)
	return b.String(), args
}

// ListInbox 以一次联表查询返回收件箱条目。
// 查询走当前 GORM 连接（事务内即为事务连接），结果由 sqlx 按列名映射。
func (s *Store) ListInbox(ctx context.Context, recipientID string, read *bool) ([]domain.InboxItem, error) {
	query, args := inboxQuery(recipientID, read)
	rows, err := s.db.Statement.ConnPool.QueryContext(ctx, sqlx.Rebind(s.bind, query), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var scanned []inboxRow
	if err := sqlx.StructScan(rows, &scanned); err != nil {
		return nil, err
	}

	items := make([]domain.InboxItem, 0, len(scanned))
	for _, row := range scanned {
		items = append(items, row.item())
	}
	return items, nil
}
