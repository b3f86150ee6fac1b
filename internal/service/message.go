package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"
	"go.uber.org/zap"

	"messaging/backend/internal/domain"
	"messaging/backend/internal/storage"
)

// MessageService 封装消息发送、检索与已读状态逻辑。
type MessageService struct {
	store         storage.Store
	log           *zap.Logger
	maxRecipients int
	now           func() time.Time
}

// NewMessageService 创建消息业务服务。
func NewMessageService(store storage.Store, log *zap.Logger) *MessageService {
	if log == nil {
		log = zap.NewNop()
	}
	return &MessageService{
		store: store,
		log:   log.Named("message"),
		now:   func() time.Time { return time.Now().UTC() },
	}
}

// SetMaxRecipients 设置去重后的收件人上限，0 表示不限制
func (s *MessageService) SetMaxRecipients(n int) {
	s.maxRecipients = n
}

// SendMessageInput 定义发送消息的输入。
type SendMessageInput struct {
	SenderID     string
	RecipientIDs []string
	Subject      *string
	Content      string
}

// SendResult 发送成功的结果：新消息与规范化后的收件人列表
type SendResult struct {
	Message    *domain.Message `json:"message"`
	Recipients []string        `json:"recipients"`
}

// Send 在单个事务中完成发送：
// 校验输入 -> 解析发件人 -> 规范化收件人 -> 批量解析收件人 -> 写消息 -> 批量写投递记录。
// 任意一步失败整体回滚，不留下消息或投递记录。
func (s *MessageService) Send(ctx context.Context, input SendMessageInput) (*SendResult, error) {
	if strings.TrimSpace(input.SenderID) == "" || len(input.RecipientIDs) == 0 || strings.TrimSpace(input.Content) == "" {
		return nil, domain.ErrMissingSendFields
	}
	if err := domain.ValidateSubject(input.Subject); err != nil {
		return nil, err
	}

	var result *SendResult
	err := s.store.Transaction(ctx, func(tx storage.Store) error {
		if _, err := tx.GetUserByID(ctx, input.SenderID); err != nil {
			if errors.Is(err, storage.ErrUserNotFound) {
				return domain.ErrSenderNotFound
			}
			return err
		}

		recipients := domain.NormalizeRecipients(input.SenderID, input.RecipientIDs)
		if len(recipients) == 0 {
			return domain.ErrNoValidRecipients
		}
		if s.maxRecipients > 0 && len(recipients) > s.maxRecipients {
			return domain.ErrTooManyRecipients
		}

		found, err := tx.GetUsersByIDs(ctx, recipients)
		if err != nil {
			return err
		}
		if len(found) < len(recipients) {
			return domain.ErrRecipientsInvalid
		}

		message := &domain.Message{
			ID:        uuid.NewString(),
			SenderID:  input.SenderID,
			Subject:   input.Subject,
			Content:   input.Content,
			Timestamp: s.now(),
		}
		if err := tx.CreateMessage(ctx, message); err != nil {
			return err
		}

		records := lo.Map(recipients, func(recipientID string, _ int) domain.DeliveryRecord {
			return domain.NewDeliveryRecord(uuid.NewString(), message.ID, recipientID)
		})
		if err := tx.CreateDeliveries(ctx, records); err != nil {
			return err
		}

		result = &SendResult{Message: message, Recipients: recipients}
		return nil
	})
	if err != nil {
		return nil, s.translate("send message", err, zap.String("sender_id", input.SenderID))
	}

	s.log.Info("message sent",
		zap.String("message_id", result.Message.ID),
		zap.String("sender_id", input.SenderID),
		zap.Int("recipients", len(result.Recipients)),
	)
	return result, nil
}

// Get 返回消息及发件人和完整投递列表。
func (s *MessageService) Get(ctx context.Context, id string) (*domain.MessageView, error) {
	if strings.TrimSpace(id) == "" {
		return nil, domain.ErrMessageNotFound
	}
	message, err := s.store.GetMessage(ctx, id)
	if err != nil {
		if errors.Is(err, storage.ErrMessageNotFound) {
			return nil, domain.ErrMessageNotFound
		}
		return nil, s.translate("get message", err, zap.String("message_id", id))
	}

	views, err := s.buildViews(ctx, []domain.Message{*message})
	if err != nil {
		return nil, s.translate("get message", err, zap.String("message_id", id))
	}
	return &views[0], nil
}

// ListSent 返回用户发出的全部消息，时间倒序。
func (s *MessageService) ListSent(ctx context.Context, userID string) ([]domain.MessageView, error) {
	if err := s.ensureUser(ctx, userID); err != nil {
		return nil, err
	}

	messages, err := s.store.ListMessagesBySender(ctx, userID)
	if err != nil {
		return nil, s.translate("list sent messages", err, zap.String("user_id", userID))
	}

	views, err := s.buildViews(ctx, messages)
	if err != nil {
		return nil, s.translate("list sent messages", err, zap.String("user_id", userID))
	}
	return views, nil
}

// ListInbox 返回用户的收件箱，read 为 nil 时返回全部。
// 排序：未读在前，其次 readAt 降序，再按消息时间降序。
func (s *MessageService) ListInbox(ctx context.Context, userID string, read *bool) ([]domain.InboxItem, error) {
	if err := s.ensureUser(ctx, userID); err != nil {
		return nil, err
	}

	items, err := s.store.ListInbox(ctx, userID, read)
	if err != nil {
		return nil, s.translate("list inbox", err, zap.String("user_id", userID))
	}
	domain.SortInbox(items)
	return items, nil
}

// MarkReadResult 标记已读的结果
type MarkReadResult struct {
	Record      *domain.DeliveryRecord `json:"record"`
	AlreadyRead bool                   `json:"alreadyRead"`
	Transition  domain.ReadTransition  `json:"transition"`
}

// MarkAsRead 将投递记录标记为已读。重复调用返回 AlreadyRead，不视为错误。
// 空 ID 与不存在的 ID 一样返回 ErrDeliveryNotFound。
func (s *MessageService) MarkAsRead(ctx context.Context, deliveryRecordID string) (*MarkReadResult, error) {
	if strings.TrimSpace(deliveryRecordID) == "" {
		return nil, domain.ErrDeliveryNotFound
	}

	record, transition, err := s.store.MarkDeliveryRead(ctx, deliveryRecordID, s.now())
	if err != nil {
		if errors.Is(err, storage.ErrDeliveryNotFound) {
			return nil, domain.ErrDeliveryNotFound
		}
		return nil, s.translate("mark as read", err, zap.String("delivery_id", deliveryRecordID))
	}

	s.log.Debug("delivery marked read",
		zap.String("delivery_id", deliveryRecordID),
		zap.String("transition", string(transition)),
	)
	return &MarkReadResult{
		Record:      record,
		AlreadyRead: transition == domain.TransitionAlreadyRead,
		Transition:  transition,
	}, nil
}

func (s *MessageService) ensureUser(ctx context.Context, userID string) error {
	if strings.TrimSpace(userID) == "" {
		return domain.ErrUserNotFound
	}
	if _, err := s.store.GetUserByID(ctx, userID); err != nil {
		if errors.Is(err, storage.ErrUserNotFound) {
			return domain.ErrUserNotFound
		}
		return s.translate("load user", err, zap.String("user_id", userID))
	}
	return nil
}

// buildViews 为一批消息组装发件人与投递列表，投递与用户各查询一次。
func (s *MessageService) buildViews(ctx context.Context, messages []domain.Message) ([]domain.MessageView, error) {
	if len(messages) == 0 {
		return []domain.MessageView{}, nil
	}

	messageIDs := lo.Map(messages, func(m domain.Message, _ int) string { return m.ID })
	deliveries, err := s.store.ListDeliveriesByMessage(ctx, messageIDs...)
	if err != nil {
		return nil, err
	}

	userIDs := lo.Uniq(append(
		lo.Map(messages, func(m domain.Message, _ int) string { return m.SenderID }),
		lo.Map(deliveries, func(d domain.DeliveryRecord, _ int) string { return d.RecipientID })...,
	))
	users, err := s.store.GetUsersByIDs(ctx, userIDs)
	if err != nil {
		return nil, err
	}
	usersByID := lo.KeyBy(users, func(u domain.User) string { return u.ID })
	byMessage := lo.GroupBy(deliveries, func(d domain.DeliveryRecord) string { return d.MessageID })

	summary := func(id string) domain.UserSummary {
		if u, ok := usersByID[id]; ok {
			return u.Summary()
		}
		return domain.UserSummary{ID: id}
	}

	views := make([]domain.MessageView, 0, len(messages))
	for _, m := range messages {
		views = append(views, domain.MessageView{
			ID:        m.ID,
			Subject:   m.Subject,
			Content:   m.Content,
			Timestamp: m.Timestamp,
			Sender:    summary(m.SenderID),
			Recipients: lo.Map(byMessage[m.ID], func(d domain.DeliveryRecord, _ int) domain.RecipientDelivery {
				return domain.RecipientDelivery{
					DeliveryRecordID: d.ID,
					Recipient:        summary(d.RecipientID),
					Read:             d.Read,
					ReadAt:           d.ReadAt,
				}
			}),
		})
	}
	return views, nil
}

// translate 业务错误原样返回；其他错误记录日志后包装为内部错误
func (s *MessageService) translate(op string, err error, fields ...zap.Field) error {
	var domainErr *domain.Error
	if errors.As(err, &domainErr) {
		s.log.Debug(op+" rejected", append(fields, zap.String("code", domainErr.Code))...)
		return err
	}
	s.log.Error(op+" failed", append(fields, zap.Error(err))...)
	return domain.Internal(err)
}
