package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/samber/lo"

	"messaging/backend/internal/domain"
	"messaging/backend/internal/storage"
)

// Store 使用内存保存用户、消息与投递账本，主要用于开发验证和测试。
//
// 写操作在写锁内原地修改，并在撤销日志中记下每次修改的逆操作；
// 失败（或 panic）时按逆序撤销后才释放锁，读者永远看不到半完成的发送。
// 单次写入的开销只与本次修改的条目数有关，与已存数据量无关。
type Store struct {
	mu    sync.RWMutex
	state *state
}

type state struct {
	users       map[string]domain.User
	byEmail     map[string]string // email -> userID
	messages    map[string]domain.Message
	bySender    map[string][]string // senderID -> messageIDs
	deliveries  map[string]domain.DeliveryRecord
	byMessage   map[string][]string // messageID -> deliveryIDs，按插入顺序
	byRecipient map[string][]string // recipientID -> deliveryIDs

	// undo 当前写操作的逆操作，只在持有写锁时访问
	undo []func()
}

func newState() *state {
	return &state{
		users:       make(map[string]domain.User),
		byEmail:     make(map[string]string),
		messages:    make(map[string]domain.Message),
		bySender:    make(map[string][]string),
		deliveries:  make(map[string]domain.DeliveryRecord),
		byMessage:   make(map[string][]string),
		byRecipient: make(map[string][]string),
	}
}

// put 写入 m[key] 并记录如何恢复原值
func put[V any](st *state, m map[string]V, key string, v V) {
	old, existed := m[key]
	m[key] = v
	st.undo = append(st.undo, func() {
		if existed {
			m[key] = old
		} else {
			delete(m, key)
		}
	})
}

// appendIndex 向索引追加 id；撤销时恢复原切片头，追加到底层数组的元素随之不可见
func (st *state) appendIndex(index map[string][]string, key, id string) {
	put(st, index, key, append(index[key], id))
}

func (st *state) rollback() {
	for i := len(st.undo) - 1; i >= 0; i-- {
		st.undo[i]()
	}
}

func (st *state) resetUndo() {
	clear(st.undo)
	st.undo = st.undo[:0]
}

// NewStore 创建一个内存存储实例。
func NewStore() *Store {
	return &Store{state: newState()}
}

// write 在写锁内执行 fn；fn 返回错误或 panic 时撤销它做过的全部修改
func (s *Store) write(fn func(st *state) error) (err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	committed := false
	defer func() {
		if !committed {
			s.state.rollback()
		}
		s.state.resetUndo()
	}()

	if err = fn(s.state); err != nil {
		return err
	}
	committed = true
	return nil
}

// Transaction 在写锁内执行 fn，事务之间串行执行。
// fn 内的写入对 tx 立即可见，fn 失败时整体撤销。
func (s *Store) Transaction(ctx context.Context, fn func(tx storage.Store) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.write(func(st *state) error {
		return fn(&txStore{state: st})
	})
}

// CreateUser 保存新用户。
func (s *Store) CreateUser(_ context.Context, user *domain.User) error {
	return s.write(func(st *state) error {
		return st.createUser(user)
	})
}

// GetUserByID 根据 ID 获取用户。
func (s *Store) GetUserByID(_ context.Context, id string) (*domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.getUser(id)
}

// GetUsersByIDs 批量获取用户。
func (s *Store) GetUsersByIDs(_ context.Context, ids []string) ([]domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.getUsers(ids), nil
}

// ListUsers 按注册时间返回全部用户。
func (s *Store) ListUsers(_ context.Context) ([]domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.listUsers(), nil
}

// CreateMessage 保存消息。
func (s *Store) CreateMessage(_ context.Context, message *domain.Message) error {
	return s.write(func(st *state) error {
		return st.createMessage(message)
	})
}

// GetMessage 获取单条消息。
func (s *Store) GetMessage(_ context.Context, id string) (*domain.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.getMessage(id)
}

// ListMessagesBySender 返回发件人的全部消息，时间倒序。
func (s *Store) ListMessagesBySender(_ context.Context, senderID string) ([]domain.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.listBySender(senderID), nil
}

// CreateDeliveries 批量写入投递记录。
func (s *Store) CreateDeliveries(_ context.Context, records []domain.DeliveryRecord) error {
	return s.write(func(st *state) error {
		return st.createDeliveries(records)
	})
}

// ListDeliveriesByMessage 返回若干消息的投递记录。
func (s *Store) ListDeliveriesByMessage(_ context.Context, messageIDs ...string) ([]domain.DeliveryRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.listDeliveries(messageIDs), nil
}

// ListInbox 返回收件箱条目。
func (s *Store) ListInbox(_ context.Context, recipientID string, read *bool) ([]domain.InboxItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.inbox(recipientID, read), nil
}

// MarkDeliveryRead 标记投递记录已读。检查与写入在同一把写锁内完成。
func (s *Store) MarkDeliveryRead(_ context.Context, id string, at time.Time) (record *domain.DeliveryRecord, transition domain.ReadTransition, err error) {
	err = s.write(func(st *state) error {
		record, transition, err = st.markRead(id, at)
		return err
	})
	return record, transition, err
}

// Close 内存存储无需释放资源。
func (s *Store) Close() error {
	return nil
}

// Health 内存存储始终健康。
func (s *Store) Health(context.Context) error {
	return nil
}

// txStore 事务内视图，外层 Transaction 已持有写锁，这里不再加锁。
type txStore struct {
	state *state
}

func (t *txStore) Transaction(_ context.Context, fn func(tx storage.Store) error) error {
	// 嵌套事务并入外层
	return fn(t)
}

func (t *txStore) CreateUser(_ context.Context, user *domain.User) error {
	return t.state.createUser(user)
}

func (t *txStore) GetUserByID(_ context.Context, id string) (*domain.User, error) {
	return t.state.getUser(id)
}

func (t *txStore) GetUsersByIDs(_ context.Context, ids []string) ([]domain.User, error) {
	return t.state.getUsers(ids), nil
}

func (t *txStore) ListUsers(_ context.Context) ([]domain.User, error) {
	return t.state.listUsers(), nil
}

func (t *txStore) CreateMessage(_ context.Context, message *domain.Message) error {
	return t.state.createMessage(message)
}

func (t *txStore) GetMessage(_ context.Context, id string) (*domain.Message, error) {
	return t.state.getMessage(id)
}

func (t *txStore) ListMessagesBySender(_ context.Context, senderID string) ([]domain.Message, error) {
	return t.state.listBySender(senderID), nil
}

func (t *txStore) CreateDeliveries(_ context.Context, records []domain.DeliveryRecord) error {
	return t.state.createDeliveries(records)
}

func (t *txStore) ListDeliveriesByMessage(_ context.Context, messageIDs ...string) ([]domain.DeliveryRecord, error) {
	return t.state.listDeliveries(messageIDs), nil
}

func (t *txStore) ListInbox(_ context.Context, recipientID string, read *bool) ([]domain.InboxItem, error) {
	return t.state.inbox(recipientID, read), nil
}

func (t *txStore) MarkDeliveryRead(_ context.Context, id string, at time.Time) (*domain.DeliveryRecord, domain.ReadTransition, error) {
	return t.state.markRead(id, at)
}

func (t *txStore) Close() error {
	return nil
}

func (t *txStore) Health(context.Context) error {
	return nil
}

func (st *state) createUser(user *domain.User) error {
	if _, exists := st.byEmail[user.Email]; exists {
		return storage.ErrEmailExists
	}
	put(st, st.users, user.ID, *user)
	put(st, st.byEmail, user.Email, user.ID)
	return nil
}

func (st *state) getUser(id string) (*domain.User, error) {
	user, ok := st.users[id]
	if !ok {
		return nil, storage.ErrUserNotFound
	}
	return &user, nil
}

func (st *state) getUsers(ids []string) []domain.User {
	result := make([]domain.User, 0, len(ids))
	for _, id := range lo.Uniq(ids) {
		if user, ok := st.users[id]; ok {
			result = append(result, user)
		}
	}
	return result
}

func (st *state) listUsers() []domain.User {
	result := lo.Values(st.users)
	sort.Slice(result, func(i, j int) bool {
		if !result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].CreatedAt.Before(result[j].CreatedAt)
		}
		return result[i].ID < result[j].ID
	})
	return result
}

func (st *state) createMessage(message *domain.Message) error {
	if _, ok := st.users[message.SenderID]; !ok {
		return storage.ErrUserNotFound
	}
	put(st, st.messages, message.ID, *message)
	st.appendIndex(st.bySender, message.SenderID, message.ID)
	return nil
}

func (st *state) getMessage(id string) (*domain.Message, error) {
	message, ok := st.messages[id]
	if !ok {
		return nil, storage.ErrMessageNotFound
	}
	return &message, nil
}

func (st *state) listBySender(senderID string) []domain.Message {
	result := make([]domain.Message, 0, len(st.bySender[senderID]))
	for _, id := range st.bySender[senderID] {
		result = append(result, st.messages[id])
	}
	sort.SliceStable(result, func(i, j int) bool {
		if !result[i].Timestamp.Equal(result[j].Timestamp) {
			return result[i].Timestamp.After(result[j].Timestamp)
		}
		return result[i].ID < result[j].ID
	})
	return result
}

func (st *state) createDeliveries(records []domain.DeliveryRecord) error {
	for _, record := range records {
		if _, ok := st.messages[record.MessageID]; !ok {
			return storage.ErrMessageNotFound
		}
		if _, ok := st.users[record.RecipientID]; !ok {
			return storage.ErrUserNotFound
		}
		put(st, st.deliveries, record.ID, record)
		st.appendIndex(st.byMessage, record.MessageID, record.ID)
		st.appendIndex(st.byRecipient, record.RecipientID, record.ID)
	}
	return nil
}

func (st *state) listDeliveries(messageIDs []string) []domain.DeliveryRecord {
	result := make([]domain.DeliveryRecord, 0)
	for _, messageID := range lo.Uniq(messageIDs) {
		for _, id := range st.byMessage[messageID] {
			result = append(result, st.deliveries[id])
		}
	}
	return result
}

func (st *state) inbox(recipientID string, read *bool) []domain.InboxItem {
	items := make([]domain.InboxItem, 0, len(st.byRecipient[recipientID]))
	for _, id := range st.byRecipient[recipientID] {
		record := st.deliveries[id]
		if read != nil && record.Read != *read {
			continue
		}
		message, ok := st.messages[record.MessageID]
		if !ok {
			continue
		}
		sender := st.users[message.SenderID]
		items = append(items, domain.InboxItem{
			MessageID: message.ID,
			Subject:   message.Subject,
			Content:   message.Content,
			Timestamp: message.Timestamp,
			Sender:    sender.Summary(),
			ReadStatus: domain.ReadStatus{
				IsRead:           record.Read,
				ReadAt:           record.ReadAt,
				DeliveryRecordID: record.ID,
			},
		})
	}
	domain.SortInbox(items)
	return items
}

func (st *state) markRead(id string, at time.Time) (*domain.DeliveryRecord, domain.ReadTransition, error) {
	record, ok := st.deliveries[id]
	if !ok {
		return nil, "", storage.ErrDeliveryNotFound
	}
	// record 是副本，MarkRead 会分配新的 ReadAt，撤销时恢复的旧值不受影响
	transition := record.MarkRead(at)
	if transition == domain.TransitionApplied {
		put(st, st.deliveries, id, record)
	}
	return &record, transition, nil
}
