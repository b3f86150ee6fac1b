package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"messaging/backend/internal/domain"
	"messaging/backend/internal/storage"
	"messaging/backend/internal/storage/memory"
)

// MockUserRepository 模拟用户存储
type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) CreateUser(ctx context.Context, user *domain.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *MockUserRepository) GetUserByID(ctx context.Context, id string) (*domain.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

func (m *MockUserRepository) GetUsersByIDs(ctx context.Context, ids []string) ([]domain.User, error) {
	args := m.Called(ctx, ids)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.User), args.Error(1)
}

func (m *MockUserRepository) ListUsers(ctx context.Context) ([]domain.User, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.User), args.Error(1)
}

func TestUserService_Create(t *testing.T) {
	ctx := context.Background()
	svc := NewUserService(memory.NewStore(), nil)

	t.Run("成功创建用户", func(t *testing.T) {
		user, err := svc.Create(ctx, CreateUserInput{Email: "  Alice@Example.COM ", Name: " Alice "})
		require.NoError(t, err)
		assert.NotEmpty(t, user.ID)
		assert.Equal(t, "alice@example.com", user.Email)
		assert.Equal(t, "Alice", user.Name)
		assert.False(t, user.CreatedAt.IsZero())
	})

	t.Run("缺少字段", func(t *testing.T) {
		_, err := svc.Create(ctx, CreateUserInput{Email: "bob@example.com"})
		assert.ErrorIs(t, err, domain.ErrMissingUserFields)
		assert.ErrorIs(t, err, domain.ErrValidation)

		_, err = svc.Create(ctx, CreateUserInput{Name: "Bob"})
		assert.ErrorIs(t, err, domain.ErrMissingUserFields)
	})

	t.Run("邮箱格式错误", func(t *testing.T) {
		_, err := svc.Create(ctx, CreateUserInput{Email: "not-an-email", Name: "Bob"})
		assert.ErrorIs(t, err, domain.ErrInvalidEmail)
	})

	t.Run("邮箱重复（忽略大小写）", func(t *testing.T) {
		_, err := svc.Create(ctx, CreateUserInput{Email: "ALICE@example.com", Name: "Other"})
		assert.ErrorIs(t, err, domain.ErrEmailExists)
		assert.ErrorIs(t, err, domain.ErrConflict)

		// 已有用户保持不变，也没有新增记录
		users, err := svc.List(ctx)
		require.NoError(t, err)
		require.Len(t, users, 1)
		assert.Equal(t, "Alice", users[0].Name)
		assert.Equal(t, "alice@example.com", users[0].Email)

		got, err := svc.Get(ctx, users[0].ID)
		require.NoError(t, err)
		assert.Equal(t, "Alice", got.Name)
	})
}

func TestUserService_GetAndList(t *testing.T) {
	ctx := context.Background()
	svc := NewUserService(memory.NewStore(), nil)

	created, err := svc.Create(ctx, CreateUserInput{Email: "carol@example.com", Name: "Carol"})
	require.NoError(t, err)

	got, err := svc.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.Email, got.Email)

	_, err = svc.Get(ctx, "missing")
	assert.ErrorIs(t, err, domain.ErrUserNotFound)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = svc.Get(ctx, "")
	assert.ErrorIs(t, err, domain.ErrUserNotFound)

	users, err := svc.List(ctx)
	require.NoError(t, err)
	assert.Len(t, users, 1)
}

func TestUserService_StorageFailureIsInternal(t *testing.T) {
	ctx := context.Background()
	repo := new(MockUserRepository)
	svc := NewUserService(repo, nil)

	dbErr := errors.New("connection reset")
	repo.On("CreateUser", mock.Anything, mock.AnythingOfType("*domain.User")).Return(dbErr)
	repo.On("GetUserByID", mock.Anything, "u1").Return(nil, dbErr)
	repo.On("ListUsers", mock.Anything).Return(nil, dbErr)

	_, err := svc.Create(ctx, CreateUserInput{Email: "dave@example.com", Name: "Dave"})
	assert.ErrorIs(t, err, domain.ErrInternal)
	assert.ErrorIs(t, err, dbErr)

	_, err = svc.Get(ctx, "u1")
	assert.ErrorIs(t, err, domain.ErrInternal)

	_, err = svc.List(ctx)
	assert.ErrorIs(t, err, domain.ErrInternal)

	repo.AssertExpectations(t)
}

func TestUserService_ConflictFromStorage(t *testing.T) {
	repo := new(MockUserRepository)
	svc := NewUserService(repo, nil)
	repo.On("CreateUser", mock.Anything, mock.Anything).Return(storage.ErrEmailExists)

	_, err := svc.Create(context.Background(), CreateUserInput{Email: "eve@example.com", Name: "Eve"})
	assert.ErrorIs(t, err, domain.ErrEmailExists)
}
