package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"messaging/backend/internal/domain"
	"messaging/backend/internal/storage"
)

// UserService 封装用户目录逻辑。
type UserService struct {
	repo      storage.UserRepository
	validator *domain.EmailValidator
	log       *zap.Logger
	now       func() time.Time
}

// NewUserService 创建用户目录服务。
func NewUserService(repo storage.UserRepository, log *zap.Logger) *UserService {
	if log == nil {
		log = zap.NewNop()
	}
	return &UserService{
		repo:      repo,
		validator: domain.NewEmailValidator(),
		log:       log.Named("user"),
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// CreateUserInput 定义注册用户的输入。
type CreateUserInput struct {
	Email string
	Name  string
}

// Create 注册新用户。邮箱统一转为小写后再检查唯一性。
func (s *UserService) Create(ctx context.Context, input CreateUserInput) (*domain.User, error) {
	email := domain.NormalizeEmail(input.Email)
	name := strings.TrimSpace(input.Name)
	if email == "" || name == "" {
		return nil, domain.ErrMissingUserFields
	}
	if err := s.validator.ValidateEmail(email); err != nil {
		return nil, err
	}
	if err := domain.ValidateName(name); err != nil {
		return nil, err
	}

	user := &domain.User{
		ID:        uuid.NewString(),
		Email:     email,
		Name:      name,
		CreatedAt: s.now(),
	}

	if err := s.repo.CreateUser(ctx, user); err != nil {
		if errors.Is(err, storage.ErrEmailExists) {
			s.log.Debug("email already registered", zap.String("email", email))
			return nil, domain.ErrEmailExists
		}
		s.log.Error("failed to create user", zap.String("email", email), zap.Error(err))
		return nil, domain.Internal(err)
	}

	s.log.Info("user created", zap.String("user_id", user.ID))
	return user, nil
}

// Get 根据 ID 获取用户。
func (s *UserService) Get(ctx context.Context, id string) (*domain.User, error) {
	if strings.TrimSpace(id) == "" {
		return nil, domain.ErrUserNotFound
	}
	user, err := s.repo.GetUserByID(ctx, id)
	if err != nil {
		if errors.Is(err, storage.ErrUserNotFound) {
			return nil, domain.ErrUserNotFound
		}
		s.log.Error("failed to load user", zap.String("user_id", id), zap.Error(err))
		return nil, domain.Internal(err)
	}
	return user, nil
}

// List 返回全部用户。
func (s *UserService) List(ctx context.Context) ([]domain.User, error) {
	users, err := s.repo.ListUsers(ctx)
	if err != nil {
		s.log.Error("failed to list users", zap.Error(err))
		return nil, domain.Internal(err)
	}
	return users, nil
}
