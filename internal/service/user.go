package service

import (
	"context"
	"errors"
	"fmt"

	"neoshare/internal/model"
	"neoshare/internal/repo"
	"neoshare/internal/storage"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// UserService инкапсулирует работу с учётными записями: создание,
// аутентификацию, профиль, удаление вместе с личной областью хранилища.
type UserService struct {
	repo   repo.UserRepository
	paths  *PathResolver
	tree   storage.Tree
	logger *zap.SugaredLogger
}

// NewUserService создаёт сервис пользователей.
func NewUserService(r repo.UserRepository, paths *PathResolver, tree storage.Tree, logger *zap.SugaredLogger) *UserService {
	return &UserService{repo: r, paths: paths, tree: tree, logger: logger}
}

// CreateInput — параметры создания пользователя.
type CreateInput struct {
	Username  string
	Password  string
	Role      model.Role
	Nickname  string
	Signature string
}

// Create регистрирует нового пользователя. Занятый логин — ErrLoginTaken.
func (s *UserService) Create(ctx context.Context, in CreateInput) (*model.User, error) {
	existing, err := s.repo.GetUserByLogin(ctx, in.Username)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}
	if existing != nil {
		return nil, ErrLoginTaken
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	u := &model.User{
		Username:     in.Username,
		PasswordHash: string(hash),
		Role:         model.ParseRole(string(in.Role)),
		Nickname:     in.Nickname,
		Signature:    in.Signature,
	}
	return s.repo.CreateUser(ctx, u)
}

// Login проверяет пару логин/пароль. Любое несовпадение —
// ErrInvalidCredentials, без уточнения причины.
func (s *UserService) Login(ctx context.Context, login, password string) (*model.User, error) {
	u, err := s.repo.GetUserByLogin(ctx, login)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) != nil {
		return nil, ErrInvalidCredentials
	}
	return u, nil
}

// GetByID возвращает пользователя; отсутствие — ErrNotFound.
func (s *UserService) GetByID(ctx context.Context, id int64) (*model.User, error) {
	u, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return u, nil
}

// List возвращает пользователей постранично.
func (s *UserService) List(ctx context.Context, offset, limit int) ([]model.User, error) {
	if limit <= 0 || limit > 100 {
		limit = 100
	}
	return s.repo.List(ctx, offset, limit)
}

// UpdateInput — частичное обновление профиля; nil-поля не трогаются.
type UpdateInput struct {
	Nickname  *string
	Signature *string
	AvatarURL *string
	Password  *string
}

// Update применяет частичное обновление профиля; новый пароль хешируется.
func (s *UserService) Update(ctx context.Context, id int64, in UpdateInput) (*model.User, error) {
	if _, err := s.GetByID(ctx, id); err != nil {
		return nil, err
	}

	updates := map[string]any{}
	if in.Nickname != nil {
		updates["nickname"] = *in.Nickname
	}
	if in.Signature != nil {
		updates["signature"] = *in.Signature
	}
	if in.AvatarURL != nil {
		updates["avatar_url"] = *in.AvatarURL
	}
	if in.Password != nil {
		hash, err := bcrypt.GenerateFromPassword([]byte(*in.Password), bcrypt.DefaultCost)
		if err != nil {
			return nil, fmt.Errorf("hash password: %w", err)
		}
		updates["password_hash"] = string(hash)
	}

	if err := s.repo.Update(ctx, id, updates); err != nil {
		return nil, err
	}
	return s.GetByID(ctx, id)
}

// Delete удаляет пользователя: записи каталога — каскадом,
// личное физическое дерево — явно.
func (s *UserService) Delete(ctx context.Context, id int64) error {
	if _, err := s.GetByID(ctx, id); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	privateRoot := s.paths.ScopeRoot(Scope{Public: false, OwnerID: id})
	if err := s.tree.RemoveTree(privateRoot); err != nil {
		// каталог уже чист, файлы осиротели бы навсегда — поэтому ошибку не глотаем молча
		s.logger.Errorw("failed to remove private tree of deleted user", "user_id", id, "path", privateRoot, "error", err)
	}
	return nil
}

// EnsureAdmin создаёт администратора при первом запуске.
func (s *UserService) EnsureAdmin(ctx context.Context, password string) error {
	_, err := s.repo.GetUserByLogin(ctx, adminLogin)
	if err == nil {
		return nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}

	_, err = s.Create(ctx, CreateInput{
		Username: adminLogin,
		Password: password,
		Role:     model.RoleAdmin,
		Nickname: "Administrator",
	})
	if err != nil {
		return err
	}
	s.logger.Infow("admin user created", "login", adminLogin)
	return nil
}
