package repo

import (
	"context"

	"neoshare/internal/model"

	"gorm.io/gorm"
)

// UserRepository — минимальный контракт доступа к User для слоя сервиса.
type UserRepository interface {
	// CreateUser сохраняет нового пользователя и возвращает его с заполненным ID.
	CreateUser(ctx context.Context, user *model.User) (*model.User, error)

	// GetUserByLogin ищет пользователя по логину. Отсутствие — gorm.ErrRecordNotFound.
	GetUserByLogin(ctx context.Context, login string) (*model.User, error)

	// GetByID ищет пользователя по id. Отсутствие — gorm.ErrRecordNotFound.
	GetByID(ctx context.Context, id int64) (*model.User, error)

	// List возвращает пользователей постранично, по возрастанию id.
	List(ctx context.Context, offset, limit int) ([]model.User, error)

	// Update применяет частичное обновление полей пользователя.
	Update(ctx context.Context, id int64, updates map[string]any) error

	// Delete удаляет пользователя; записи каталога удаляются каскадом.
	Delete(ctx context.Context, id int64) error
}

type userRepo struct {
	db *gorm.DB
}

// NewUserRepository создаёт реализацию репозитория для User.
func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepo{db: db}
}

func (r *userRepo) CreateUser(ctx context.Context, user *model.User) (*model.User, error) {
	if err := r.db.WithContext(ctx).Create(user).Error; err != nil {
		return nil, err
	}
	return user, nil
}

func (r *userRepo) GetUserByLogin(ctx context.Context, login string) (*model.User, error) {
	var u model.User
	if err := r.db.WithContext(ctx).Where("username = ?", login).First(&u).Error; err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *userRepo) GetByID(ctx context.Context, id int64) (*model.User, error) {
	var u model.User
	if err := r.db.WithContext(ctx).First(&u, id).Error; err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *userRepo) List(ctx context.Context, offset, limit int) ([]model.User, error) {
	var users []model.User
	err := r.db.WithContext(ctx).
		Order("id ASC").
		Offset(offset).Limit(limit).
		Find(&users).Error
	if err != nil {
		return nil, err
	}
	return users, nil
}

func (r *userRepo) Update(ctx context.Context, id int64, updates map[string]any) error {
	if len(updates) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Model(&model.User{}).Where("id = ?", id).Updates(updates).Error
}

func (r *userRepo) Delete(ctx context.Context, id int64) error {
	// Select(clause.Associations) не нужен: каскад объявлен constraint-ом,
	// но SQLite без включённых FK его не исполнит — удаляем записи явно.
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("user_id = ?", id).Delete(&model.File{}).Error; err != nil {
			return err
		}
		return tx.Delete(&model.User{}, id).Error
	})
}
