package repo

import (
	"context"
	"strings"

	"neoshare/internal/model"

	"gorm.io/gorm"
)

// FileRepository — контракт хранилища каталога (метаданных файлов).
// Репозиторий ничего не знает о физическом дереве: чистое хранилище
// с фильтрующими запросами, каждая мутация — отдельная транзакция.
type FileRepository interface {
	// GetByPath возвращает записи каталога для логического пути в заданной
	// области видимости, по возрастанию id (первая вставленная — первая).
	// Для public область владельца не учитывается.
	GetByPath(ctx context.Context, path string, public bool, ownerID int64) ([]model.File, error)

	// GetByID ищет запись по id. Отсутствие — gorm.ErrRecordNotFound.
	GetByID(ctx context.Context, id int64) (*model.File, error)

	// Create сохраняет новую запись и заполняет её ID.
	Create(ctx context.Context, f *model.File) error

	// CreateDirIfAbsent создаёт запись-каталог, если записи с тем же
	// (path, name, видимость, владелец) ещё нет. Возвращает created=true,
	// если запись была создана в этой операции. Уникального индекса нет,
	// поэтому гонка двух запросов может породить дубликат — его лечит
	// reconciliation-проход.
	CreateDirIfAbsent(ctx context.Context, f *model.File) (created bool, err error)

	// UpdateSize устанавливает размер записи.
	UpdateSize(ctx context.Context, id int64, size int64) error

	// Delete удаляет запись по id.
	Delete(ctx context.Context, id int64) error

	// Search ищет записи по подстроке имени без учёта регистра,
	// в пределах области видимости.
	Search(ctx context.Context, query string, public bool, ownerID int64) ([]model.File, error)
}

type fileRepo struct {
	db *gorm.DB
}

// NewFileRepository создаёт реализацию репозитория для File.
func NewFileRepository(db *gorm.DB) FileRepository {
	return &fileRepo{db: db}
}

func (r *fileRepo) GetByPath(ctx context.Context, path string, public bool, ownerID int64) ([]model.File, error) {
	q := r.db.WithContext(ctx).Where("path = ?", path)
	if public {
		q = q.Where("is_public = ?", true)
	} else {
		q = q.Where("is_public = ? AND user_id = ?", false, ownerID)
	}
	var files []model.File
	if err := q.Order("id ASC").Find(&files).Error; err != nil {
		return nil, err
	}
	return files, nil
}

func (r *fileRepo) GetByID(ctx context.Context, id int64) (*model.File, error) {
	var f model.File
	if err := r.db.WithContext(ctx).First(&f, id).Error; err != nil {
		return nil, err
	}
	return &f, nil
}

func (r *fileRepo) Create(ctx context.Context, f *model.File) error {
	return r.db.WithContext(ctx).Create(f).Error
}

func (r *fileRepo) CreateDirIfAbsent(ctx context.Context, f *model.File) (bool, error) {
	q := r.db.WithContext(ctx).
		Where("path = ? AND name = ? AND type = ? AND is_public = ?",
			f.Path, f.Name, model.KindDirectory, f.IsPublic)
	if !f.IsPublic {
		q = q.Where("user_id = ?", f.UserID)
	}

	var count int64
	if err := q.Model(&model.File{}).Count(&count).Error; err != nil {
		return false, err
	}
	if count > 0 {
		return false, nil
	}
	if err := r.db.WithContext(ctx).Create(f).Error; err != nil {
		return false, err
	}
	return true, nil
}

func (r *fileRepo) UpdateSize(ctx context.Context, id int64, size int64) error {
	return r.db.WithContext(ctx).
		Model(&model.File{}).
		Where("id = ?", id).
		Update("size", size).Error
}

func (r *fileRepo) Delete(ctx context.Context, id int64) error {
	return r.db.WithContext(ctx).Delete(&model.File{}, id).Error
}

func (r *fileRepo) Search(ctx context.Context, query string, public bool, ownerID int64) ([]model.File, error) {
	// LOWER + LIKE вместо ILIKE — работает и в Postgres, и в SQLite
	q := r.db.WithContext(ctx).
		Where("LOWER(name) LIKE ?", "%"+strings.ToLower(query)+"%").
		Where("is_public = ?", public)
	if !public {
		q = q.Where("user_id = ?", ownerID)
	}
	var files []model.File
	if err := q.Order("id ASC").Find(&files).Error; err != nil {
		return nil, err
	}
	return files, nil
}
