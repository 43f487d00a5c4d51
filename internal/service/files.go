package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"neoshare/internal/model"
	"neoshare/internal/repo"
	"neoshare/internal/storage"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// adminLogin — владелец общей области: публичные листинги сверяются
// от имени администратора, как и записи, создаваемые сверкой.
const adminLogin = "admin"

// FileService — фасад файловых операций. Комбинирует резолвер путей,
// физическое дерево и каталог; листинги делегирует движку сверки;
// каждое действие проходит через шлюз доступа.
type FileService struct {
	files  repo.FileRepository
	users  repo.UserRepository
	tree   storage.Tree
	paths  *PathResolver
	rec    *Reconciler
	logger *zap.SugaredLogger
}

// NewFileService создаёт фасад файловых операций.
func NewFileService(
	files repo.FileRepository,
	users repo.UserRepository,
	tree storage.Tree,
	paths *PathResolver,
	rec *Reconciler,
	logger *zap.SugaredLogger,
) *FileService {
	return &FileService{files: files, users: users, tree: tree, paths: paths, rec: rec, logger: logger}
}

// List возвращает сверенный листинг логического каталога.
// Для приватной области обязателен принципал; публичная доступна всем
// и сверяется в области администратора.
func (s *FileService) List(ctx context.Context, p *Principal, public bool, dir string) ([]model.File, error) {
	scope, err := s.scopeFor(ctx, p, public)
	if err != nil {
		return nil, err
	}
	return s.rec.Reconcile(ctx, scope, dir)
}

// Search ищет записи по подстроке имени в пределах области видимости.
func (s *FileService) Search(ctx context.Context, p *Principal, public bool, query string) ([]model.File, error) {
	if public {
		return s.files.Search(ctx, query, true, 0)
	}
	if p == nil {
		return nil, ErrForbidden
	}
	return s.files.Search(ctx, query, false, p.ID)
}

// UploadInput — параметры загрузки файла.
type UploadInput struct {
	Public   bool
	Dir      string // логический каталог назначения, например "/" или "/docs"
	Name     string
	MimeType string // из запроса; пустой — угадываем по расширению
	Content  io.Reader
}

// Upload сохраняет поток на диск и регистрирует запись каталога.
// Недостающие сегменты пути материализуются по одному: физический
// каталог и идемпотентная запись-каталог на каждый сегмент. Гонка
// двух загрузок может оставить дубликат записи — его вылечит сверка.
func (s *FileService) Upload(ctx context.Context, p *Principal, in UploadInput) (*model.File, error) {
	if p == nil {
		return nil, ErrForbidden
	}
	name := filepath.Base(strings.TrimSpace(in.Name))
	if name == "" || name == "." || name == "/" || name == ".." {
		return nil, ErrInvalidName
	}

	scope := Scope{Public: in.Public, OwnerID: p.ID}
	logical := NormalizePath(in.Dir)

	if err := s.materializeDirs(ctx, scope, logical); err != nil {
		return nil, err
	}

	physDir := s.paths.Resolve(scope, logical)
	if err := s.tree.MkdirAll(physDir); err != nil {
		return nil, fmt.Errorf("create directory: %w", err)
	}

	size, err := s.tree.Save(filepath.Join(physDir, name), in.Content)
	if err != nil {
		return nil, fmt.Errorf("save upload: %w", err)
	}

	mimeType := in.MimeType
	if mimeType == "" {
		mimeType = guessMimeType(name)
	}

	f := &model.File{
		UserID:   p.ID,
		Name:     name,
		Path:     logical,
		Type:     model.KindFile,
		Size:     size,
		MimeType: mimeType,
		IsPublic: in.Public,
	}
	if err := s.files.Create(ctx, f); err != nil {
		return nil, err
	}
	return f, nil
}

// Download возвращает запись каталога и физический путь файла.
// Отсутствие записи и отсутствие файла на диске оба выглядят для
// вызывающего как ErrNotFound, но второй случай — нарушение
// целостности, и логируется отдельно.
func (s *FileService) Download(ctx context.Context, p *Principal, id int64) (*model.File, string, error) {
	f, err := s.getAuthorized(ctx, p, id)
	if err != nil {
		return nil, "", err
	}
	if f.IsDir() {
		return nil, "", ErrNotFile
	}
	phys := s.physicalPath(f)
	if !s.tree.Exists(phys) {
		s.logger.Errorw("integrity fault: catalog record has no backing file", "id", f.ID, "path", phys)
		return nil, "", ErrNotFound
	}
	return f, phys, nil
}

// ReadContent читает файл как текст. Авторизация как у Download;
// бинарное содержимое — ErrNotText.
func (s *FileService) ReadContent(ctx context.Context, p *Principal, id int64) (string, *model.File, error) {
	f, err := s.getAuthorized(ctx, p, id)
	if err != nil {
		return "", nil, err
	}
	if f.IsDir() {
		return "", nil, ErrNotFile
	}
	phys := s.physicalPath(f)
	if !s.tree.Exists(phys) {
		s.logger.Errorw("integrity fault: catalog record has no backing file", "id", f.ID, "path", phys)
		return "", nil, ErrNotFound
	}
	content, err := s.tree.ReadText(phys)
	if err != nil {
		if errors.Is(err, storage.ErrNotText) {
			return "", nil, ErrNotText
		}
		return "", nil, fmt.Errorf("read content: %w", err)
	}
	return content, f, nil
}

// WriteContent перезаписывает содержимое и приводит размер записи к
// новой длине. При ошибке записи на диск размер в каталоге не трогаем.
func (s *FileService) WriteContent(ctx context.Context, p *Principal, id int64, content string) (*model.File, error) {
	f, err := s.getByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !CanWrite(p, f) {
		return nil, ErrForbidden
	}
	if f.IsDir() {
		return nil, ErrNotFile
	}
	phys := s.physicalPath(f)
	if err := s.tree.WriteText(phys, content); err != nil {
		return nil, fmt.Errorf("write content: %w", err)
	}
	size, err := s.tree.ByteSize(phys)
	if err != nil {
		return nil, fmt.Errorf("stat after write: %w", err)
	}
	if err := s.files.UpdateSize(ctx, f.ID, size); err != nil {
		return nil, err
	}
	f.Size = size
	return f, nil
}

// Delete удаляет файл или каталог: сперва с диска, затем из каталога.
// Такой порядок при сбое посередине оставляет сиротскую запись,
// которую вылечит следующая сверка; обратный порядок оставил бы
// невидимый физический файл. Отсутствие файла на диске — не ошибка.
func (s *FileService) Delete(ctx context.Context, p *Principal, id int64) error {
	f, err := s.getByID(ctx, id)
	if err != nil {
		return err
	}
	if !CanWrite(p, f) {
		return ErrForbidden
	}

	phys := s.physicalPath(f)
	if f.IsDir() {
		err = s.tree.RemoveTree(phys)
	} else {
		err = s.tree.Remove(phys)
	}
	if err != nil {
		return fmt.Errorf("remove physical: %w", err)
	}

	return s.files.Delete(ctx, f.ID)
}

// MakeDirectory создаёт физический каталог (существующий — не ошибка)
// и одну запись-каталог.
func (s *FileService) MakeDirectory(ctx context.Context, p *Principal, public bool, parent, name string) (*model.File, error) {
	if p == nil {
		return nil, ErrForbidden
	}
	name = strings.TrimSpace(name)
	if name == "" || name == "." || name == ".." || strings.ContainsAny(name, "/\\") {
		return nil, ErrInvalidName
	}

	scope := Scope{Public: public, OwnerID: p.ID}
	parentLogical := NormalizePath(parent)

	if err := s.tree.MkdirAll(s.paths.Resolve(scope, JoinLogical(parentLogical, name))); err != nil {
		return nil, fmt.Errorf("create directory: %w", err)
	}

	d := &model.File{
		UserID:   p.ID,
		Name:     name,
		Path:     parentLogical,
		Type:     model.KindDirectory,
		IsPublic: public,
	}
	created, err := s.files.CreateDirIfAbsent(ctx, d)
	if err != nil {
		return nil, err
	}
	if created {
		return d, nil
	}
	return s.findDirRecord(ctx, scope, parentLogical, name)
}

// AvatarDir — физический каталог аватаров.
func (s *FileService) AvatarDir() string { return s.paths.AvatarDir() }

// scopeFor строит область видимости листинга: приватная принадлежит
// принципалу, публичная сверяется от имени администратора.
func (s *FileService) scopeFor(ctx context.Context, p *Principal, public bool) (Scope, error) {
	if !public {
		if p == nil {
			return Scope{}, ErrForbidden
		}
		return Scope{Public: false, OwnerID: p.ID}, nil
	}
	ownerID := int64(1)
	if admin, err := s.users.GetUserByLogin(ctx, adminLogin); err == nil {
		ownerID = admin.ID
	}
	return Scope{Public: true, OwnerID: ownerID}, nil
}

// materializeDirs создаёт недостающие записи-каталоги для каждого
// сегмента логического пути.
func (s *FileService) materializeDirs(ctx context.Context, scope Scope, logical string) error {
	parent := "/"
	for _, seg := range splitSegments(logical) {
		d := &model.File{
			UserID:   scope.OwnerID,
			Name:     seg,
			Path:     parent,
			Type:     model.KindDirectory,
			IsPublic: scope.Public,
		}
		if _, err := s.files.CreateDirIfAbsent(ctx, d); err != nil {
			return err
		}
		parent = JoinLogical(parent, seg)
	}
	return nil
}

func (s *FileService) findDirRecord(ctx context.Context, scope Scope, parent, name string) (*model.File, error) {
	records, err := s.files.GetByPath(ctx, parent, scope.Public, scope.OwnerID)
	if err != nil {
		return nil, err
	}
	for i := range records {
		if records[i].Name == name && records[i].IsDir() {
			return &records[i], nil
		}
	}
	return nil, ErrNotFound
}

func (s *FileService) getByID(ctx context.Context, id int64) (*model.File, error) {
	f, err := s.files.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return f, nil
}

func (s *FileService) getAuthorized(ctx context.Context, p *Principal, id int64) (*model.File, error) {
	f, err := s.getByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !CanRead(p, f) {
		return nil, ErrForbidden
	}
	return f, nil
}

// physicalPath строит физический путь записи каталога.
func (s *FileService) physicalPath(f *model.File) string {
	scope := Scope{Public: f.IsPublic, OwnerID: f.UserID}
	return filepath.Join(s.paths.Resolve(scope, f.Path), f.Name)
}
