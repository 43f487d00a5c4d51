package service

import (
	"context"
	"mime"
	"path/filepath"
	"strings"

	"neoshare/internal/model"
	"neoshare/internal/repo"
	"neoshare/internal/storage"

	"go.uber.org/zap"
)

// dirSizeDepth ограничивает глубину подсчёта размера каталога.
// Сам листинг нерекурсивный: вложенные каталоги сверяются лениво,
// когда их путь запрашивают.
const dirSizeDepth = 5

// Reconciler сводит каталог метаданных с физическим деревом.
//
// Файловая система — источник истины о существовании и размере;
// каталог — индекс над ней с учётом видимости и владения. Каждый
// листинг одновременно ремонтирует расхождения: записи без физического
// файла удаляются, физические файлы без записи регистрируются,
// устаревшие размеры обновляются, дубликаты записей схлопываются.
// Транзакции между диском и БД нет, поэтому конкурентные вызовы могут
// породить дубликат — его вылечит следующий вызов.
type Reconciler struct {
	files  repo.FileRepository
	tree   storage.Tree
	paths  *PathResolver
	logger *zap.SugaredLogger
}

// NewReconciler создаёт движок сверки.
func NewReconciler(files repo.FileRepository, tree storage.Tree, paths *PathResolver, logger *zap.SugaredLogger) *Reconciler {
	return &Reconciler{files: files, tree: tree, paths: paths, logger: logger}
}

// Reconcile сверяет один логический каталог и возвращает актуальный
// листинг. Несуществующий на диске каталог считается пустым: без
// ошибок и без записей в БД. Нечитаемые элементы пропускаются —
// частичный результат лучше полного отказа.
func (r *Reconciler) Reconcile(ctx context.Context, scope Scope, dir string) ([]model.File, error) {
	logical := NormalizePath(dir)
	phys := r.paths.Resolve(scope, logical)

	if !r.tree.Exists(phys) {
		return []model.File{}, nil
	}

	entries, err := r.tree.ListDir(phys)
	if err != nil {
		// каталог есть, но не читается: лечить нечем, отдаём что знает БД
		r.logger.Warnw("reconcile: cannot list directory", "path", phys, "error", err)
		return r.files.GetByPath(ctx, logical, scope.Public, scope.OwnerID)
	}

	records, err := r.files.GetByPath(ctx, logical, scope.Public, scope.OwnerID)
	if err != nil {
		return nil, err
	}

	// Дедупликация: записи идут по возрастанию id, первая из одноимённых
	// (самая ранняя) остаётся, остальные удаляются.
	byName := make(map[string]model.File, len(records))
	for _, rec := range records {
		if _, ok := byName[rec.Name]; ok {
			if err := r.files.Delete(ctx, rec.ID); err != nil {
				r.logger.Errorw("reconcile: failed to delete duplicate", "id", rec.ID, "name", rec.Name, "error", err)
			}
			continue
		}
		byName[rec.Name] = rec
	}

	// Сверка физических элементов с каталогом по имени.
	for _, e := range entries {
		if strings.HasPrefix(e.Name, ".") {
			continue
		}

		rec, matched := byName[e.Name]
		size, err := r.entrySize(filepath.Join(phys, e.Name), e.IsDir)
		if err != nil {
			r.logger.Warnw("reconcile: skipping unreadable entry", "dir", logical, "name", e.Name, "error", err)
			// нечитаемый — не сирота: запись, если была, не трогаем
			delete(byName, e.Name)
			continue
		}

		if !matched {
			nf := model.File{
				UserID:   scope.OwnerID,
				Name:     e.Name,
				Path:     logical,
				Type:     model.KindFile,
				Size:     size,
				IsPublic: scope.Public,
			}
			if e.IsDir {
				nf.Type = model.KindDirectory
			} else {
				nf.MimeType = guessMimeType(e.Name)
			}
			if err := r.files.Create(ctx, &nf); err != nil {
				r.logger.Errorw("reconcile: failed to create record", "dir", logical, "name", e.Name, "error", err)
			}
			continue
		}

		if rec.Size != size {
			if err := r.files.UpdateSize(ctx, rec.ID, size); err != nil {
				r.logger.Errorw("reconcile: failed to update size", "id", rec.ID, "error", err)
			}
		}
		delete(byName, e.Name)
	}

	// Оставшиеся в карте записи — сироты: файл удалён мимо API.
	for _, rec := range byName {
		if err := r.files.Delete(ctx, rec.ID); err != nil {
			r.logger.Errorw("reconcile: failed to delete orphan", "id", rec.ID, "name", rec.Name, "error", err)
		}
	}

	return r.files.GetByPath(ctx, logical, scope.Public, scope.OwnerID)
}

// entrySize пересчитывает текущий физический размер элемента: прямой —
// для файла, рекурсивная сумма потомков — для каталога.
func (r *Reconciler) entrySize(path string, isDir bool) (int64, error) {
	if isDir {
		return r.tree.RecursiveByteSize(path, dirSizeDepth), nil
	}
	return r.tree.ByteSize(path)
}

// guessMimeType — best-effort определение типа по расширению имени.
func guessMimeType(name string) string {
	return mime.TypeByExtension(filepath.Ext(name))
}
