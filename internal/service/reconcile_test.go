package service

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"neoshare/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// reconcile("public", -, "/") для физического report.txt без записи
// создаёт ровно одну запись с верным размером и типом.
func TestReconcile_CreatesRecordFromDisk(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	scope := Scope{Public: true, OwnerID: 1}

	env.writePhys(t, scope, "/", "report.txt", make([]byte, 500))

	got, err := env.rec.Reconcile(ctx, scope, "/")
	assert.NoError(t, err)
	if assert.Len(t, got, 1) {
		assert.Equal(t, "report.txt", got[0].Name)
		assert.Equal(t, int64(500), got[0].Size)
		assert.Equal(t, model.KindFile, got[0].Type)
		assert.Equal(t, "/", got[0].Path)
		assert.True(t, got[0].IsPublic)
		assert.Contains(t, got[0].MimeType, "text/plain")
	}
}

// Идемпотентность: повторный вызов без изменений на диске даёт тот же
// набор записей, без дублей и лишних обновлений.
func TestReconcile_Idempotent(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	scope := Scope{Public: true, OwnerID: 1}

	env.writePhys(t, scope, "/", "a.txt", []byte("aaa"))
	env.writePhys(t, scope, "/", "b.txt", []byte("bb"))

	first, err := env.rec.Reconcile(ctx, scope, "/")
	assert.NoError(t, err)
	assert.Len(t, first, 2)

	second, err := env.rec.Reconcile(ctx, scope, "/")
	assert.NoError(t, err)
	require.Len(t, second, 2)

	// те же id, те же размеры
	for i := range first {
		assert.Equal(t, first[i].ID, second[i].ID)
		assert.Equal(t, first[i].Size, second[i].Size)
	}
}

// Лечение дублей: две записи с одним именем схлопываются в одну,
// выживает самая ранняя (меньший id).
func TestReconcile_HealsDuplicates(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	scope := Scope{Public: true, OwnerID: 1}

	env.writePhys(t, scope, "/", "dup.txt", []byte("12345"))

	first := &model.File{UserID: 1, Name: "dup.txt", Path: "/", Type: model.KindFile, Size: 5, IsPublic: true}
	second := &model.File{UserID: 1, Name: "dup.txt", Path: "/", Type: model.KindFile, Size: 5, IsPublic: true}
	require.NoError(t, env.files.Create(ctx, first))
	require.NoError(t, env.files.Create(ctx, second))

	got, err := env.rec.Reconcile(ctx, scope, "/")
	assert.NoError(t, err)
	if assert.Len(t, got, 1) {
		assert.Equal(t, first.ID, got[0].ID, "должна выжить самая ранняя запись")
	}

	// и в базе остался ровно один ряд
	rows, err := env.files.GetByPath(ctx, "/", true, 0)
	assert.NoError(t, err)
	assert.Len(t, rows, 1)
}

// Сирота: запись без физического файла удаляется.
func TestReconcile_RemovesOrphans(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	scope := Scope{Public: true, OwnerID: 1}

	// физический каталог существует, но old.txt в нём нет
	env.writePhys(t, scope, "/", "keep.txt", []byte("x"))
	orphan := &model.File{UserID: 1, Name: "old.txt", Path: "/", Type: model.KindFile, Size: 10, IsPublic: true}
	require.NoError(t, env.files.Create(ctx, orphan))

	got, err := env.rec.Reconcile(ctx, scope, "/")
	assert.NoError(t, err)
	if assert.Len(t, got, 1) {
		assert.Equal(t, "keep.txt", got[0].Name)
	}

	_, err = env.files.GetByID(ctx, orphan.ID)
	assert.Error(t, err)
}

// Дрейф размера: запись со старым размером обновляется, дубль не создаётся.
func TestReconcile_CorrectsSizeDrift(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	scope := Scope{Public: true, OwnerID: 1}

	env.writePhys(t, scope, "/", "grow.txt", make([]byte, 300))
	stale := &model.File{UserID: 1, Name: "grow.txt", Path: "/", Type: model.KindFile, Size: 100, IsPublic: true}
	require.NoError(t, env.files.Create(ctx, stale))

	got, err := env.rec.Reconcile(ctx, scope, "/")
	assert.NoError(t, err)
	if assert.Len(t, got, 1) {
		assert.Equal(t, stale.ID, got[0].ID)
		assert.Equal(t, int64(300), got[0].Size)
	}
}

// Несуществующий на диске каталог — пустой результат, без записей в БД.
func TestReconcile_MissingDirectoryIsEmpty(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	scope := Scope{Public: true, OwnerID: 1}

	got, err := env.rec.Reconcile(ctx, scope, "/nope")
	assert.NoError(t, err)
	assert.Empty(t, got)

	rows, err := env.files.GetByPath(ctx, "/nope", true, 0)
	assert.NoError(t, err)
	assert.Empty(t, rows)
}

// Скрытые элементы не регистрируются, а их старые записи вычищаются.
func TestReconcile_SkipsHiddenEntries(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	scope := Scope{Public: true, OwnerID: 1}

	env.writePhys(t, scope, "/", ".hidden", []byte("x"))
	env.writePhys(t, scope, "/", "seen.txt", []byte("y"))

	// старая запись о скрытом файле
	ghost := &model.File{UserID: 1, Name: ".hidden", Path: "/", Type: model.KindFile, Size: 1, IsPublic: true}
	require.NoError(t, env.files.Create(ctx, ghost))

	got, err := env.rec.Reconcile(ctx, scope, "/")
	assert.NoError(t, err)
	if assert.Len(t, got, 1) {
		assert.Equal(t, "seen.txt", got[0].Name)
	}
}

// Подкаталог регистрируется с рекурсивной суммой размеров потомков;
// сам листинг нерекурсивный — вложенные файлы записей не получают.
func TestReconcile_DirectorySizeRecursive(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	scope := Scope{Public: true, OwnerID: 1}

	env.writePhys(t, scope, "/docs", "a.txt", make([]byte, 100))
	env.writePhys(t, scope, "/docs/deep", "b.txt", make([]byte, 50))

	got, err := env.rec.Reconcile(ctx, scope, "/")
	assert.NoError(t, err)
	if assert.Len(t, got, 1) {
		assert.Equal(t, "docs", got[0].Name)
		assert.Equal(t, model.KindDirectory, got[0].Type)
		assert.Equal(t, int64(150), got[0].Size)
	}

	// вложенные пути не трогались
	rows, err := env.files.GetByPath(ctx, "/docs", true, 0)
	assert.NoError(t, err)
	assert.Empty(t, rows)

	// ленивая сверка глубже — при запросе этого пути
	deep, err := env.rec.Reconcile(ctx, scope, "/docs")
	assert.NoError(t, err)
	assert.Len(t, deep, 2) // a.txt и deep
}

// Приватные области не пересекаются: сверка одной не видит другую.
func TestReconcile_PrivateScopesIsolated(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	alice := Scope{Public: false, OwnerID: 1}
	bob := Scope{Public: false, OwnerID: 2}

	env.writePhys(t, alice, "/", "alice.txt", []byte("a"))
	env.writePhys(t, bob, "/", "bob.txt", []byte("b"))

	gotAlice, err := env.rec.Reconcile(ctx, alice, "/")
	assert.NoError(t, err)
	if assert.Len(t, gotAlice, 1) {
		assert.Equal(t, "alice.txt", gotAlice[0].Name)
		assert.False(t, gotAlice[0].IsPublic)
		assert.Equal(t, int64(1), gotAlice[0].UserID)
	}

	gotBob, err := env.rec.Reconcile(ctx, bob, "/")
	assert.NoError(t, err)
	assert.Len(t, gotBob, 1)
}

// Симлинк в размере каталога не учитывается.
func TestReconcile_DirectorySizeIgnoresSymlinks(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	scope := Scope{Public: true, OwnerID: 1}

	env.writePhys(t, scope, "/data", "real.bin", make([]byte, 10))
	target := filepath.Join(env.paths.Resolve(scope, "/data"), "real.bin")
	if err := os.Symlink(target, filepath.Join(env.paths.Resolve(scope, "/data"), "link.bin")); err != nil {
		t.Skipf("symlinks unsupported: %v", err)
	}

	got, err := env.rec.Reconcile(ctx, scope, "/")
	assert.NoError(t, err)
	if assert.Len(t, got, 1) {
		assert.Equal(t, int64(10), got[0].Size)
	}
}
