package service

import (
	"fmt"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"neoshare/internal/model"
	"neoshare/internal/repo"
	"neoshare/internal/storage"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	gormsqlite "gorm.io/driver/sqlite"
	"gorm.io/gorm"
	_ "modernc.org/sqlite"
)

var testDBSeq atomic.Int64

// testEnv — полный стек сервисов поверх in-memory SQLite и временного
// физического дерева.
type testEnv struct {
	files repo.FileRepository
	users repo.UserRepository
	tree  storage.Tree
	paths *PathResolver
	rec   *Reconciler
	fs    *FileService
	us    *UserService
	root  string
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	dsn := fmt.Sprintf("file:svctest%d?mode=memory&cache=shared", testDBSeq.Add(1))
	db, err := gorm.Open(gormsqlite.Dialector{DriverName: "sqlite", DSN: dsn}, &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&model.User{}, &model.File{}))

	root := t.TempDir()
	logger := zap.NewNop().Sugar()

	env := &testEnv{
		files: repo.NewFileRepository(db),
		users: repo.NewUserRepository(db),
		tree:  storage.NewDisk(),
		paths: NewPathResolver(root),
		root:  root,
	}
	env.rec = NewReconciler(env.files, env.tree, env.paths, logger)
	env.fs = NewFileService(env.files, env.users, env.tree, env.paths, env.rec, logger)
	env.us = NewUserService(env.users, env.paths, env.tree, logger)
	return env
}

// writePhys кладёт файл в физическое дерево области.
func (e *testEnv) writePhys(t *testing.T, scope Scope, logical, name string, content []byte) string {
	t.Helper()
	dir := e.paths.Resolve(scope, logical)
	require.NoError(t, os.MkdirAll(dir, 0o755))
	p := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(p, content, 0o644))
	return p
}
