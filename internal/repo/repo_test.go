package repo

import (
	"fmt"
	"sync/atomic"
	"testing"

	"neoshare/internal/model"

	gormsqlite "gorm.io/driver/sqlite"
	"gorm.io/gorm"
	_ "modernc.org/sqlite"
)

var testDBSeq atomic.Int64

// newTestDB инициализирует in-memory SQLite (modernc.org/sqlite) для тестов репозитория.
// Каждому тесту — своя именованная база, чтобы тесты не делили состояние.
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:repotest%d?mode=memory&cache=shared", testDBSeq.Add(1))
	dial := gormsqlite.Dialector{DriverName: "sqlite", DSN: dsn}
	db, err := gorm.Open(dial, &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to open sqlite (modernc): %v", err)
	}
	// Миграции для всех моделей, используемых в репозиториях
	if err := db.AutoMigrate(&model.User{}, &model.File{}); err != nil {
		t.Fatalf("failed to automigrate: %v", err)
	}
	return db
}
