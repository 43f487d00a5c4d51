package handlers_test

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"sync/atomic"
	"testing"

	"neoshare/internal/config"
	"neoshare/internal/handlers"
	"neoshare/internal/middleware"
	"neoshare/internal/model"
	"neoshare/internal/repo"
	"neoshare/internal/service"
	"neoshare/internal/storage"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	gormsqlite "gorm.io/driver/sqlite"
	"gorm.io/gorm"
	_ "modernc.org/sqlite"
)

var testDBSeq atomic.Int64

// testApp — полный HTTP-стек поверх in-memory SQLite и временного
// каталога хранилища. Тесты гоняют запросы через реальный роутер.
type testApp struct {
	router http.Handler
	cfg    *config.Config
	us     *service.UserService
	fs     *service.FileService
	files  repo.FileRepository
	root   string
}

func newTestApp(t *testing.T) *testApp {
	t.Helper()

	dsn := fmt.Sprintf("file:httptest%d?mode=memory&cache=shared", testDBSeq.Add(1))
	db, err := gorm.Open(gormsqlite.Dialector{DriverName: "sqlite", DSN: dsn}, &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&model.User{}, &model.File{}))

	root := t.TempDir()
	logger := zap.NewNop().Sugar()
	cfg := &config.Config{
		AuthSecret:  "test-secret",
		UploadDir:   root,
		UploadMaxMB: 5,
		ServerURL:   "http://localhost:8080",
	}

	fileRepo := repo.NewFileRepository(db)
	userRepo := repo.NewUserRepository(db)
	tree := storage.NewDisk()
	paths := service.NewPathResolver(root)
	rec := service.NewReconciler(fileRepo, tree, paths, logger)
	fs := service.NewFileService(fileRepo, userRepo, tree, paths, rec, logger)
	us := service.NewUserService(userRepo, paths, tree, logger)

	require.NoError(t, us.EnsureAdmin(context.Background(), "admin123"))

	h := handlers.NewHandler(us, fs, logger, cfg)
	return &testApp{router: h.Router, cfg: cfg, us: us, fs: fs, files: fileRepo, root: root}
}

// newUser создаёт пользователя и возвращает его вместе с Bearer-токеном.
func (a *testApp) newUser(t *testing.T, login, password string, role model.Role) (*model.User, string) {
	t.Helper()
	u, err := a.us.Create(context.Background(), service.CreateInput{Username: login, Password: password, Role: role})
	require.NoError(t, err)
	return u, a.token(t, u.ID)
}

func (a *testApp) token(t *testing.T, userID int64) string {
	t.Helper()
	token, err := middleware.NewToken(userID, a.cfg.AuthSecret)
	require.NoError(t, err)
	return token
}

func (a *testApp) adminToken(t *testing.T) string {
	t.Helper()
	admin, err := a.us.Login(context.Background(), "admin", "admin123")
	require.NoError(t, err)
	return a.token(t, admin.ID)
}

// do выполняет запрос через роутер; token == "" — аноним.
func (a *testApp) do(t *testing.T, method, target, token string, body io.Reader, contentType string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, body)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rr := httptest.NewRecorder()
	a.router.ServeHTTP(rr, req)
	return rr
}

func addAuthCookie(t *testing.T, req *http.Request, userID int64, secret string) {
	t.Helper()
	rr := httptest.NewRecorder()
	_ = middleware.SetLoginCookie(rr, userID, secret)
	for _, c := range rr.Result().Cookies() {
		req.AddCookie(c)
	}
}

// multipartBody собирает multipart-форму с файлом и полями.
func multipartBody(t *testing.T, fields map[string]string, fileName, fileType string, content []byte) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	hdr := make(textproto.MIMEHeader)
	hdr.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename="%s"`, fileName))
	hdr.Set("Content-Type", fileType)
	part, err := mw.CreatePart(hdr)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}
