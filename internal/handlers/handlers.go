package handlers

import (
	"errors"
	"net/http"
	"time"

	"neoshare/internal/config"
	"neoshare/internal/middleware"
	"neoshare/internal/model"
	"neoshare/internal/service"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

type Handler struct {
	Router chi.Router
}

// NewHandler разводящий для хендлеров
func NewHandler(
	userService *service.UserService,
	fileService *service.FileService,
	logger *zap.SugaredLogger,
	config *config.Config,
) *Handler {
	r := chi.NewRouter()

	r.Use(middleware.WithGzip)
	r.Use(middleware.WithLogging)
	r.Use(middleware.WithAuth(config.AuthSecret))

	// Handlers
	userHandler := NewUserHandler(userService, logger, config)
	fileHandler := NewFileHandler(fileService, userService, logger, config)

	// Auth routes
	r.Post("/api/auth/login", userHandler.Login)
	r.Get("/api/auth/me", userHandler.Me)

	// User routes
	r.Post("/api/users", userHandler.Create)
	r.Get("/api/users", userHandler.List)
	r.Get("/api/users/{id}", userHandler.Get)
	r.Put("/api/users/{id}", userHandler.Update)
	r.Delete("/api/users/{id}", userHandler.Delete)
	r.Post("/api/users/avatar", userHandler.UploadAvatar)

	// File routes
	r.Post("/api/files/upload", fileHandler.Upload)
	r.Post("/api/files/directory", fileHandler.CreateDirectory)
	r.Get("/api/files/list/public", fileHandler.ListPublic)
	r.Get("/api/files/list/private", fileHandler.ListPrivate)
	r.Get("/api/files/download/{id}", fileHandler.Download)
	r.Get("/api/files/content/{id}", fileHandler.Content)
	r.Put("/api/files/content/{id}", fileHandler.UpdateContent)
	r.Delete("/api/files/{id}", fileHandler.Delete)

	// Статика аватаров (остальное содержимое хранилища не публикуется)
	avatarFS := http.FileServer(http.Dir(fileService.AvatarDir()))
	r.Handle("/uploads/avatars/*", http.StripPrefix("/uploads/avatars/", avatarFS))

	return &Handler{Router: r}
}

// principalFromRequest строит принципала из контекста запроса.
// nil — аноним (нет токена, невалидный токен либо пользователь удалён).
func principalFromRequest(r *http.Request, users *service.UserService) *service.Principal {
	uid, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		return nil
	}
	u, err := users.GetByID(r.Context(), uid)
	if err != nil {
		return nil
	}
	return service.NewPrincipal(u)
}

// writeServiceError отображает ошибки сервисного слоя в HTTP-коды.
func writeServiceError(w http.ResponseWriter, logger *zap.SugaredLogger, op string, err error) {
	switch {
	case errors.Is(err, service.ErrNotFound):
		http.Error(w, "not found", http.StatusNotFound)
	case errors.Is(err, service.ErrForbidden):
		http.Error(w, "not authorized", http.StatusForbidden)
	case errors.Is(err, service.ErrNotText):
		http.Error(w, "binary file cannot be edited as text", http.StatusBadRequest)
	case errors.Is(err, service.ErrInvalidName):
		http.Error(w, "invalid name", http.StatusBadRequest)
	case errors.Is(err, service.ErrNotFile):
		http.Error(w, "operation requires a regular file", http.StatusBadRequest)
	default:
		logger.Errorw(op+": internal error", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}

// UserDTO — представление пользователя в API.
type UserDTO struct {
	ID        int64  `json:"id"`
	Username  string `json:"username"`
	Role      string `json:"role"`
	Nickname  string `json:"nickname,omitempty"`
	Signature string `json:"signature,omitempty"`
	AvatarURL string `json:"avatar_url,omitempty"`
	CreatedAt string `json:"created_at"`
	UpdatedAt string `json:"updated_at"`
}

func toUserDTO(u *model.User) UserDTO {
	return UserDTO{
		ID:        u.ID,
		Username:  u.Username,
		Role:      string(u.Role),
		Nickname:  u.Nickname,
		Signature: u.Signature,
		AvatarURL: u.AvatarURL,
		CreatedAt: u.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt: u.UpdatedAt.UTC().Format(time.RFC3339),
	}
}

// FileDTO — представление записи каталога в API.
type FileDTO struct {
	ID        int64  `json:"id"`
	UserID    int64  `json:"user_id"`
	Name      string `json:"name"`
	Path      string `json:"path"`
	Type      string `json:"type"`
	Size      int64  `json:"size"`
	MimeType  string `json:"mime_type,omitempty"`
	IsPublic  bool   `json:"is_public"`
	CreatedAt string `json:"created_at"`
	UpdatedAt string `json:"updated_at"`
}

func toFileDTO(f *model.File) FileDTO {
	return FileDTO{
		ID:        f.ID,
		UserID:    f.UserID,
		Name:      f.Name,
		Path:      f.Path,
		Type:      string(f.Type),
		Size:      f.Size,
		MimeType:  f.MimeType,
		IsPublic:  f.IsPublic,
		CreatedAt: f.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt: f.UpdatedAt.UTC().Format(time.RFC3339),
	}
}

func toFileDTOs(files []model.File) []FileDTO {
	out := make([]FileDTO, 0, len(files))
	for i := range files {
		out = append(out, toFileDTO(&files[i]))
	}
	return out
}
