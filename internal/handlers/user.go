package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"neoshare/internal/config"
	"neoshare/internal/middleware"
	"neoshare/internal/model"
	"neoshare/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// UserHandler обрабатывает аутентификацию и управление пользователями.
type UserHandler struct {
	UserService *service.UserService
	Logger      *zap.SugaredLogger
	Config      *config.Config
}

// NewUserHandler создаёт хендлер пользователей
func NewUserHandler(userService *service.UserService, logger *zap.SugaredLogger, cfg *config.Config) *UserHandler {
	return &UserHandler{UserService: userService, Logger: logger, Config: cfg}
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginResponse struct {
	AccessToken string  `json:"access_token"`
	TokenType   string  `json:"token_type"`
	User        UserDTO `json:"user"`
}

// Login выдаёт JWT по паре логин/пароль.
func (h *UserHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.Logger.Warnw("Login: invalid request body", "error", err)
		http.Error(w, "invalid request", http.StatusBadRequest)
		return
	}

	user, err := h.UserService.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) {
			http.Error(w, "incorrect username or password", http.StatusUnauthorized)
			return
		}
		writeServiceError(w, h.Logger, "Login", err)
		return
	}

	token, err := middleware.NewToken(user.ID, h.Config.AuthSecret)
	if err != nil {
		writeServiceError(w, h.Logger, "Login", err)
		return
	}
	if err := middleware.SetLoginCookie(w, user.ID, h.Config.AuthSecret); err != nil {
		writeServiceError(w, h.Logger, "Login", err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(loginResponse{
		AccessToken: token,
		TokenType:   "bearer",
		User:        toUserDTO(user),
	})
}

// Me возвращает профиль текущего пользователя.
func (h *UserHandler) Me(w http.ResponseWriter, r *http.Request) {
	p := principalFromRequest(r, h.UserService)
	if p == nil {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	user, err := h.UserService.GetByID(r.Context(), p.ID)
	if err != nil {
		writeServiceError(w, h.Logger, "Me", err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(toUserDTO(user))
}

type createUserRequest struct {
	Username  string `json:"username"`
	Password  string `json:"password"`
	Role      string `json:"role"`
	Nickname  string `json:"nickname"`
	Signature string `json:"signature"`
}

// Create создаёт пользователя. Только администратор.
func (h *UserHandler) Create(w http.ResponseWriter, r *http.Request) {
	p := principalFromRequest(r, h.UserService)
	if p == nil {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	if !p.IsAdmin() {
		http.Error(w, "not authorized", http.StatusForbidden)
		return
	}

	var req createUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Username == "" || req.Password == "" {
		http.Error(w, "invalid request", http.StatusBadRequest)
		return
	}

	user, err := h.UserService.Create(r.Context(), service.CreateInput{
		Username:  req.Username,
		Password:  req.Password,
		Role:      model.ParseRole(req.Role),
		Nickname:  req.Nickname,
		Signature: req.Signature,
	})
	if err != nil {
		if errors.Is(err, service.ErrLoginTaken) {
			http.Error(w, "username already registered", http.StatusConflict)
			return
		}
		writeServiceError(w, h.Logger, "CreateUser", err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	_ = json.NewEncoder(w).Encode(toUserDTO(user))
}

// List возвращает пользователей. Только администратор.
func (h *UserHandler) List(w http.ResponseWriter, r *http.Request) {
	p := principalFromRequest(r, h.UserService)
	if p == nil {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	if !p.IsAdmin() {
		http.Error(w, "not authorized", http.StatusForbidden)
		return
	}

	offset, _ := strconv.Atoi(r.URL.Query().Get("skip"))
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	users, err := h.UserService.List(r.Context(), offset, limit)
	if err != nil {
		writeServiceError(w, h.Logger, "ListUsers", err)
		return
	}

	out := make([]UserDTO, 0, len(users))
	for i := range users {
		out = append(out, toUserDTO(&users[i]))
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(out)
}

// Get возвращает пользователя по id: себя — любой, чужого — администратор.
func (h *UserHandler) Get(w http.ResponseWriter, r *http.Request) {
	p := principalFromRequest(r, h.UserService)
	if p == nil {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return
	}
	if !p.IsAdmin() && p.ID != id {
		http.Error(w, "not authorized", http.StatusForbidden)
		return
	}

	user, err := h.UserService.GetByID(r.Context(), id)
	if err != nil {
		writeServiceError(w, h.Logger, "GetUser", err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(toUserDTO(user))
}

type updateUserRequest struct {
	Nickname  *string `json:"nickname,omitempty"`
	Signature *string `json:"signature,omitempty"`
	AvatarURL *string `json:"avatar_url,omitempty"`
	Password  *string `json:"password,omitempty"`
}

// Update изменяет профиль: свой — любой, чужой — администратор.
func (h *UserHandler) Update(w http.ResponseWriter, r *http.Request) {
	p := principalFromRequest(r, h.UserService)
	if p == nil {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return
	}
	if !p.IsAdmin() && p.ID != id {
		http.Error(w, "not authorized", http.StatusForbidden)
		return
	}

	var req updateUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request", http.StatusBadRequest)
		return
	}

	user, err := h.UserService.Update(r.Context(), id, service.UpdateInput{
		Nickname:  req.Nickname,
		Signature: req.Signature,
		AvatarURL: req.AvatarURL,
		Password:  req.Password,
	})
	if err != nil {
		writeServiceError(w, h.Logger, "UpdateUser", err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(toUserDTO(user))
}

// Delete удаляет пользователя. Только администратор.
func (h *UserHandler) Delete(w http.ResponseWriter, r *http.Request) {
	p := principalFromRequest(r, h.UserService)
	if p == nil {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	if !p.IsAdmin() {
		http.Error(w, "not authorized", http.StatusForbidden)
		return
	}
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return
	}

	if err := h.UserService.Delete(r.Context(), id); err != nil {
		writeServiceError(w, h.Logger, "DeleteUser", err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{"message": "User deleted"})
}

// UploadAvatar принимает изображение и обновляет avatar_url пользователя.
func (h *UserHandler) UploadAvatar(w http.ResponseWriter, r *http.Request) {
	p := principalFromRequest(r, h.UserService)
	if p == nil {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, 10<<20)
	if err := r.ParseMultipartForm(10 << 20); err != nil {
		h.Logger.Warnw("UploadAvatar: invalid multipart form", "error", err)
		http.Error(w, "invalid multipart form", http.StatusBadRequest)
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		http.Error(w, "missing file", http.StatusBadRequest)
		return
	}
	defer file.Close()

	if !strings.HasPrefix(header.Header.Get("Content-Type"), "image/") {
		http.Error(w, "file must be an image", http.StatusBadRequest)
		return
	}

	avatarDir := filepath.Join(h.Config.UploadDir, "avatars")
	if err := os.MkdirAll(avatarDir, 0o755); err != nil {
		writeServiceError(w, h.Logger, "UploadAvatar", err)
		return
	}

	name := uuid.NewString() + filepath.Ext(header.Filename)
	dst, err := os.Create(filepath.Join(avatarDir, name))
	if err != nil {
		writeServiceError(w, h.Logger, "UploadAvatar", err)
		return
	}
	defer dst.Close()
	if _, err := dst.ReadFrom(file); err != nil {
		writeServiceError(w, h.Logger, "UploadAvatar", err)
		return
	}

	avatarURL := h.Config.ServerURL + "/uploads/avatars/" + name
	if _, err := h.UserService.Update(r.Context(), p.ID, service.UpdateInput{AvatarURL: &avatarURL}); err != nil {
		writeServiceError(w, h.Logger, "UploadAvatar", err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{"avatar_url": avatarURL})
}
