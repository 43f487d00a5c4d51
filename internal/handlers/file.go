package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"neoshare/internal/config"
	"neoshare/internal/service"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// FileHandler обрабатывает файловые операции: загрузку, листинги,
// скачивание, текстовое содержимое, удаление.
type FileHandler struct {
	FileService *service.FileService
	UserService *service.UserService
	Logger      *zap.SugaredLogger
	Config      *config.Config
}

// NewFileHandler создаёт хендлер файлов
func NewFileHandler(fileService *service.FileService, userService *service.UserService, logger *zap.SugaredLogger, cfg *config.Config) *FileHandler {
	return &FileHandler{FileService: fileService, UserService: userService, Logger: logger, Config: cfg}
}

func (h *FileHandler) principal(r *http.Request) *service.Principal {
	return principalFromRequest(r, h.UserService)
}

func (h *FileHandler) fileID(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	return id, err == nil
}

// Upload принимает multipart-форму: file, path (каталог назначения),
// is_public ("true"/"false"). Загрузка требует аутентификации,
// и для public, и для private.
func (h *FileHandler) Upload(w http.ResponseWriter, r *http.Request) {
	p := h.principal(r)
	if p == nil {
		http.Error(w, "authentication required for upload", http.StatusUnauthorized)
		return
	}

	maxBody := int64(h.Config.UploadMaxMB)*1024*1024 + 1*1024*1024
	r.Body = http.MaxBytesReader(w, r.Body, maxBody)

	if err := r.ParseMultipartForm(10 << 20); err != nil {
		h.Logger.Warnw("Upload: invalid multipart form", "error", err)
		http.Error(w, "invalid multipart form", http.StatusBadRequest)
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		h.Logger.Warnw("Upload: missing file", "error", err)
		http.Error(w, "missing file", http.StatusBadRequest)
		return
	}
	defer file.Close()

	created, err := h.FileService.Upload(r.Context(), p, service.UploadInput{
		Public:   r.FormValue("is_public") == "true",
		Dir:      r.FormValue("path"),
		Name:     header.Filename,
		MimeType: header.Header.Get("Content-Type"),
		Content:  file,
	})
	if err != nil {
		writeServiceError(w, h.Logger, "Upload", err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	_ = json.NewEncoder(w).Encode(toFileDTO(created))
}

type createDirectoryRequest struct {
	Name     string `json:"name"`
	Path     string `json:"path"`
	IsPublic bool   `json:"is_public"`
}

// CreateDirectory создаёт каталог; существующий физический — не ошибка.
func (h *FileHandler) CreateDirectory(w http.ResponseWriter, r *http.Request) {
	p := h.principal(r)
	if p == nil {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	var req createDirectoryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request", http.StatusBadRequest)
		return
	}

	dir, err := h.FileService.MakeDirectory(r.Context(), p, req.IsPublic, req.Path, req.Name)
	if err != nil {
		writeServiceError(w, h.Logger, "CreateDirectory", err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	_ = json.NewEncoder(w).Encode(toFileDTO(dir))
}

// ListPublic — сверенный листинг общей области; доступен анонимам.
// Параметр search переключает на поиск по подстроке имени.
func (h *FileHandler) ListPublic(w http.ResponseWriter, r *http.Request) {
	h.list(w, r, true)
}

// ListPrivate — сверенный листинг личной области; требует аутентификации.
func (h *FileHandler) ListPrivate(w http.ResponseWriter, r *http.Request) {
	h.list(w, r, false)
}

func (h *FileHandler) list(w http.ResponseWriter, r *http.Request, public bool) {
	p := h.principal(r)
	if !public && p == nil {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	if search := r.URL.Query().Get("search"); search != "" {
		files, err := h.FileService.Search(r.Context(), p, public, search)
		if err != nil {
			writeServiceError(w, h.Logger, "Search", err)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(toFileDTOs(files))
		return
	}

	dir := r.URL.Query().Get("path")
	if dir == "" {
		dir = "/"
	}

	files, err := h.FileService.List(r.Context(), p, public, dir)
	if err != nil {
		writeServiceError(w, h.Logger, "List", err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(toFileDTOs(files))
}

// Download отдаёт физический файл записи каталога.
func (h *FileHandler) Download(w http.ResponseWriter, r *http.Request) {
	id, ok := h.fileID(r)
	if !ok {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return
	}

	f, phys, err := h.FileService.Download(r.Context(), h.principal(r), id)
	if err != nil {
		writeServiceError(w, h.Logger, "Download", err)
		return
	}

	w.Header().Set("Content-Disposition", `attachment; filename="`+f.Name+`"`)
	if f.MimeType != "" {
		w.Header().Set("Content-Type", f.MimeType)
	}
	http.ServeFile(w, r, phys)
}

type contentResponse struct {
	Content  string `json:"content"`
	MimeType string `json:"mime_type,omitempty"`
}

// Content возвращает текстовое содержимое файла для редактирования.
func (h *FileHandler) Content(w http.ResponseWriter, r *http.Request) {
	id, ok := h.fileID(r)
	if !ok {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return
	}

	content, f, err := h.FileService.ReadContent(r.Context(), h.principal(r), id)
	if err != nil {
		writeServiceError(w, h.Logger, "Content", err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(contentResponse{Content: content, MimeType: f.MimeType})
}

type updateContentRequest struct {
	Content string `json:"content"`
}

// UpdateContent перезаписывает текстовое содержимое файла.
func (h *FileHandler) UpdateContent(w http.ResponseWriter, r *http.Request) {
	p := h.principal(r)
	if p == nil {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	id, ok := h.fileID(r)
	if !ok {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return
	}

	var req updateContentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request", http.StatusBadRequest)
		return
	}

	if _, err := h.FileService.WriteContent(r.Context(), p, id, req.Content); err != nil {
		writeServiceError(w, h.Logger, "UpdateContent", err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{"message": "File updated"})
}

// Delete удаляет файл или каталог.
func (h *FileHandler) Delete(w http.ResponseWriter, r *http.Request) {
	p := h.principal(r)
	if p == nil {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	id, ok := h.fileID(r)
	if !ok {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return
	}

	if err := h.FileService.Delete(r.Context(), p, id); err != nil {
		writeServiceError(w, h.Logger, "Delete", err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{"message": "File deleted"})
}
