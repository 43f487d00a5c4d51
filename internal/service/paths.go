package service

import (
	"path/filepath"
	"strconv"
	"strings"
)

// Scope — область видимости хранилища: общая (public) либо личная
// область владельца. Определяет физический корень и фильтры каталога.
type Scope struct {
	Public  bool
	OwnerID int64
}

// PathResolver отображает логическую тройку (область, владелец, путь)
// в физический путь под корнем хранилища. Никаких побочных эффектов:
// чистая функция от входов.
type PathResolver struct {
	root string
}

// NewPathResolver создаёт резолвер с корнем физического хранилища.
func NewPathResolver(root string) *PathResolver {
	return &PathResolver{root: root}
}

// Root возвращает корень хранилища.
func (p *PathResolver) Root() string { return p.root }

// AvatarDir — каталог аватаров (вне областей видимости файлов).
func (p *PathResolver) AvatarDir() string {
	return filepath.Join(p.root, "avatars")
}

// ScopeRoot возвращает физический корень области: общий для public,
// по id владельца — для private.
func (p *PathResolver) ScopeRoot(s Scope) string {
	if s.Public {
		return filepath.Join(p.root, "public")
	}
	return filepath.Join(p.root, strconv.FormatInt(s.OwnerID, 10))
}

// Resolve возвращает физический путь логического каталога.
// Логический путь предварительно санитизируется: единственная защита
// от выхода за пределы корня области.
func (p *PathResolver) Resolve(s Scope, logical string) string {
	rel := SanitizeRelative(logical)
	if rel == "" {
		return p.ScopeRoot(s)
	}
	return filepath.Join(p.ScopeRoot(s), filepath.FromSlash(rel))
}

// splitSegments разбивает логический путь на сегменты, детерминированно
// выбрасывая пустые, "." и ".." — сегмент "..", в отличие от очистки
// путём подъёма, просто удаляется.
func splitSegments(raw string) []string {
	parts := strings.Split(strings.TrimSpace(raw), "/")
	out := make([]string, 0, len(parts))
	for _, seg := range parts {
		if seg == "" || seg == "." || seg == ".." {
			continue
		}
		out = append(out, seg)
	}
	return out
}

// SanitizeRelative приводит логический путь к относительному виду
// без ведущих/замыкающих слэшей и без ".." сегментов. Пустая строка
// означает корень области.
func SanitizeRelative(raw string) string {
	return strings.Join(splitSegments(raw), "/")
}

// NormalizePath приводит логический путь к каноническому абсолютному
// виду: "/", "/docs", "/docs/reports".
func NormalizePath(raw string) string {
	return "/" + SanitizeRelative(raw)
}

// JoinLogical присоединяет имя к логическому пути каталога.
func JoinLogical(dir, name string) string {
	dir = NormalizePath(dir)
	if dir == "/" {
		return "/" + name
	}
	return dir + "/" + name
}
