// Package storage — доступ к физическому дереву файлов.
// Пакет ничего не знает о каталоге метаданных: только диск.
package storage

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"
)

// ErrNotText возвращается ReadText, когда содержимое не является валидным текстом.
var ErrNotText = errors.New("content is not valid text")

// Entry — непосредственный элемент каталога.
type Entry struct {
	Name  string
	IsDir bool
}

// Tree — контракт доступа к физическому дереву для слоя сервиса.
// Все пути — абсолютные физические пути, построенные резолвером.
type Tree interface {
	// Exists сообщает, существует ли путь.
	Exists(path string) bool

	// ListDir возвращает непосредственных детей каталога (без рекурсии).
	ListDir(path string) ([]Entry, error)

	// ByteSize возвращает размер обычного файла в байтах.
	ByteSize(path string) (int64, error)

	// RecursiveByteSize — рекурсивная сумма размеров файлов-потомков.
	// Скрытые элементы и симлинки не учитываются, нечитаемые —
	// пропускаются; глубина спуска ограничена maxDepth.
	RecursiveByteSize(path string, maxDepth int) int64

	// MkdirAll создаёт каталог вместе с родителями; существующий — не ошибка.
	MkdirAll(path string) error

	// ReadText читает файл как UTF-8 текст; не текст — ErrNotText.
	ReadText(path string) (string, error)

	// WriteText перезаписывает файл текстовым содержимым.
	WriteText(path string, content string) error

	// Save записывает поток в файл и возвращает итоговый размер.
	Save(path string, src io.Reader) (int64, error)

	// Remove удаляет файл; отсутствие — не ошибка.
	Remove(path string) error

	// RemoveTree удаляет каталог со всем содержимым; отсутствие — не ошибка.
	RemoveTree(path string) error
}

// Disk — реализация Tree поверх локальной файловой системы.
type Disk struct{}

// NewDisk создаёт дисковую реализацию Tree.
func NewDisk() Tree {
	return &Disk{}
}

func (d *Disk) Exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func (d *Disk) ListDir(path string) ([]Entry, error) {
	items, err := os.ReadDir(path)
	if err != nil {
		return nil, fmt.Errorf("list dir: %w", err)
	}
	entries := make([]Entry, 0, len(items))
	for _, it := range items {
		entries = append(entries, Entry{Name: it.Name(), IsDir: it.IsDir()})
	}
	return entries, nil
}

func (d *Disk) ByteSize(path string) (int64, error) {
	info, err := os.Stat(path)
	if err != nil {
		return 0, fmt.Errorf("stat: %w", err)
	}
	return info.Size(), nil
}

func (d *Disk) RecursiveByteSize(path string, maxDepth int) int64 {
	return dirSize(path, maxDepth)
}

// dirSize обходит каталог вглубь до depth уровней.
// Симлинки не разворачиваются — защита от циклов.
func dirSize(path string, depth int) int64 {
	if depth < 0 {
		return 0
	}
	items, err := os.ReadDir(path)
	if err != nil {
		return 0
	}
	var total int64
	for _, it := range items {
		if strings.HasPrefix(it.Name(), ".") {
			continue
		}
		child := filepath.Join(path, it.Name())
		if it.Type()&os.ModeSymlink != 0 {
			continue
		}
		if it.IsDir() {
			total += dirSize(child, depth-1)
			continue
		}
		info, err := it.Info()
		if err != nil {
			continue
		}
		total += info.Size()
	}
	return total
}

func (d *Disk) MkdirAll(path string) error {
	return os.MkdirAll(path, 0o755)
}

func (d *Disk) ReadText(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	if !utf8.Valid(data) {
		return "", ErrNotText
	}
	return string(data), nil
}

func (d *Disk) WriteText(path string, content string) error {
	return os.WriteFile(path, []byte(content), 0o644)
}

func (d *Disk) Save(path string, src io.Reader) (int64, error) {
	dst, err := os.Create(path)
	if err != nil {
		return 0, fmt.Errorf("create: %w", err)
	}
	defer dst.Close()

	n, err := io.Copy(dst, src)
	if err != nil {
		return n, fmt.Errorf("write: %w", err)
	}
	return n, nil
}

func (d *Disk) Remove(path string) error {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

func (d *Disk) RemoveTree(path string) error {
	return os.RemoveAll(path)
}
