package model

import "time"

// Kind — тип записи каталога: файл или каталог.
type Kind string

const (
	KindFile      Kind = "file"
	KindDirectory Kind = "directory"
)

// File — запись каталога. Описывает файл или каталог в одной из двух
// областей видимости: общей (public) или личной области владельца.
//
// Уникальность (path, name, видимость, владелец) НЕ закреплена индексом:
// гонки конкурентных запросов могут породить дубликаты, их лечит
// reconciliation-проход при следующем листинге.
type File struct {
	ID     int64 `gorm:"primaryKey"`
	UserID int64 `gorm:"index"` // владелец, ссылка на users.id

	Name string `gorm:"not null"`
	// Path — логический путь РОДИТЕЛЬСКОГО каталога, всегда абсолютный: "/", "/docs".
	Path     string `gorm:"index;not null"`
	Type     Kind   `gorm:"type:varchar(16);not null"`
	Size     int64  `gorm:"default:0"`
	MimeType string
	IsPublic bool `gorm:"index"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// IsDir — true для записи-каталога.
func (f *File) IsDir() bool { return f.Type == KindDirectory }
