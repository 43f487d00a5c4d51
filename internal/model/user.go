package model

import "time"

// Role — закрытый набор ролей. Любая новая роль должна быть явно
// добавлена сюда и в таблицу решений пакета service (access).
type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// ParseRole нормализует строку роли; неизвестные значения считаются user.
func ParseRole(s string) Role {
	if Role(s) == RoleAdmin {
		return RoleAdmin
	}
	return RoleUser
}

// User — учётная запись сервиса.
type User struct {
	ID           int64  `gorm:"primaryKey"`
	Username     string `gorm:"uniqueIndex;not null"`
	PasswordHash string `gorm:"not null"`
	Role         Role   `gorm:"type:varchar(16);not null;default:user"`

	Nickname  string
	Signature string
	AvatarURL string

	// Связи: удаление пользователя каскадно удаляет его записи каталога.
	Files []File `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// IsAdmin — true для административной роли.
func (u *User) IsAdmin() bool { return u.Role == RoleAdmin }
