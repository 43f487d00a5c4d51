package service

import "neoshare/internal/model"

// Principal — аутентифицированный актор запроса. nil означает анонима.
type Principal struct {
	ID   int64
	Role model.Role
}

// NewPrincipal строит принципала из учётной записи.
func NewPrincipal(u *model.User) *Principal {
	return &Principal{ID: u.ID, Role: u.Role}
}

// IsAdmin — true для административной роли.
func (p *Principal) IsAdmin() bool {
	return p != nil && p.Role == model.RoleAdmin
}

// CanRead решает, можно ли принципалу читать запись каталога.
// Публичные записи читаются всеми, включая анонимов; приватные —
// владельцем либо администратором.
func CanRead(p *Principal, f *model.File) bool {
	if f.IsPublic {
		return true
	}
	if p == nil {
		return false
	}
	return p.ID == f.UserID || p.Role == model.RoleAdmin
}

// CanWrite решает, можно ли принципалу изменять запись каталога.
// Публичность сама по себе права записи не даёт; аноним — всегда отказ.
func CanWrite(p *Principal, f *model.File) bool {
	if p == nil {
		return false
	}
	return p.ID == f.UserID || p.Role == model.RoleAdmin
}
