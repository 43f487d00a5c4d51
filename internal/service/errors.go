package service

import (
	"errors"

	"neoshare/internal/storage"
)

// Ошибки сервисного слоя. Хендлеры отображают их в HTTP-коды,
// сами сервисы ничего не знают про HTTP.
var (
	// ErrNotFound — запись каталога отсутствует, либо каталог её знает,
	// а физического файла нет (второй случай дополнительно логируется).
	ErrNotFound = errors.New("not found")

	// ErrForbidden — отказ шлюза доступа.
	ErrForbidden = errors.New("forbidden")

	// ErrNotText — содержимое файла нельзя прочитать как текст.
	ErrNotText = storage.ErrNotText

	// ErrInvalidName — недопустимое имя файла или каталога.
	ErrInvalidName = errors.New("invalid name")

	// ErrNotFile — операция применима только к обычному файлу,
	// а запись каталога описывает каталог.
	ErrNotFile = errors.New("not a regular file")

	// ErrLoginTaken — логин уже занят.
	ErrLoginTaken = errors.New("login already taken")

	// ErrInvalidCredentials — неверная пара логин/пароль.
	ErrInvalidCredentials = errors.New("invalid credentials")
)
