package middleware

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// CookieName — имя cookie с токеном авторизации.
const CookieName = "auth_token"

// tokenExp — срок жизни токена.
const tokenExp = 300 * time.Minute

type contextKey string

const userIDKey contextKey = "user_id"

// claims — полезная нагрузка JWT.
type claims struct {
	jwt.RegisteredClaims
	UserID int64 `json:"user_id"`
}

// NewToken выпускает подписанный JWT для пользователя.
func NewToken(userID int64, secret string) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(tokenExp)),
		},
		UserID: userID,
	})
	return token.SignedString([]byte(secret))
}

// SetLoginCookie ставит cookie с токеном авторизации.
func SetLoginCookie(w http.ResponseWriter, userID int64, secret string) error {
	token, err := NewToken(userID, secret)
	if err != nil {
		return err
	}
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		MaxAge:   int(tokenExp.Seconds()),
	})
	return nil
}

// parseToken валидирует токен и возвращает user_id.
func parseToken(tokenString, secret string) (int64, error) {
	c := &claims{}
	token, err := jwt.ParseWithClaims(tokenString, c, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(secret), nil
	})
	if err != nil {
		return 0, err
	}
	if !token.Valid {
		return 0, fmt.Errorf("invalid token")
	}
	return c.UserID, nil
}

// WithAuth извлекает принципала из заголовка Authorization: Bearer либо
// из cookie. Принципал ОПЦИОНАЛЕН: запрос без токена или с невалидным
// токеном проходит дальше анонимом, требования к авторизации
// предъявляют хендлеры.
func WithAuth(secret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var tokenString string

			if h := r.Header.Get("Authorization"); strings.HasPrefix(h, "Bearer ") {
				tokenString = strings.TrimPrefix(h, "Bearer ")
			} else if c, err := r.Cookie(CookieName); err == nil {
				tokenString = c.Value
			}

			if tokenString != "" {
				if userID, err := parseToken(tokenString, secret); err == nil {
					r = r.WithContext(context.WithValue(r.Context(), userIDKey, userID))
				}
			}

			next.ServeHTTP(w, r)
		})
	}
}

// GetUserIDFromContext возвращает user_id принципала, если он установлен.
func GetUserIDFromContext(ctx context.Context) (int64, bool) {
	id, ok := ctx.Value(userIDKey).(int64)
	return id, ok
}
