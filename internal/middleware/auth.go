// Package middleware содержит HTTP middleware сервиса оценки заказов.
package middleware

import (
	"context"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/mmeshcher/ecobazaar-estimator/internal/model"
)

type contextKey string

const sessionKey contextKey = "session"

const (
	sessionCookieName = "eco_session"
	sessionCookieTTL  = 24 * time.Hour
)

// AuthMiddleware проверяет подписанный cookie сессии, в котором хранятся
// идентификатор пользователя и токен бэкенда.
type AuthMiddleware struct {
	secretKey []byte
}

// NewAuthMiddleware создаёт новый экземпляр AuthMiddleware с указанным секретным ключом.
// Без ключа генерируется случайный, и сессии не переживают перезапуск.
func NewAuthMiddleware(secret string) *AuthMiddleware {
	key := []byte(secret)
	if len(key) == 0 {
		randomKey := make([]byte, 32)
		if _, err := rand.Read(randomKey); err == nil {
			key = randomKey
		} else {
			key = []byte("default-secret-key")
		}
	}

	return &AuthMiddleware{
		secretKey: key,
	}
}

// Middleware проверяет cookie сессии и добавляет сессию в контекст запроса.
func (a *AuthMiddleware) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cookie, err := r.Cookie(sessionCookieName)
		if err != nil {
			http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
			return
		}

		sess, ok := a.parseCookie(cookie.Value)
		if !ok {
			http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
			return
		}

		ctx := context.WithValue(r.Context(), sessionKey, sess)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// SetSessionCookie устанавливает cookie сессии.
func (a *AuthMiddleware) SetSessionCookie(w http.ResponseWriter, s model.Session) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    a.sign(s),
		Path:     "/",
		Expires:  time.Now().Add(sessionCookieTTL),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

// ClearSessionCookie удаляет cookie сессии.
func (a *AuthMiddleware) ClearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

func (a *AuthMiddleware) sign(s model.Session) string {
	payload := base64.RawURLEncoding.EncodeToString([]byte(strconv.FormatInt(s.UserID, 10) + ":" + s.Token))
	return payload + "." + a.signature(payload)
}

func (a *AuthMiddleware) signature(payload string) string {
	mac := hmac.New(sha256.New, a.secretKey)
	mac.Write([]byte(payload))
	return hex.EncodeToString(mac.Sum(nil))
}

func (a *AuthMiddleware) parseCookie(value string) (model.Session, bool) {
	i := strings.LastIndexByte(value, '.')
	if i <= 0 {
		return model.Session{}, false
	}

	payload, signature := value[:i], value[i+1:]
	if !hmac.Equal([]byte(signature), []byte(a.signature(payload))) {
		return model.Session{}, false
	}

	raw, err := base64.RawURLEncoding.DecodeString(payload)
	if err != nil {
		return model.Session{}, false
	}

	idStr, token, ok := strings.Cut(string(raw), ":")
	if !ok {
		return model.Session{}, false
	}

	id, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil {
		return model.Session{}, false
	}

	sess := model.Session{UserID: id, Token: token}
	if !sess.Authenticated() {
		return model.Session{}, false
	}

	return sess, true
}

// SessionFromContext извлекает сессию пользователя из контекста запроса.
func SessionFromContext(ctx context.Context) (model.Session, bool) {
	s, ok := ctx.Value(sessionKey).(model.Session)
	return s, ok
}
