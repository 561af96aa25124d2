// Package middlewarectx содержит HTTP middleware: проверку токена сессии
// и ограничение частоты запросов.
//
// Auth проверяет JWT в заголовке Authorization и кладёт идентификатор
// пользователя в контекст запроса. Обработчики получают его через UserID.
package middlewarectx

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/duelchat/internal/http/response"
	"github.com/magabrotheeeer/duelchat/internal/lib/jwt"
	"github.com/magabrotheeeer/duelchat/internal/lib/sl"
)

// Key тип для ключей контекста HTTP-запроса.
type Key string

const (
	// User — ключ идентификатора пользователя в контексте.
	User Key = "user_id"
	// Email — ключ email пользователя в контексте.
	Email Key = "email"
)

// TokenVerifier проверяет токен сессии.
type TokenVerifier interface {
	Verify(token string) (*jwt.Claims, error)
}

// Auth возвращает middleware, который пропускает только запросы с валидным токеном.
func Auth(verifier TokenVerifier, log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			const op = "middlewarectx.Auth"
			log := log.With(
				slog.String("op", op),
				slog.String("request_id", middleware.GetReqID(r.Context())),
			)

			authHeader := r.Header.Get("Authorization")
			if !strings.HasPrefix(authHeader, "Bearer ") {
				log.Debug("missing or invalid authorization header")
				render.Status(r, http.StatusUnauthorized)
				render.JSON(w, r, response.Error(response.CodeUnauthorized, "missing or invalid authorization header"))
				return
			}

			claims, err := verifier.Verify(strings.TrimPrefix(authHeader, "Bearer "))
			if err != nil {
				log.Info("invalid or expired token", sl.Err(err))
				render.Status(r, http.StatusUnauthorized)
				render.JSON(w, r, response.Error(response.CodeUnauthorized, "invalid or expired token"))
				return
			}

			ctx := context.WithValue(r.Context(), User, claims.Subject)
			ctx = context.WithValue(ctx, Email, claims.Email)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// UserID достаёт идентификатор пользователя, положенный Auth.
func UserID(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(User).(string)
	return id, ok && id != ""
}
