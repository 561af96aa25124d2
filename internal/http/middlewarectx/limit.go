package middlewarectx

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"golang.org/x/time/rate"

	"github.com/magabrotheeeer/duelchat/internal/http/response"
	"github.com/magabrotheeeer/duelchat/internal/lib/sl"
	"github.com/magabrotheeeer/duelchat/internal/metrics"
)

// Limiter ограничивает частоту запросов по ключу.
type Limiter interface {
	Allow(ctx context.Context, key string) (bool, error)
}

// RateLimit ограничивает частоту запросов одного пользователя.
// Ставится после Auth. Ошибка лимитера не блокирует запрос.
func RateLimit(limiter Limiter, log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			const op = "middlewarectx.RateLimit"
			log := log.With(
				slog.String("op", op),
				slog.String("request_id", middleware.GetReqID(r.Context())),
			)

			userID, ok := UserID(r.Context())
			if !ok {
				render.Status(r, http.StatusUnauthorized)
				render.JSON(w, r, response.Error(response.CodeUnauthorized, "unauthorized"))
				return
			}

			allowed, err := limiter.Allow(r.Context(), userID)
			if err != nil {
				log.Warn("rate limiter unavailable, request allowed", sl.Err(err))
				allowed = true
			}
			if !allowed {
				metrics.RateLimited.WithLabelValues("user").Inc()
				log.Info("too many requests", sl.UserID(userID))
				render.Status(r, http.StatusTooManyRequests)
				render.JSON(w, r, response.Error(response.CodeRateLimited, "too many requests"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// GlobalLimit — общий token bucket на весь API процесса.
func GlobalLimit(rps float64, burst int, log *slog.Logger) func(http.Handler) http.Handler {
	limiter := rate.NewLimiter(rate.Limit(rps), burst)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !limiter.Allow() {
				metrics.RateLimited.WithLabelValues("global").Inc()
				log.Warn("global rate limit exceeded", slog.String("request_id", middleware.GetReqID(r.Context())))
				render.Status(r, http.StatusTooManyRequests)
				render.JSON(w, r, response.Error(response.CodeRateLimited, "too many requests"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
