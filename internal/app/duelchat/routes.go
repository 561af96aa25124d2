package duelchat

import (
	"log/slog"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger"

	"github.com/magabrotheeeer/duelchat/internal/config"
	"github.com/magabrotheeeer/duelchat/internal/http/handlers/billing/order"
	"github.com/magabrotheeeer/duelchat/internal/http/handlers/billing/verify"
	"github.com/magabrotheeeer/duelchat/internal/http/handlers/chat/send"
	"github.com/magabrotheeeer/duelchat/internal/http/handlers/chat/vote"
	"github.com/magabrotheeeer/duelchat/internal/http/handlers/health"
	"github.com/magabrotheeeer/duelchat/internal/http/handlers/quota"
	"github.com/magabrotheeeer/duelchat/internal/http/handlers/threads/create"
	"github.com/magabrotheeeer/duelchat/internal/http/handlers/threads/list"
	"github.com/magabrotheeeer/duelchat/internal/http/handlers/threads/messages"
	"github.com/magabrotheeeer/duelchat/internal/http/handlers/threads/remove"
	"github.com/magabrotheeeer/duelchat/internal/http/middlewarectx"
)

// ChatService объединяет сервисы тредов, реплик и голосов.
type ChatService interface {
	send.Service
	vote.Service
	create.Service
	list.Service
	messages.Service
	remove.Service
}

// BillingService — заказы и подтверждение оплаты.
type BillingService interface {
	order.Service
	verify.Service
}

// Deps собирает зависимости маршрутов.
type Deps struct {
	Health   health.Pinger
	Verifier middlewarectx.TokenVerifier
	Limiter  middlewarectx.Limiter
	Chat     ChatService
	Usage    quota.Service
	Billing  BillingService
	RateCfg  config.RateLimit
}

// RegisterRoutes регистрирует все маршруты приложения.
func RegisterRoutes(r chi.Router, logger *slog.Logger, d Deps) {
	r.Use(
		middleware.RequestID,
		middleware.Logger,
		middleware.Recoverer,
		middlewarectx.GlobalLimit(d.RateCfg.GlobalRPS, d.RateCfg.GlobalBurst, logger),
	)

	r.Get("/health", health.New(logger, d.Health).ServeHTTP)
	r.Handle("/metrics", promhttp.Handler())
	r.Get("/docs/*", httpSwagger.WrapHandler)

	r.Route("/api", func(r chi.Router) {
		r.Use(middlewarectx.Auth(d.Verifier, logger))

		r.Get("/threads", list.New(logger, d.Chat).ServeHTTP)
		r.Post("/threads", create.New(logger, d.Chat).ServeHTTP)
		r.Get("/threads/{id}/messages", messages.New(logger, d.Chat).ServeHTTP)
		r.Delete("/threads/{id}", remove.New(logger, d.Chat).ServeHTTP)
		r.Get("/quota", quota.New(logger, d.Usage).ServeHTTP)

		// Дорогие операции идут через лимитер пользователя.
		r.Group(func(r chi.Router) {
			r.Use(middlewarectx.RateLimit(d.Limiter, logger))
			r.Post("/chat", send.New(logger, d.Chat).ServeHTTP)
			r.Post("/vote", vote.New(logger, d.Chat).ServeHTTP)
			r.Post("/billing/order", order.New(logger, d.Billing).ServeHTTP)
			r.Post("/billing/verify", verify.New(logger, d.Billing).ServeHTTP)
		})
	})
}
