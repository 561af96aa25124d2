// Package duelchat собирает зависимости сервиса и запускает HTTP-сервер.
package duelchat

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi"
	"github.com/redis/go-redis/v9"
	"github.com/streadway/amqp"

	"github.com/magabrotheeeer/duelchat/internal/config"
	"github.com/magabrotheeeer/duelchat/internal/generator"
	"github.com/magabrotheeeer/duelchat/internal/lib/jwt"
	"github.com/magabrotheeeer/duelchat/internal/lib/rabbitmq"
	"github.com/magabrotheeeer/duelchat/internal/lib/sl"
	"github.com/magabrotheeeer/duelchat/internal/migrations"
	"github.com/magabrotheeeer/duelchat/internal/paymentprovider"
	"github.com/magabrotheeeer/duelchat/internal/ratelimit"
	"github.com/magabrotheeeer/duelchat/internal/services/billing"
	"github.com/magabrotheeeer/duelchat/internal/services/chat"
	"github.com/magabrotheeeer/duelchat/internal/services/plan"
	"github.com/magabrotheeeer/duelchat/internal/services/scheduler"
	"github.com/magabrotheeeer/duelchat/internal/services/usage"
	"github.com/magabrotheeeer/duelchat/internal/storage/repository"
)

const shutdownTimeout = 15 * time.Second

type App struct {
	server    *http.Server
	logger    *slog.Logger
	db        *repository.Storage
	redis     *redis.Client
	amqp      *amqp.Connection
	scheduler *scheduler.Service
}

// New подключает хранилище, применяет миграции и собирает сервисы.
// Redis и RabbitMQ необязательны: пустой адрес отключает их.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	const op = "app.duelchat.New"

	db, err := repository.New(cfg.StorageConnectionString)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if err = migrations.Run(db.DB, cfg.MigrationsPath); err != nil {
		_ = db.DB.Close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	app := &App{logger: logger, db: db}

	var rdb ratelimit.RedisClient
	if cfg.Redis.Address != "" {
		client, err := ratelimit.NewRedisClient(ctx, cfg.Redis)
		if err != nil {
			app.close()
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		app.redis = client
		rdb = client
	}
	limiter, err := ratelimit.New(cfg.RateLimit, rdb)
	if err != nil {
		app.close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	var publisher billing.RenewalPublisher
	if cfg.RabbitMQ.URL != "" {
		conn, err := rabbitmq.Connect(cfg.RabbitMQ.URL, cfg.RabbitMQ.Retries, cfg.RabbitMQ.RetryDelay)
		if err != nil {
			app.close()
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		app.amqp = conn
		ch, err := rabbitmq.SetupChannel(conn, rabbitmq.BillingQueues())
		if err != nil {
			app.close()
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		pub := rabbitmq.NewPublisher(ch, rabbitmq.BillingExchange)
		publisher = pub
		app.scheduler = scheduler.New(db, pub, cfg.Scheduler, logger)
	} else {
		logger.Info("rabbitmq url is empty, billing events are not published")
	}

	if !cfg.Billing.BillingConfigured() {
		logger.Info("billing is not configured", slog.String("mode", cfg.Billing.Mode))
	}

	plans := plan.New(db)
	usageService := usage.New(db, plans, logger)
	chatService := chat.New(db, usageService, generator.New(cfg.Providers), cfg.Providers.Timeout, logger)
	billingService := billing.New(
		db,
		paymentprovider.NewClient(cfg.Billing.APIURL, cfg.Billing.KeyID, cfg.Billing.KeySecret),
		publisher,
		cfg.Billing,
		logger,
	)

	router := chi.NewRouter()
	RegisterRoutes(router, logger, Deps{
		Health:   db,
		Verifier: jwt.NewVerifier(cfg.JWT.Secret, cfg.JWT.TokenTTL),
		Limiter:  limiter,
		Chat:     chatService,
		Usage:    usageService,
		Billing:  billingService,
		RateCfg:  cfg.RateLimit,
	})

	app.server = &http.Server{
		Addr:         cfg.HTTPServer.Address,
		Handler:      router,
		ReadTimeout:  cfg.HTTPServer.Timeout,
		WriteTimeout: cfg.HTTPServer.Timeout,
		IdleTimeout:  cfg.HTTPServer.IdleTimeout,
	}
	return app, nil
}

// Run обслуживает запросы до отмены ctx, затем корректно останавливает сервер.
func (a *App) Run(ctx context.Context) error {
	if a.scheduler != nil {
		go a.scheduler.Run(ctx)
	}

	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("HTTP server starting on", slog.String("address", a.server.Addr))
		err := a.server.ListenAndServe()
		if errors.Is(err, http.ErrServerClosed) {
			errCh <- nil
		} else {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		a.close()
		return err
	case <-ctx.Done():
		timeoutCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		a.logger.Info("shutting down HTTP server gracefully")
		err := a.server.Shutdown(timeoutCtx)
		a.close()
		return err
	}
}

func (a *App) close() {
	if a.amqp != nil {
		if err := a.amqp.Close(); err != nil {
			a.logger.Warn("failed to close rabbitmq connection", sl.Err(err))
		}
	}
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			a.logger.Warn("failed to close redis client", sl.Err(err))
		}
	}
	if err := a.db.DB.Close(); err != nil {
		a.logger.Warn("failed to close database", sl.Err(err))
	}
}
