// Package scheduler периодически находит подписки, период которых скоро
// закончится, и публикует по ним напоминание в брокер.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/magabrotheeeer/duelchat/internal/config"
	"github.com/magabrotheeeer/duelchat/internal/lib/rabbitmq"
	"github.com/magabrotheeeer/duelchat/internal/lib/sl"
	"github.com/magabrotheeeer/duelchat/internal/metrics"
	"github.com/magabrotheeeer/duelchat/internal/models"
)

// SubscriptionRepository выбирает подписки для напоминаний и отмечает отправленные.
type SubscriptionRepository interface {
	InTx(ctx context.Context, fn func(ctx context.Context) error) error
	ListExpiringSubscriptions(ctx context.Context, from, to time.Time, limit int) ([]*models.Subscription, error)
	MarkExpiryNotified(ctx context.Context, id string, periodEnd time.Time) (bool, error)
}

// Publisher отправляет напоминание.
type Publisher interface {
	PublishExpiring(ctx context.Context, event rabbitmq.SubscriptionExpiring) error
}

// Service рассылает напоминания об окончании оплаченного периода.
type Service struct {
	repo      SubscriptionRepository
	publisher Publisher
	log       *slog.Logger
	cfg       config.Scheduler
	now       func() time.Time
}

// New создает новый экземпляр Service.
func New(repo SubscriptionRepository, publisher Publisher, cfg config.Scheduler, log *slog.Logger) *Service {
	return &Service{
		repo:      repo,
		publisher: publisher,
		log:       log,
		cfg:       cfg,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Run выполняет проход сразу и затем раз в Interval, пока не отменён ctx.
func (s *Service) Run(ctx context.Context) {
	s.runLogged(ctx)

	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.runLogged(ctx)
		}
	}
}

func (s *Service) runLogged(ctx context.Context) {
	n, err := s.RunOnce(ctx)
	if err != nil {
		s.log.Error("expiry notice pass failed", sl.Err(err))
		return
	}
	if n > 0 {
		s.log.Info("expiry notices published", slog.Int("count", n))
	}
}

// RunOnce публикует напоминания по одной пачке подписок и возвращает их число.
// Отметка и публикация идут в одной транзакции: при ошибке брокера отметка
// откатывается и подписка попадёт в следующий проход.
func (s *Service) RunOnce(ctx context.Context) (int, error) {
	const op = "services.scheduler.RunOnce"

	now := s.now()
	subs, err := s.repo.ListExpiringSubscriptions(ctx, now, now.Add(s.cfg.NoticeWindow), s.cfg.BatchSize)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	sent := 0
	for _, sub := range subs {
		published := false
		err := s.repo.InTx(ctx, func(ctx context.Context) error {
			claimed, err := s.repo.MarkExpiryNotified(ctx, sub.ID, sub.CurrentPeriodEnd)
			if err != nil || !claimed {
				return err
			}
			if err := s.publisher.PublishExpiring(ctx, rabbitmq.SubscriptionExpiring{
				UserID:           sub.UserID,
				SubscriptionID:   sub.ID,
				Plan:             string(sub.Plan),
				CurrentPeriodEnd: sub.CurrentPeriodEnd,
			}); err != nil {
				return err
			}
			published = true
			return nil
		})
		if err != nil {
			s.log.Warn("failed to publish expiry notice",
				slog.String("op", op),
				slog.String("subscription_id", sub.ID),
				sl.UserID(sub.UserID),
				sl.Err(err),
			)
			continue
		}
		if published {
			sent++
		}
	}
	metrics.ExpiryNotices.Add(float64(sent))
	return sent, nil
}
