// Package usage ведёт месячные и суточные счётчики сообщений пользователя.
package usage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/magabrotheeeer/duelchat/internal/lib/period"
	"github.com/magabrotheeeer/duelchat/internal/lib/sl"
	"github.com/magabrotheeeer/duelchat/internal/metrics"
	"github.com/magabrotheeeer/duelchat/internal/models"
)

// LedgerRepository хранит ledger'ы.
type LedgerRepository interface {
	// LockLedger возвращает ledger периода, создавая его, и блокирует до конца транзакции.
	LockLedger(ctx context.Context, userID, periodKey, dayKey string) (*models.UsageLedger, error)
	GetLedger(ctx context.Context, userID, periodKey string) (*models.UsageLedger, error)
	SaveLedger(ctx context.Context, l *models.UsageLedger) error
}

// PlanResolver отдаёт тариф, действующий для текущего запроса.
type PlanResolver interface {
	EffectivePlan(ctx context.Context, userID string) (models.EffectivePlan, error)
}

// Service резервирует квоту и строит снимок остатков.
type Service struct {
	repo  LedgerRepository
	plans PlanResolver
	log   *slog.Logger
	now   func() time.Time
}

// New создаёт Service.
func New(repo LedgerRepository, plans PlanResolver, log *slog.Logger) *Service {
	return &Service{
		repo:  repo,
		plans: plans,
		log:   log,
		now:   time.Now,
	}
}

// Reserve списывает одно сообщение (и одно verified для режима verified).
// Вызывается внутри транзакции вызывающего: при ошибке дальше по цепочке
// списание откатывается вместе со всем остальным.
func (s *Service) Reserve(ctx context.Context, userID string, mode models.Mode) error {
	const op = "usage.Reserve"
	if !mode.Valid() {
		return fmt.Errorf("%s: mode %q: %w", op, mode, models.ErrInvalidInput)
	}

	plan, err := s.plans.EffectivePlan(ctx, userID)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	monthKey, dayKey := period.Keys(s.now())
	ledger, err := s.repo.LockLedger(ctx, userID, monthKey, dayKey)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	ledger.Rollover(dayKey)

	if err := ledger.Charge(plan.Plan.Limits(), mode); err != nil {
		metrics.QuotaRejections.WithLabelValues(rejectionReason(err)).Inc()
		s.log.Info("quota exhausted",
			slog.String("op", op),
			sl.UserID(userID),
			slog.String("plan", string(plan.Plan)),
			slog.String("reason", rejectionReason(err)),
		)
		return fmt.Errorf("%s: %w", op, err)
	}

	if err := s.repo.SaveLedger(ctx, ledger); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// Snapshot возвращает остатки без изменения ledger. Ledger прошлых суток
// проецируется как обнулённый, отсутствующий ledger как пустой.
func (s *Service) Snapshot(ctx context.Context, userID string) (models.QuotaSnapshot, error) {
	const op = "usage.Snapshot"

	plan, err := s.plans.EffectivePlan(ctx, userID)
	if err != nil {
		return models.QuotaSnapshot{}, fmt.Errorf("%s: %w", op, err)
	}

	monthKey, dayKey := period.Keys(s.now())
	ledger, err := s.repo.GetLedger(ctx, userID, monthKey)
	switch {
	case errors.Is(err, models.ErrNotFound):
		ledger = &models.UsageLedger{UserID: userID, PeriodKey: monthKey, VerifiedDayKey: dayKey}
	case err != nil:
		return models.QuotaSnapshot{}, fmt.Errorf("%s: %w", op, err)
	}

	snap := ledger.Snapshot(plan.Plan.Limits(), dayKey)
	snap.Plan = plan.Plan
	snap.SubscriptionStatus = plan.Status
	return snap, nil
}

func rejectionReason(err error) string {
	switch {
	case errors.Is(err, models.ErrVerifiedDailyLimit):
		return "verified_daily_limit"
	case errors.Is(err, models.ErrVerifiedQuotaExceeded):
		return "verified_quota_exceeded"
	default:
		return "quota_exceeded"
	}
}
