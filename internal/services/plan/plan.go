// Package plan определяет тариф, действующий для пользователя прямо сейчас.
package plan

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/magabrotheeeer/duelchat/internal/models"
)

// SubscriptionFinder ищет активную подписку, покрывающую момент now.
type SubscriptionFinder interface {
	FindActiveSubscription(ctx context.Context, userID string, now time.Time) (*models.Subscription, error)
}

// Resolver вычисляет тариф заново на каждый запрос, без кеширования.
type Resolver struct {
	repo SubscriptionFinder
	now  func() time.Time
}

// New создаёт Resolver.
func New(repo SubscriptionFinder) *Resolver {
	return &Resolver{repo: repo, now: time.Now}
}

// EffectivePlan возвращает тариф активной подписки или тариф по умолчанию со статусом inactive.
func (r *Resolver) EffectivePlan(ctx context.Context, userID string) (models.EffectivePlan, error) {
	const op = "plan.EffectivePlan"

	sub, err := r.repo.FindActiveSubscription(ctx, userID, r.now().UTC())
	switch {
	case errors.Is(err, models.ErrNotFound):
		return models.EffectivePlan{Plan: models.DefaultPlan, Status: models.SubscriptionInactive}, nil
	case err != nil:
		return models.EffectivePlan{}, fmt.Errorf("%s: %w", op, err)
	}
	return models.EffectivePlan{Plan: sub.Plan, Status: models.SubscriptionActive}, nil
}
