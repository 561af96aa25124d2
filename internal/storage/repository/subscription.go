package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/magabrotheeeer/duelchat/internal/models"
)

const subscriptionColumns = `id, user_id, plan, status, current_period_start, current_period_end`

// FindActiveSubscription возвращает активную подписку, покрывающую now.
// Если таких несколько, берётся с самым поздним концом периода.
func (s *Storage) FindActiveSubscription(ctx context.Context, userID string, now time.Time) (*models.Subscription, error) {
	const op = "storage.FindActiveSubscription"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT ` + subscriptionColumns + `
			  FROM subscriptions
			  WHERE user_id = $1 AND status = $2 AND current_period_end >= $3
			  ORDER BY current_period_end DESC
			  LIMIT 1`
	sub, err := s.scanSubscription(ctx, query, userID, models.SubscriptionActive, now)
	if err != nil {
		return nil, notFound(op, err)
	}
	return sub, nil
}

// LockActiveSubscription как FindActiveSubscription, но блокирует строку.
func (s *Storage) LockActiveSubscription(ctx context.Context, userID string, now time.Time) (*models.Subscription, error) {
	const op = "storage.LockActiveSubscription"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT ` + subscriptionColumns + `
			  FROM subscriptions
			  WHERE user_id = $1 AND status = $2 AND current_period_end >= $3
			  ORDER BY current_period_end DESC
			  LIMIT 1
			  FOR UPDATE`
	sub, err := s.scanSubscription(ctx, query, userID, models.SubscriptionActive, now)
	if err != nil {
		return nil, notFound(op, err)
	}
	return sub, nil
}

func (s *Storage) scanSubscription(ctx context.Context, query string, args ...any) (*models.Subscription, error) {
	var sub models.Subscription
	err := s.conn(ctx).QueryRowContext(ctx, query, args...).Scan(
		&sub.ID, &sub.UserID, &sub.Plan, &sub.Status, &sub.CurrentPeriodStart, &sub.CurrentPeriodEnd)
	if err != nil {
		return nil, err
	}
	sub.CurrentPeriodStart = sub.CurrentPeriodStart.UTC()
	sub.CurrentPeriodEnd = sub.CurrentPeriodEnd.UTC()
	return &sub, nil
}

// LockUserBilling берёт транзакционную advisory-блокировку на биллинг пользователя.
// Все продления одного пользователя выполняются последовательно.
func (s *Storage) LockUserBilling(ctx context.Context, userID string) error {
	const op = "storage.LockUserBilling"
	select {
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	_, err := s.conn(ctx).ExecContext(ctx,
		`SELECT pg_advisory_xact_lock(hashtextextended($1, 0))`, "billing:"+userID)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// CreateSubscription сохраняет новую подписку.
func (s *Storage) CreateSubscription(ctx context.Context, sub *models.Subscription) error {
	const op = "storage.CreateSubscription"
	select {
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	if sub.ID == "" {
		sub.ID = uuid.NewString()
	}
	query := `INSERT INTO subscriptions (id, user_id, plan, status, current_period_start, current_period_end)
			  VALUES ($1, $2, $3, $4, $5, $6)`
	_, err := s.conn(ctx).ExecContext(ctx, query,
		sub.ID, sub.UserID, sub.Plan, sub.Status, sub.CurrentPeriodStart, sub.CurrentPeriodEnd)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// UpdateSubscription меняет тариф, статус и период подписки.
func (s *Storage) UpdateSubscription(ctx context.Context, sub *models.Subscription) error {
	const op = "storage.UpdateSubscription"
	select {
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `UPDATE subscriptions
			  SET plan = $1, status = $2, current_period_start = $3, current_period_end = $4,
			      updated_at = NOW()
			  WHERE id = $5`
	res, err := s.conn(ctx).ExecContext(ctx, query,
		sub.Plan, sub.Status, sub.CurrentPeriodStart, sub.CurrentPeriodEnd, sub.ID)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if n == 0 {
		return fmt.Errorf("%s: %w", op, models.ErrNotFound)
	}
	return nil
}

// ListExpiringSubscriptions возвращает активные подписки, период которых
// заканчивается в [from, to), без напоминания для текущего конца периода.
func (s *Storage) ListExpiringSubscriptions(ctx context.Context, from, to time.Time, limit int) ([]*models.Subscription, error) {
	const op = "storage.ListExpiringSubscriptions"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT s.id, s.user_id, s.plan, s.status, s.current_period_start, s.current_period_end
			  FROM subscriptions s
			  WHERE s.status = $1 AND s.current_period_end >= $2 AND s.current_period_end < $3
			    AND NOT EXISTS (
			      SELECT 1 FROM subscription_expiry_notices n
			      WHERE n.subscription_id = s.id AND n.period_end = s.current_period_end
			    )
			  ORDER BY s.current_period_end
			  LIMIT $4`
	rows, err := s.conn(ctx).QueryContext(ctx, query, models.SubscriptionActive, from, to, limit)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	var subs []*models.Subscription
	for rows.Next() {
		var sub models.Subscription
		if err := rows.Scan(&sub.ID, &sub.UserID, &sub.Plan, &sub.Status,
			&sub.CurrentPeriodStart, &sub.CurrentPeriodEnd); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		sub.CurrentPeriodStart = sub.CurrentPeriodStart.UTC()
		sub.CurrentPeriodEnd = sub.CurrentPeriodEnd.UTC()
		subs = append(subs, &sub)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return subs, nil
}

// MarkExpiryNotified записывает напоминание для конца периода periodEnd.
// Строка подписки не меняется. Возвращает false, если период уже продлён
// или напоминание для него уже записано.
func (s *Storage) MarkExpiryNotified(ctx context.Context, id string, periodEnd time.Time) (bool, error) {
	const op = "storage.MarkExpiryNotified"
	select {
	case <-ctx.Done():
		return false, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `INSERT INTO subscription_expiry_notices (subscription_id, period_end)
			  SELECT id, current_period_end FROM subscriptions
			  WHERE id = $1 AND status = $2 AND current_period_end = $3
			  ON CONFLICT (subscription_id, period_end) DO NOTHING`
	res, err := s.conn(ctx).ExecContext(ctx, query, id, models.SubscriptionActive, periodEnd)
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	return n > 0, nil
}
