package repository

import (
	"context"
	"fmt"

	"github.com/magabrotheeeer/duelchat/internal/models"
)

// LockLedger возвращает ledger пользователя за период, создавая его при
// отсутствии, и блокирует строку до конца транзакции.
func (s *Storage) LockLedger(ctx context.Context, userID, periodKey, dayKey string) (*models.UsageLedger, error) {
	const op = "storage.LockLedger"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	_, err := s.conn(ctx).ExecContext(ctx,
		`INSERT INTO usage_ledgers (user_id, period_key, verified_day_key)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (user_id, period_key) DO NOTHING`,
		userID, periodKey, dayKey)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	l, err := s.getLedger(ctx, userID, periodKey, " FOR UPDATE")
	if err != nil {
		return nil, notFound(op, err)
	}
	return l, nil
}

// GetLedger читает ledger без блокировки. Отсутствующий ledger даёт ErrNotFound.
func (s *Storage) GetLedger(ctx context.Context, userID, periodKey string) (*models.UsageLedger, error) {
	const op = "storage.GetLedger"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	l, err := s.getLedger(ctx, userID, periodKey, "")
	if err != nil {
		return nil, notFound(op, err)
	}
	return l, nil
}

func (s *Storage) getLedger(ctx context.Context, userID, periodKey, suffix string) (*models.UsageLedger, error) {
	query := `SELECT id, user_id, period_key, messages_used, verified_used,
			         verified_used_today, verified_day_key
			  FROM usage_ledgers
			  WHERE user_id = $1 AND period_key = $2` + suffix
	var l models.UsageLedger
	err := s.conn(ctx).QueryRowContext(ctx, query, userID, periodKey).Scan(
		&l.ID, &l.UserID, &l.PeriodKey, &l.MessagesUsed, &l.VerifiedUsed,
		&l.VerifiedUsedToday, &l.VerifiedDayKey)
	if err != nil {
		return nil, err
	}
	return &l, nil
}

// SaveLedger записывает счётчики ledger.
func (s *Storage) SaveLedger(ctx context.Context, l *models.UsageLedger) error {
	const op = "storage.SaveLedger"
	select {
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `UPDATE usage_ledgers
			  SET messages_used = $1, verified_used = $2,
			      verified_used_today = $3, verified_day_key = $4
			  WHERE id = $5`
	_, err := s.conn(ctx).ExecContext(ctx, query,
		l.MessagesUsed, l.VerifiedUsed, l.VerifiedUsedToday, l.VerifiedDayKey, l.ID)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}
