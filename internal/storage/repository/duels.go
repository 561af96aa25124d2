package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"github.com/magabrotheeeer/duelchat/internal/models"
)

// CreateDuel сохраняет дуэль. У треда может быть только одна неразрешённая дуэль.
func (s *Storage) CreateDuel(ctx context.Context, d *models.Duel) error {
	const op = "storage.CreateDuel"
	select {
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	if d.ID == "" {
		d.ID = uuid.NewString()
	}
	query := `INSERT INTO duels (id, thread_id, user_message_id, option_a, option_b, ui_order_seed)
			  VALUES ($1, $2, $3, $4, $5, $6)
			  RETURNING created_at`
	err := s.conn(ctx).QueryRowContext(ctx, query,
		d.ID, d.ThreadID, d.UserMessageID, d.OptionA, d.OptionB, d.UIOrderSeed).Scan(&d.CreatedAt)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// LockDuel возвращает дуэль из треда пользователя и блокирует её строку.
// Чужая или несуществующая дуэль неотличимы: обе дают ErrNotFound.
func (s *Storage) LockDuel(ctx context.Context, userID, duelID string) (*models.Duel, error) {
	const op = "storage.LockDuel"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}
	if !validID(duelID) {
		return nil, fmt.Errorf("%s: %w", op, models.ErrNotFound)
	}

	query := `SELECT d.id, d.thread_id, d.user_message_id, d.option_a, d.option_b,
			         d.ui_order_seed, d.chosen, d.created_at
			  FROM duels d
			  JOIN threads t ON t.id = d.thread_id
			  WHERE d.id = $1 AND t.user_id = $2
			  FOR UPDATE OF d`
	var d models.Duel
	var chosen sql.NullString
	err := s.conn(ctx).QueryRowContext(ctx, query, duelID, userID).Scan(
		&d.ID, &d.ThreadID, &d.UserMessageID, &d.OptionA, &d.OptionB,
		&d.UIOrderSeed, &chosen, &d.CreatedAt)
	if err != nil {
		return nil, notFound(op, err)
	}
	d.Chosen = models.Provider(chosen.String)
	return &d, nil
}

// ResolveDuel записывает выбор. Уже разрешённая дуэль не перезаписывается.
func (s *Storage) ResolveDuel(ctx context.Context, duelID string, chosen models.Provider) error {
	const op = "storage.ResolveDuel"
	select {
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	res, err := s.conn(ctx).ExecContext(ctx,
		`UPDATE duels SET chosen = $1 WHERE id = $2 AND chosen IS NULL`, chosen, duelID)
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
