package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"github.com/magabrotheeeer/duelchat/internal/models"
)

// CreatePayment сохраняет платёж в статусе created.
func (s *Storage) CreatePayment(ctx context.Context, p *models.Payment) error {
	const op = "storage.CreatePayment"
	select {
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	if p.Status == "" {
		p.Status = models.PaymentCreated
	}
	query := `INSERT INTO payments (id, user_id, plan, amount, currency, order_id, status)
			  VALUES ($1, $2, $3, $4, $5, $6, $7)
			  RETURNING created_at`
	err := s.conn(ctx).QueryRowContext(ctx, query,
		p.ID, p.UserID, p.Plan, p.Amount, p.Currency, p.OrderID, p.Status).Scan(&p.CreatedAt)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// LockPaymentByOrder возвращает платёж по идентификатору заказа и блокирует строку.
func (s *Storage) LockPaymentByOrder(ctx context.Context, orderID string) (*models.Payment, error) {
	const op = "storage.LockPaymentByOrder"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT id, user_id, plan, amount, currency, order_id, payment_id, status, created_at
			  FROM payments
			  WHERE order_id = $1
			  FOR UPDATE`
	var p models.Payment
	var paymentID sql.NullString
	err := s.conn(ctx).QueryRowContext(ctx, query, orderID).Scan(
		&p.ID, &p.UserID, &p.Plan, &p.Amount, &p.Currency, &p.OrderID, &paymentID, &p.Status, &p.CreatedAt)
	if err != nil {
		return nil, notFound(op, err)
	}
	p.PaymentID = paymentID.String
	return &p, nil
}

// SetPaymentStatus меняет статус платежа и запоминает идентификатор оплаты шлюза.
func (s *Storage) SetPaymentStatus(ctx context.Context, id, paymentID string, status models.PaymentStatus) error {
	const op = "storage.SetPaymentStatus"
	select {
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `UPDATE payments
			  SET status = $1, payment_id = $2, updated_at = NOW()
			  WHERE id = $3`
	_, err := s.conn(ctx).ExecContext(ctx, query, status, nullString(paymentID), id)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}
