// Package billing создаёт заказы в платёжном шлюзе и превращает
// подтверждённую оплату в продление подписки.
package billing

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/magabrotheeeer/duelchat/internal/config"
	"github.com/magabrotheeeer/duelchat/internal/lib/period"
	"github.com/magabrotheeeer/duelchat/internal/lib/rabbitmq"
	"github.com/magabrotheeeer/duelchat/internal/lib/sl"
	"github.com/magabrotheeeer/duelchat/internal/metrics"
	"github.com/magabrotheeeer/duelchat/internal/models"
	"github.com/magabrotheeeer/duelchat/internal/paymentprovider"
)

// Store — платежи и подписки с поддержкой транзакций.
type Store interface {
	InTx(ctx context.Context, fn func(ctx context.Context) error) error

	CreatePayment(ctx context.Context, p *models.Payment) error
	LockPaymentByOrder(ctx context.Context, orderID string) (*models.Payment, error)
	SetPaymentStatus(ctx context.Context, id, paymentID string, status models.PaymentStatus) error

	LockUserBilling(ctx context.Context, userID string) error
	FindActiveSubscription(ctx context.Context, userID string, now time.Time) (*models.Subscription, error)
	LockActiveSubscription(ctx context.Context, userID string, now time.Time) (*models.Subscription, error)
	CreateSubscription(ctx context.Context, sub *models.Subscription) error
	UpdateSubscription(ctx context.Context, sub *models.Subscription) error
}

// Gateway создаёт заказы в платёжном шлюзе.
type Gateway interface {
	CreateOrder(ctx context.Context, req paymentprovider.CreateOrderRequest) (*models.Order, error)
}

// RenewalPublisher отправляет событие о продлении.
type RenewalPublisher interface {
	PublishRenewal(ctx context.Context, event rabbitmq.SubscriptionRenewed) error
}

// OrderResult содержит данные для оплаты заказа на клиенте.
type OrderResult struct {
	Plan      models.Plan   `json:"plan"`
	Order     *models.Order `json:"order"`
	PublicKey string        `json:"public_key"`
}

// VerifyRequest — подтверждение оплаты от шлюза.
type VerifyRequest struct {
	Plan      string
	OrderID   string
	PaymentID string
	Signature string
}

// Service продлевает подписки. publisher может быть nil.
type Service struct {
	store     Store
	gateway   Gateway
	publisher RenewalPublisher
	cfg       config.Billing
	log       *slog.Logger
	now       func() time.Time
}

// New создаёт Service.
func New(store Store, gateway Gateway, publisher RenewalPublisher, cfg config.Billing, log *slog.Logger) *Service {
	return &Service{
		store:     store,
		gateway:   gateway,
		publisher: publisher,
		cfg:       cfg,
		log:       log,
		now:       time.Now,
	}
}

// CreateOrder создаёт заказ на оплату тарифа и запоминает платёж в статусе created.
func (s *Service) CreateOrder(ctx context.Context, userID, planName string) (*OrderResult, error) {
	const op = "billing.CreateOrder"
	if !s.cfg.BillingConfigured() {
		return nil, fmt.Errorf("%s: %w", op, models.ErrBillingNotConfigured)
	}
	plan, err := models.ParsePlan(planName)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	amount, ok := s.cfg.Prices[string(plan)]
	if !ok {
		return nil, fmt.Errorf("%s: no price for plan %s: %w", op, plan, models.ErrBillingNotConfigured)
	}

	order, err := s.gateway.CreateOrder(ctx, paymentprovider.CreateOrderRequest{
		Amount:         amount,
		Currency:       s.cfg.Currency,
		PaymentCapture: 1,
		Notes: map[string]string{
			"userId": userID,
			"plan":   string(plan),
			"mode":   s.cfg.Mode,
		},
	})
	if err != nil {
		s.log.Error("gateway create order failed", slog.String("op", op), sl.UserID(userID), sl.Err(err))
		return nil, fmt.Errorf("%s: %w: %w", op, models.ErrBillingError, err)
	}

	payment := &models.Payment{
		UserID:   userID,
		Plan:     plan,
		Amount:   amount,
		Currency: s.cfg.Currency,
		OrderID:  order.ID,
		Status:   models.PaymentCreated,
	}
	if err := s.store.CreatePayment(ctx, payment); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	s.log.Info("order created", slog.String("op", op), sl.UserID(userID), slog.String("order_id", order.ID))
	return &OrderResult{Plan: plan, Order: order, PublicKey: s.cfg.KeyID}, nil
}

// VerifyPayment проверяет подпись шлюза и применяет продление.
// Повторная проверка уже подтверждённого заказа возвращает текущую подписку
// без повторного продления.
func (s *Service) VerifyPayment(ctx context.Context, userID string, req VerifyRequest) (*models.Subscription, error) {
	const op = "billing.VerifyPayment"
	if !s.cfg.BillingConfigured() {
		return nil, fmt.Errorf("%s: %w", op, models.ErrBillingNotConfigured)
	}
	plan, err := models.ParsePlan(req.Plan)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	req.OrderID = strings.TrimSpace(req.OrderID)
	req.PaymentID = strings.TrimSpace(req.PaymentID)
	req.Signature = strings.TrimSpace(req.Signature)
	if req.OrderID == "" || req.PaymentID == "" || req.Signature == "" {
		return nil, fmt.Errorf("%s: missing payment fields: %w", op, models.ErrInvalidInput)
	}

	if !paymentprovider.VerifySignature(req.OrderID, req.PaymentID, req.Signature, s.cfg.KeySecret) {
		s.markFailed(ctx, userID, req.OrderID)
		s.log.Warn("payment signature mismatch", slog.String("op", op), sl.UserID(userID), slog.String("order_id", req.OrderID))
		return nil, fmt.Errorf("%s: %w", op, models.ErrPaymentVerificationFailed)
	}

	sub, renewed, err := s.applyVerifiedPayment(ctx, userID, plan, req)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if renewed {
		metrics.RenewalsApplied.WithLabelValues(string(sub.Plan)).Inc()
		s.log.Info("subscription renewed",
			slog.String("op", op),
			sl.UserID(userID),
			slog.String("plan", string(sub.Plan)),
			slog.Time("current_period_end", sub.CurrentPeriodEnd),
		)
		s.publishRenewal(ctx, sub, req.OrderID)
	}
	return sub, nil
}

// applyVerifiedPayment выполняется под advisory-блокировкой пользователя:
// конкурентные продления не создают пересекающихся активных подписок.
func (s *Service) applyVerifiedPayment(ctx context.Context, userID string, plan models.Plan,
	req VerifyRequest) (*models.Subscription, bool, error) {
	var (
		sub     *models.Subscription
		renewed bool
	)
	err := s.store.InTx(ctx, func(ctx context.Context) error {
		if err := s.store.LockUserBilling(ctx, userID); err != nil {
			return err
		}

		payment, err := s.store.LockPaymentByOrder(ctx, req.OrderID)
		if errors.Is(err, models.ErrNotFound) || (err == nil && payment.UserID != userID) {
			return models.ErrPaymentNotFound
		}
		if err != nil {
			return err
		}
		if payment.Plan != plan {
			return fmt.Errorf("plan %s does not match ordered plan %s: %w", plan, payment.Plan, models.ErrInvalidInput)
		}

		if payment.Status == models.PaymentVerified {
			sub, err = s.currentSubscription(ctx, userID, payment.Plan)
			return err
		}

		if err := s.store.SetPaymentStatus(ctx, payment.ID, req.PaymentID, models.PaymentVerified); err != nil {
			return err
		}
		sub, err = s.extend(ctx, userID, plan)
		renewed = err == nil
		return err
	})
	if err != nil {
		return nil, false, err
	}
	return sub, renewed, nil
}

// extend продлевает активную подписку от её конца или создаёт новую от now.
func (s *Service) extend(ctx context.Context, userID string, plan models.Plan) (*models.Subscription, error) {
	now := s.now().UTC()

	current, err := s.store.LockActiveSubscription(ctx, userID, now)
	if err != nil && !errors.Is(err, models.ErrNotFound) {
		return nil, err
	}

	if current != nil {
		current.Plan = plan
		current.Status = models.SubscriptionActive
		current.CurrentPeriodEnd = period.Extend(current.CurrentPeriodEnd, now, s.cfg.PeriodDays)
		current.CurrentPeriodStart = now
		if err := s.store.UpdateSubscription(ctx, current); err != nil {
			return nil, err
		}
		return current, nil
	}

	sub := &models.Subscription{
		UserID:             userID,
		Plan:               plan,
		Status:             models.SubscriptionActive,
		CurrentPeriodStart: now,
		CurrentPeriodEnd:   period.Extend(now, now, s.cfg.PeriodDays),
	}
	if err := s.store.CreateSubscription(ctx, sub); err != nil {
		return nil, err
	}
	return sub, nil
}

// currentSubscription возвращает последнюю активную подписку.
// Если она уже истекла и не найдена, возвращается неактивная заглушка тарифа платежа.
func (s *Service) currentSubscription(ctx context.Context, userID string, plan models.Plan) (*models.Subscription, error) {
	sub, err := s.store.FindActiveSubscription(ctx, userID, s.now().UTC())
	if errors.Is(err, models.ErrNotFound) {
		return &models.Subscription{UserID: userID, Plan: plan, Status: models.SubscriptionInactive}, nil
	}
	return sub, err
}

func (s *Service) markFailed(ctx context.Context, userID, orderID string) {
	const op = "billing.markFailed"
	err := s.store.InTx(ctx, func(ctx context.Context) error {
		payment, err := s.store.LockPaymentByOrder(ctx, orderID)
		if err != nil {
			return err
		}
		if payment.UserID != userID || payment.Status != models.PaymentCreated {
			return nil
		}
		return s.store.SetPaymentStatus(ctx, payment.ID, "", models.PaymentFailed)
	})
	if err != nil && !errors.Is(err, models.ErrNotFound) {
		s.log.Warn("failed to mark payment failed", slog.String("op", op), sl.Err(err))
	}
}

func (s *Service) publishRenewal(ctx context.Context, sub *models.Subscription, orderID string) {
	if s.publisher == nil {
		return
	}
	err := s.publisher.PublishRenewal(ctx, rabbitmq.SubscriptionRenewed{
		UserID:           sub.UserID,
		SubscriptionID:   sub.ID,
		Plan:             string(sub.Plan),
		OrderID:          orderID,
		CurrentPeriodEnd: sub.CurrentPeriodEnd,
	})
	if err != nil {
		s.log.Warn("failed to publish renewal event", sl.UserID(sub.UserID), sl.Err(err))
	}
}
