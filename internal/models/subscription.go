package models

import "time"

type SubscriptionStatus string

const (
	SubscriptionActive   SubscriptionStatus = "active"
	SubscriptionInactive SubscriptionStatus = "inactive"
)

// Subscription — оплаченный период тарифа. У пользователя в любой момент
// не более одной активной подписки, покрывающей текущее время.
type Subscription struct {
	ID                 string             `json:"id"`
	UserID             string             `json:"-"`
	Plan               Plan               `json:"plan"`
	Status             SubscriptionStatus `json:"status"`
	CurrentPeriodStart time.Time          `json:"current_period_start"`
	CurrentPeriodEnd   time.Time          `json:"current_period_end"`
}

// Covers сообщает, активна ли подписка в момент now.
func (s *Subscription) Covers(now time.Time) bool {
	return s.Status == SubscriptionActive && !s.CurrentPeriodEnd.Before(now)
}

// EffectivePlan — тариф и статус, действующие для текущего запроса.
type EffectivePlan struct {
	Plan   Plan
	Status SubscriptionStatus
}

type PaymentStatus string

const (
	PaymentCreated  PaymentStatus = "created"
	PaymentVerified PaymentStatus = "verified"
	PaymentFailed   PaymentStatus = "failed"
)

// Payment — попытка продления. OrderID уникален и служит ключом идемпотентности.
type Payment struct {
	ID        string
	UserID    string
	Plan      Plan
	Amount    int64
	Currency  string
	OrderID   string
	PaymentID string
	Status    PaymentStatus
	CreatedAt time.Time
}

// Order — заказ, созданный на стороне платёжного шлюза.
type Order struct {
	ID       string `json:"id"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
}
