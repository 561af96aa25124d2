package rabbitmq

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/streadway/amqp"
)

const (
	// RoutingSubscriptionRenewed — ключ события о применённом продлении подписки.
	RoutingSubscriptionRenewed = "subscription.renewed"
	// RoutingSubscriptionExpiring — ключ напоминания о скором окончании периода.
	RoutingSubscriptionExpiring = "subscription.expiring"
)

// SubscriptionRenewed — тело события продления.
type SubscriptionRenewed struct {
	UserID           string    `json:"user_id"`
	SubscriptionID   string    `json:"subscription_id"`
	Plan             string    `json:"plan"`
	OrderID          string    `json:"order_id"`
	CurrentPeriodEnd time.Time `json:"current_period_end"`
}

// SubscriptionExpiring это тело напоминания об окончании периода.
type SubscriptionExpiring struct {
	UserID           string    `json:"user_id"`
	SubscriptionID   string    `json:"subscription_id"`
	Plan             string    `json:"plan"`
	CurrentPeriodEnd time.Time `json:"current_period_end"`
}

// Publisher публикует JSON-сообщения в exchange. amqp.Channel не безопасен
// для конкурентной публикации, поэтому доступ сериализуется.
type Publisher struct {
	mu       sync.Mutex
	ch       *amqp.Channel
	exchange string
}

// NewPublisher создаёт Publisher поверх открытого канала.
func NewPublisher(ch *amqp.Channel, exchange string) *Publisher {
	return &Publisher{ch: ch, exchange: exchange}
}

// Publish сериализует message и публикует его с ключом routingKey.
func (p *Publisher) Publish(ctx context.Context, routingKey string, message any) error {
	const op = "rabbitmq.Publish"
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	body, err := json.Marshal(message)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	err = p.ch.Publish(p.exchange, routingKey, false, false, amqp.Publishing{
		ContentType:  "application/json",
		Body:         body,
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// PublishRenewal публикует событие SubscriptionRenewed.
func (p *Publisher) PublishRenewal(ctx context.Context, event SubscriptionRenewed) error {
	return p.Publish(ctx, RoutingSubscriptionRenewed, event)
}

// PublishExpiring публикует событие SubscriptionExpiring.
func (p *Publisher) PublishExpiring(ctx context.Context, event SubscriptionExpiring) error {
	return p.Publish(ctx, RoutingSubscriptionExpiring, event)
}
