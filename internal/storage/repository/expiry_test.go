package repository

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/duelchat/internal/config"
	"github.com/magabrotheeeer/duelchat/internal/lib/rabbitmq"
	"github.com/magabrotheeeer/duelchat/internal/models"
	"github.com/magabrotheeeer/duelchat/internal/services/scheduler"
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []rabbitmq.SubscriptionExpiring
}

func (p *recordingPublisher) PublishExpiring(_ context.Context, event rabbitmq.SubscriptionExpiring) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return nil
}

func subscriptionRow(t *testing.T, s *Storage, id string) string {
	t.Helper()
	var row string
	require.NoError(t, s.DB.QueryRowContext(context.Background(),
		`SELECT row_to_json(s)::text FROM subscriptions s WHERE id = $1`, id).Scan(&row))
	return row
}

func TestStorage_ExpiryPassLeavesSubscriptionsUntouched(t *testing.T) {
	s := setupTestStorage(t)
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Microsecond)

	sub := &models.Subscription{UserID: "user-1", Plan: models.PlanA2, Status: models.SubscriptionActive,
		CurrentPeriodStart: now.AddDate(0, 0, -29), CurrentPeriodEnd: now.Add(24 * time.Hour)}
	require.NoError(t, s.CreateSubscription(ctx, sub))
	before := subscriptionRow(t, s, sub.ID)

	pub := &recordingPublisher{}
	svc := scheduler.New(s, pub, config.Scheduler{Interval: time.Hour, NoticeWindow: 72 * time.Hour, BatchSize: 10},
		slog.New(slog.NewTextHandler(io.Discard, nil)))

	n, err := svc.RunOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	n, err = svc.RunOnce(ctx)
	require.NoError(t, err)
	assert.Zero(t, n, "повторный проход не шлёт напоминание")

	assert.Equal(t, before, subscriptionRow(t, s, sub.ID), "строка подписки не меняется")
	require.Len(t, pub.events, 1)
	assert.Equal(t, sub.ID, pub.events[0].SubscriptionID)

	var notices int
	require.NoError(t, s.DB.QueryRowContext(ctx,
		`SELECT count(*) FROM subscription_expiry_notices WHERE subscription_id = $1`, sub.ID).Scan(&notices))
	assert.Equal(t, 1, notices)
}
