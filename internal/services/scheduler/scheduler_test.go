package scheduler

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/duelchat/internal/config"
	"github.com/magabrotheeeer/duelchat/internal/lib/rabbitmq"
	"github.com/magabrotheeeer/duelchat/internal/models"
)

type MockRepository struct {
	mock.Mock
}

func (m *MockRepository) InTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

func (m *MockRepository) ListExpiringSubscriptions(ctx context.Context, from, to time.Time, limit int) ([]*models.Subscription, error) {
	args := m.Called(ctx, from, to, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Subscription), args.Error(1)
}

func (m *MockRepository) MarkExpiryNotified(ctx context.Context, id string, periodEnd time.Time) (bool, error) {
	args := m.Called(ctx, id, periodEnd)
	return args.Bool(0), args.Error(1)
}

type MockPublisher struct {
	mock.Mock
}

func (m *MockPublisher) PublishExpiring(ctx context.Context, event rabbitmq.SubscriptionExpiring) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

func newNoopLogger() *slog.Logger {
	h := slog.NewTextHandler(io.Discard, &slog.HandlerOptions{})
	return slog.New(h)
}

func newService(repo *MockRepository, pub *MockPublisher, now time.Time) *Service {
	s := New(repo, pub, config.Scheduler{Interval: time.Hour, NoticeWindow: 72 * time.Hour, BatchSize: 10}, newNoopLogger())
	s.now = func() time.Time { return now }
	return s
}

func TestSchedulerService_RunOnce(t *testing.T) {
	now := time.Date(2026, 10, 15, 12, 0, 0, 0, time.UTC)
	end1 := now.Add(24 * time.Hour)
	end2 := now.Add(48 * time.Hour)
	end3 := now.Add(60 * time.Hour)
	subs := []*models.Subscription{
		{ID: "s1", UserID: "u1", Plan: models.PlanA1, Status: models.SubscriptionActive, CurrentPeriodEnd: end1},
		{ID: "s2", UserID: "u2", Plan: models.PlanA2, Status: models.SubscriptionActive, CurrentPeriodEnd: end2},
		{ID: "s3", UserID: "u3", Plan: models.PlanA2, Status: models.SubscriptionActive, CurrentPeriodEnd: end3},
	}

	repo := new(MockRepository)
	pub := new(MockPublisher)
	repo.On("ListExpiringSubscriptions", mock.Anything, now, now.Add(72*time.Hour), 10).Return(subs, nil).Once()
	repo.On("MarkExpiryNotified", mock.Anything, "s1", end1).Return(true, nil).Once()
	// s2 продлили между выборкой и отметкой.
	repo.On("MarkExpiryNotified", mock.Anything, "s2", end2).Return(false, nil).Once()
	repo.On("MarkExpiryNotified", mock.Anything, "s3", end3).Return(true, nil).Once()

	pub.On("PublishExpiring", mock.Anything, rabbitmq.SubscriptionExpiring{
		UserID: "u1", SubscriptionID: "s1", Plan: "A1", CurrentPeriodEnd: end1,
	}).Return(nil).Once()
	pub.On("PublishExpiring", mock.Anything, rabbitmq.SubscriptionExpiring{
		UserID: "u3", SubscriptionID: "s3", Plan: "A2", CurrentPeriodEnd: end3,
	}).Return(errors.New("channel closed")).Once()

	n, err := newService(repo, pub, now).RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	repo.AssertExpectations(t)
	pub.AssertExpectations(t)
}

func TestSchedulerService_RunOnceRepoError(t *testing.T) {
	now := time.Date(2026, 10, 15, 12, 0, 0, 0, time.UTC)
	repo := new(MockRepository)
	pub := new(MockPublisher)
	repo.On("ListExpiringSubscriptions", mock.Anything, mock.Anything, mock.Anything, 10).
		Return(nil, errors.New("db down")).Once()

	n, err := newService(repo, pub, now).RunOnce(context.Background())
	assert.Error(t, err)
	assert.Zero(t, n)
	pub.AssertNotCalled(t, "PublishExpiring", mock.Anything, mock.Anything)
}

func TestSchedulerService_RunStopsOnCancel(t *testing.T) {
	now := time.Date(2026, 10, 15, 12, 0, 0, 0, time.UTC)
	repo := new(MockRepository)
	pub := new(MockPublisher)
	repo.On("ListExpiringSubscriptions", mock.Anything, mock.Anything, mock.Anything, 10).
		Return([]*models.Subscription{}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		newService(repo, pub, now).Run(ctx)
		close(done)
	}()
	cancel()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("scheduler did not stop after cancel")
	}
}
