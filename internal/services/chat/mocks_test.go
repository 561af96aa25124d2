package chat

import (
	"context"
	"io"
	"log/slog"

	"github.com/stretchr/testify/mock"

	"github.com/magabrotheeeer/duelchat/internal/models"
)

type StoreMock struct{ mock.Mock }

func (m *StoreMock) InTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

func (m *StoreMock) CreateThread(ctx context.Context, userID, title string) (*models.Thread, error) {
	args := m.Called(ctx, userID, title)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Thread), args.Error(1)
}

func (m *StoreMock) GetThread(ctx context.Context, userID, threadID string) (*models.Thread, error) {
	args := m.Called(ctx, userID, threadID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Thread), args.Error(1)
}

func (m *StoreMock) LockThread(ctx context.Context, userID, threadID string) (*models.Thread, error) {
	args := m.Called(ctx, userID, threadID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Thread), args.Error(1)
}

func (m *StoreMock) SaveThread(ctx context.Context, t *models.Thread) error {
	return m.Called(ctx, t).Error(0)
}

func (m *StoreMock) ListThreads(ctx context.Context, userID string) ([]*models.Thread, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Thread), args.Error(1)
}

func (m *StoreMock) DeleteThread(ctx context.Context, userID, threadID string) error {
	return m.Called(ctx, userID, threadID).Error(0)
}

func (m *StoreMock) InsertMessage(ctx context.Context, msg *models.Message) error {
	args := m.Called(ctx, msg)
	if msg.ID == "" {
		msg.ID = "msg-" + string(msg.Role)
	}
	return args.Error(0)
}

func (m *StoreMock) ListMessages(ctx context.Context, threadID string) ([]*models.Message, error) {
	args := m.Called(ctx, threadID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Message), args.Error(1)
}

func (m *StoreMock) CreateDuel(ctx context.Context, d *models.Duel) error {
	args := m.Called(ctx, d)
	if d.ID == "" {
		d.ID = "duel-1"
	}
	return args.Error(0)
}

func (m *StoreMock) LockDuel(ctx context.Context, userID, duelID string) (*models.Duel, error) {
	args := m.Called(ctx, userID, duelID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Duel), args.Error(1)
}

func (m *StoreMock) ResolveDuel(ctx context.Context, duelID string, chosen models.Provider) error {
	return m.Called(ctx, duelID, chosen).Error(0)
}

type QuotaMock struct{ mock.Mock }

func (m *QuotaMock) Reserve(ctx context.Context, userID string, mode models.Mode) error {
	return m.Called(ctx, userID, mode).Error(0)
}

type GeneratorMock struct{ mock.Mock }

func (m *GeneratorMock) Generate(ctx context.Context, p models.Provider, history []*models.Message, mode models.Mode) (string, error) {
	args := m.Called(ctx, p, history, mode)
	return args.String(0), args.Error(1)
}

func newNoopLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{}))
}
