// Package chat ведёт треды: дуэль двух провайдеров на первой реплике,
// голосование, закрепляющее провайдера, и последующие реплики только
// закреплённому провайдеру.
package chat

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/magabrotheeeer/duelchat/internal/models"
)

// MaxContentLen — максимальная длина реплики в символах.
const MaxContentLen = 8000

// Store — хранилище тредов, сообщений и дуэлей с поддержкой транзакций.
type Store interface {
	InTx(ctx context.Context, fn func(ctx context.Context) error) error

	CreateThread(ctx context.Context, userID, title string) (*models.Thread, error)
	GetThread(ctx context.Context, userID, threadID string) (*models.Thread, error)
	LockThread(ctx context.Context, userID, threadID string) (*models.Thread, error)
	SaveThread(ctx context.Context, t *models.Thread) error
	ListThreads(ctx context.Context, userID string) ([]*models.Thread, error)
	DeleteThread(ctx context.Context, userID, threadID string) error

	InsertMessage(ctx context.Context, m *models.Message) error
	ListMessages(ctx context.Context, threadID string) ([]*models.Message, error)

	CreateDuel(ctx context.Context, d *models.Duel) error
	LockDuel(ctx context.Context, userID, duelID string) (*models.Duel, error)
	ResolveDuel(ctx context.Context, duelID string, chosen models.Provider) error
}

// Reserver списывает квоту в текущей транзакции.
type Reserver interface {
	Reserve(ctx context.Context, userID string, mode models.Mode) error
}

// Generator получает ответ провайдера.
type Generator interface {
	Generate(ctx context.Context, provider models.Provider, history []*models.Message, mode models.Mode) (string, error)
}

// Service реализует операции над тредами.
type Service struct {
	store   Store
	quota   Reserver
	gen     Generator
	log     *slog.Logger
	timeout time.Duration
	now     func() time.Time
	seed    func() int64
}

// New создаёт Service. timeout ограничивает генерацию ответа в одной реплике.
func New(store Store, quota Reserver, gen Generator, timeout time.Duration, log *slog.Logger) *Service {
	return &Service{
		store:   store,
		quota:   quota,
		gen:     gen,
		log:     log,
		timeout: timeout,
		now:     time.Now,
		seed:    func() int64 { return rand.Int64N(1 << 31) },
	}
}

// CreateThread создаёт пустой тред. Пустое название заменяется на "New chat".
func (s *Service) CreateThread(ctx context.Context, userID, title string) (*models.Thread, error) {
	const op = "chat.CreateThread"
	title = strings.TrimSpace(title)
	if title == "" {
		title = models.DefaultThreadTitle
	}
	if utf8.RuneCountInString(title) > 200 {
		return nil, fmt.Errorf("%s: title too long: %w", op, models.ErrInvalidInput)
	}

	t, err := s.store.CreateThread(ctx, userID, title)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return t, nil
}

// ListThreads возвращает треды пользователя, последние обновлённые первыми.
func (s *Service) ListThreads(ctx context.Context, userID string) ([]*models.Thread, error) {
	const op = "chat.ListThreads"
	threads, err := s.store.ListThreads(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return threads, nil
}

// ListMessages возвращает сообщения треда пользователя в порядке создания.
func (s *Service) ListMessages(ctx context.Context, userID, threadID string) ([]*models.Message, error) {
	const op = "chat.ListMessages"
	if _, err := s.store.GetThread(ctx, userID, threadID); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	msgs, err := s.store.ListMessages(ctx, threadID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return msgs, nil
}

// DeleteThread удаляет тред пользователя вместе с сообщениями и дуэлями.
func (s *Service) DeleteThread(ctx context.Context, userID, threadID string) error {
	const op = "chat.DeleteThread"
	if err := s.store.DeleteThread(ctx, userID, threadID); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	s.log.Info("thread deleted", slog.String("op", op), slog.String("thread_id", threadID))
	return nil
}
