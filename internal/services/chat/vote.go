package chat

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/magabrotheeeer/duelchat/internal/lib/sl"
	"github.com/magabrotheeeer/duelchat/internal/metrics"
	"github.com/magabrotheeeer/duelchat/internal/models"
)

// VoteResult описывает состояние треда после голоса.
type VoteResult struct {
	Thread   *models.Thread    `json:"thread"`
	Chosen   models.Provider   `json:"chosen"`
	Messages []*models.Message `json:"messages"`
	// Replayed — голос уже был отдан раньше, ничего не изменилось.
	Replayed bool `json:"replayed"`
}

// Vote закрепляет тред за выбранным провайдером и добавляет его ответ
// из дуэли как сообщение ассистента. Повторный голос по разрешённой
// дуэли ничего не меняет и возвращает текущее состояние.
func (s *Service) Vote(ctx context.Context, userID, duelID, choice string) (*VoteResult, error) {
	const op = "chat.Vote"

	chosen, err := models.ParseProvider(choice)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	var result VoteResult
	err = s.store.InTx(ctx, func(ctx context.Context) error {
		duel, err := s.store.LockDuel(ctx, userID, duelID)
		if err != nil {
			return err
		}
		thread, err := s.store.LockThread(ctx, userID, duel.ThreadID)
		if err != nil {
			return err
		}
		result.Thread = thread

		if duel.Resolved() || thread.State == models.LockLocked {
			result.Replayed = true
			result.Chosen = duel.Chosen
			if result.Chosen == "" {
				result.Chosen = thread.LockedProvider
			}
		} else {
			if err := s.lock(ctx, thread, duel, chosen); err != nil {
				return err
			}
			result.Chosen = chosen
		}

		result.Messages, err = s.store.ListMessages(ctx, thread.ID)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if !result.Replayed {
		metrics.Votes.WithLabelValues(string(result.Chosen)).Inc()
		s.log.Info("thread locked",
			slog.String("op", op),
			sl.UserID(userID),
			slog.String("thread_id", result.Thread.ID),
			slog.String("provider", string(result.Chosen)),
		)
	}
	return &result, nil
}

func (s *Service) lock(ctx context.Context, thread *models.Thread, duel *models.Duel, chosen models.Provider) error {
	if err := s.store.ResolveDuel(ctx, duel.ID, chosen); err != nil {
		return err
	}
	if err := thread.Lock(chosen); err != nil {
		return err
	}

	msg := &models.Message{
		ThreadID:  thread.ID,
		UserID:    thread.UserID,
		Role:      models.RoleAssistant,
		Content:   duel.Option(chosen),
		CreatedAt: s.now().UTC(),
	}
	if err := s.store.InsertMessage(ctx, msg); err != nil {
		return err
	}

	thread.UpdatedAt = s.now().UTC()
	return s.store.SaveThread(ctx, thread)
}
