package chat

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"

	"golang.org/x/sync/errgroup"

	"github.com/magabrotheeeer/duelchat/internal/lib/sl"
	"github.com/magabrotheeeer/duelchat/internal/metrics"
	"github.com/magabrotheeeer/duelchat/internal/models"
)

// TurnRequest — пользовательская реплика. Пустой ThreadID создаёт новый тред.
type TurnRequest struct {
	ThreadID string
	Content  string
	Mode     models.Mode
}

// DuelView — дуэль в том виде, в котором её видит пользователь.
type DuelView struct {
	ID    string          `json:"id"`
	Left  models.DuelSide `json:"left"`
	Right models.DuelSide `json:"right"`
}

// TurnResult — итог реплики: либо Duel (первая реплика), либо Reply.
type TurnResult struct {
	Thread      *models.Thread  `json:"thread"`
	UserMessage *models.Message `json:"user_message"`
	Duel        *DuelView       `json:"duel,omitempty"`
	Reply       *models.Message `json:"reply,omitempty"`
}

// SendTurn принимает реплику пользователя.
//
// Квота, сообщение, дуэль и состояние треда фиксируются одной транзакцией.
// Строка треда блокируется в начале транзакции, поэтому из двух
// конкурентных первых реплик дуэль создаст только одна, а вторая увидит
// pending_duel и получит ErrThreadNotLocked. Ошибка генерации откатывает
// всё, включая списание квоты.
func (s *Service) SendTurn(ctx context.Context, userID string, req TurnRequest) (*TurnResult, error) {
	const op = "chat.SendTurn"

	content := strings.TrimSpace(req.Content)
	if content == "" || utf8.RuneCountInString(content) > MaxContentLen {
		return nil, fmt.Errorf("%s: content length: %w", op, models.ErrInvalidInput)
	}
	if !req.Mode.Valid() {
		return nil, fmt.Errorf("%s: mode %q: %w", op, req.Mode, models.ErrInvalidInput)
	}

	var (
		result *TurnResult
		kind   models.TurnKind
	)
	err := s.store.InTx(ctx, func(ctx context.Context) error {
		thread, err := s.lockOrCreateThread(ctx, userID, req.ThreadID)
		if err != nil {
			return err
		}
		if err := s.quota.Reserve(ctx, userID, req.Mode); err != nil {
			return err
		}
		kind, err = thread.NextTurn()
		if err != nil {
			return err
		}

		history, err := s.store.ListMessages(ctx, thread.ID)
		if err != nil {
			return err
		}
		userMsg := &models.Message{
			ThreadID:  thread.ID,
			UserID:    userID,
			Role:      models.RoleUser,
			Content:   content,
			CreatedAt: s.now().UTC(),
		}
		if err := s.store.InsertMessage(ctx, userMsg); err != nil {
			return err
		}
		history = append(history, userMsg)

		result = &TurnResult{Thread: thread, UserMessage: userMsg}
		if kind == models.TurnDuel {
			result.Duel, err = s.startDuel(ctx, thread, userMsg, history, req.Mode)
		} else {
			result.Reply, err = s.reply(ctx, thread, history, req.Mode)
		}
		if err != nil {
			return err
		}

		thread.UpdatedAt = s.now().UTC()
		return s.store.SaveThread(ctx, thread)
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	log := s.log.With(slog.String("op", op), sl.UserID(userID), slog.String("thread_id", result.Thread.ID))
	if kind == models.TurnDuel {
		metrics.DuelsCreated.Inc()
		metrics.Turns.WithLabelValues("both", "duel").Inc()
		log.Info("duel created", slog.String("duel_id", result.Duel.ID))
	} else {
		metrics.Turns.WithLabelValues(string(result.Thread.LockedProvider), "single").Inc()
		log.Debug("turn answered", slog.String("provider", string(result.Thread.LockedProvider)))
	}
	return result, nil
}

func (s *Service) lockOrCreateThread(ctx context.Context, userID, threadID string) (*models.Thread, error) {
	if threadID != "" {
		return s.store.LockThread(ctx, userID, threadID)
	}
	created, err := s.store.CreateThread(ctx, userID, models.DefaultThreadTitle)
	if err != nil {
		return nil, err
	}
	return s.store.LockThread(ctx, userID, created.ID)
}

// startDuel запрашивает оба провайдера параллельно и сохраняет дуэль.
func (s *Service) startDuel(ctx context.Context, thread *models.Thread, userMsg *models.Message,
	history []*models.Message, mode models.Mode) (*DuelView, error) {
	genCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	var optionA, optionB string
	g, gctx := errgroup.WithContext(genCtx)
	g.Go(func() (err error) {
		optionA, err = s.generate(genCtx, gctx, models.ProviderA, history, mode)
		return err
	})
	g.Go(func() (err error) {
		optionB, err = s.generate(genCtx, gctx, models.ProviderB, history, mode)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	if err := thread.StartDuel(); err != nil {
		return nil, err
	}
	if thread.Title == models.DefaultThreadTitle {
		thread.Title = models.TitleFromContent(userMsg.Content)
	}

	duel := &models.Duel{
		ThreadID:      thread.ID,
		UserMessageID: userMsg.ID,
		OptionA:       optionA,
		OptionB:       optionB,
		UIOrderSeed:   s.seed(),
	}
	if err := s.store.CreateDuel(ctx, duel); err != nil {
		return nil, err
	}

	left, right := duel.Sides()
	return &DuelView{ID: duel.ID, Left: left, Right: right}, nil
}

// reply получает ответ закреплённого провайдера и добавляет его в тред.
func (s *Service) reply(ctx context.Context, thread *models.Thread, history []*models.Message,
	mode models.Mode) (*models.Message, error) {
	genCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	text, err := s.generate(genCtx, genCtx, thread.LockedProvider, history, mode)
	if err != nil {
		return nil, err
	}

	msg := &models.Message{
		ThreadID:  thread.ID,
		UserID:    thread.UserID,
		Role:      models.RoleAssistant,
		Content:   text,
		CreatedAt: s.now().UTC(),
	}
	if err := s.store.InsertMessage(ctx, msg); err != nil {
		return nil, err
	}
	return msg, nil
}

// generate вызывает провайдера в ctx. turnCtx ограничивает всю реплику:
// если ctx отменён, а turnCtx жив, упал второй провайдер дуэли, и эта
// отмена не считается сбоем провайдера p.
func (s *Service) generate(turnCtx, ctx context.Context, p models.Provider, history []*models.Message,
	mode models.Mode) (string, error) {
	text, err := s.gen.Generate(ctx, p, history, mode)
	if err == nil {
		return text, nil
	}
	if errors.Is(err, context.Canceled) && turnCtx.Err() == nil {
		return "", err
	}

	kind := "provider_error"
	if errors.Is(err, models.ErrProviderNotConfigured) {
		kind = "not_configured"
	} else if !errors.Is(err, models.ErrProviderError) {
		// таймаут контекста или неожиданная ошибка генератора
		err = fmt.Errorf("%w: %w", models.ErrProviderError, err)
	}
	metrics.GenerationFailures.WithLabelValues(string(p), kind).Inc()
	s.log.Warn("generation failed", slog.String("provider", string(p)), sl.Err(err))
	return "", err
}
