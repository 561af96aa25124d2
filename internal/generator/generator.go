// Package generator получает текст ответа от провайдеров A и B.
package generator

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"github.com/magabrotheeeer/duelchat/internal/config"
	"github.com/magabrotheeeer/duelchat/internal/models"
)

// Generator выдаёт ответ провайдера на историю треда.
// Ошибки оборачивают models.ErrProviderNotConfigured или models.ErrProviderError.
type Generator interface {
	Generate(ctx context.Context, provider models.Provider, history []*models.Message, mode models.Mode) (string, error)
}

// New строит генератор по конфигу: mock или live.
func New(cfg config.Providers) Generator {
	if cfg.Mode == "live" {
		return NewLive(cfg)
	}
	return Mock{}
}

// Mock отвечает детерминированным текстом без сетевых вызовов.
type Mock struct{}

// Generate строит ответ из последней пользовательской реплики.
func (Mock) Generate(ctx context.Context, provider models.Provider, history []*models.Message, mode models.Mode) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", fmt.Errorf("generator.Mock: %w: %w", models.ErrProviderError, err)
	}

	last := lastUserContent(history)
	sum := sha256.Sum256([]byte(string(provider) + "-" + string(mode) + "-" + last))
	seed := hex.EncodeToString(sum[:])[:8]

	if provider == models.ProviderA {
		return fmt.Sprintf("Summary (%s): %s\n\n- Point 1: ...\n- Point 2: ...\n- Next: ...", seed, truncate(last, 120)), nil
	}
	return fmt.Sprintf("Answer (%s): %s\n\nKey idea: ...", seed, truncate(last, 140)), nil
}

func lastUserContent(history []*models.Message) string {
	for i := len(history) - 1; i >= 0; i-- {
		if history[i].Role == models.RoleUser {
			return history[i].Content
		}
	}
	return ""
}

func truncate(s string, n int) string {
	if r := []rune(s); len(r) > n {
		return string(r[:n])
	}
	return s
}
