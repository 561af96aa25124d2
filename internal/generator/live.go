package generator

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/magabrotheeeer/duelchat/internal/config"
	"github.com/magabrotheeeer/duelchat/internal/models"
)

const (
	promptExploration = "You are a helpful assistant. Be concise and clear."
	promptVerified    = "You are a careful assistant. Provide: (1) key claim, (2) reasoning, " +
		"(3) uncertainty/assumptions, (4) what would change the conclusion. Keep it concise."
)

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// Live вызывает OpenAI-совместимый /chat/completions.
type Live struct {
	providers  map[models.Provider]config.Provider
	cfg        config.Providers
	httpClient *http.Client
}

// NewLive создаёт клиент. Таймаут ограничивает каждый вызов целиком.
func NewLive(cfg config.Providers) *Live {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &Live{
		providers: map[models.Provider]config.Provider{
			models.ProviderA: cfg.A,
			models.ProviderB: cfg.B,
		},
		cfg:        cfg,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Generate отправляет историю треда провайдеру с системным промптом режима.
func (c *Live) Generate(ctx context.Context, provider models.Provider, history []*models.Message, mode models.Mode) (string, error) {
	const op = "generator.Live.Generate"

	p, ok := c.providers[provider]
	if !ok || !p.Configured() {
		return "", fmt.Errorf("%s: provider %s: %w", op, provider, models.ErrProviderNotConfigured)
	}

	req, err := c.newRequest(ctx, p, c.payload(p, history, mode))
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || isTimeout(err) {
			return "", fmt.Errorf("%s: timeout: %w", op, models.ErrProviderError)
		}
		return "", fmt.Errorf("%s: %w: %w", op, models.ErrProviderError, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("%s: unexpected status %s: %w", op, resp.Status, models.ErrProviderError)
	}

	var out chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("%s: decode: %w", op, models.ErrProviderError)
	}
	if len(out.Choices) == 0 {
		return "", fmt.Errorf("%s: empty choices: %w", op, models.ErrProviderError)
	}
	content := strings.TrimSpace(out.Choices[0].Message.Content)
	if content == "" {
		return "", fmt.Errorf("%s: empty content: %w", op, models.ErrProviderError)
	}
	return content, nil
}

func (c *Live) payload(p config.Provider, history []*models.Message, mode models.Mode) chatRequest {
	prompt, temperature, maxTokens := promptExploration, 0.7, c.cfg.MaxTokensExploration
	if mode == models.ModeVerified {
		prompt, temperature, maxTokens = promptVerified, 0.2, c.cfg.MaxTokensVerified
	}

	messages := make([]chatMessage, 0, len(history)+1)
	messages = append(messages, chatMessage{Role: string(models.RoleSystem), Content: prompt})
	for _, m := range history {
		messages = append(messages, chatMessage{Role: string(m.Role), Content: m.Content})
	}
	return chatRequest{
		Model:       p.Model,
		Messages:    messages,
		Temperature: temperature,
		MaxTokens:   maxTokens,
	}
}

func (c *Live) newRequest(ctx context.Context, p config.Provider, body any) (*http.Request, error) {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(body); err != nil {
		return nil, err
	}
	url := strings.TrimSuffix(p.BaseURL, "/") + "/chat/completions"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, &buf)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+p.APIKey)
	req.Header.Set("Content-Type", "application/json")
	return req, nil
}

func isTimeout(err error) bool {
	var t interface{ Timeout() bool }
	return errors.As(err, &t) && t.Timeout()
}
