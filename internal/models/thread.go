package models

import (
	"fmt"
	"strings"
	"time"
)

// Provider — ключ одного из двух взаимозаменяемых генераторов ответа.
type Provider string

const (
	ProviderA Provider = "A"
	ProviderB Provider = "B"
)

// ParseProvider разбирает ключ провайдера.
func ParseProvider(s string) (Provider, error) {
	switch Provider(s) {
	case ProviderA, ProviderB:
		return Provider(s), nil
	}
	return "", fmt.Errorf("%w: unknown provider %q", ErrInvalidInput, s)
}

// LockState — состояние выбора провайдера для треда.
type LockState string

const (
	// LockUnlocked — в треде ещё не было ни одной пользовательской реплики.
	LockUnlocked LockState = "unlocked"
	// LockPendingDuel — первая реплика породила дуэль, голос ещё не отдан.
	LockPendingDuel LockState = "pending_duel"
	// LockLocked — тред навсегда привязан к LockedProvider.
	LockLocked LockState = "locked"
)

// TurnKind — как обрабатывать очередную пользовательскую реплику.
type TurnKind int

const (
	TurnDuel TurnKind = iota + 1
	TurnSingle
)

// DefaultThreadTitle — название треда, пока в нём нет сообщений.
const DefaultThreadTitle = "New chat"

const maxTitleLen = 40

// Thread — диалог пользователя. Переходы LockState допустимы только
// unlocked -> pending_duel -> locked, обратных переходов нет.
type Thread struct {
	ID             string    `json:"id"`
	UserID         string    `json:"-"`
	Title          string    `json:"title"`
	State          LockState `json:"lock_state"`
	LockedProvider Provider  `json:"locked_provider,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// NextTurn определяет ветку обработки новой пользовательской реплики.
func (t *Thread) NextTurn() (TurnKind, error) {
	switch t.State {
	case LockUnlocked:
		return TurnDuel, nil
	case LockLocked:
		return TurnSingle, nil
	default:
		return 0, ErrThreadNotLocked
	}
}

// StartDuel переводит тред в ожидание голоса.
func (t *Thread) StartDuel() error {
	if t.State != LockUnlocked {
		return fmt.Errorf("thread %s: cannot start duel in state %s", t.ID, t.State)
	}
	t.State = LockPendingDuel
	return nil
}

// Lock привязывает тред к провайдеру. Единственный путь в состояние locked.
func (t *Thread) Lock(p Provider) error {
	if t.State != LockPendingDuel {
		return fmt.Errorf("thread %s: cannot lock in state %s", t.ID, t.State)
	}
	t.State = LockLocked
	t.LockedProvider = p
	return nil
}

// TitleFromContent строит название треда из первой реплики.
func TitleFromContent(content string) string {
	title := strings.Join(strings.Fields(content), " ")
	if r := []rune(title); len(r) > maxTitleLen {
		title = string(r[:maxTitleLen])
	}
	if title == "" {
		return DefaultThreadTitle
	}
	return title
}

// Role обозначает автора сообщения.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// Message — неизменяемая реплика треда. Порядок внутри треда задаётся Seq.
type Message struct {
	ID        string    `json:"id"`
	ThreadID  string    `json:"-"`
	UserID    string    `json:"-"`
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	Seq       int64     `json:"-"`
	CreatedAt time.Time `json:"created_at"`
}

// Duel — пара полных ответов обоих провайдеров на первую реплику треда.
// Chosen после установки не меняется.
type Duel struct {
	ID            string
	ThreadID      string
	UserMessageID string
	OptionA       string
	OptionB       string
	UIOrderSeed   int64
	Chosen        Provider
	CreatedAt     time.Time
}

// Resolved сообщает, отдан ли голос.
func (d *Duel) Resolved() bool {
	return d.Chosen != ""
}

// Option возвращает текст, сгенерированный провайдером p.
func (d *Duel) Option(p Provider) string {
	if p == ProviderB {
		return d.OptionB
	}
	return d.OptionA
}

// DuelSide описывает вариант дуэли в позиции отображения.
type DuelSide struct {
	Key  Provider `json:"key"`
	Text string   `json:"text"`
}

// Sides раскладывает варианты по сторонам по чётности UIOrderSeed.
func (d *Duel) Sides() (left, right DuelSide) {
	leftKey, rightKey := ProviderA, ProviderB
	if d.UIOrderSeed%2 != 0 {
		leftKey, rightKey = ProviderB, ProviderA
	}
	return DuelSide{Key: leftKey, Text: d.Option(leftKey)}, DuelSide{Key: rightKey, Text: d.Option(rightKey)}
}
