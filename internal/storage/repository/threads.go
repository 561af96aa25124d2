package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/magabrotheeeer/duelchat/internal/models"
)

const threadColumns = `id, user_id, title, lock_state, locked_provider, created_at, updated_at`

func scanThread(row interface{ Scan(...any) error }) (*models.Thread, error) {
	var t models.Thread
	var provider sql.NullString
	if err := row.Scan(&t.ID, &t.UserID, &t.Title, &t.State, &provider, &t.CreatedAt, &t.UpdatedAt); err != nil {
		return nil, err
	}
	t.LockedProvider = models.Provider(provider.String)
	return &t, nil
}

// CreateThread создаёт пустой незаблокированный тред пользователя.
func (s *Storage) CreateThread(ctx context.Context, userID, title string) (*models.Thread, error) {
	const op = "storage.CreateThread"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `INSERT INTO threads (id, user_id, title, lock_state)
			  VALUES ($1, $2, $3, $4)
			  RETURNING ` + threadColumns
	t, err := scanThread(s.conn(ctx).QueryRowContext(ctx, query,
		uuid.NewString(), userID, title, models.LockUnlocked))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return t, nil
}

// GetThread возвращает тред, если он принадлежит пользователю.
func (s *Storage) GetThread(ctx context.Context, userID, threadID string) (*models.Thread, error) {
	const op = "storage.GetThread"
	return s.getThread(ctx, op, userID, threadID, "")
}

// LockThread возвращает тред пользователя, блокируя строку до конца транзакции.
// Конкурентные реплики в один тред выполняются строго по очереди.
func (s *Storage) LockThread(ctx context.Context, userID, threadID string) (*models.Thread, error) {
	const op = "storage.LockThread"
	return s.getThread(ctx, op, userID, threadID, " FOR UPDATE")
}

func (s *Storage) getThread(ctx context.Context, op, userID, threadID, suffix string) (*models.Thread, error) {
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}
	if !validID(threadID) {
		return nil, fmt.Errorf("%s: %w", op, models.ErrNotFound)
	}

	query := `SELECT ` + threadColumns + `
			  FROM threads
			  WHERE id = $1 AND user_id = $2` + suffix
	t, err := scanThread(s.conn(ctx).QueryRowContext(ctx, query, threadID, userID))
	if err != nil {
		return nil, notFound(op, err)
	}
	return t, nil
}

// SaveThread сохраняет название, состояние блокировки и время обновления треда.
func (s *Storage) SaveThread(ctx context.Context, t *models.Thread) error {
	const op = "storage.SaveThread"
	select {
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `UPDATE threads
			  SET title = $1, lock_state = $2, locked_provider = $3, updated_at = $4
			  WHERE id = $5`
	res, err := s.conn(ctx).ExecContext(ctx, query,
		t.Title, t.State, nullString(string(t.LockedProvider)), t.UpdatedAt, t.ID)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if n == 0 {
		return fmt.Errorf("%s: %w", op, models.ErrNotFound)
	}
	return nil
}

// ListThreads возвращает треды пользователя, последние обновлённые первыми.
func (s *Storage) ListThreads(ctx context.Context, userID string) ([]*models.Thread, error) {
	const op = "storage.ListThreads"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT ` + threadColumns + `
			  FROM threads
			  WHERE user_id = $1
			  ORDER BY updated_at DESC, id`
	rows, err := s.conn(ctx).QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = rows.Close()
	}()

	result := make([]*models.Thread, 0)
	for rows.Next() {
		t, err := scanThread(rows)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		result = append(result, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return result, nil
}

// DeleteThread удаляет тред пользователя вместе с сообщениями и дуэлями.
func (s *Storage) DeleteThread(ctx context.Context, userID, threadID string) error {
	const op = "storage.DeleteThread"
	select {
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}
	if !validID(threadID) {
		return fmt.Errorf("%s: %w", op, models.ErrNotFound)
	}

	res, err := s.conn(ctx).ExecContext(ctx, `DELETE FROM threads WHERE id = $1 AND user_id = $2`, threadID, userID)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if n == 0 {
		return fmt.Errorf("%s: %w", op, models.ErrNotFound)
	}
	return nil
}

// InsertMessage добавляет сообщение в конец треда.
func (s *Storage) InsertMessage(ctx context.Context, m *models.Message) error {
	const op = "storage.InsertMessage"
	select {
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now().UTC()
	}
	query := `INSERT INTO messages (id, thread_id, user_id, role, content, created_at)
			  VALUES ($1, $2, $3, $4, $5, $6)
			  RETURNING seq`
	err := s.conn(ctx).QueryRowContext(ctx, query,
		m.ID, m.ThreadID, m.UserID, m.Role, m.Content, m.CreatedAt).Scan(&m.Seq)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// ListMessages возвращает сообщения треда в порядке добавления.
func (s *Storage) ListMessages(ctx context.Context, threadID string) ([]*models.Message, error) {
	const op = "storage.ListMessages"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT id, thread_id, user_id, role, content, seq, created_at
			  FROM messages
			  WHERE thread_id = $1
			  ORDER BY seq`
	rows, err := s.conn(ctx).QueryContext(ctx, query, threadID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = rows.Close()
	}()

	result := make([]*models.Message, 0)
	for rows.Next() {
		var m models.Message
		if err := rows.Scan(&m.ID, &m.ThreadID, &m.UserID, &m.Role, &m.Content, &m.Seq, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		result = append(result, &m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return result, nil
}
