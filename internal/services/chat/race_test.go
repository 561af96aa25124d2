package chat_test

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/magabrotheeeer/duelchat/internal/migrations"
	"github.com/magabrotheeeer/duelchat/internal/models"
	"github.com/magabrotheeeer/duelchat/internal/services/chat"
	"github.com/magabrotheeeer/duelchat/internal/services/plan"
	"github.com/magabrotheeeer/duelchat/internal/services/usage"
	"github.com/magabrotheeeer/duelchat/internal/storage/repository"
)

// gatedGenerator держит генерацию, пока тест не закроет release.
type gatedGenerator struct {
	entered chan struct{}
	release chan struct{}
	once    sync.Once
}

func (g *gatedGenerator) Generate(ctx context.Context, p models.Provider, _ []*models.Message, _ models.Mode) (string, error) {
	g.once.Do(func() { close(g.entered) })
	select {
	case <-g.release:
		return "answer from " + string(p), nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

func setupStorage(t *testing.T) *repository.Storage {
	t.Helper()
	if testing.Short() {
		t.Skip("integration test")
	}
	ctx := context.Background()

	pgContainer, err := postgres.Run(ctx,
		"postgres:15-alpine",
		postgres.WithDatabase("testdb"),
		postgres.WithUsername("user"),
		postgres.WithPassword("password"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(time.Minute),
		),
	)
	require.NoError(t, err)

	dsn, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	storage, err := repository.New(dsn)
	require.NoError(t, err)

	path, err := filepath.Abs("../../../migrations")
	require.NoError(t, err)
	require.NoError(t, migrations.Run(storage.DB, path))

	t.Cleanup(func() {
		_ = storage.DB.Close()
		if err := pgContainer.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %s", err)
		}
	})
	return storage
}

type turnOutcome struct {
	res *chat.TurnResult
	err error
}

func TestSendTurn_ConcurrentFirstTurns(t *testing.T) {
	storage := setupStorage(t)
	ctx := context.Background()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))

	gen := &gatedGenerator{entered: make(chan struct{}), release: make(chan struct{})}
	svc := chat.New(storage, usage.New(storage, plan.New(storage), log), gen, 30*time.Second, log)

	thread, err := svc.CreateThread(ctx, "user-1", "")
	require.NoError(t, err)

	outcomes := make(chan turnOutcome, 2)
	send := func() {
		res, err := svc.SendTurn(ctx, "user-1", chat.TurnRequest{
			ThreadID: thread.ID,
			Content:  "hello",
			Mode:     models.ModeExploration,
		})
		outcomes <- turnOutcome{res: res, err: err}
	}

	go send()
	select {
	case <-gen.entered:
	case <-time.After(10 * time.Second):
		t.Fatal("first turn did not reach the generator")
	}

	// Вторая реплика должна встать на блокировку строки треда.
	go send()
	require.Eventually(t, func() bool {
		var waiting int
		err := storage.DB.QueryRowContext(ctx,
			`SELECT count(*) FROM pg_stat_activity WHERE wait_event_type = 'Lock'`).Scan(&waiting)
		return err == nil && waiting == 1
	}, 10*time.Second, 50*time.Millisecond, "second turn is not waiting on the thread lock")
	close(gen.release)

	var duels, notLocked int
	for range 2 {
		select {
		case o := <-outcomes:
			switch {
			case o.err == nil && o.res.Duel != nil:
				duels++
			case o.err != nil:
				assert.ErrorIs(t, o.err, models.ErrThreadNotLocked)
				notLocked++
			}
		case <-time.After(30 * time.Second):
			t.Fatal("turn did not finish")
		}
	}
	assert.Equal(t, 1, duels, "дуэль создаёт только одна реплика")
	assert.Equal(t, 1, notLocked)

	var messagesUsed int
	require.NoError(t, storage.DB.QueryRowContext(ctx,
		`SELECT messages_used FROM usage_ledgers WHERE user_id = $1`, "user-1").Scan(&messagesUsed))
	assert.Equal(t, 1, messagesUsed, "квота списана один раз")

	var duelRows, userMessages int
	require.NoError(t, storage.DB.QueryRowContext(ctx,
		`SELECT count(*) FROM duels WHERE thread_id = $1`, thread.ID).Scan(&duelRows))
	require.NoError(t, storage.DB.QueryRowContext(ctx,
		`SELECT count(*) FROM messages WHERE thread_id = $1 AND role = $2`, thread.ID, string(models.RoleUser)).Scan(&userMessages))
	assert.Equal(t, 1, duelRows)
	assert.Equal(t, 1, userMessages)
}
