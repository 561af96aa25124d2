package ratelimit

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/magabrotheeeer/duelchat/internal/config"
)

// RedisClient описывает методы go-redis, которые использует лимитер.
type RedisClient interface {
	redis.Scripter
}

// Скрипт удаляет отметки старше окна и добавляет новую, если лимит не исчерпан.
// Возвращает 1, если запрос пропущен.
var slidingWindowScript = redis.NewScript(`
local now = tonumber(ARGV[1])
local window = tonumber(ARGV[2])
local limit = tonumber(ARGV[3])
redis.call("ZREMRANGEBYSCORE", KEYS[1], "-inf", now - window)
if redis.call("ZCARD", KEYS[1]) >= limit then
  return 0
end
redis.call("ZADD", KEYS[1], now, ARGV[4])
redis.call("PEXPIRE", KEYS[1], window)
return 1
`)

// Redis — скользящее окно в sorted set, общее для всех инстансов.
type Redis struct {
	client RedisClient
	prefix string
	limit  int
	window time.Duration
	now    func() time.Time
}

// NewRedis создаёт лимитер на limit запросов за window с ключами вида prefix:key.
func NewRedis(client RedisClient, prefix string, limit int, window time.Duration) *Redis {
	return &Redis{
		client: client,
		prefix: strings.TrimSuffix(strings.TrimSpace(prefix), ":"),
		limit:  limit,
		window: window,
		now:    time.Now,
	}
}

// Allow пропускает запрос, если в окне меньше limit отметок.
func (r *Redis) Allow(ctx context.Context, key string) (bool, error) {
	const op = "ratelimit.Redis.Allow"

	windowMs := r.window.Milliseconds()
	if windowMs < 1 {
		windowMs = 1
	}
	res, err := slidingWindowScript.Run(ctx, r.client,
		[]string{r.prefix + ":" + key},
		r.now().UnixMilli(), windowMs, r.limit, uuid.NewString(),
	).Int64()
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	return res == 1, nil
}

// NewRedisClient подключается к redis и проверяет соединение.
func NewRedisClient(ctx context.Context, cfg config.Redis) (*redis.Client, error) {
	const op = "ratelimit.NewRedisClient"
	rdb := redis.NewClient(&redis.Options{
		Addr:         cfg.Address,
		Password:     cfg.Password,
		DB:           cfg.DB,
		Username:     cfg.User,
		MaxRetries:   cfg.MaxRetries,
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.Timeout,
		WriteTimeout: cfg.Timeout,
	})

	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return rdb, nil
}
