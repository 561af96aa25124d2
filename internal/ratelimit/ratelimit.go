// Package ratelimit реализует ограничение частоты запросов по ключу
// со скользящим окном: в памяти процесса или в общем redis.
package ratelimit

import (
	"context"
	"fmt"

	"github.com/magabrotheeeer/duelchat/internal/config"
)

// Limiter решает, можно ли пропустить ещё один запрос по ключу.
type Limiter interface {
	Allow(ctx context.Context, key string) (bool, error)
}

// Backends.
const (
	BackendMemory = "memory"
	BackendRedis  = "redis"
)

// New строит лимитер по конфигу. Для redis нужен клиент из NewRedisClient.
func New(cfg config.RateLimit, rdb RedisClient) (Limiter, error) {
	const op = "ratelimit.New"
	switch cfg.Backend {
	case "", BackendMemory:
		return NewMemory(cfg.MaxRequests, cfg.Window), nil
	case BackendRedis:
		if rdb == nil {
			return nil, fmt.Errorf("%s: redis backend requires redis_connection.address", op)
		}
		return NewRedis(rdb, "duelchat:rl", cfg.MaxRequests, cfg.Window), nil
	default:
		return nil, fmt.Errorf("%s: unknown backend %q", op, cfg.Backend)
	}
}
