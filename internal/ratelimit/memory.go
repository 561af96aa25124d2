package ratelimit

import (
	"context"
	"sync"
	"time"
)

// Memory — скользящее окно в памяти процесса. Подходит только для одного инстанса.
type Memory struct {
	mu        sync.Mutex
	limit     int
	window    time.Duration
	hits      map[string][]time.Time
	lastSweep time.Time
	now       func() time.Time
}

// NewMemory создаёт лимитер на limit запросов за window.
func NewMemory(limit int, window time.Duration) *Memory {
	return &Memory{
		limit:  limit,
		window: window,
		hits:   make(map[string][]time.Time),
		now:    time.Now,
	}
}

// Allow отбрасывает отметки старше окна и пропускает запрос, если их меньше limit.
// Ключи с пустым окном удаляются из карты.
func (m *Memory) Allow(_ context.Context, key string) (bool, error) {
	now := m.now()
	cutoff := now.Add(-m.window)

	m.mu.Lock()
	defer m.mu.Unlock()

	if now.Sub(m.lastSweep) >= m.window {
		m.sweep(cutoff)
		m.lastSweep = now
	}

	recent := m.hits[key][:0]
	for _, ts := range m.hits[key] {
		if ts.After(cutoff) {
			recent = append(recent, ts)
		}
	}
	if len(recent) == 0 {
		delete(m.hits, key)
	}
	if len(recent) >= m.limit {
		if len(recent) > 0 {
			m.hits[key] = recent
		}
		return false, nil
	}
	m.hits[key] = append(recent, now)
	return true, nil
}

// sweep удаляет ключи, все отметки которых старше cutoff.
func (m *Memory) sweep(cutoff time.Time) {
	for key, hits := range m.hits {
		if len(hits) == 0 || !hits[len(hits)-1].After(cutoff) {
			delete(m.hits, key)
		}
	}
}
