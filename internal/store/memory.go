package store

import (
	"context"
	"sync"
)

// Memory keeps values for the life of the process. Fail lets tests stand in
// for a broken backend.
type Memory struct {
	values map[string]string
	mu     sync.RWMutex
	fail   error
	sets   int
}

func NewMemory() *Memory {
	return &Memory{
		values: make(map[string]string),
	}
}

func (m *Memory) Get(ctx context.Context, key string) (string, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.fail != nil {
		return "", false, unavailable("get", m.fail)
	}
	if err := ctx.Err(); err != nil {
		return "", false, unavailable("get", err)
	}
	v, ok := m.values[key]
	return v, ok, nil
}

func (m *Memory) Set(ctx context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sets++
	if m.fail != nil {
		return unavailable("set", m.fail)
	}
	if err := ctx.Err(); err != nil {
		return unavailable("set", err)
	}
	m.values[key] = value
	return nil
}

func (m *Memory) Close() error { return nil }

// Fail makes every later call return err wrapped in ErrUnavailable. A nil
// err heals the store.
func (m *Memory) Fail(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fail = err
}

// Sets counts Set calls, including failed ones.
func (m *Memory) Sets() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.sets
}
