package kv

import (
	"context"
	"sync"
	"time"
)

type memEntry struct {
	value     string
	expiresAt time.Time // zero means no expiry
}

// Memory is the single-process backend. Expiry is lazy: expired entries are
// dropped when read.
type Memory struct {
	mu      sync.RWMutex
	entries map[string]memEntry
}

func NewMemory() *Memory {
	return &Memory{entries: make(map[string]memEntry)}
}

func (m *Memory) Get(ctx context.Context, key string) (string, bool, error) {
	m.mu.RLock()
	e, ok := m.entries[key]
	m.mu.RUnlock()
	if !ok {
		return "", false, nil
	}
	if !e.expiresAt.IsZero() && time.Now().After(e.expiresAt) {
		m.mu.Lock()
		delete(m.entries, key)
		m.mu.Unlock()
		return "", false, nil
	}
	return e.value, true, nil
}

func (m *Memory) Set(ctx context.Context, key, value string) error {
	m.mu.Lock()
	m.entries[key] = memEntry{value: value}
	m.mu.Unlock()
	return nil
}

func (m *Memory) SetTTL(ctx context.Context, key, value string, ttl time.Duration) error {
	m.mu.Lock()
	m.entries[key] = memEntry{value: value, expiresAt: time.Now().Add(ttl)}
	m.mu.Unlock()
	return nil
}

func (m *Memory) Delete(ctx context.Context, key string) (bool, error) {
	m.mu.Lock()
	_, ok := m.entries[key]
	delete(m.entries, key)
	m.mu.Unlock()
	return ok, nil
}
