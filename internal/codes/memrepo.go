package codes

import (
	"context"
	"strings"
	"sync"
)

// MemRepo backs single-process deployments and tests.
type MemRepo struct {
	mu    sync.RWMutex
	codes map[string]Code // keyed by lowercase code
}

func NewMemRepo() *MemRepo {
	return &MemRepo{codes: make(map[string]Code)}
}

func (r *MemRepo) Put(c Code) {
	r.mu.Lock()
	c.CodeLower = strings.ToLower(c.Code)
	r.codes[c.CodeLower] = c
	r.mu.Unlock()
}

func (r *MemRepo) FindByCode(ctx context.Context, code string) (*Code, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.codes[strings.ToLower(code)]
	if !ok {
		return nil, ErrCodeNotFound
	}
	return &c, nil
}
