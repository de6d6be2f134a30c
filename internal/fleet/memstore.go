package fleet

import (
	"context"
	"sync"
	"time"
)

// MemStore keeps records in process memory.
type MemStore struct {
	mu      sync.RWMutex
	records map[string]*GameServerRecord // keyed by id
}

func NewMemStore() *MemStore {
	return &MemStore{records: make(map[string]*GameServerRecord)}
}

func (s *MemStore) FindByIdentity(ctx context.Context, ip string, port int, playlist string) (*GameServerRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, rec := range s.records {
		if rec.IP == ip && rec.Port == port && rec.Playlist == playlist {
			cp := *rec
			return &cp, nil
		}
	}
	return nil, ErrServerNotFound
}

func (s *MemStore) FindByKeyAddr(ctx context.Context, serverKey, ip string, port int) (*GameServerRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, rec := range s.records {
		if rec.ServerKey == serverKey && rec.IP == ip && rec.Port == port {
			cp := *rec
			return &cp, nil
		}
	}
	return nil, ErrServerNotFound
}

func (s *MemStore) Insert(ctx context.Context, rec *GameServerRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *rec
	s.records[rec.ID] = &cp
	return nil
}

func (s *MemStore) Update(ctx context.Context, rec *GameServerRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.records[rec.ID]; !ok {
		return ErrServerNotFound
	}
	cp := *rec
	s.records[rec.ID] = &cp
	return nil
}

func (s *MemStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.records[id]; !ok {
		return ErrServerNotFound
	}
	delete(s.records, id)
	return nil
}

func (s *MemStore) ListByPlaylist(ctx context.Context, playlist string) ([]GameServerRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []GameServerRecord
	for _, rec := range s.records {
		if rec.Playlist == playlist {
			out = append(out, *rec)
		}
	}
	return out, nil
}

func (s *MemStore) ListByStatus(ctx context.Context, status Status) ([]GameServerRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []GameServerRecord
	for _, rec := range s.records {
		if rec.Status == status {
			out = append(out, *rec)
		}
	}
	return out, nil
}

func (s *MemStore) MarkOffline(ctx context.Context, heartbeatBefore time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for _, rec := range s.records {
		if rec.Status == StatusOnline && rec.LastHeartbeat.Before(heartbeatBefore) {
			rec.Status = StatusOffline
			n++
		}
	}
	return n, nil
}
