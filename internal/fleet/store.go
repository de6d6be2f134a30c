package fleet

import (
	"context"
	"errors"
	"time"
)

var (
	ErrServerNotFound = errors.New("server not found")
	ErrNoServer       = errors.New("no eligible server")
)

// Store persists GameServerRecords. MySQL backs multi-process deployments;
// the memory implementation backs single-process runs and tests.
type Store interface {
	FindByIdentity(ctx context.Context, ip string, port int, playlist string) (*GameServerRecord, error)
	FindByKeyAddr(ctx context.Context, serverKey, ip string, port int) (*GameServerRecord, error)
	Insert(ctx context.Context, rec *GameServerRecord) error
	Update(ctx context.Context, rec *GameServerRecord) error
	Delete(ctx context.Context, id string) error
	ListByPlaylist(ctx context.Context, playlist string) ([]GameServerRecord, error)
	ListByStatus(ctx context.Context, status Status) ([]GameServerRecord, error)
	// MarkOffline flips online records with a heartbeat before the cutoff to
	// offline and reports how many were flipped.
	MarkOffline(ctx context.Context, heartbeatBefore time.Time) (int64, error)
}
