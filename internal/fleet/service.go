package fleet

import (
	"context"
	"math/rand"
	"strconv"
	"time"

	"Momentum/pkg/utils"

	"go.uber.org/zap"
)

const (
	defaultHeartbeatStale   = 5 * time.Minute
	defaultJoinabilityStale = 10 * time.Minute
	defaultRegion           = "EU"
	defaultMaxPlayers       = 100
)

// Service owns the fleet registry rules: update-or-create registration,
// key-authenticated heartbeats and removal, and the staleness-based
// eligibility predicate.
type Service struct {
	store            Store
	heartbeatStale   time.Duration
	joinabilityStale time.Duration
	now              func() time.Time
}

func NewService(store Store) *Service {
	return &Service{
		store:            store,
		heartbeatStale:   defaultHeartbeatStale,
		joinabilityStale: defaultJoinabilityStale,
		now:              time.Now,
	}
}

// SetStaleness overrides the eligibility windows; zero keeps the default.
func (s *Service) SetStaleness(heartbeat, joinability time.Duration) {
	if heartbeat > 0 {
		s.heartbeatStale = heartbeat
	}
	if joinability > 0 {
		s.joinabilityStale = joinability
	}
}

// Register upserts on the (ip, port, playlist) identity. A secret key is
// generated only on create; re-registration refreshes timestamps and returns
// the existing record with its original key, so the caller always learns the
// one key that authenticates future heartbeats.
func (s *Service) Register(ctx context.Context, ip string, port int, playlistPath string) (rec *GameServerRecord, created bool, err error) {
	now := s.now()

	existing, err := s.store.FindByIdentity(ctx, ip, port, playlistPath)
	if err == nil {
		existing.LastHeartbeat = now
		existing.LastJoinabilityUpdate = now
		existing.Status = StatusOnline
		existing.Joinable = true
		if err := s.store.Update(ctx, existing); err != nil {
			return nil, false, err
		}
		zap.L().Info("game server re-registered",
			zap.String("server", existing.IP), zap.Int("port", existing.Port),
			zap.String("playlist", existing.Playlist))
		return existing, false, nil
	}
	if err != ErrServerNotFound {
		return nil, false, err
	}

	rec = &GameServerRecord{
		ID:                    utils.MakeID(),
		IP:                    ip,
		Port:                  port,
		Playlist:              playlistPath,
		Name:                  "Server-" + ip + ":" + strconv.Itoa(port),
		Region:                defaultRegion,
		MaxPlayers:            defaultMaxPlayers,
		CurrentPlayers:        0,
		Status:                StatusOnline,
		Joinable:              true,
		LastHeartbeat:         now,
		LastJoinabilityUpdate: now,
		RegisteredAt:          now,
		ServerKey:             utils.MakeSecretKey(),
	}
	if err := s.store.Insert(ctx, rec); err != nil {
		return nil, false, err
	}
	zap.L().Info("game server registered",
		zap.String("server", rec.IP), zap.Int("port", rec.Port),
		zap.String("playlist", rec.Playlist))
	return rec, true, nil
}

// Heartbeat refreshes the liveness timestamps of the record owned by
// serverKey and updates its joinability.
func (s *Service) Heartbeat(ctx context.Context, serverKey, ip string, port int, joinable bool) (*GameServerRecord, error) {
	rec, err := s.store.FindByKeyAddr(ctx, serverKey, ip, port)
	if err != nil {
		return nil, err
	}
	now := s.now()
	rec.LastHeartbeat = now
	rec.LastJoinabilityUpdate = now
	rec.Status = StatusOnline
	rec.Joinable = joinable
	if err := s.store.Update(ctx, rec); err != nil {
		return nil, err
	}
	return rec, nil
}

// Remove deletes the record owned by serverKey.
func (s *Service) Remove(ctx context.Context, serverKey, ip string, port int) error {
	rec, err := s.store.FindByKeyAddr(ctx, serverKey, ip, port)
	if err != nil {
		return err
	}
	return s.store.Delete(ctx, rec.ID)
}

func (s *Service) eligible(rec *GameServerRecord, now time.Time) bool {
	if rec.Status != StatusOnline {
		return false
	}
	if !rec.Joinable {
		return false
	}
	if now.Sub(rec.LastHeartbeat) >= s.heartbeatStale {
		return false
	}
	if now.Sub(rec.LastJoinabilityUpdate) >= s.joinabilityStale {
		return false
	}
	return true
}

// ListEligible returns the servers that may receive players for a playlist:
// online, joinable, heartbeat and joinability update inside their staleness
// windows. No ranking is applied.
func (s *Service) ListEligible(ctx context.Context, playlistPath string) ([]GameServerRecord, error) {
	all, err := s.store.ListByPlaylist(ctx, playlistPath)
	if err != nil {
		return nil, err
	}
	now := s.now()
	var out []GameServerRecord
	for i := range all {
		if s.eligible(&all[i], now) {
			out = append(out, all[i])
		}
	}
	return out, nil
}

// PickEligible selects uniformly at random among eligible servers. Uniform
// choice favors even spread over optimality; there is no load tie-break.
func (s *Service) PickEligible(ctx context.Context, playlistPath string) (*GameServerRecord, error) {
	eligible, err := s.ListEligible(ctx, playlistPath)
	if err != nil {
		return nil, err
	}
	if len(eligible) == 0 {
		return nil, ErrNoServer
	}
	pick := eligible[rand.Intn(len(eligible))]
	return &pick, nil
}

// ListOnline returns every record currently marked online.
func (s *Service) ListOnline(ctx context.Context) ([]GameServerRecord, error) {
	return s.store.ListByStatus(ctx, StatusOnline)
}

// Sweep demotes online records whose heartbeat is older than olderThan.
func (s *Service) Sweep(ctx context.Context, olderThan time.Duration) (int64, error) {
	return s.store.MarkOffline(ctx, s.now().Add(-olderThan))
}
