package matchmaking

import (
	"context"
	"encoding/json"

	"Momentum/internal/kv"
	"Momentum/pkg/monitor"

	"go.uber.org/zap"
)

const (
	keySearching     = "matchmaking:searching"
	keySearchCounter = "playerInSearchCounter:"
)

// DemandSnapshot is the aggregate searching-player count, the scaling
// signal consumed by the fleet autoscaler.
type DemandSnapshot struct {
	Total     int            `json:"total"`
	Playlists map[string]int `json:"playlists"`
}

// Demand tracks how many players are searching per playlist. The counters
// live in the shared store and are read-modify-write without any locking:
// they are a scaling signal, and approximate values are acceptable by
// design. The per-account marker keeps repeated discovery polls from
// counting one account more than once.
type Demand struct {
	store kv.Store
}

func NewDemand(store kv.Store) *Demand {
	return &Demand{store: store}
}

func (d *Demand) Snapshot(ctx context.Context) (DemandSnapshot, error) {
	snap := DemandSnapshot{Playlists: map[string]int{}}
	raw, ok, err := d.store.Get(ctx, keySearching)
	if err != nil || !ok {
		return snap, err
	}
	if err := json.Unmarshal([]byte(raw), &snap); err != nil {
		return DemandSnapshot{Playlists: map[string]int{}}, err
	}
	if snap.Playlists == nil {
		snap.Playlists = map[string]int{}
	}
	return snap, nil
}

func (d *Demand) write(ctx context.Context, snap DemandSnapshot) error {
	raw, err := json.Marshal(snap)
	if err != nil {
		return err
	}
	monitor.SearchingGauge.Set(float64(snap.Total))
	return d.store.Set(ctx, keySearching, string(raw))
}

func (d *Demand) addSearching(ctx context.Context, playlistPath string) error {
	snap, err := d.Snapshot(ctx)
	if err != nil {
		return err
	}
	snap.Total++
	snap.Playlists[playlistPath]++
	return d.write(ctx, snap)
}

func (d *Demand) removeSearching(ctx context.Context, playlistPath string) error {
	snap, err := d.Snapshot(ctx)
	if err != nil {
		return err
	}
	if snap.Total > 0 {
		snap.Total--
	}
	if n := snap.Playlists[playlistPath]; n > 1 {
		snap.Playlists[playlistPath] = n - 1
	} else {
		delete(snap.Playlists, playlistPath)
	}
	return d.write(ctx, snap)
}

// AddSearchingOnce counts an account into the playlist's demand at most
// once, however many discovery polls it makes. Errors are logged and
// swallowed; losing a count never breaks a negotiation.
func (d *Demand) AddSearchingOnce(ctx context.Context, accountID, playlistPath string) {
	key := keySearchCounter + accountID
	_, counted, err := d.store.Get(ctx, key)
	if err != nil {
		zap.L().Warn("demand counter read failed", zap.String("account", accountID), zap.Error(err))
		return
	}
	if counted {
		return
	}
	if err := d.addSearching(ctx, playlistPath); err != nil {
		zap.L().Warn("demand counter increment failed", zap.String("playlist", playlistPath), zap.Error(err))
		return
	}
	if err := d.store.Set(ctx, key, "true"); err != nil {
		zap.L().Warn("demand counter marker write failed", zap.String("account", accountID), zap.Error(err))
	}
}

// ReleaseSearching undoes AddSearchingOnce if the account was counted.
// Safe to call on every close path; it is a no-op without the marker.
func (d *Demand) ReleaseSearching(ctx context.Context, accountID, playlistPath string) {
	key := keySearchCounter + accountID
	_, counted, err := d.store.Get(ctx, key)
	if err != nil {
		zap.L().Warn("demand counter read failed", zap.String("account", accountID), zap.Error(err))
		return
	}
	if !counted {
		return
	}
	if err := d.removeSearching(ctx, playlistPath); err != nil {
		zap.L().Warn("demand counter decrement failed", zap.String("playlist", playlistPath), zap.Error(err))
	}
	if _, err := d.store.Delete(ctx, key); err != nil {
		zap.L().Warn("demand counter marker delete failed", zap.String("account", accountID), zap.Error(err))
	}
}
