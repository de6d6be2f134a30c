package fleet

import (
	"context"
	"testing"
	"time"
)

const testPlaylist = "/Game/Athena/Playlists/Playlist_DefaultSolo.Playlist_DefaultSolo"

func newTestService() (*Service, *MemStore) {
	store := NewMemStore()
	svc := NewService(store)
	return svc, store
}

func TestRegisterIsUpsert(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService()

	first, created, err := svc.Register(ctx, "1.2.3.4", 7777, testPlaylist)
	if err != nil {
		t.Fatalf("first register: %v", err)
	}
	if !created {
		t.Fatal("first register should create")
	}
	if first.ServerKey == "" {
		t.Fatal("created record must carry a secret key")
	}

	second, created, err := svc.Register(ctx, "1.2.3.4", 7777, testPlaylist)
	if err != nil {
		t.Fatalf("second register: %v", err)
	}
	if created {
		t.Fatal("re-registering the same identity must update, not create")
	}
	if second.ID != first.ID {
		t.Errorf("re-registration changed id: %s -> %s", first.ID, second.ID)
	}
	if second.ServerKey != first.ServerKey {
		t.Errorf("re-registration changed secret key")
	}
}

func TestRegisterDifferentPlaylistIsNewRecord(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService()

	a, _, _ := svc.Register(ctx, "1.2.3.4", 7777, testPlaylist)
	b, created, err := svc.Register(ctx, "1.2.3.4", 7777, "/Game/Athena/Playlists/Playlist_DefaultDuo.Playlist_DefaultDuo")
	if err != nil || !created {
		t.Fatalf("register with different playlist = (created=%v, err=%v), want new record", created, err)
	}
	if a.ID == b.ID {
		t.Error("distinct identities must not share a record")
	}
}

func TestHeartbeatUnknownKey(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService()

	if _, err := svc.Heartbeat(ctx, "bogus", "1.2.3.4", 7777, true); err != ErrServerNotFound {
		t.Fatalf("heartbeat with unknown key = %v, want ErrServerNotFound", err)
	}
}

func TestRemove(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService()

	rec, _, _ := svc.Register(ctx, "1.2.3.4", 7777, testPlaylist)
	if err := svc.Remove(ctx, rec.ServerKey, "1.2.3.4", 7777); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if err := svc.Remove(ctx, rec.ServerKey, "1.2.3.4", 7777); err != ErrServerNotFound {
		t.Fatalf("second remove = %v, want ErrServerNotFound", err)
	}
}

func TestListEligibleFiltering(t *testing.T) {
	ctx := context.Background()
	svc, store := newTestService()
	now := time.Now()
	svc.now = func() time.Time { return now }

	fresh := now.Add(-time.Minute)
	mk := func(id string, status Status, joinable bool, hb, ju time.Time) {
		_ = store.Insert(ctx, &GameServerRecord{
			ID: id, IP: "10.0.0." + id, Port: 7777, Playlist: testPlaylist,
			Status: status, Joinable: joinable,
			LastHeartbeat: hb, LastJoinabilityUpdate: ju,
		})
	}

	mk("1", StatusOnline, true, fresh, fresh)                                // eligible
	mk("2", StatusOffline, true, fresh, fresh)                               // wrong status
	mk("3", StatusMaintenance, true, fresh, fresh)                           // wrong status
	mk("4", StatusOnline, false, fresh, fresh)                               // not joinable
	mk("5", StatusOnline, true, now.Add(-6*time.Minute), fresh)              // stale heartbeat
	mk("6", StatusOnline, true, fresh, now.Add(-11*time.Minute))             // stale joinability
	mk("7", StatusOnline, true, now.Add(-5*time.Minute), fresh)              // exactly at bound: stale

	eligible, err := svc.ListEligible(ctx, testPlaylist)
	if err != nil {
		t.Fatalf("ListEligible: %v", err)
	}
	if len(eligible) != 1 || eligible[0].ID != "1" {
		t.Fatalf("ListEligible = %+v, want only record 1", eligible)
	}

	for _, rec := range eligible {
		if rec.Status != StatusOnline || !rec.Joinable {
			t.Errorf("eligible record violates predicate: %+v", rec)
		}
	}
}

func TestPickEligibleNoServer(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService()

	if _, err := svc.PickEligible(ctx, testPlaylist); err != ErrNoServer {
		t.Fatalf("PickEligible on empty registry = %v, want ErrNoServer", err)
	}
}

func TestSweepDemotesStaleServers(t *testing.T) {
	ctx := context.Background()
	svc, store := newTestService()
	now := time.Now()
	svc.now = func() time.Time { return now }

	_ = store.Insert(ctx, &GameServerRecord{
		ID: "stale", IP: "1.1.1.1", Port: 7777, Playlist: testPlaylist,
		Status: StatusOnline, Joinable: true,
		LastHeartbeat:         now.Add(-11 * time.Minute),
		LastJoinabilityUpdate: now,
	})
	_ = store.Insert(ctx, &GameServerRecord{
		ID: "fresh", IP: "2.2.2.2", Port: 7777, Playlist: testPlaylist,
		Status: StatusOnline, Joinable: true,
		LastHeartbeat:         now.Add(-time.Minute),
		LastJoinabilityUpdate: now,
	})

	n, err := svc.Sweep(ctx, 10*time.Minute)
	if err != nil {
		t.Fatalf("Sweep: %v", err)
	}
	if n != 1 {
		t.Fatalf("Sweep demoted %d records, want 1", n)
	}

	// even with joinable still true, the demoted record is no longer eligible
	eligible, _ := svc.ListEligible(ctx, testPlaylist)
	for _, rec := range eligible {
		if rec.ID == "stale" {
			t.Error("swept record still listed as eligible")
		}
	}

	online, _ := svc.ListOnline(ctx)
	if len(online) != 1 || online[0].ID != "fresh" {
		t.Fatalf("online after sweep = %+v, want only fresh", online)
	}
}

func TestSweeperLoop(t *testing.T) {
	ctx := context.Background()
	svc, store := newTestService()

	_ = store.Insert(ctx, &GameServerRecord{
		ID: "stale", IP: "1.1.1.1", Port: 7777, Playlist: testPlaylist,
		Status: StatusOnline, Joinable: true,
		LastHeartbeat:         time.Now().Add(-time.Hour),
		LastJoinabilityUpdate: time.Now(),
	})

	sw := NewSweeper(svc, 10*time.Millisecond, 10*time.Minute)
	sw.Start()
	time.Sleep(50 * time.Millisecond)
	sw.Stop()

	rec, err := store.FindByIdentity(ctx, "1.1.1.1", 7777, testPlaylist)
	if err != nil {
		t.Fatalf("record vanished: %v", err)
	}
	if rec.Status != StatusOffline {
		t.Fatalf("sweeper did not demote stale record, status = %s", rec.Status)
	}
}
