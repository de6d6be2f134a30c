package fleet

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"
)

const schema = `
CREATE TABLE IF NOT EXISTS game_servers (
	id VARCHAR(32) NOT NULL PRIMARY KEY,
	ip VARCHAR(64) NOT NULL,
	port INT NOT NULL,
	playlist VARCHAR(255) NOT NULL,
	name VARCHAR(255) NOT NULL,
	region VARCHAR(16) NOT NULL DEFAULT 'EU',
	max_players INT NOT NULL DEFAULT 100,
	current_players INT NOT NULL DEFAULT 0,
	status VARCHAR(16) NOT NULL DEFAULT 'online',
	joinable TINYINT(1) NOT NULL DEFAULT 1,
	last_heartbeat DATETIME NOT NULL,
	last_joinability_update DATETIME NOT NULL,
	registered_at DATETIME NOT NULL,
	server_key VARCHAR(64) NOT NULL,
	UNIQUE KEY uk_identity (ip, port, playlist),
	KEY idx_playlist_status (playlist, status),
	KEY idx_heartbeat (last_heartbeat)
) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4;`

// MySQLStore persists records in the game_servers table.
type MySQLStore struct {
	db *sqlx.DB
}

func NewMySQLStore(db *sqlx.DB) *MySQLStore {
	return &MySQLStore{db: db}
}

// EnsureSchema creates the game_servers table when missing.
func (s *MySQLStore) EnsureSchema(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, schema)
	return err
}

func (s *MySQLStore) FindByIdentity(ctx context.Context, ip string, port int, playlist string) (*GameServerRecord, error) {
	var rec GameServerRecord
	err := s.db.GetContext(ctx, &rec,
		"SELECT * FROM game_servers WHERE ip = ? AND port = ? AND playlist = ?", ip, port, playlist)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrServerNotFound
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

func (s *MySQLStore) FindByKeyAddr(ctx context.Context, serverKey, ip string, port int) (*GameServerRecord, error) {
	var rec GameServerRecord
	err := s.db.GetContext(ctx, &rec,
		"SELECT * FROM game_servers WHERE server_key = ? AND ip = ? AND port = ?", serverKey, ip, port)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrServerNotFound
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

func (s *MySQLStore) Insert(ctx context.Context, rec *GameServerRecord) error {
	_, err := s.db.NamedExecContext(ctx, `
		INSERT INTO game_servers
			(id, ip, port, playlist, name, region, max_players, current_players,
			 status, joinable, last_heartbeat, last_joinability_update, registered_at, server_key)
		VALUES
			(:id, :ip, :port, :playlist, :name, :region, :max_players, :current_players,
			 :status, :joinable, :last_heartbeat, :last_joinability_update, :registered_at, :server_key)`,
		rec)
	return err
}

func (s *MySQLStore) Update(ctx context.Context, rec *GameServerRecord) error {
	res, err := s.db.NamedExecContext(ctx, `
		UPDATE game_servers SET
			name = :name, region = :region, max_players = :max_players,
			current_players = :current_players, status = :status, joinable = :joinable,
			last_heartbeat = :last_heartbeat, last_joinability_update = :last_joinability_update
		WHERE id = :id`, rec)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		// zero rows also happens when nothing changed; confirm existence
		var exists int
		if err := s.db.GetContext(ctx, &exists,
			"SELECT COUNT(1) FROM game_servers WHERE id = ?", rec.ID); err == nil && exists == 0 {
			return ErrServerNotFound
		}
	}
	return nil
}

func (s *MySQLStore) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM game_servers WHERE id = ?", id)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrServerNotFound
	}
	return nil
}

func (s *MySQLStore) ListByPlaylist(ctx context.Context, playlist string) ([]GameServerRecord, error) {
	var out []GameServerRecord
	err := s.db.SelectContext(ctx, &out,
		"SELECT * FROM game_servers WHERE playlist = ?", playlist)
	return out, err
}

func (s *MySQLStore) ListByStatus(ctx context.Context, status Status) ([]GameServerRecord, error) {
	var out []GameServerRecord
	err := s.db.SelectContext(ctx, &out,
		"SELECT * FROM game_servers WHERE status = ?", status)
	return out, err
}

func (s *MySQLStore) MarkOffline(ctx context.Context, heartbeatBefore time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		"UPDATE game_servers SET status = ? WHERE status = ? AND last_heartbeat < ?",
		StatusOffline, StatusOnline, heartbeatBefore)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
