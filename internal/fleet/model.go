package fleet

import "time"

type Status string

const (
	StatusOnline      Status = "online"
	StatusOffline     Status = "offline"
	StatusMaintenance Status = "maintenance"
)

// GameServerRecord is one registered game-server process. Identity is the
// (ip, port, playlist) tuple; only the holder of ServerKey may mutate it.
type GameServerRecord struct {
	ID                    string    `db:"id" json:"serverId"`
	IP                    string    `db:"ip" json:"ip"`
	Port                  int       `db:"port" json:"port"`
	Playlist              string    `db:"playlist" json:"playlist"`
	Name                  string    `db:"name" json:"name"`
	Region                string    `db:"region" json:"region"`
	MaxPlayers            int       `db:"max_players" json:"maxPlayers"`
	CurrentPlayers        int       `db:"current_players" json:"currentPlayers"`
	Status                Status    `db:"status" json:"status"`
	Joinable              bool      `db:"joinable" json:"joinable"`
	LastHeartbeat         time.Time `db:"last_heartbeat" json:"lastHeartbeat"`
	LastJoinabilityUpdate time.Time `db:"last_joinability_update" json:"lastJoinabilityUpdate"`
	RegisteredAt          time.Time `db:"registered_at" json:"registeredAt"`
	ServerKey             string    `db:"server_key" json:"-"`
}
