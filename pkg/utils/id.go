package utils

import (
	"strings"
	"sync"

	"github.com/bwmarrin/snowflake"
	"github.com/google/uuid"
)

var (
	sfNode *snowflake.Node
	sfOnce sync.Once
)

// InitIDNode sets up the snowflake node. machineID distinguishes instances
// in multi-process deployments; call once at bootstrap.
func InitIDNode(machineID int64) (err error) {
	sfOnce.Do(func() {
		sfNode, err = snowflake.NewNode(machineID)
	})
	return
}

// MakeID returns a short unique identifier for tickets, matches and sessions.
func MakeID() string {
	if sfNode == nil {
		_ = InitIDNode(1)
	}
	return sfNode.Generate().String()
}

// MakeSecretKey returns a random secret suitable for server authentication.
func MakeSecretKey() string {
	return uuid.NewString()
}

// MakeSessionKey returns an uppercase dashless identifier, the shape the
// game client expects for owner and session keys.
func MakeSessionKey() string {
	return strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", ""))
}
