package matchmaking

import (
	"errors"
	"net/http"
	"time"

	"Momentum/internal/fleet"
	"Momentum/pkg/response"
	"Momentum/pkg/utils"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const dsName = "[DS]momentum-liveeugcec1c2e30ubrcore0a-z8hj-1968"

// SessionDetail resolves a negotiated assignment into the connection
// descriptor the game client joins with. The response shape is consumed by
// the client verbatim and must stay stable.
func (h *Handler) SessionDetail(c *gin.Context) {
	ctx := c.Request.Context()
	accountID := c.GetString("accountID")
	sessionID := c.Param("sessionId")

	playlistPath, _, err := h.sessions.Playlist(ctx, accountID)
	if err != nil {
		zap.L().Error("playlist lookup failed", zap.String("account", accountID), zap.Error(err))
		response.ReplyError500(c, "Failed to resolve playlist")
		return
	}

	binding, ok, err := h.sessions.CustomKey(ctx, accountID)
	if err != nil {
		zap.L().Error("custom key lookup failed", zap.String("account", accountID), zap.Error(err))
		response.ReplyError500(c, "Failed to resolve server binding")
		return
	}
	if !ok {
		binding, ok, err = h.sessions.ChosenServer(ctx, accountID)
		if err != nil {
			zap.L().Error("chosen server lookup failed", zap.String("account", accountID), zap.Error(err))
			response.ReplyError500(c, "Failed to resolve server binding")
			return
		}
	}
	if !ok {
		// the client can reach this endpoint without having negotiated;
		// fall back to an on-demand registry lookup
		rec, err := h.fleet.PickEligible(ctx, playlistPath)
		if err != nil {
			if errors.Is(err, fleet.ErrNoServer) {
				response.ReplyMatchmakingError(c, http.StatusNotFound,
					"errors.momentum.matchmaking.no_server_found",
					"No server found for playlist "+playlistPath,
					"invalid_playlist", 1013)
				return
			}
			zap.L().Error("on-demand server lookup failed", zap.String("playlist", playlistPath), zap.Error(err))
			response.ReplyError500(c, "Failed to find a server")
			return
		}
		binding = &ServerBinding{IP: rec.IP, Port: rec.Port, Playlist: rec.Playlist}
	}

	buildID, okBuild, _ := h.sessions.BuildID(ctx, accountID)
	if !okBuild || buildID == "" {
		buildID = "0"
	}

	c.JSON(http.StatusOK, gin.H{
		"id":                 sessionID,
		"ownerId":            utils.MakeSessionKey(),
		"ownerName":          dsName,
		"serverName":         dsName,
		"serverAddress":      binding.IP,
		"serverPort":         binding.Port,
		"maxPublicPlayers":   220,
		"openPublicPlayers":  175,
		"maxPrivatePlayers":  0,
		"openPrivatePlayers": 0,
		"attributes": gin.H{
			"REGION_s":                "EU",
			"GAMEMODE_s":              "FORTATHENA",
			"ALLOWBROADCASTING_b":     true,
			"SUBREGION_s":             "GB",
			"DCID_s":                  "MOMENTUM-LIVEEUGCEC1C2E30UBRCORE0A-14840880",
			"tenant_s":                "Momentum",
			"MATCHMAKINGPOOL_s":       "Any",
			"STORMSHIELDDEFENSETYPE_i": 0,
			"HOTFIXVERSION_i":         0,
			"PLAYLISTNAME_s":          binding.Playlist,
			"SESSIONKEY_s":            utils.MakeSessionKey(),
			"TENANT_s":                "Momentum",
			"BEACONPORT_i":            15009,
		},
		"publicPlayers":                   []string{},
		"privatePlayers":                  []string{},
		"totalPlayers":                    45,
		"allowJoinInProgress":             false,
		"shouldAdvertise":                 false,
		"isDedicated":                     false,
		"usesStats":                       false,
		"allowInvites":                    false,
		"usesPresence":                    false,
		"allowJoinViaPresence":            true,
		"allowJoinViaPresenceFriendsOnly": false,
		"buildUniqueId":                   buildID,
		"lastUpdated":                     time.Now().Format(time.RFC3339),
		"started":                         false,
	})
}
