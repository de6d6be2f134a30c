package matchmaking

import (
	"net/http"

	"Momentum/pkg/response"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// ServerInfo reports whether the fleet should scale up: it picks the
// playlist with the most searching players from the demand counters and
// checks whether any eligible server can take them.
func (h *Handler) ServerInfo(c *gin.Context) {
	ctx := c.Request.Context()

	snap, err := h.demand.Snapshot(ctx)
	if err != nil {
		zap.L().Error("demand snapshot failed", zap.Error(err))
		response.ReplyError500(c, "Failed to read demand counters")
		return
	}

	if len(snap.Playlists) == 0 {
		c.JSON(http.StatusOK, gin.H{
			"server_scaling_required": false,
			"gamemode":                nil,
			"message":                 "No players searching",
		})
		return
	}

	var top string
	var topCount int
	for pl, n := range snap.Playlists {
		if n > topCount || (n == topCount && pl < top) {
			top, topCount = pl, n
		}
	}

	eligible, err := h.fleet.ListEligible(ctx, top)
	if err != nil {
		zap.L().Warn("eligible lookup failed for scaling signal", zap.String("playlist", top), zap.Error(err))
	}

	c.JSON(http.StatusOK, gin.H{
		"server_scaling_required": len(eligible) == 0,
		"gamemode":                top,
		"searching_players":       topCount,
		"available_servers":       len(eligible),
	})
}
