package matchmaking

import (
	"errors"
	"net/http"
	"strings"

	"Momentum/internal/codes"
	"Momentum/internal/fleet"
	"Momentum/internal/playlist"
	"Momentum/pkg/response"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Handler serves the client-facing matchmaking HTTP surface: ticket
// issuance, session detail, the scaling signal and the compatibility stubs.
type Handler struct {
	sessions   *Sessions
	demand     *Demand
	codes      codes.Repo
	fleet      *fleet.Service
	publicAddr string
}

func NewHandler(sessions *Sessions, demand *Demand, codeRepo codes.Repo, fleetSvc *fleet.Service, publicAddr string) *Handler {
	return &Handler{
		sessions:   sessions,
		demand:     demand,
		codes:      codeRepo,
		fleet:      fleetSvc,
		publicAddr: publicAddr,
	}
}

// Ticket validates a matchmaking request, resolves the playlist, optionally
// binds a private-match code, mints a single-use session token and returns
// the connect descriptor pointing at the websocket negotiator.
func (h *Handler) Ticket(c *gin.Context) {
	ctx := c.Request.Context()
	accountID := c.GetString("accountID")

	bucketID := c.Query("bucketId")
	parts := strings.Split(bucketID, ":")
	if len(parts) != 4 {
		c.Status(http.StatusBadRequest)
		return
	}

	resolved := playlist.Resolve(parts[3])
	if strings.TrimSpace(resolved) == "" {
		response.ReplyMatchmakingError(c, http.StatusNotFound,
			"errors.momentum.matchmaking.playlist.not_found",
			"No playlist found in bucket "+bucketID,
			"invalid_playlist", 1013)
		return
	}

	if err := h.sessions.SetPlaylist(ctx, accountID, resolved); err != nil {
		zap.L().Error("persist playlist failed", zap.String("account", accountID), zap.Error(err))
		response.ReplyError500(c, "Failed to persist playlist")
		return
	}
	if err := h.sessions.MarkSearching(ctx, accountID, resolved); err != nil {
		zap.L().Warn("searching marker write failed", zap.String("account", accountID), zap.Error(err))
	}

	if customKey := c.Query("player.option.customKey"); customKey != "" {
		code, err := h.codes.FindByCode(ctx, customKey)
		if err != nil {
			if errors.Is(err, codes.ErrCodeNotFound) {
				response.ReplyMatchmakingError(c, http.StatusNotFound,
					"errors.momentum.matchmaking.code.not_found",
					"The matchmaking code \""+customKey+"\" was not found",
					"invalid_code", 1013)
				return
			}
			zap.L().Error("custom key lookup failed", zap.String("code", customKey), zap.Error(err))
			response.ReplyError500(c, "Failed to look up matchmaking code")
			return
		}

		binding := ServerBinding{IP: code.IP, Port: code.Port, Playlist: resolved}
		if err := h.sessions.SetCustomKey(ctx, accountID, binding); err != nil {
			zap.L().Error("custom key binding write failed", zap.String("account", accountID), zap.Error(err))
			response.ReplyError500(c, "Failed to bind matchmaking code")
			return
		}
		if err := h.sessions.MarkFound(ctx, accountID, resolved, binding); err != nil {
			zap.L().Warn("found marker write failed", zap.String("account", accountID), zap.Error(err))
		}
	}

	if err := h.sessions.SetBuildID(ctx, accountID, parts[0]); err != nil {
		zap.L().Warn("build id write failed", zap.String("account", accountID), zap.Error(err))
	}

	token, err := h.sessions.MintToken(ctx, accountID, resolved)
	if err != nil {
		zap.L().Error("session token mint failed", zap.String("account", accountID), zap.Error(err))
		response.ReplyError500(c, "Failed to mint session token")
		return
	}

	serviceURL := h.publicAddr + "?session=" + token
	if !strings.HasPrefix(h.publicAddr, "ws") {
		serviceURL = "ws://" + serviceURL
	}

	c.JSON(http.StatusOK, gin.H{
		"serviceUrl": serviceURL,
		"ticketType": "mms-player",
		"payload":    "account",
		// legacy identification channel for clients that drop the token
		"signature": accountID + " " + resolved,
	})
}
