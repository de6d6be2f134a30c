package matchmaking

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Compatibility stubs. Game clients call these during the join flow and
// only care about the status codes; keep them fixed.

func (h *Handler) FindPlayer(c *gin.Context) {
	c.Status(http.StatusOK)
}

func (h *Handler) Join(c *gin.Context) {
	c.Status(http.StatusNoContent)
}

func (h *Handler) MatchMakingRequest(c *gin.Context) {
	c.JSON(http.StatusOK, []string{})
}

// AccountSession echoes the account/session pair with a fixed key.
func (h *Handler) AccountSession(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"accountId": c.Param("accountId"),
		"sessionId": c.Param("sessionId"),
		"key":       "none",
	})
}
