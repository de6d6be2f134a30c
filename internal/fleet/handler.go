package fleet

import (
	"errors"
	"net/http"
	"strconv"

	"Momentum/pkg/response"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Handler exposes the fleet registry over HTTP to server-fleet processes.
// authKey is the shared secret a process must present to register at all;
// per-record secrets authenticate everything after that.
type Handler struct {
	svc     *Service
	authKey string
}

func NewHandler(svc *Service, authKey string) *Handler {
	return &Handler{svc: svc, authKey: authKey}
}

type registerRequest struct {
	IP        string `json:"ip" binding:"required"`
	Port      int    `json:"port" binding:"required"`
	Playlist  string `json:"playlist" binding:"required"`
	ServerKey string `json:"serverKey" binding:"required"`
}

type heartbeatRequest struct {
	ServerKey string `json:"serverKey" binding:"required"`
	IP        string `json:"ip" binding:"required"`
	Port      int    `json:"port" binding:"required"`
	Joinable  *bool  `json:"joinable" binding:"required"`
}

type removeRequest struct {
	ServerKey string `json:"serverKey" binding:"required"`
	IP        string `json:"ip" binding:"required"`
	Port      int    `json:"port" binding:"required"`
}

// Register handles update-or-create server registration.
func (h *Handler) Register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ReplyBadRequest(c, "Missing required fields: ip, port, playlist, serverKey")
		return
	}

	if h.authKey != "" && req.ServerKey != h.authKey {
		zap.L().Warn("server registration rejected, bad auth key", zap.String("ip", req.IP))
		response.ReplyUnauthorized(c, "Invalid server key")
		return
	}

	rec, created, err := h.svc.Register(c.Request.Context(), req.IP, req.Port, req.Playlist)
	if err != nil {
		zap.L().Error("server registration failed", zap.String("ip", req.IP), zap.Error(err))
		response.ReplyError500(c, "Failed to register server")
		return
	}

	body := gin.H{
		"serverId":        rec.ID,
		"serverSecretKey": rec.ServerKey,
	}
	if created {
		body["message"] = "Server registered successfully"
		c.JSON(http.StatusCreated, body)
		return
	}
	body["message"] = "Server already existed, updated successfully"
	c.JSON(http.StatusOK, body)
}

// Heartbeat refreshes liveness and joinability for an owned record.
func (h *Handler) Heartbeat(c *gin.Context) {
	var req heartbeatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ReplyBadRequest(c, "Missing required fields: serverKey, ip, port, joinable (boolean)")
		return
	}

	rec, err := h.svc.Heartbeat(c.Request.Context(), req.ServerKey, req.IP, req.Port, *req.Joinable)
	if err != nil {
		if errors.Is(err, ErrServerNotFound) {
			response.ReplyNotFound(c, "Server not found with provided serverKey")
			return
		}
		zap.L().Error("heartbeat failed", zap.String("ip", req.IP), zap.Error(err))
		response.ReplyError500(c, "Failed to update heartbeat")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":  "Heartbeat received and joinability updated",
		"server":   rec.IP + ":" + strconv.Itoa(rec.Port),
		"playlist": rec.Playlist,
		"joinable": rec.Joinable,
	})
}

// Remove deletes an owned record.
func (h *Handler) Remove(c *gin.Context) {
	var req removeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ReplyBadRequest(c, "Missing required fields: serverKey, ip, port")
		return
	}

	if err := h.svc.Remove(c.Request.Context(), req.ServerKey, req.IP, req.Port); err != nil {
		if errors.Is(err, ErrServerNotFound) {
			response.ReplyNotFound(c, "Server not found or invalid serverKey")
			return
		}
		zap.L().Error("server removal failed", zap.String("ip", req.IP), zap.Error(err))
		response.ReplyError500(c, "Failed to remove server")
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Server unregistered successfully"})
}

// List returns all records currently marked online.
func (h *Handler) List(c *gin.Context) {
	servers, err := h.svc.ListOnline(c.Request.Context())
	if err != nil {
		zap.L().Error("server list failed", zap.Error(err))
		response.ReplyError500(c, "Failed to list servers")
		return
	}
	if servers == nil {
		servers = []GameServerRecord{}
	}
	c.JSON(http.StatusOK, servers)
}
