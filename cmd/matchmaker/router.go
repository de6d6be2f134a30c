package main

import (
	"Momentum/internal/fleet"
	"Momentum/internal/matchmaking"
	"Momentum/internal/negotiator"
	"Momentum/pkg/logger"
	"Momentum/pkg/middleware"
	"Momentum/pkg/monitor"
	"Momentum/pkg/response"

	"github.com/gin-gonic/gin"
)

// NewRouter builds the full HTTP surface: fleet registration for server
// processes, the authenticated matchmaking endpoints for game clients, and
// the websocket negotiator.
func NewRouter(fleetHandler *fleet.Handler, mmHandler *matchmaking.Handler, neg *negotiator.Negotiator) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	g := gin.New()
	g.Use(logger.GinLogger(), logger.GinRecovery(true))

	g.GET("/ping", func(c *gin.Context) {
		response.ReplySuccess(c, "pong")
	})
	g.GET("/metrics", gin.WrapH(monitor.Handler()))

	// server-fleet processes
	srv := g.Group("/momentum")
	{
		srv.POST("/addserver", fleetHandler.Register)
		srv.POST("/heartbeat", fleetHandler.Heartbeat)
		srv.POST("/removeserver", fleetHandler.Remove)
		srv.GET("/serverlist", fleetHandler.List)
		srv.GET("/matchmaker/serverInfo", mmHandler.ServerInfo)
	}

	// game clients
	mm := g.Group("/matchmaking")
	{
		mm.GET("/findPlayer/:accountId", mmHandler.FindPlayer)
		mm.GET("/ticket/player/:accountId", middleware.JWTAuthMiddleware(), mmHandler.Ticket)
		mm.GET("/account/:accountId/session/:sessionId", mmHandler.AccountSession)
		mm.GET("/session/:sessionId", middleware.JWTAuthMiddleware(), mmHandler.SessionDetail)
		mm.POST("/session/:sessionId/join", mmHandler.Join)
		mm.POST("/matchMakingRequest", mmHandler.MatchMakingRequest)
	}

	// persistent negotiation connection
	g.GET("/ws", neg.HandleWS)

	return g
}
