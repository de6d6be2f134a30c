package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"Momentum/internal/codes"
	"Momentum/internal/fleet"
	"Momentum/internal/kv"
	"Momentum/internal/matchmaking"
	"Momentum/internal/negotiator"
	"Momentum/pkg/bootstrap"
	"Momentum/pkg/config"
	"Momentum/pkg/db/mysql"
	rdb "Momentum/pkg/db/redis"

	"go.uber.org/zap"
)

func main() {
	cfgPath := flag.String("config", "config.yaml", "path to config yaml")
	flag.Parse()

	cleanup, err := bootstrap.InitAll(*cfgPath)
	if err != nil {
		fmt.Printf("bootstrap init failed: %v\n", err)
		os.Exit(1)
	}
	defer cleanup()

	mm := config.Conf.MatchmakerConfig
	if mm == nil {
		mm = &config.MatchmakerConfig{}
	}

	// shared ephemeral store: redis for multi-process, memory for single
	var store kv.Store
	if mm.KVBackend == "memory" {
		store = kv.NewMemory()
	} else {
		store = kv.NewRedis(rdb.Rdb)
	}

	// fleet registry + code registry share the durable backend choice
	var fleetStore fleet.Store
	var codeRepo codes.Repo
	if mm.FleetStore == "memory" {
		fleetStore = fleet.NewMemStore()
		codeRepo = codes.NewMemRepo()
	} else {
		ms := fleet.NewMySQLStore(mysql.DB)
		cr := codes.NewMySQLRepo(mysql.DB)
		schemaCtx, cancelSchema := context.WithTimeout(context.Background(), 10*time.Second)
		if err := ms.EnsureSchema(schemaCtx); err != nil {
			cancelSchema()
			zap.L().Fatal("ensure game_servers schema failed", zap.Error(err))
		}
		if err := cr.EnsureSchema(schemaCtx); err != nil {
			cancelSchema()
			zap.L().Fatal("ensure mm_codes schema failed", zap.Error(err))
		}
		cancelSchema()
		fleetStore = ms
		codeRepo = cr
	}

	fleetSvc := fleet.NewService(fleetStore)
	fleetSvc.SetStaleness(secs(mm.HeartbeatStaleSec), secs(mm.JoinabilityStaleSec))

	sessions := matchmaking.NewSessions(store, secs(mm.SessionTokenTTL))
	demand := matchmaking.NewDemand(store)

	neg := negotiator.New(sessions, demand, fleetSvc)
	neg.SetIntervals(secs(mm.DiscoveryInterval), 0)

	sweeper := fleet.NewSweeper(fleetSvc, secs(mm.SweepInterval), secs(mm.OfflineAfterSec))
	sweeper.Start()

	fleetHandler := fleet.NewHandler(fleetSvc, mm.ServerAuthKey)
	mmHandler := matchmaking.NewHandler(sessions, demand, codeRepo, fleetSvc, mm.PublicAddr)

	engine := NewRouter(fleetHandler, mmHandler, neg)
	addr := fmt.Sprintf(":%d", config.Conf.Port)
	srv := &http.Server{
		Addr:    addr,
		Handler: engine,
	}

	go func() {
		zap.L().Info("matchmaker service starting", zap.String("address", addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zap.L().Fatal("matchmaker listen failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	zap.L().Info("shutdown signal received")
	sweeper.Stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		zap.L().Error("server shutdown failed", zap.Error(err))
	}
}

// secs converts a seconds config value; zero means "use the default".
func secs(n int) time.Duration {
	return time.Duration(n) * time.Second
}
