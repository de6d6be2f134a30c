package redis

import (
	"context"
	"fmt"

	"Momentum/pkg/config"
	"Momentum/pkg/monitor"

	"github.com/redis/go-redis/v9"
)

var Rdb *redis.Client

func Init(cfg *config.RedisConfig) (err error) {
	Rdb = redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password: cfg.Password,
		DB:       cfg.DB,
		PoolSize: cfg.PoolSize,
	})
	Rdb.AddHook(&redisMonitorHook{mon: monitor.NewMonitor("redis", 100, 60000)})
	_, err = Rdb.Ping(context.Background()).Result()
	return
}

func Close() {
	_ = Rdb.Close()
}
