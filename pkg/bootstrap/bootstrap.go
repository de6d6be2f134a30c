package bootstrap

import (
	"fmt"
	"time"

	"Momentum/pkg/config"
	"Momentum/pkg/db/mysql"
	rdb "Momentum/pkg/db/redis"
	"Momentum/pkg/logger"
	"Momentum/pkg/monitor"
	"Momentum/pkg/utils"
)

// InitAll initializes config/logger/mysql/redis/monitor and returns a cleanup
// func. configPath is a path to a YAML config file; if empty, falls back to
// the default config.Init() lookup. MySQL and Redis are only dialed when the
// configured backends need them, so a single-process memory deployment runs
// without either.
func InitAll(configPath string) (cleanup func(), err error) {
	if configPath != "" {
		if err = config.InitFromFile(configPath); err != nil {
			return nil, err
		}
	} else {
		if err = config.Init(); err != nil {
			return nil, err
		}
	}

	if err = logger.Init(config.Conf.LogConfig); err != nil {
		return nil, fmt.Errorf("init logger failed: %w", err)
	}

	machineID := config.Conf.MachineID
	if machineID == 0 {
		machineID = 1
	}
	if err = utils.InitIDNode(machineID); err != nil {
		return nil, fmt.Errorf("init id node failed: %w", err)
	}

	monitor.InitMonitor()
	monitor.StartSampler(5 * time.Second)

	mm := config.Conf.MatchmakerConfig
	useMySQL := mm == nil || mm.FleetStore != "memory"
	useRedis := mm == nil || mm.KVBackend != "memory"

	if useMySQL {
		if err = mysql.Init(config.Conf.MySQLConfig); err != nil {
			return nil, fmt.Errorf("init mysql failed: %w", err)
		}
	}

	if useRedis {
		if err = rdb.Init(config.Conf.RedisConfig); err != nil {
			if useMySQL {
				mysql.Close()
			}
			return nil, fmt.Errorf("init redis failed: %w", err)
		}
	}

	utils.SetJWTConfig(config.Conf.JWTConfig)

	cleanup = func() {
		if useMySQL {
			mysql.Close()
		}
		if useRedis {
			rdb.Close()
		}
		monitor.Stop()
		_ = logger.L().Sync()
	}
	return cleanup, nil
}
