package config

import (
	"fmt"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

var Conf = new(AppConfig)

type AppConfig struct {
	Port      int    `mapstructure:"port"`
	Name      string `mapstructure:"name"`
	Mode      string `mapstructure:"mode"`
	Version   string `mapstructure:"version"`
	MachineID int64  `mapstructure:"machine_id"`

	*LogConfig        `mapstructure:"log"`
	*MySQLConfig      `mapstructure:"mysql"`
	*RedisConfig      `mapstructure:"redis"`
	*JWTConfig        `mapstructure:"jwt"`
	*MatchmakerConfig `mapstructure:"matchmaker"`
}

type LogConfig struct {
	Level      string `mapstructure:"level"`
	Filename   string `mapstructure:"filename"`
	MaxSize    int    `mapstructure:"max_size"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAge     int    `mapstructure:"max_age"`
}

type MySQLConfig struct {
	Host         string `mapstructure:"host"`
	Port         int    `mapstructure:"port"`
	User         string `mapstructure:"user"`
	Password     string `mapstructure:"password"`
	DBName       string `mapstructure:"dbname"`
	MaxOpenConns int    `mapstructure:"max_open_conns"`
	MaxIdleConns int    `mapstructure:"max_idle_conns"`
}

type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	PoolSize int    `mapstructure:"pool_size"`
}

type JWTConfig struct {
	Secret         string `mapstructure:"secret"`
	ExpireDuration int    `mapstructure:"expire_duration"`
}

// MatchmakerConfig carries the matchmaking-specific knobs.
// PublicAddr is the address game clients use to reach the websocket
// matchmaker; it is embedded into ticket serviceUrl responses. KVBackend and
// FleetStore select the shared-store and fleet-registry backends at
// deployment time.
type MatchmakerConfig struct {
	PublicAddr          string `mapstructure:"public_addr"`
	ServerAuthKey       string `mapstructure:"server_auth_key"`
	KVBackend           string `mapstructure:"kv_backend"`  // "redis" or "memory"
	FleetStore          string `mapstructure:"fleet_store"` // "mysql" or "memory"
	SessionTokenTTL     int    `mapstructure:"session_token_ttl"` // seconds
	DiscoveryInterval   int    `mapstructure:"discovery_interval"`
	SweepInterval       int    `mapstructure:"sweep_interval"`
	HeartbeatStaleSec   int    `mapstructure:"heartbeat_stale"`
	JoinabilityStaleSec int    `mapstructure:"joinability_stale"`
	OfflineAfterSec     int    `mapstructure:"offline_after"`
}

func Init() (err error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	err = viper.ReadInConfig()
	if err != nil {
		fmt.Printf("viper.ReadInConfig() failed, err:%v\n", err)
		return
	}
	if err = viper.Unmarshal(Conf); err != nil {
		fmt.Printf("viper.Unmarshal failed, err:%v\n", err)
	}
	viper.WatchConfig()
	viper.OnConfigChange(func(in fsnotify.Event) {
		fmt.Println("config file changed, reloading...")
		if err = viper.Unmarshal(Conf); err != nil {
			fmt.Printf("viper.Unmarshal failed, err:%v\n", err)
		}
	})
	return
}

func InitFromFile(path string) (err error) {
	viper.SetConfigFile(path)
	if err = viper.ReadInConfig(); err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}
	if err = viper.Unmarshal(Conf); err != nil {
		return fmt.Errorf("unmarshal config: %w", err)
	}
	viper.WatchConfig()
	viper.OnConfigChange(func(in fsnotify.Event) {
		fmt.Println("config file changed, reloading...")
		if err := viper.Unmarshal(Conf); err != nil {
			fmt.Printf("viper.Unmarshal failed, err:%v\n", err)
		}
	})
	return nil
}
