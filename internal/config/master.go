package config

import "os"

type AppConfig struct {
	DebugMode      bool
	NodeConfig     *NodeConfig
	RedisConfig    *RedisConfig
	PostgresConfig *PostgresConfig
	EtcdConfig     *EtcdConfig
	JwtConfig      *JwtConfig
}

func NewSystemConfig() *AppConfig {
	return &AppConfig{
		DebugMode:      os.Getenv("DEBUG_MODE") == "true",
		NodeConfig:     NewNodeConfig(),
		RedisConfig:    NewRedisConfig(),
		PostgresConfig: NewPostgresConfig(),
		EtcdConfig:     NewEtcdConfig(),
		JwtConfig:      NewJwtConfig(),
	}
}
