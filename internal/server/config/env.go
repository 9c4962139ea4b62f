package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

const envPrefix = "COURSECACHE_"

// envConfig mirrors Config with pointer fields so unset variables leave the
// current value alone.
type envConfig struct {
	EndpointAddrGRPC      *string        `env:"GRPC_ADDR"`
	DatabaseDSN           *string        `env:"DATABASE_DSN"`
	CacheBackend          *string        `env:"CACHE_BACKEND"`
	RedisAddr             *string        `env:"REDIS_ADDR"`
	RedisPrefix           *string        `env:"REDIS_PREFIX"`
	MemoryShards          *int           `env:"MEMORY_SHARDS"`
	LogFormat             *string        `env:"LOG_FORMAT"`
	ContentWatermarkCheck *bool          `env:"CONTENT_WATERMARK_CHECK"`
	OTelEndpoint          *string        `env:"OTEL_ENDPOINT"`
	ShutdownTimeout       *time.Duration `env:"SHUTDOWN_TIMEOUT"`
}

// parseEnv overlays COURSECACHE_* variables from environ onto config.
func parseEnv(config *Config, environ map[string]string) error {
	var raw envConfig
	if err := env.ParseWithOptions(&raw, env.Options{Prefix: envPrefix, Environment: environ}); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}

	set(&config.EndpointAddrGRPC, raw.EndpointAddrGRPC)
	set(&config.DatabaseDSN, raw.DatabaseDSN)
	set(&config.CacheBackend, raw.CacheBackend)
	set(&config.RedisAddr, raw.RedisAddr)
	set(&config.RedisPrefix, raw.RedisPrefix)
	set(&config.MemoryShards, raw.MemoryShards)
	set(&config.LogFormat, raw.LogFormat)
	set(&config.ContentWatermarkCheck, raw.ContentWatermarkCheck)
	set(&config.OTelEndpoint, raw.OTelEndpoint)
	set(&config.ShutdownTimeout, raw.ShutdownTimeout)
	return nil
}

func set[T any](dst *T, v *T) {
	if v != nil {
		*dst = *v
	}
}
