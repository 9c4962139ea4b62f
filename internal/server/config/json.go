package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/dmitrijs2005/coursecache/internal/flagx"
	"github.com/dmitrijs2005/coursecache/internal/timex"
)

// JsonConfig is the on-disk form of Config. Durations accept both "10s"
// strings and integer nanoseconds.
type JsonConfig struct {
	EndpointAddrGRPC      string         `json:"endpoint_addr_grpc"`
	DatabaseDSN           string         `json:"database_dsn"`
	CacheBackend          string         `json:"cache_backend"`
	RedisAddr             string         `json:"redis_addr"`
	RedisPrefix           string         `json:"redis_prefix"`
	MemoryShards          int            `json:"memory_shards"`
	LogFormat             string         `json:"log_format"`
	ContentWatermarkCheck bool           `json:"content_watermark_check"`
	OTelEndpoint          string         `json:"otel_endpoint"`
	ShutdownTimeout       timex.Duration `json:"shutdown_timeout"`
}

// parseJson overlays the file named by -c or -config onto config. Keys
// missing from the file keep their current values.
func parseJson(config *Config, args []string) error {
	path := flagx.ConfigFilePath(args)
	if path == "" {
		return nil
	}

	file, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}

	c := &JsonConfig{
		EndpointAddrGRPC:      config.EndpointAddrGRPC,
		DatabaseDSN:           config.DatabaseDSN,
		CacheBackend:          config.CacheBackend,
		RedisAddr:             config.RedisAddr,
		RedisPrefix:           config.RedisPrefix,
		MemoryShards:          config.MemoryShards,
		LogFormat:             config.LogFormat,
		ContentWatermarkCheck: config.ContentWatermarkCheck,
		OTelEndpoint:          config.OTelEndpoint,
		ShutdownTimeout:       timex.Duration{Duration: config.ShutdownTimeout},
	}
	if err := json.Unmarshal(file, c); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}

	config.EndpointAddrGRPC = c.EndpointAddrGRPC
	config.DatabaseDSN = c.DatabaseDSN
	config.CacheBackend = c.CacheBackend
	config.RedisAddr = c.RedisAddr
	config.RedisPrefix = c.RedisPrefix
	config.MemoryShards = c.MemoryShards
	config.LogFormat = c.LogFormat
	config.ContentWatermarkCheck = c.ContentWatermarkCheck
	config.OTelEndpoint = c.OTelEndpoint
	config.ShutdownTimeout = c.ShutdownTimeout.Duration
	return nil
}
