package config

import (
	"flag"
	"io"
	"time"

	"github.com/dmitrijs2005/coursecache/internal/flagx"
)

// parseFlags populates Config fields from command-line flags.
//
// Supported flags (short forms):
//
//	-a string   gRPC bind address (e.g., ":50051")
//	-d string   PostgreSQL DSN
//	-b string   cache backend, memory or redis
//	-r string   redis address
//	-x string   redis key prefix
//	-n int      in-memory shard count
//	-l string   log format, json or zap
//	-w bool     check the content watermark on reads (use -w=false to disable)
//	-o string   OTLP/HTTP trace endpoint
//	-t int      shutdown timeout, seconds
//
// Only the flags listed above are picked out of args, so flags meant for
// other components do not make parsing fail.
func parseFlags(config *Config, args []string) error {
	args = flagx.FilterArgs(args, []string{"-a", "-d", "-b", "-r", "-x", "-n", "-l", "-w", "-o", "-t"})

	fs := flag.NewFlagSet("server", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	fs.StringVar(&config.EndpointAddrGRPC, "a", config.EndpointAddrGRPC, "address and port to run server")
	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "database DSN")
	fs.StringVar(&config.CacheBackend, "b", config.CacheBackend, "cache backend (memory|redis)")
	fs.StringVar(&config.RedisAddr, "r", config.RedisAddr, "redis address")
	fs.StringVar(&config.RedisPrefix, "x", config.RedisPrefix, "redis key prefix")
	fs.IntVar(&config.MemoryShards, "n", config.MemoryShards, "in-memory cache shards")
	fs.StringVar(&config.LogFormat, "l", config.LogFormat, "log format (json|zap)")
	fs.BoolVar(&config.ContentWatermarkCheck, "w", config.ContentWatermarkCheck, "check content watermark on reads")
	fs.StringVar(&config.OTelEndpoint, "o", config.OTelEndpoint, "OTLP/HTTP trace endpoint")
	shutdownTimeout := fs.Int("t", int(config.ShutdownTimeout.Seconds()), "shutdown timeout (in seconds)")

	if err := fs.Parse(args); err != nil {
		return err
	}

	config.ShutdownTimeout = time.Duration(*shutdownTimeout) * time.Second
	return nil
}
