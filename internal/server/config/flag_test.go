package config

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFlags(t *testing.T) {
	tests := []struct {
		expected  *Config
		name      string
		args      []string
		expectErr bool
	}{
		{name: "all flags", args: []string{
			"-a", "127.0.0.1:9090", "-d", "db", "-b", "redis", "-r", "redis:1", "-x", "pfx",
			"-n", "4", "-l", "zap", "-w=false", "-o", "http://otel", "-t", "5",
		}, expected: &Config{
			EndpointAddrGRPC:      "127.0.0.1:9090",
			DatabaseDSN:           "db",
			CacheBackend:          "redis",
			RedisAddr:             "redis:1",
			RedisPrefix:           "pfx",
			MemoryShards:          4,
			LogFormat:             "zap",
			ContentWatermarkCheck: false,
			OTelEndpoint:          "http://otel",
			ShutdownTimeout:       5 * time.Second,
		}},
		{name: "foreign flags are ignored", args: []string{"-c", "cfg.json", "-z", "1", "-a", ":1"},
			expected: func() *Config { c := defaults(); c.EndpointAddrGRPC = ":1"; return &c }()},
		{name: "bad int", args: []string{"-t", "soon"}, expectErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := defaults()
			err := parseFlags(&config, tt.args)
			if tt.expectErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Empty(t, cmp.Diff(tt.expected, &config))
		})
	}
}
