// Package config loads runtime configuration for the coursecache client.
//
// Sources, later ones winning: built-in defaults, an optional JSON file
// named by -c or -config, then the -a and -t flags.
package config

import (
	"errors"
	"flag"
	"io"
	"time"
)

type Config struct {
	ServerEndpointAddr string
	RequestTimeout     time.Duration
}

func (c *Config) LoadDefaults() {
	c.ServerEndpointAddr = "127.0.0.1:50051"
	c.RequestTimeout = 10 * time.Second
}

// Load builds a Config from args and returns the positional arguments left
// after the flags.
func Load(args []string) (*Config, []string, error) {
	cfg := &Config{}
	cfg.LoadDefaults()
	if err := parseJson(cfg, args); err != nil {
		return nil, nil, err
	}
	rest, err := parseFlags(cfg, args)
	if err != nil {
		return nil, nil, err
	}
	if cfg.ServerEndpointAddr == "" {
		return nil, nil, errors.New("server address must not be empty")
	}
	if cfg.RequestTimeout <= 0 {
		return nil, nil, errors.New("request timeout must be positive")
	}
	return cfg, rest, nil
}

// parseFlags reads
//
//	-a string   address and port of the server
//	-t int      request timeout, seconds
//
// -c and -config are accepted and left to parseJson.
func parseFlags(cfg *Config, args []string) ([]string, error) {
	fs := flag.NewFlagSet("client", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	fs.StringVar(&cfg.ServerEndpointAddr, "a", cfg.ServerEndpointAddr, "address and port to access server")
	timeout := fs.Int("t", int(cfg.RequestTimeout.Seconds()), "request timeout (in seconds)")
	fs.String("c", "", "path to config file (short)")
	fs.String("config", "", "path to config file")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	cfg.RequestTimeout = time.Duration(*timeout) * time.Second
	return fs.Args(), nil
}
