package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/dmitrijs2005/coursecache/internal/client/cli"
	"github.com/dmitrijs2005/coursecache/internal/client/client"
	"github.com/dmitrijs2005/coursecache/internal/client/config"
)

func main() {
	os.Exit(run())
}

func run() int {
	cfg, args, err := config.Load(os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		fmt.Fprintln(os.Stderr, cli.Usage)
		return 2
	}

	c, err := client.NewGRPCClient(cfg.ServerEndpointAddr)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	defer c.Close()

	ctx, cancel := context.WithTimeout(context.Background(), cfg.RequestTimeout)
	defer cancel()

	if err := cli.NewApp(c, os.Stdout).Run(ctx, args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		if errors.Is(err, cli.ErrUsage) {
			fmt.Fprintln(os.Stderr, cli.Usage)
			return 2
		}
		return 1
	}
	return 0
}
