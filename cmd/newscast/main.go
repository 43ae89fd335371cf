package main

import (
	"context"
	"os"
	_ "time/tzdata" // hourly bulletin urls use each station's local zone

	"github.com/urfave/cli/v3"

	"github.com/tgifai/newscast/internal/consts"
	"github.com/tgifai/newscast/internal/pkg/logs"
)

func main() {
	cmd := &cli.Command{
		Name:  "newscast",
		Usage: "Find and play news broadcasts from stations around the world",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to the config file",
				Value:   consts.DefaultConfigPath(),
			},
		},
		Commands: []*cli.Command{
			searchHwd.cmd(),
			playHwd.cmd(),
			stationsHwd.cmd(),
			defaultHwd.cmd(),
			prefetchHwd.cmd(),
			gwHwd.cmd(),
			onboardHwd.cmd(),
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		logs.Error("Command execution failed: %v", err)
		os.Exit(1)
	}
}
