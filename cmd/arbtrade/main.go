package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v2"
)

const defaultConfigPath = "configs/config.yaml"

var configPath string

func main() {
	app := cli.NewApp()
	app.Name = "arbtrade"
	app.Usage = "execute cross-venue arbitrage opportunities"
	app.Flags = []cli.Flag{
		&cli.StringFlag{
			Name:        "config",
			Aliases:     []string{"c"},
			Value:       defaultConfigPath,
			EnvVars:     []string{"ARBCORE_CONFIG"},
			Usage:       "path to the config file",
			Destination: &configPath,
		},
	}
	app.Commands = []*cli.Command{
		tradeCommand,
		exposureCommand,
		pairsCommand,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := app.RunContext(ctx, os.Args); err != nil {
		log.Fatal(err)
	}
}
