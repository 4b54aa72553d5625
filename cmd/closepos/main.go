// Command closepos flattens the leveraged positions left on a venue, e.g.
// after a one-sided exposure needed manual intervention.
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"arbcore/internal/config"
	"arbcore/internal/gateway"
	"arbcore/internal/gateway/coincheck"
	"arbcore/internal/logger"

	"github.com/urfave/cli/v2"
)

var configPath string

func main() {
	app := cli.NewApp()
	app.Name = "closepos"
	app.Usage = "close every open position on one venue"
	app.Flags = []cli.Flag{
		&cli.StringFlag{
			Name:        "config",
			Aliases:     []string{"c"},
			Value:       "configs/config.yaml",
			EnvVars:     []string{"ARBCORE_CONFIG"},
			Usage:       "path to the config file",
			Destination: &configPath,
		},
		&cli.StringFlag{
			Name:  "broker",
			Usage: "broker name from the config, defaults to the first of the subcommand's type",
		},
	}
	app.Commands = []*cli.Command{
		{
			Name:  "coincheck",
			Usage: "close Coincheck leverage positions",
			Flags: []cli.Flag{
				&cli.BoolFlag{Name: "sell-cash", Usage: "also market-sell the spot base currency balance"},
			},
			Action: closeCoincheck,
		},
		{
			Name:   "binance",
			Usage:  "close Binance futures positions with reduce-only orders",
			Action: closeBinance,
		},
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := app.RunContext(ctx, os.Args); err != nil {
		log.Fatal(err)
	}
}

// brokerConfig picks the broker entry named by --broker, or the first
// entry of typ.
func brokerConfig(c *cli.Context, typ string) (*config.Config, config.BrokerConfig, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, config.BrokerConfig{}, err
	}
	logger.SetLevel(cfg.App.LogLevel)
	if name := c.String("broker"); name != "" {
		b, ok := cfg.FindBroker(name)
		if !ok || b.Type != typ {
			return nil, config.BrokerConfig{}, fmt.Errorf("no %s broker named %q", typ, name)
		}
		return cfg, b, nil
	}
	for _, b := range cfg.Brokers {
		if b.Type == typ {
			return cfg, b, nil
		}
	}
	return nil, config.BrokerConfig{}, fmt.Errorf("no %s broker configured", typ)
}

func closeCoincheck(c *cli.Context) error {
	cfg, b, err := brokerConfig(c, "coincheck")
	if err != nil {
		return err
	}
	client := gateway.NewCoincheckClient(b)
	closed, err := coincheck.CloseAll(c.Context, client, cfg.Trade.Symbol)
	fmt.Fprintf(c.App.Writer, "%s: %d close orders accepted\n", b.Name, closed)
	if err != nil {
		return err
	}
	if !c.Bool("sell-cash") {
		return nil
	}
	amount, err := coincheck.SellAll(c.Context, client, cfg.Trade.Symbol)
	if err != nil {
		return err
	}
	fmt.Fprintf(c.App.Writer, "%s: market sell %v offered\n", b.Name, amount)
	return nil
}

func closeBinance(c *cli.Context) error {
	cfg, b, err := brokerConfig(c, "binance")
	if err != nil {
		return err
	}
	closed, err := gateway.NewBinanceAdapter(b, cfg.Trade.Symbol).CloseAll(c.Context)
	fmt.Fprintf(c.App.Writer, "%s: %d positions closed\n", b.Name, closed)
	return err
}
