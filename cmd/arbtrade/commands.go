package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sort"
	"time"

	"arbcore/internal/gateway/notifier"
	"arbcore/internal/logger"
	"arbcore/internal/order"
	"arbcore/internal/trader"

	"github.com/urfave/cli/v2"
	"gopkg.in/yaml.v3"
)

var tradeCommand = &cli.Command{
	Name:  "trade",
	Usage: "send both legs of one opportunity and wait for the outcome",
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:     "opportunity",
			Aliases:  []string{"o"},
			Usage:    "YAML or JSON file holding the spread analysis result",
			Required: true,
		},
		&cli.BoolFlag{
			Name:  "closable",
			Usage: "the trade closes a previously opened pair",
		},
	},
	Action: tradeAction,
}

var exposureCommand = &cli.Command{
	Name:   "exposure",
	Usage:  "print the signed exposure on every configured venue",
	Action: exposureAction,
}

var pairsCommand = &cli.Command{
	Name:  "pairs",
	Usage: "inspect the active pair store",
	Subcommands: []*cli.Command{
		{
			Name:   "list",
			Usage:  "list stored pairs, oldest first",
			Action: pairsListAction,
		},
		{
			Name:      "delete",
			Usage:     "remove one stored pair",
			ArgsUsage: "<id>",
			Action:    pairsDeleteAction,
		},
	},
}

// loadOpportunity reads a spread analysis result. JSON input is accepted
// since it is valid YAML.
func loadOpportunity(path string) (trader.SpreadAnalysisResult, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return trader.SpreadAnalysisResult{}, err
	}
	var opp trader.SpreadAnalysisResult
	if err := yaml.Unmarshal(raw, &opp); err != nil {
		return trader.SpreadAnalysisResult{}, fmt.Errorf("parse opportunity %s: %w", path, err)
	}
	if opp.TargetVolume <= 0 {
		return trader.SpreadAnalysisResult{}, fmt.Errorf("%w: target_volume must be > 0", trader.ErrInvalidOpportunity)
	}
	return opp, nil
}

func tradeAction(c *cli.Context) error {
	opp, err := loadOpportunity(c.String("opportunity"))
	if err != nil {
		return err
	}
	rt, err := setup(c)
	if err != nil {
		return err
	}
	defer rt.close()

	statuses := make(chan trader.Status, 8)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for s := range statuses {
			fmt.Fprintf(c.App.Writer, "status: %s\n", s)
		}
	}()
	rt.app.SetStatusChannel(statuses)
	res, tradeErr := rt.app.Trade(c.Context, opp, c.Bool("closable"))
	close(statuses)
	<-done

	if err := printJSON(c, summarize(res)); err != nil {
		return err
	}
	if errors.Is(tradeErr, trader.ErrOneSidedExposure) {
		logger.Errorf("one-sided exposure may be open, check the venues")
	}
	alert(c.Context, rt.notifier, rt.cfg.Trade.Symbol, res, tradeErr)
	return tradeErr
}

func alert(ctx context.Context, n notifier.TextNotifier, sym string, res trader.Result, tradeErr error) {
	msg, ok := notifier.TradeAlert(sym, res, tradeErr, time.Now())
	if !ok {
		return
	}
	// the trade context may already be canceled
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 30*time.Second)
	defer cancel()
	if err := n.SendText(ctx, msg.RenderMarkdown()); err != nil {
		logger.Errorf("send alert failed: %v", err)
	}
}

type legSummary struct {
	Broker   order.Broker `json:"broker"`
	Side     order.Side   `json:"side"`
	Status   order.Status `json:"status"`
	Size     float64      `json:"size"`
	Filled   float64      `json:"filled"`
	AvgPrice float64      `json:"avg_price"`
}

type tradeSummary struct {
	Status     trader.Status `json:"status"`
	Legs       []legSummary  `json:"legs"`
	SubOrders  []legSummary  `json:"sub_orders,omitempty"`
	Profit     float64       `json:"profit"`
	Commission float64       `json:"commission"`
	Persisted  bool          `json:"persisted"`
}

func summarize(res trader.Result) tradeSummary {
	conv := func(orders []*order.Order) []legSummary {
		out := make([]legSummary, 0, len(orders))
		for _, o := range orders {
			out = append(out, legSummary{
				Broker:   o.Broker,
				Side:     o.Side,
				Status:   o.Status,
				Size:     o.Size,
				Filled:   o.FilledSize,
				AvgPrice: o.AverageFilledPrice(),
			})
		}
		return out
	}
	return tradeSummary{
		Status:     res.Status,
		Legs:       conv(res.Orders),
		SubOrders:  conv(res.SubOrders),
		Profit:     res.Profit,
		Commission: res.Commission,
		Persisted:  res.Persisted,
	}
}

func exposureAction(c *cli.Context) error {
	rt, err := setup(c)
	if err != nil {
		return err
	}
	defer rt.close()
	exp, err := rt.app.Exposures(c.Context)
	names := make([]string, 0, len(exp))
	for b := range exp {
		names = append(names, string(b))
	}
	sort.Strings(names)
	for _, n := range names {
		fmt.Fprintf(c.App.Writer, "%-12s %v\n", n, exp[order.Broker(n)])
	}
	return err
}

func pairsListAction(c *cli.Context) error {
	rt, err := setup(c)
	if err != nil {
		return err
	}
	defer rt.close()
	pairs, err := rt.app.Pairs().List(c.Context)
	if err != nil {
		return err
	}
	return printJSON(c, pairs)
}

func pairsDeleteAction(c *cli.Context) error {
	id := c.Args().First()
	if id == "" {
		return cli.Exit("pair id is required", 1)
	}
	rt, err := setup(c)
	if err != nil {
		return err
	}
	defer rt.close()
	return rt.app.Pairs().Delete(c.Context, id)
}

func printJSON(c *cli.Context, v any) error {
	raw, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(c.App.Writer, string(raw))
	return err
}
