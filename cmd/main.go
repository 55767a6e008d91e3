package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"futuresexecutor/cmd/executor"
	"futuresexecutor/cmd/klines"
	"futuresexecutor/cmd/status"
	"futuresexecutor/src/connectors"
	"futuresexecutor/src/database"
	"futuresexecutor/src/executors"
	"futuresexecutor/src/orders"
	"futuresexecutor/src/precision"
	"futuresexecutor/src/repository"
	"futuresexecutor/src/settlement"
	"futuresexecutor/src/supervisor"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/urfave/cli"
)

var Version string

func SetupLogger() {
	levelStr := strings.ToLower(os.Getenv("LOG_LEVEL"))

	level, err := logrus.ParseLevel(levelStr)
	if err != nil {
		level = logrus.DebugLevel
	}
	logrus.SetLevel(level)

	if strings.EqualFold(os.Getenv("LOG_FORMAT"), "json") {
		logrus.SetFormatter(&logrus.JSONFormatter{})
		return
	}
	logrus.SetFormatter(&logrus.TextFormatter{
		FullTimestamp: true,
	})
}

func main() {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		logrus.WithError(err).Warn("failed to load .env")
	}
	SetupLogger()

	app := cli.NewApp()
	app.Name = "futuresexecutor"
	app.Usage = "Leveraged futures position lifecycle controller"
	app.Version = Version

	app.Commands = []cli.Command{
		tradeCMD,
		statusCMD,
		flattenCMD,
		klinesCMD,
	}

	if err := app.Run(os.Args); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var (
	tradeCMD = cli.Command{
		Name:        "trade",
		Usage:       "run the trade loop",
		Action:      tradeAction,
		ArgsUsage:   "",
		Flags:       []cli.Flag{},
		Description: `Open, supervise and settle one position at a time until the balance runs out`,
	}
	statusCMD = cli.Command{
		Name:      "status",
		Usage:     "print position and open orders",
		Action:    statusAction,
		ArgsUsage: "",
		Flags: []cli.Flag{
			cli.StringFlag{Name: "symbol", Usage: "symbol, defaults to TARGET_SYMBOL"},
			cli.Int64Flag{Name: "order-id", Usage: "also summarize the trades of this order"},
		},
		Description: `Print the position snapshot, open orders and an optional trade summary`,
	}
	flattenCMD = cli.Command{
		Name:      "flatten",
		Usage:     "cancel protective orders and close the position at market",
		Action:    flattenAction,
		ArgsUsage: "",
		Flags: []cli.Flag{
			cli.StringFlag{Name: "symbol", Usage: "symbol, defaults to TARGET_SYMBOL"},
		},
		Description: `Run the timeout force-close path on demand`,
	}
	klinesCMD = cli.Command{
		Name:        "klines",
		Usage:       "backfill Binance klines into the database",
		Action:      klinesAction,
		ArgsUsage:   "",
		Flags:       []cli.Flag{},
		Description: `Fetch 1m or 1h klines and upsert them into klines_1m / klines_1h`,
	}
)

func tradeAction(_ *cli.Context) error {
	logrus.Info("Starting trade CMD")

	e := &executor.Executor{}
	if err := e.Start(); err != nil {
		logrus.WithError(err).Error("Starting cmd")
		return err
	}
	return nil
}

type operatorTools struct {
	client *connectors.BinanceFuturesClient
	placer *orders.Placer
	symbol string
}

func newOperatorTools(c *cli.Context) *operatorTools {
	loopConfig := executors.GetConfig()
	client := connectors.NewBinanceFuturesClientFromConfig(connectors.GetConfig())
	engine := precision.NewEngine(client, loopConfig.MetadataTTL)

	symbol := c.String("symbol")
	if symbol == "" {
		symbol = loopConfig.TargetSymbol
	}
	return &operatorTools{
		client: client,
		placer: orders.NewPlacer(client, engine),
		symbol: strings.ToUpper(symbol),
	}
}

func statusAction(c *cli.Context) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	tools := newOperatorTools(c)

	s := &status.Status{
		Out:      os.Stdout,
		Exchange: tools.client,
		Trades:   settlement.NewCalculator(tools.client),
	}
	return s.Report(ctx, tools.symbol, c.Int64("order-id"))
}

func flattenAction(c *cli.Context) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	tools := newOperatorTools(c)

	logrus.WithField("symbol", tools.symbol).Warn("flattening position on operator request")
	sup := supervisor.New(tools.client, tools.placer, 0)
	return status.Flatten(ctx, os.Stdout, sup, tools.symbol)
}

func klinesAction(_ *cli.Context) error {
	logrus.Info("Starting klines CMD")
	if err := database.InitMainDB(); err != nil {
		logrus.WithError(err).Error("Failed to connect to database")
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	b := &klines.Backfill{
		Log:   logrus.WithField("cmd", "klines"),
		Store: repository.NewKlineRepository(),
	}
	if err := b.Start(ctx); err != nil {
		logrus.WithError(err).Error("Starting klines cmd")
		return err
	}
	return nil
}
