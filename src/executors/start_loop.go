package executors

import (
	"context"
	"errors"
	"fmt"

	"futuresexecutor/src/connectors"
	"futuresexecutor/src/database"
	"futuresexecutor/src/decision"
	"futuresexecutor/src/notifier"
	"futuresexecutor/src/orders"
	"futuresexecutor/src/precision"
	"futuresexecutor/src/repository"
	"futuresexecutor/src/settlement"
	"futuresexecutor/src/supervisor"
	"futuresexecutor/src/translog"

	logger "github.com/sirupsen/logrus"
)

// StartLoop builds the production driver from the environment and runs it
// until it stops. stats may be nil. The databases must be initialized first
// when ENABLE_DB is set.
func StartLoop(ctx context.Context, stats StatsPublisher) error {
	config := GetConfig()
	dbConfig := database.GetConfig()

	client := connectors.NewBinanceFuturesClientFromConfig(connectors.GetConfig())
	engine := precision.NewEngine(client, config.MetadataTTL)
	placer := orders.NewPlacer(client, engine)

	var signals decision.SignalReader
	if dbConfig.EnableDB {
		signals = repository.NewTradingSignalRepository()
	}
	source, err := newDecisionSource(config, client, signals)
	if err != nil {
		return err
	}

	deps := Deps{
		Account:    client,
		Rules:      engine,
		Orders:     placer,
		Supervisor: supervisor.New(client, placer, config.PollInterval),
		Settlement: settlement.NewCalculator(client),
		Decision:   source,
		Journal:    translog.NewWriter(config.TransactionLogDir),
		Stats:      stats,
	}
	if dbConfig.EnableDB {
		deps.Cycles = repository.NewCycleRepository()
		deps.Exceptions = repository.NewExceptionRepository()
	}
	if config.TelegramBotToken != "" {
		tg, err := notifier.NewTelegram(config.TelegramBotToken, config.TelegramChatID)
		if err != nil {
			logger.WithError(err).Warn("telegram notifier disabled")
		} else {
			deps.Notifier = tg
		}
	}

	logger.WithFields(map[string]interface{}{
		"symbol":   config.TargetSymbol,
		"leverage": config.Leverage,
		"decision": config.DecisionMode,
		"db":       dbConfig.EnableDB,
	}).Info("starting trade loop")
	return NewDriver(config, deps).Run(ctx)
}

func newDecisionSource(config Config, prices decision.PriceSource, signals decision.SignalReader) (Decider, error) {
	switch config.DecisionMode {
	case "", "alternate":
		return decision.NewAlternatingSource(config.TargetSymbol, prices), nil
	case "signal":
		if signals == nil {
			return nil, errors.New("decision mode signal requires ENABLE_DB")
		}
		return decision.NewSignalSource(signals, config.TargetSymbol, config.SignalMaxAge), nil
	}
	return nil, fmt.Errorf("unknown decision mode %q", config.DecisionMode)
}
