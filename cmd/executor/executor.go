package executor

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"futuresexecutor/src/database"
	"futuresexecutor/src/executors"
	"futuresexecutor/src/handler"
	"futuresexecutor/src/repository"
	"futuresexecutor/src/server"

	"github.com/sirupsen/logrus"
)

type Executor struct{}

func (t *Executor) Start() error {
	config := GetConfig()
	loopConfig := executors.GetConfig()
	dbConfig := database.GetConfig()

	ctx, stop := signal.NotifyContext(
		context.Background(),
		os.Interrupt,
		syscall.SIGTERM,
	)
	defer stop()

	var cycles server.CycleLister
	if dbConfig.EnableDB {
		if err := initDatabases(loopConfig.DecisionMode == "signal"); err != nil {
			return err
		}
		cycles = repository.NewCycleRepository()
	}

	board := handler.NewStatsBoard(loopConfig.TargetSymbol)
	serverDone := make(chan struct{})
	serverCtx, stopServer := context.WithCancel(ctx)
	defer stopServer()

	if config.ServeStats {
		srvConfig := server.GetConfig()
		router := server.NewRouter(srvConfig, board, cycles, loopConfig.TargetSymbol)
		go func() {
			defer close(serverDone)
			if err := server.Run(serverCtx, srvConfig, router); err != nil {
				logrus.WithError(err).Error("stats server stopped")
			}
		}()
	} else {
		close(serverDone)
	}

	logrus.WithField("symbol", loopConfig.TargetSymbol).Info("Starting futures executor")
	err := executors.StartLoop(ctx, board)
	board.Stop()
	if err != nil {
		logrus.WithError(err).Error("Trade loop failed")
	}

	stopServer()
	<-serverDone
	return err
}

func initDatabases(needSignals bool) error {
	// Initialize main (read/write) database
	if err := database.InitMainDB(); err != nil {
		logrus.WithError(err).Error("Failed to connect to main database")
		return err
	}

	// Initialize read-only database
	if err := database.InitReadOnlyDB(); err != nil {
		if needSignals {
			logrus.WithError(err).Error("Failed to connect to read-only database")
			return err
		}
		logrus.WithError(err).Warn("read-only database unavailable, signals disabled")
	}
	return nil
}
