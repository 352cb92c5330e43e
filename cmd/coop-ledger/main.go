package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"coop-ledger/internal/app/runtime"
	"coop-ledger/internal/pkg/config"
	"coop-ledger/internal/pkg/log_messages"
	"coop-ledger/internal/pkg/logger"
)

const shutdownTimeout = 15 * time.Second

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.LoadFromConfig()
	if err != nil {
		logger.Error(log_messages.FailedLoadingConfiguration, err)
		os.Exit(1)
	}
	logger.Init(cfg.Logging.LogLevel)
	logger.SetServiceName(cfg.Server.ServiceName)

	app, err := runtime.New(ctx, cfg)
	if err != nil {
		logger.CtxError(ctx, "failed to initialize app", err)
		os.Exit(1)
	}

	runErr := app.Run(ctx)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	app.Shutdown(shutdownCtx)
	cancel()

	if runErr != nil {
		logger.CtxError(ctx, "app stopped with error", runErr)
		os.Exit(1)
	}
	logger.Info(log_messages.ServerExiting)
}
