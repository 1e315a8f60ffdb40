package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/DiscordHubDev/DiscordHub-sub000/pkg/config"
	"github.com/DiscordHubDev/DiscordHub-sub000/pkg/logging"
)

const serviceName = "bosun"

func main() {
	logger := logging.NewLoggerWithService(serviceName)
	config.LoadEnv(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd(logger).ExecuteContext(ctx); err != nil {
		logger.WithError(err).Error("bosun exited with error")
		stop()
		os.Exit(1)
	}
}
