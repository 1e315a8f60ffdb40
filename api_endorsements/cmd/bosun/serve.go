package main

import (
	"context"
	"fmt"
	"os"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/DiscordHubDev/DiscordHub-sub000/api_endorsements/internal/endorse"
	"github.com/DiscordHubDev/DiscordHub-sub000/api_endorsements/internal/handlers"
	"github.com/DiscordHubDev/DiscordHub-sub000/api_endorsements/internal/notify"
	"github.com/DiscordHubDev/DiscordHub-sub000/api_endorsements/internal/statuscache"
	"github.com/DiscordHubDev/DiscordHub-sub000/api_endorsements/internal/store"
	"github.com/DiscordHubDev/DiscordHub-sub000/api_endorsements/internal/token"
	"github.com/DiscordHubDev/DiscordHub-sub000/api_endorsements/internal/worker"
	"github.com/DiscordHubDev/DiscordHub-sub000/pkg/auth"
	"github.com/DiscordHubDev/DiscordHub-sub000/pkg/kafka"
	"github.com/DiscordHubDev/DiscordHub-sub000/pkg/logging"
	"github.com/DiscordHubDev/DiscordHub-sub000/pkg/monitoring"
	"github.com/DiscordHubDev/DiscordHub-sub000/pkg/redis"
	"github.com/DiscordHubDev/DiscordHub-sub000/pkg/server"
	"github.com/DiscordHubDev/DiscordHub-sub000/pkg/version"
)

func newServeCmd(logger logging.Logger) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the endorsement HTTP API and pin sweeper",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadServiceConfig()
			if err != nil {
				return err
			}
			return serve(cmd.Context(), cfg, logger)
		},
	}
}

func serve(ctx context.Context, cfg serviceConfig, logger logging.Logger) error {
	logger.WithField("version", version.String()).Info("Starting bosun")

	st, db, err := openStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer st.Close()

	healthChecker := monitoring.NewHealthChecker(serviceName, version.Version)
	metricsCollector := monitoring.NewMetricsCollector(serviceName, version.Version, version.GitCommit)

	healthChecker.AddCheck("config", monitoring.ConfigurationHealthCheck(map[string]string{
		"JWT_SECRET":    cfg.JWTSecret,
		"SERVICE_TOKEN": cfg.ServiceToken,
	}))
	if db != nil {
		healthChecker.AddCheck("database", monitoring.DatabaseHealthCheck(db))
	}

	workerCtx, cancelWorkers := context.WithCancel(ctx)
	defer cancelWorkers()
	var workers sync.WaitGroup

	var cooldowns endorse.CooldownCache
	var lease worker.Lease = worker.AlwaysLeader{}
	if cfg.RedisURL != "" {
		client, err := redis.NewClientFromURL(ctx, cfg.RedisURL)
		if err != nil {
			return fmt.Errorf("connect redis: %w", err)
		}
		defer client.Close()
		healthChecker.AddCheck("redis", monitoring.PingHealthCheck("redis", redis.Pinger{Client: client}, true))
		cooldowns = statuscache.NewRedisCooldowns(client)
		lease = worker.NewRedisLease(client, "pin-sweeper", instanceID(), 2*cfg.PinSweepInterval)
	} else {
		logger.Info("REDIS_URL not set; cooldown display falls back to the ledger")
	}

	var dispatcher notify.Dispatcher = notify.Noop{}
	if len(cfg.KafkaBrokers) > 0 {
		producer, err := kafka.NewKafkaProducer(cfg.KafkaBrokers, serviceName, logger)
		if err != nil {
			return fmt.Errorf("create kafka producer: %w", err)
		}
		healthChecker.AddCheck("kafka", monitoring.PingHealthCheck("kafka", producer, true))

		kafkaConfig := notify.DefaultKafkaConfig()
		kafkaConfig.Topic = cfg.KafkaTopic
		kafkaDispatcher := notify.NewKafkaDispatcher(producer, kafkaConfig, logger)
		workers.Add(1)
		go func() {
			defer workers.Done()
			kafkaDispatcher.Start(workerCtx)
		}()
		defer func() {
			// Start drains the queue on cancel; close only after it returns.
			cancelWorkers()
			kafkaDispatcher.Wait()
			if err := kafkaDispatcher.Close(); err != nil {
				logger.WithError(err).Warn("Failed to close kafka producer")
			}
		}()
		dispatcher = kafkaDispatcher
	}

	metrics := handlers.NewEndorsementMetrics(metricsCollector)
	service := endorse.NewService(endorse.Config{
		Store:            st,
		Codec:            token.NewCodec(cfg.PinTokenSecret, cfg.TokenBucketWidth),
		Dispatcher:       dispatcher,
		Cooldowns:        cooldowns,
		Metrics:          metrics,
		Logger:           logger,
		CooldownWindow:   cfg.CooldownWindow,
		PinDuration:      cfg.PinDuration,
		RequestTolerance: cfg.RequestTolerance,
	})
	if cfg.PinTokenSecret == "" {
		logger.Warn("PIN_TOKEN_SECRET not set; pin tokens use the unsigned legacy format")
	}

	sweeper := worker.NewPinSweeper(st, lease, cfg.PinSweepInterval, logger)
	sweeper.OnSweep(metrics.AddExpiredPins)
	workers.Add(1)
	go func() {
		defer workers.Done()
		sweeper.Start(workerCtx)
	}()

	app := server.SetupServiceRouter(logger, serviceName, healthChecker, metricsCollector)
	registerRoutes(app, cfg, service, st, logger, metrics)

	serverConfig := server.DefaultConfig(serviceName, cfg.Port)
	err = server.Start(ctx, serverConfig, app, logger)

	cancelWorkers()
	workers.Wait()
	return err
}

type routeService interface {
	handlers.EndorsementService
	ForgetItem(ref store.ItemRef)
}

func registerRoutes(app gin.IRouter, cfg serviceConfig, service routeService, syncer handlers.ItemSyncer, logger logging.Logger, metrics *handlers.EndorsementMetrics) {
	endorsements := handlers.NewEndorsementHandler(service, logger, metrics)
	itemSync := handlers.NewItemSyncHandler(syncer, logger, service.ForgetItem)

	api := app.Group("/api/v1", auth.SessionMiddleware([]byte(cfg.JWTSecret)))
	{
		api.POST("/items/:type/:id/endorse", endorsements.HandleEndorse)
		api.POST("/items/:type/:id/pin", endorsements.HandlePin)
		api.POST("/items/:type/:id/pin-token", endorsements.HandlePinToken)
		api.GET("/items/:type/:id/status", endorsements.HandleStatus)
	}

	internal := app.Group("/internal", auth.ServiceAuthMiddleware(cfg.ServiceToken, cfg.PreviousToken))
	{
		internal.PUT("/items/:type/:id", itemSync.Handle)
	}
}

func instanceID() string {
	host, err := os.Hostname()
	if err != nil || host == "" {
		host = serviceName
	}
	return host + "-" + uuid.NewString()[:8]
}
