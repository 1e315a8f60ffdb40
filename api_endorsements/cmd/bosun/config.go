package main

import (
	"fmt"
	"time"

	"github.com/DiscordHubDev/DiscordHub-sub000/api_endorsements/internal/clock"
	"github.com/DiscordHubDev/DiscordHub-sub000/api_endorsements/internal/endorse"
	"github.com/DiscordHubDev/DiscordHub-sub000/api_endorsements/internal/ledger"
	"github.com/DiscordHubDev/DiscordHub-sub000/api_endorsements/internal/notify"
	"github.com/DiscordHubDev/DiscordHub-sub000/pkg/config"
)

const (
	backendPostgres = "postgres"
	backendMemory   = "memory"
)

type serviceConfig struct {
	Port             string
	StoreBackend     string
	DatabaseURL      string
	JWTSecret        string
	ServiceToken     string
	PreviousToken    string
	PinTokenSecret   string
	CooldownWindow   time.Duration
	PinDuration      time.Duration
	TokenBucketWidth time.Duration
	RequestTolerance time.Duration
	RedisURL         string
	KafkaBrokers     []string
	KafkaTopic       string
	PinSweepInterval time.Duration
}

func loadServiceConfig() (serviceConfig, error) {
	cfg := serviceConfig{
		Port:             config.GetEnv("PORT", "18040"),
		StoreBackend:     config.GetEnv("STORE_BACKEND", backendPostgres),
		DatabaseURL:      config.GetEnv("DATABASE_URL", ""),
		JWTSecret:        config.GetEnv("JWT_SECRET", ""),
		ServiceToken:     config.GetEnv("SERVICE_TOKEN", ""),
		PreviousToken:    config.GetEnv("SERVICE_TOKEN_PREVIOUS", ""),
		PinTokenSecret:   config.GetEnv("PIN_TOKEN_SECRET", ""),
		CooldownWindow:   config.GetEnvDuration("COOLDOWN_WINDOW", ledger.DefaultWindow),
		PinDuration:      config.GetEnvDuration("PIN_DURATION", endorse.DefaultPinDuration),
		TokenBucketWidth: config.GetEnvDuration("TOKEN_BUCKET_WIDTH", clock.DefaultBucketWidth),
		RequestTolerance: config.GetEnvDuration("REQUEST_TOLERANCE", endorse.DefaultRequestTolerance),
		RedisURL:         config.GetEnv("REDIS_URL", ""),
		KafkaBrokers:     config.GetEnvList("KAFKA_BROKERS"),
		KafkaTopic:       config.GetEnv("KAFKA_TOPIC", notify.DefaultTopic),
		PinSweepInterval: config.GetEnvDuration("PIN_SWEEP_INTERVAL", time.Minute),
	}
	return cfg, cfg.validate()
}

func (c serviceConfig) validate() error {
	switch c.StoreBackend {
	case backendPostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is required when STORE_BACKEND=%s", backendPostgres)
		}
	case backendMemory:
	default:
		return fmt.Errorf("unknown STORE_BACKEND %q (want %s or %s)", c.StoreBackend, backendPostgres, backendMemory)
	}
	if c.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}
	return nil
}
