package main

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/DiscordHubDev/DiscordHub-sub000/api_endorsements/internal/store"
	"github.com/DiscordHubDev/DiscordHub-sub000/pkg/database"
	"github.com/DiscordHubDev/DiscordHub-sub000/pkg/logging"
)

// openStore returns the configured backend. db is nil for the memory backend.
func openStore(ctx context.Context, cfg serviceConfig, logger logging.Logger) (store.Store, *sql.DB, error) {
	if cfg.StoreBackend == backendMemory {
		logger.Warn("Using in-memory store; endorsements are lost on restart")
		return store.NewMemory(), nil, nil
	}

	db, err := connectDatabase(ctx, cfg.DatabaseURL, logger)
	if err != nil {
		return nil, nil, err
	}
	return store.NewPostgres(db, store.DefaultPostgresConfig(), logger), db, nil
}

func connectDatabase(ctx context.Context, url string, logger logging.Logger) (*sql.DB, error) {
	dbConfig := database.DefaultConfig()
	dbConfig.URL = url
	db, err := database.Connect(ctx, dbConfig, logger)
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}
	return db, nil
}
