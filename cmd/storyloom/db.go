package main

import (
	"context"
	"fmt"

	"storyloom/internal/config"
	"storyloom/internal/store"
	"storyloom/internal/store/postgres"
	"storyloom/internal/store/sqlite"
)

func openStore(ctx context.Context, cfg *config.ProjectConfig) (store.Store, error) {
	switch cfg.Storage.Backend {
	case "postgres":
		return postgres.New(ctx, cfg.Storage.DSN)
	case "sqlite", "":
		return sqlite.New(ctx, cfg.Storage.DSN)
	default:
		return nil, fmt.Errorf("unsupported storage backend: %s", cfg.Storage.Backend)
	}
}
