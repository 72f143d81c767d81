package main

import (
	"context"
	"fmt"

	"github.com/verdantlabs/factormatch/internal/config"
	"github.com/verdantlabs/factormatch/internal/storage"
	"github.com/spf13/viper"
)

// initStorage opens the factor database with proper path expansion and
// runs pending migrations.
func initStorage(ctx context.Context) (*storage.SQLiteStore, error) {
	dbPath := viper.GetString("database.path")
	if dbPath == "" {
		dbPath = config.DefaultDatabasePath()
	} else {
		// Expand tilde and environment variables
		dbPath = config.ExpandPath(dbPath)
	}

	store, err := storage.NewSQLiteStore(dbPath)
	if err != nil {
		return nil, err
	}

	if err := store.Migrate(ctx); err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return store, nil
}
