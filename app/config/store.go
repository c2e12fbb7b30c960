package config

import (
	"context"
	"fmt"

	"tasks-api/app/storage"
)

// OpenStore opens the task store selected by cfg.Store.
func OpenStore(ctx context.Context, cfg *Config) (storage.TaskStore, error) {
	switch cfg.Store {
	case StoreSQLite:
		store, err := storage.OpenSQLite(ctx, cfg.DatabasePath)
		if err != nil {
			return nil, err
		}
		return store, nil
	case StoreNeo4j:
		driver, err := InitNeo4j(ctx, cfg.Neo4j)
		if err != nil {
			return nil, err
		}
		store, err := storage.OpenNeo4j(ctx, driver, cfg.Neo4j.Database)
		if err != nil {
			driver.Close(ctx)
			return nil, err
		}
		return store, nil
	}
	return nil, fmt.Errorf("unknown store %q", cfg.Store)
}
