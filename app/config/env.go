package config

import (
	"fmt"
	"net"
	"os"
	"time"
)

// loadFromEnv overrides config from TASKS_* environment variables.
func loadFromEnv(cfg *Config) error {
	if v := os.Getenv("PORT"); v != "" {
		host, _, err := net.SplitHostPort(cfg.Addr)
		if err != nil {
			host = ""
		}
		cfg.Addr = net.JoinHostPort(host, v)
	}
	if v := os.Getenv("TASKS_ADDR"); v != "" {
		cfg.Addr = v
	}
	if v := os.Getenv("TASKS_STORE"); v != "" {
		cfg.Store = v
	}
	if v := os.Getenv("TASKS_DB_PATH"); v != "" {
		cfg.DatabasePath = v
	}
	if v := os.Getenv("TASKS_SHUTDOWN_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("TASKS_SHUTDOWN_TIMEOUT: %w", err)
		}
		cfg.ShutdownTimeout = d
	}
	if v := os.Getenv("TASKS_NEO4J_URI"); v != "" {
		cfg.Neo4j.URI = v
	}
	if v := os.Getenv("TASKS_NEO4J_USERNAME"); v != "" {
		cfg.Neo4j.Username = v
	}
	if v := os.Getenv("TASKS_NEO4J_PASSWORD"); v != "" {
		cfg.Neo4j.Password = v
	}
	if v := os.Getenv("TASKS_NEO4J_DATABASE"); v != "" {
		cfg.Neo4j.Database = v
	}
	if v := os.Getenv("TASKS_LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("TASKS_LOG_FORMAT"); v != "" {
		cfg.Log.Format = v
	}
	return nil
}
