// Package config loads service configuration from defaults, a TOML file,
// the environment and command-line flags, in that order.
package config

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"
)

// Store kinds.
const (
	StoreSQLite = "sqlite"
	StoreNeo4j  = "neo4j"
)

// Default values.
const (
	DefaultAddr            = "0.0.0.0:8000"
	DefaultDatabasePath    = "tasks.db"
	DefaultConfigFile      = "tasks.toml"
	DefaultNeo4jURI        = "neo4j://localhost:7687"
	DefaultNeo4jUsername   = "neo4j"
	DefaultLogLevel        = "info"
	DefaultLogFormat       = "text"
	DefaultShutdownTimeout = 10 * time.Second
)

// Config holds the full service configuration.
type Config struct {
	Addr            string        `toml:"addr"`
	Store           string        `toml:"store"`
	DatabasePath    string        `toml:"database_path"`
	ShutdownTimeout time.Duration `toml:"shutdown_timeout"`

	Neo4j Neo4jConfig `toml:"neo4j"`
	Log   LogConfig   `toml:"log"`
}

// Neo4jConfig configures the graph store.
type Neo4jConfig struct {
	URI      string `toml:"uri"`
	Username string `toml:"username"`
	Password string `toml:"password"`
	Database string `toml:"database"`
}

// LogConfig configures the logger.
type LogConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

// Default returns a Config populated with defaults.
func Default() *Config {
	return &Config{
		Addr:            DefaultAddr,
		Store:           StoreSQLite,
		DatabasePath:    DefaultDatabasePath,
		ShutdownTimeout: DefaultShutdownTimeout,
		Neo4j: Neo4jConfig{
			URI:      DefaultNeo4jURI,
			Username: DefaultNeo4jUsername,
		},
		Log: LogConfig{
			Level:  DefaultLogLevel,
			Format: DefaultLogFormat,
		},
	}
}

type flagValues struct {
	configFile string
	addr       string
	store      string
	dbPath     string
	logLevel   string
	logFormat  string
}

// Load builds the configuration: defaults, then the TOML file, then
// environment variables, then flags that were set explicitly.
func Load(fs *flag.FlagSet, args []string) (*Config, error) {
	var fv flagValues
	fs.StringVar(&fv.configFile, "config", "", "path to a TOML config file")
	fs.StringVar(&fv.addr, "addr", "", "listen address (host:port)")
	fs.StringVar(&fv.store, "store", "", "task store: sqlite or neo4j")
	fs.StringVar(&fv.dbPath, "db", "", "sqlite database file")
	fs.StringVar(&fv.logLevel, "log-level", "", "log level: debug, info, warn, error")
	fs.StringVar(&fv.logFormat, "log-format", "", "log format: text, json, logfmt")
	if err := fs.Parse(args); err != nil {
		return nil, fmt.Errorf("parsing flags: %w", err)
	}

	cfg := Default()

	path, required := configFilePath(fv.configFile)
	if path != "" {
		if err := loadFile(cfg, path, required); err != nil {
			return nil, err
		}
	}

	if err := loadFromEnv(cfg); err != nil {
		return nil, err
	}

	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "addr":
			cfg.Addr = fv.addr
		case "store":
			cfg.Store = fv.store
		case "db":
			cfg.DatabasePath = fv.dbPath
		case "log-level":
			cfg.Log.Level = fv.logLevel
		case "log-format":
			cfg.Log.Format = fv.logFormat
		}
	})

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// configFilePath picks the file to read. An explicitly named file must exist;
// the default file is optional.
func configFilePath(flagPath string) (string, bool) {
	if flagPath != "" {
		return flagPath, true
	}
	if v := os.Getenv("TASKS_CONFIG"); v != "" {
		return v, true
	}
	return DefaultConfigFile, false
}

func loadFile(cfg *Config, path string, required bool) error {
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) && !required {
			return nil
		}
		return fmt.Errorf("config file %s: %w", path, err)
	}
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return fmt.Errorf("decoding config file %s: %w", path, err)
	}
	return nil
}

// Validate reports settings the service cannot start with.
func (c *Config) Validate() error {
	if c.Addr == "" {
		return errors.New("config: addr is empty")
	}
	switch c.Store {
	case StoreSQLite:
		if c.DatabasePath == "" {
			return errors.New("config: database_path is empty")
		}
	case StoreNeo4j:
		if c.Neo4j.URI == "" {
			return errors.New("config: neo4j.uri is empty")
		}
	default:
		return fmt.Errorf("config: unknown store %q (want %q or %q)", c.Store, StoreSQLite, StoreNeo4j)
	}
	if c.ShutdownTimeout <= 0 {
		return errors.New("config: shutdown_timeout must be positive")
	}
	return nil
}
